package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-narrative/pkg/lint"
	"github.com/goliatone/go-narrative/pkg/model"
)

func newLintCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "lint",
		Short: "Check schemas for undeclared placeholders, bad rules and dangling references",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.loadStore()
			if err != nil {
				return err
			}
			modules := store.Modules()
			if a.moduleID != "" {
				module, ok := store.Module(a.moduleID)
				if !ok {
					return fmt.Errorf("module %q not found", a.moduleID)
				}
				modules = []*model.Module{module}
			}

			issues := lint.Modules(modules)
			out := cmd.OutOrStdout()
			for _, issue := range issues {
				fmt.Fprintln(out, issue.String())
			}
			a.log().Debug("lint finished", zap.Int("modules", len(modules)), zap.Int("issues", len(issues)))
			if len(issues) > 0 {
				return fmt.Errorf("lint: %d issue(s) in %d module(s)", len(issues), len(modules))
			}
			fmt.Fprintf(out, "ok: %d module(s)\n", len(modules))
			return nil
		},
	}
}
