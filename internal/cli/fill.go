package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-narrative/pkg/render"
	"github.com/goliatone/go-narrative/pkg/renderers/tui"
)

type fillFlags struct {
	out         string
	format      string
	maxAttempts int
}

func newFillCommand(a *app) *cobra.Command {
	var flags fillFlags
	cmd := &cobra.Command{
		Use:   "fill",
		Short: "Answer a module's fields interactively and write the values",
		Long: `Fill prompts for every visible field in reading order, starting from the
--values file when given. Answers are validated as they are entered. The
collected values are written as YAML or JSON.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			module, controller, err := a.loadModule()
			if err != nil {
				return err
			}
			driver := a.driver
			if driver == nil {
				driver = tui.NewSurveyDriver(cmd.ErrOrStderr())
			}
			session, err := tui.NewSession(controller,
				tui.WithPromptDriver(driver),
				tui.WithLogger(a.log()),
				tui.WithMaxAttempts(flags.maxAttempts),
			)
			if err != nil {
				return err
			}

			tree, err := session.Run(cmd.Context())
			if errors.Is(err, tui.ErrAborted) {
				a.log().Info("fill aborted", zap.String("module", module.ID))
				return err
			}
			if err != nil {
				return fmt.Errorf("fill %s: %w", module.ID, err)
			}

			data, err := encodeValues(tree, strings.TrimSpace(flags.format), flags.out)
			if err != nil {
				return err
			}
			if err := writeOutput(cmd.OutOrStdout(), flags.out, data); err != nil {
				return err
			}
			if failures := session.Failures(); len(failures) > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", module.ID, render.Summarize(failures))
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.out, "out", "", "write values to file instead of stdout")
	f.StringVar(&flags.format, "format", "", "values format (yaml, json); inferred from --out")
	f.IntVar(&flags.maxAttempts, "max-attempts", 0, "give up after this many invalid answers to one field (0 = unlimited)")
	return cmd
}
