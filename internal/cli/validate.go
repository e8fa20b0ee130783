package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-narrative/pkg/render"
	"github.com/goliatone/go-narrative/pkg/validation"
)

func newValidateCommand(a *app) *cobra.Command {
	var remotePath string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a values file against a module",
		Long: `Validate checks the --values file against the module's rules. Only
fields that are visible and on selected branches are reported. The command
exits non-zero when any problem remains.

--remote-errors merges an error payload returned by a submission system
(yaml or json, keyed by JSON pointer or dotted path) into the report. Keys
that match no field are reported as form-level problems.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			module, controller, err := a.loadModule()
			if err != nil {
				return err
			}
			controller.ValidateForm()
			errs := controller.Errors()

			var formErrs []string
			if strings.TrimSpace(remotePath) != "" {
				payload, err := loadErrorPayload(remotePath)
				if err != nil {
					return err
				}
				mapping := render.MapErrorPayload(module, payload)
				errs = errs.Merge(mapping.Errors())
				formErrs = render.MergeFormErrors(formErrs, mapping.Form...)
			}

			out := cmd.OutOrStdout()
			if errs.Count() == 0 && len(formErrs) == 0 {
				fmt.Fprintf(out, "%s: no problems\n", module.ID)
				return nil
			}
			for _, line := range render.Lines(module, errs) {
				fmt.Fprintln(out, line)
			}
			for _, message := range formErrs {
				fmt.Fprintf(out, "Form: %s\n", message)
			}
			return fmt.Errorf("%s: %s", module.ID, describeProblems(errs, formErrs))
		},
	}
	cmd.Flags().StringVar(&remotePath, "remote-errors", "", "error payload to merge into the report (yaml or json)")
	return cmd
}

func describeProblems(errs validation.Errors, formErrs []string) string {
	summary := render.Summarize(errs)
	switch {
	case len(formErrs) == 0:
		return summary.String()
	case summary.Empty():
		return fmt.Sprintf("%d form-level problem(s)", len(formErrs))
	default:
		return fmt.Sprintf("%s, %d form-level", summary, len(formErrs))
	}
}

// loadErrorPayload reads a path-keyed error payload. Each key may hold a
// single message or a list of messages.
func loadErrorPayload(path string) (map[string][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read remote errors: %w", err)
	}
	return decodeErrorPayload(data, path)
}

func decodeErrorPayload(data []byte, source string) (map[string][]string, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse remote errors %s: %w", source, err)
	}
	payload := make(map[string][]string, len(raw))
	for key, value := range raw {
		switch v := value.(type) {
		case nil:
		case string:
			payload[key] = append(payload[key], v)
		case []any:
			for _, item := range v {
				payload[key] = append(payload[key], fmt.Sprint(item))
			}
		default:
			return nil, fmt.Errorf("parse remote errors %s: %q must be a message or a list of messages", source, key)
		}
	}
	return payload, nil
}
