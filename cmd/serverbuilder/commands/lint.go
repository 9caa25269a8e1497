package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flamemarketdc-cyber/SErver-Builder/internal/lint"
	"github.com/flamemarketdc-cyber/SErver-Builder/internal/render"
)

var lintCmd = &cobra.Command{
	Use:   "lint <template.json|template.yaml|->",
	Short: "Check a template for problems",
	Long: `Check a saved template for malformed colours, channel names, unknown
permissions and missing pieces. Exits non-zero when an error is found.`,
	Args: cobra.ExactArgs(1),
	RunE: runLint,
}

func runLint(cmd *cobra.Command, args []string) error {
	t, err := readTemplate(args[0], cmd.InOrStdin())
	if err != nil {
		return err
	}

	findings := lint.Check(t)
	r := render.New(render.Config{NoColor: noColor, Out: cmd.OutOrStdout(), Err: cmd.OutOrStdout()})
	r.Findings(findings)
	if len(findings) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no problems found")
	}
	if lint.HasErrors(findings) {
		return errLintFailed
	}
	return nil
}
