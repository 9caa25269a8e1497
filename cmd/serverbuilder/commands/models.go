package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models [provider]",
	Short: "List available models",
	Long: `List all available models from configured providers. The default
model is marked with '*'.

Examples:
  serverbuilder models           # List all models
  serverbuilder models google    # List only Gemini models`,
	Args: cobra.MaximumNArgs(1),
	RunE: runModels,
}

func runModels(cmd *cobra.Command, args []string) error {
	_, reg, err := loadProviders(cmd.Context())
	if err != nil {
		return err
	}

	var providerFilter string
	if len(args) > 0 {
		providerFilter = args[0]
	}

	var defaultRef string
	if m, err := reg.DefaultModel(); err == nil {
		defaultRef = m.ProviderID + "/" + m.ID
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\tPROVIDER\tMODEL\tCONTEXT\tMAX OUTPUT\t")
	for _, model := range reg.AllModels() {
		if providerFilter != "" && model.ProviderID != providerFilter {
			continue
		}
		mark := ""
		if model.ProviderID+"/"+model.ID == defaultRef {
			mark = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%dk\t%d\t\n",
			mark,
			model.ProviderID,
			model.ID,
			model.ContextLength/1000,
			model.MaxOutputTokens,
		)
	}
	return w.Flush()
}
