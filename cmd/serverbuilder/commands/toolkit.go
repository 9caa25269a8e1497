package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/flamemarketdc-cyber/SErver-Builder/internal/provider"
	"github.com/flamemarketdc-cyber/SErver-Builder/internal/toolkit"
	"github.com/flamemarketdc-cyber/SErver-Builder/pkg/types"
)

var (
	toolkitTemplate string
	toolkitModel    string
)

var toolkitCmd = &cobra.Command{
	Use:   "toolkit <tutorial|welcome|rules|announcement|bots|embed> [prompt...]",
	Short: "Generate content for a server",
	Long: `Generate setup instructions, messages and bot suggestions for a saved
template. The prompt is the server's theme; for 'embed' it describes the
embed to design and no template is needed.

Examples:
  serverbuilder toolkit welcome -t guild.json "retro gaming guild"
  serverbuilder toolkit embed "weekly tournament announcement"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runToolkit,
}

func init() {
	toolkitCmd.Flags().StringVarP(&toolkitTemplate, "template", "t", "", "Template file (.json or .yaml, '-' for stdin)")
	toolkitCmd.Flags().StringVarP(&toolkitModel, "model", "m", "", "Model to use (provider/model format)")
}

// resolveSmall picks the model for toolkit and chat: the flag, then the
// configured small model, then the default model.
func resolveSmall(appConfig *types.Config, reg *provider.Registry, model string) (provider.Provider, *types.Model, error) {
	if model == "" {
		model = appConfig.SmallModel
	}
	if model == "" {
		model = appConfig.Model
	}
	return reg.Resolve(model)
}

func runToolkit(cmd *cobra.Command, args []string) error {
	tool, err := toolkit.ParseTool(args[0])
	if err != nil {
		return err
	}
	prompt := strings.Join(args[1:], " ")

	t := types.NewServerTemplate()
	switch {
	case toolkitTemplate != "":
		if t, err = readTemplate(toolkitTemplate, cmd.InOrStdin()); err != nil {
			return err
		}
	case tool != toolkit.ToolEmbed:
		return fmt.Errorf("--template is required for %s", tool)
	}
	if tool == toolkit.ToolEmbed && prompt == "" {
		return fmt.Errorf("embed needs a description")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appConfig, reg, err := loadProviders(ctx)
	if err != nil {
		return err
	}
	p, model, err := resolveSmall(appConfig, reg, toolkitModel)
	if err != nil {
		return err
	}

	result, err := toolkit.New(p, toolkit.WithModel(model.ID)).Run(ctx, tool, prompt, t)
	if err != nil {
		return err
	}

	if text, ok := result.(string); ok {
		fmt.Fprintln(cmd.OutOrStdout(), text)
		return nil
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(result)
}
