package commands

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/cobra"

	"github.com/flamemarketdc-cyber/SErver-Builder/internal/config"
	"github.com/flamemarketdc-cyber/SErver-Builder/internal/generator"
	"github.com/flamemarketdc-cyber/SErver-Builder/internal/session"
	"github.com/flamemarketdc-cyber/SErver-Builder/pkg/types"
)

var (
	generateModel  string
	generateRecord bool
	generateNoSave bool
	generateOutput outputFlags
)

var generateCmd = &cobra.Command{
	Use:   "generate [prompt...]",
	Short: "Generate a server template from a theme",
	Long: `Generate a Discord server template for a theme. The template is printed
as the model streams it; press Ctrl-C to stop early and keep what arrived.

Examples:
  serverbuilder generate "cozy coffee shop community"
  serverbuilder generate --model openai/gpt-4o-mini "chess club"
  serverbuilder generate --format yaml --out guild.yaml "retro gaming guild"
  serverbuilder generate --record "book club"   # keep the raw output for 'decode'`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&generateModel, "model", "m", "", "Model to use (provider/model format)")
	generateCmd.Flags().BoolVar(&generateRecord, "record", false, "Save the raw model output to the transcripts directory")
	generateCmd.Flags().BoolVar(&generateNoSave, "no-save", false, "Do not add the template to the history")
	generateOutput.register(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	prompt := strings.Join(args, " ")
	if err := generator.ValidatePrompt(prompt); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appConfig, reg, err := loadProviders(ctx)
	if err != nil {
		return err
	}

	r, err := generateOutput.renderer(cmd)
	if err != nil {
		return err
	}

	model := generateModel
	if model == "" {
		model = appConfig.Model
	}
	id := ulid.Make().String()
	opts := []generator.Option{
		generator.WithModel(model),
		generator.WithGeneration(appConfig.Generation),
	}

	if generateRecord {
		path := config.GetPaths().TranscriptPath(id)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("failed to create transcripts directory: %w", err)
		}
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create transcript: %w", err)
		}
		defer func() {
			f.Close()
			fmt.Fprintf(cmd.ErrOrStderr(), "transcript: %s\n", path)
		}()
		opts = append(opts, generator.WithTranscript(f))
	}

	res, err := generator.New(reg, opts...).Generate(ctx, prompt, func(t *types.ServerTemplate) session.Action {
		r.Snapshot(t)
		return session.Continue
	}, session.WithID(id))
	if !generateNoSave {
		saveCreation(cmd, prompt, model, res)
	}
	return generateOutput.finish(r, res, err)
}
