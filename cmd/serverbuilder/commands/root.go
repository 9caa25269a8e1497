// Package commands provides the CLI commands for Server Builder.
package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/flamemarketdc-cyber/SErver-Builder/internal/config"
	"github.com/flamemarketdc-cyber/SErver-Builder/internal/logging"
	"github.com/flamemarketdc-cyber/SErver-Builder/internal/provider"
	"github.com/flamemarketdc-cyber/SErver-Builder/pkg/types"
)

var (
	// Version information set at build time
	Version   = "0.1.0"
	BuildTime = "dev"
)

// Global flags
var (
	printLogs bool
	logLevel  string
	noColor   bool
	workDir   string
)

var rootCmd = &cobra.Command{
	Use:   "serverbuilder",
	Short: "Server Builder - AI-generated Discord server templates",
	Long: `Server Builder turns a short theme into a complete Discord server
template: name, roles, categories, channels and settings, streamed as the
model writes them.

Run 'serverbuilder generate "retro gaming guild"' to build a template, or
'serverbuilder serve' to start the HTTP API.`,
	Version:           Version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&printLogs, "print-logs", false, "Print logs to stderr")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (DEBUG|INFO|WARN|ERROR)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().StringVar(&workDir, "directory", "", "Project directory for serverbuilder.json")

	rootCmd.SetVersionTemplate(fmt.Sprintf("serverbuilder %s (%s)\n", Version, BuildTime))

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(toolkitCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(lintCmd)
	rootCmd.AddCommand(historyCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// setup loads .env files and configures logging. Logs go to a file in the
// state directory unless --print-logs is set.
func setup(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	level := logLevel
	if level == "" {
		level = os.Getenv(config.EnvLogLevel)
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = logging.ParseLevel(level)
	if printLogs {
		logCfg.Output = cmd.ErrOrStderr()
		logCfg.Pretty = true
	} else {
		logCfg.Output = io.Discard
		logCfg.LogToFile = true
		paths := config.GetPaths()
		if err := paths.EnsurePaths(); err == nil {
			logCfg.LogDir = paths.State
		}
	}
	logging.Init(logCfg)
	return nil
}

// GetWorkDir returns the working directory from flag or current directory.
func GetWorkDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	return os.Getwd()
}

// loadConfig loads configuration for the working directory. A log level set
// in config applies when no flag or env var chose one.
func loadConfig() (*types.Config, error) {
	dir, err := GetWorkDir(workDir)
	if err != nil {
		return nil, err
	}
	appConfig, err := config.Load(dir)
	if err != nil {
		return nil, err
	}
	if logLevel == "" && os.Getenv(config.EnvLogLevel) == "" && appConfig.LogLevel != "" {
		logging.Logger = logging.Logger.Level(logging.ParseLevel(appConfig.LogLevel))
	}
	return appConfig, nil
}

// loadProviders loads configuration and initializes providers.
func loadProviders(ctx context.Context) (*types.Config, *provider.Registry, error) {
	appConfig, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	reg, err := provider.InitializeProviders(ctx, appConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize providers: %w", err)
	}
	if len(reg.List()) == 0 {
		return nil, nil, fmt.Errorf("no providers configured: set GEMINI_API_KEY or add a provider to %s", config.GlobalConfigPath())
	}
	return appConfig, reg, nil
}
