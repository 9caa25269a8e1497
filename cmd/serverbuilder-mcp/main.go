// Command serverbuilder-mcp runs the Server Builder MCP server over stdio,
// or over SSE when --sse is given.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/flamemarketdc-cyber/SErver-Builder/internal/config"
	"github.com/flamemarketdc-cyber/SErver-Builder/internal/generator"
	"github.com/flamemarketdc-cyber/SErver-Builder/internal/logging"
	"github.com/flamemarketdc-cyber/SErver-Builder/internal/provider"
	"github.com/flamemarketdc-cyber/SErver-Builder/pkg/mcpserver/builder"
)

var (
	sseAddr   string
	directory string
	model     string
	logLevel  string
)

var rootCmd = &cobra.Command{
	Use:           "serverbuilder-mcp",
	Short:         "Serve the Server Builder tools over MCP",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().StringVar(&sseAddr, "sse", "", "Serve over SSE on this address instead of stdio (e.g. localhost:8090)")
	rootCmd.Flags().StringVar(&directory, "directory", "", "Project directory for serverbuilder.json")
	rootCmd.Flags().StringVarP(&model, "model", "m", "", "Model to generate with (provider/model format)")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "Log level (DEBUG|INFO|WARN|ERROR)")
}

func main() {
	_ = godotenv.Load()
	if err := rootCmd.Execute(); err != nil {
		logging.Error().Err(err).Msg("mcp server failed")
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	// stdout carries the protocol in stdio mode.
	logCfg := logging.DefaultConfig()
	logCfg.Level = logging.ParseLevel(logLevel)
	logging.Init(logCfg)

	dir := directory
	if dir == "" {
		var err error
		if dir, err = os.Getwd(); err != nil {
			return err
		}
	}
	appConfig, err := config.Load(dir)
	if err != nil {
		return err
	}

	var opts []builder.Option
	reg, err := provider.InitializeProviders(context.Background(), appConfig)
	switch {
	case err != nil:
		logging.Warn().Err(err).Msg("providers unavailable, generate_template disabled")
	case len(reg.List()) == 0:
		logging.Warn().Msg("no providers configured, generate_template disabled")
	default:
		ref := model
		if ref == "" {
			ref = appConfig.Model
		}
		opts = append(opts, builder.WithGenerator(generator.New(reg,
			generator.WithModel(ref),
			generator.WithGeneration(appConfig.Generation),
		)))
	}

	s := builder.NewServer(opts...)
	if sseAddr != "" {
		logging.Info().Str("addr", sseAddr).Msg("serving MCP over SSE")
		return server.NewSSEServer(s, server.WithBaseURL("http://"+sseAddr)).Start(sseAddr)
	}
	return server.ServeStdio(s)
}
