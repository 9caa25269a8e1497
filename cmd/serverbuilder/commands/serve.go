package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/flamemarketdc-cyber/SErver-Builder/internal/logging"
	"github.com/flamemarketdc-cyber/SErver-Builder/internal/server"
)

var (
	servePort int
	serveCORS bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start Server Builder as an HTTP server. Templates, toolkit results and
assistant replies are streamed as Server-Sent Events.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8080, "Port to listen on")
	serveCmd.Flags().BoolVar(&serveCORS, "cors", true, "Allow cross-origin requests")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	appConfig, reg, err := loadProviders(ctx)
	if err != nil {
		return err
	}

	serverConfig := server.DefaultConfig()
	serverConfig.Port = servePort
	serverConfig.EnableCORS = serveCORS
	if s := appConfig.Server; s != nil {
		if s.Port != 0 && !cmd.Flags().Changed("port") {
			serverConfig.Port = s.Port
		}
		if s.EnableCORS != nil && !cmd.Flags().Changed("cors") {
			serverConfig.EnableCORS = *s.EnableCORS
		}
	}

	srv := server.New(serverConfig, appConfig, reg, server.WithHistory(historyStore()))

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Int("port", serverConfig.Port).Msg("server listening")
		cmd.PrintErrf("Server listening on http://localhost:%d\n", serverConfig.Port)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return err
	}

	logging.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("server shutdown error")
		return err
	}
	cmd.PrintErrln("Server stopped")
	return nil
}
