package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-verifier/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the Face Verifier HTTP server.
The server exposes registration and verification endpoints, the
endpoints of the original API (/api/register, /api/enroll), stats
and Prometheus metrics.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides WEB_PORT)")
	serveCmd.Flags().String("host", "", "Host to bind to (overrides WEB_HOST)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, appOptions{withStore: true, withExtractor: true, withIndex: true})
	if err != nil {
		return err
	}
	defer a.close()

	if port := mustGetInt(cmd, "port"); port != 0 {
		a.cfg.Server.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		a.cfg.Server.Host = host
	}

	deps := web.Dependencies{
		Service:  a.service,
		Store:    a.store,
		Index:    a.index,
		Model:    a.model,
		Logger:   a.log,
		Gatherer: a.registry,
	}
	server := web.NewServer(a.cfg, deps)

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		a.log.Info().Msg("shutdown signal received")
		a.saveIndex()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			a.log.Error().Err(err).Msg("error during shutdown")
		}
	}()

	fmt.Printf("Face Verifier listening on http://%s\n", a.cfg.Server.Addr())
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	<-shutdownDone
	return nil
}
