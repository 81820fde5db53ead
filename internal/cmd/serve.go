package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/scrubd-io/scrubd/internal/audit"
	"github.com/scrubd-io/scrubd/internal/config"
	"github.com/scrubd-io/scrubd/internal/server"
)

var (
	servePort    int
	serveNoAudit bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the scrubd HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "HTTP server port")
	serveCmd.Flags().BoolVar(&serveNoAudit, "no-audit", false, "Disable the signed audit trail")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	cfg.WarnIfDefaultKeys()

	engine, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	extractor := buildExtractor(cfg)

	opts := []server.Option{
		server.WithCORSOrigins([]string{"*"}),
		server.WithVersion(resolvedVersion()),
	}

	var auditStore *audit.Store
	if !serveNoAudit {
		auditStore, err = audit.NewStore(cfg.AuditDBPath(), cfg.SigningKey)
		if err != nil {
			return fmt.Errorf("initializing audit store: %w", err)
		}
		defer auditStore.Close()
		opts = append(opts, server.WithAuditStore(auditStore))
	}

	if cfg.RateLimitRPM > 0 {
		// global budget is 10x the per-caller budget
		opts = append(opts, server.WithRateLimiter(server.NewRateLimiter(cfg.RateLimitRPM*10, cfg.RateLimitRPM)))
	}

	apiKeys := parseAPIKeys(cfg.APIKeys)
	if len(apiKeys) == 0 {
		log.Warn().Msg("SCRUBD_API_KEYS not set — API endpoints are open. Set for production.")
	} else {
		opts = append(opts, server.WithAPIKeys(apiKeys))
	}

	srv := server.NewServer(engine, extractor, opts...)

	addr := fmt.Sprintf(":%d", servePort)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      srv.Routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	log.Info().
		Str("addr", addr).
		Bool("nlp", engine.NLPAvailable()).
		Bool("audit", auditStore != nil).
		Bool("auth", len(apiKeys) > 0).
		Msg("scrubd_serve_started")

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown_signal_received")
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info().Msg("server_stopped")
	return nil
}
