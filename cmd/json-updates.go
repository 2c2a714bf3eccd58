package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/adfharrison1/json-updates/pkg/api"
	"github.com/adfharrison1/json-updates/pkg/config"
	"github.com/adfharrison1/json-updates/pkg/gateway"
	"github.com/adfharrison1/json-updates/pkg/notify"
	"github.com/adfharrison1/json-updates/pkg/server"
	"github.com/adfharrison1/json-updates/pkg/storage"
)

const shutdownTimeout = 30 * time.Second

type rootOptions struct {
	EnvFile string
	Port    string
	Backend string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		log.Printf("ERROR: %v", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "json-updates",
		Short: "HTTP gateway appending JSON records to a document store",
		Long: `json-updates accepts batches of JSON records on POST /data and inserts them
into a document store, skipping records whose id already exists.

Configuration is read from the environment and an optional .env file;
flags take precedence over both.

Examples:
  json-updates                                  # Start with .env and environment
  json-updates --port 9090                      # Custom port
  json-updates --backend sqlite                 # Single-node SQLite store
  json-updates --env-file /etc/json-updates.env # Custom env file`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			applyFlagOverrides(cmd, opts)
			cfg, err := config.Load(opts.EnvFile)
			if err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return run(cfg)
		},
	}

	cmd.Flags().StringVar(&opts.EnvFile, "env-file", ".env", "path to an env file (ignored when missing)")
	cmd.Flags().StringVar(&opts.Port, "port", "", "server port (overrides PORT)")
	cmd.Flags().StringVar(&opts.Backend, "backend", "", "store backend: mongo, sqlite or memory (overrides STORE_BACKEND)")

	return cmd
}

// applyFlagOverrides exports explicitly set flags so they win over the env file
func applyFlagOverrides(cmd *cobra.Command, opts *rootOptions) {
	if cmd.Flags().Changed("port") {
		os.Setenv("PORT", opts.Port)
	}
	if cmd.Flags().Changed("backend") {
		os.Setenv("STORE_BACKEND", opts.Backend)
	}
}

func run(cfg *config.Config) error {
	store, isConflict, err := storage.Open(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.Backend, err)
	}
	log.Printf("INFO: Using %s store backend", cfg.Backend)

	gatewayOptions := []gateway.Option{gateway.WithWriteTimeout(cfg.WriteTimeout)}
	var publisher *notify.KafkaPublisher
	if cfg.KafkaEnabled() {
		publisher = notify.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		gatewayOptions = append(gatewayOptions, gateway.WithPublisher(publisher))
		log.Printf("INFO: Publishing inserted records to topic %s", cfg.KafkaTopic)
	} else {
		log.Printf("DEBUG: Change feed disabled")
	}

	gw := gateway.New(gateway.NewAuthGate(cfg.AccessToken, cfg.CollectionsPrefix), store, isConflict, gatewayOptions...)
	handler := api.NewHandler(gw, store,
		api.WithBackendName(cfg.Backend),
		api.WithRedirectURL(cfg.RedirectURL),
		api.WithMaxBodyBytes(cfg.MaxBodyBytes),
	)
	srv := server.NewServer(handler)

	httpServer := &http.Server{
		Addr:    cfg.Addr(),
		Handler: srv.Router(),
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("Starting json-updates server on %s", cfg.Addr())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	var runErr error
	select {
	case <-quit:
		log.Println("Shutting down server...")
	case err := <-serveErr:
		runErr = fmt.Errorf("server failed: %w", err)
		log.Printf("ERROR: %v", runErr)
	}

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("ERROR: Server forced to shutdown: %v", err)
	}
	gw.Flush()
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			log.Printf("WARN: Failed to close publisher: %v", err)
		}
	}
	if err := store.Close(ctx); err != nil {
		log.Printf("ERROR: Failed to close store: %v", err)
	}

	log.Println("Server exited")
	return runErr
}
