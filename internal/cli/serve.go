package cli

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/telhawk-systems/stixbridge/internal/config"
	"github.com/telhawk-systems/stixbridge/internal/handlers"
	"github.com/telhawk-systems/stixbridge/internal/logging"
	"github.com/telhawk-systems/stixbridge/internal/publisher"
	"github.com/telhawk-systems/stixbridge/internal/server"
	"github.com/telhawk-systems/stixbridge/internal/service"
	"github.com/telhawk-systems/stixbridge/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the stixbridge HTTP service",
	Long:  `Starts the HTTP service exposing conversion, health and metrics endpoints.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Int("port", 0, "override listen port")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if port, _ := cmd.Flags().GetInt("port"); port != 0 {
		cfg.Server.Port = port
	}

	logger := logging.New(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format)
	logging.SetDefault(logger)

	var opts []service.Option
	if cfg.NATS.Enabled {
		pub, err := publisher.New(cfg.NATS, logger)
		if err != nil {
			return fmt.Errorf("connect publisher: %w", err)
		}
		defer pub.Close()
		opts = append(opts, service.WithPublisher(pub))
	}
	if cfg.OpenSearch.Enabled {
		indexer, err := storage.NewIndexer(cfg.OpenSearch, logger)
		if err != nil {
			return fmt.Errorf("connect indexer: %w", err)
		}
		opts = append(opts, service.WithIndexer(indexer))
	}

	converter := service.NewConverter(logger, opts...)
	router := server.NewRouter(handlers.NewConverterHandler(converter))

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout(),
		WriteTimeout: cfg.Server.WriteTimeout(),
		IdleTimeout:  cfg.Server.IdleTimeout(),
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
