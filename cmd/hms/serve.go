package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hackgods/hospital-management-system/internal/api"
	"github.com/hackgods/hospital-management-system/internal/hospital"
	"github.com/hackgods/hospital-management-system/internal/logging"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve read-only reports and metrics over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			log, err := logging.New(cfg, logging.Options{ToStdout: true, ToFile: true})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer func() { _ = log.Sync() }()

			rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			sys, err := hospital.Open(rootCtx, cfg, log)
			if err != nil {
				return err
			}
			defer sys.Close()

			srv := &http.Server{
				Addr: ":" + cfg.HTTPPort,
				Handler: api.NewRouter(api.RouterConfig{
					Appointments: sys.Slots,
					Outcomes:     sys.Outcomes,
					Medicines:    sys.Medicines,
					DataDir:      cfg.DataDir,
					PgPool:       sys.PgPool,
					Redis:        sys.Redis,
					Log:          log,
					Env:          cfg.Env,
					Version:      version,
				}),
				ReadHeaderTimeout: 5 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("http server: %w", err)
				}
				return nil
			case <-rootCtx.Done():
			}

			log.Info("shutting down http server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("http shutdown: %w", err)
			}
			return nil
		},
	}
}
