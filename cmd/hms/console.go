package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hackgods/hospital-management-system/internal/console"
	"github.com/hackgods/hospital-management-system/internal/hospital"
	"github.com/hackgods/hospital-management-system/internal/logging"
	"github.com/hackgods/hospital-management-system/internal/personnel"
)

func newConsoleCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Start the interactive console",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			// stdout belongs to the menus.
			log, err := logging.New(cfg, logging.Options{ToFile: true})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer func() { _ = log.Sync() }()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			sys, err := hospital.Open(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer sys.Close()

			admin, err := sys.Bootstrap(ctx)
			if err != nil {
				return err
			}
			if admin != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Created administrator %s with password %q.\n", admin.ID, personnel.DefaultPassword)
			}

			log.Info("console session started", zap.String("data_dir", cfg.DataDir))
			app := console.New(os.Stdin, cmd.OutOrStdout(), console.Deps{
				Sessions:  sys.Sessions,
				Accounts:  sys.Accounts,
				Slots:     sys.Slots,
				Records:   sys.Records,
				Medicines: sys.Medicines,
				Outcomes:  sys.Outcomes,
				Log:       log,
			})
			return app.Run(ctx)
		},
	}
}
