package main

import (
	"fmt"
	"os"
	"path/filepath"

	"leadcrm/common/database"
	"leadcrm/common/logger"
	"leadcrm/internal/importer"
	"leadcrm/internal/repository"
	"leadcrm/internal/service"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func createLeadsCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "create_leads <file> <organizer_email>",
		Short: "Import leads from a CSV or XLSX file for an organizer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, appName)
			if err != nil {
				return err
			}
			defer log.Sync()

			rows, err := readRows(args[0])
			if err != nil {
				return err
			}

			db, err := database.NewPostgresDBWithRetry(&cfg.Database, cfg.DBConnectTimeout, log)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer database.Close(db)

			imports := service.NewImportService(
				repository.NewPostgresUsersRepository(db),
				repository.NewPostgresLeadsRepository(db),
				log,
			)
			n, err := imports.Import(cmd.Context(), args[1], rows)
			if err != nil {
				return err
			}
			log.Info("Leads imported", zap.String("file", args[0]), zap.Int("count", n))
			fmt.Fprintf(cmd.OutOrStdout(), "The leads from the %s has been successfully created\n", args[0])
			return nil
		},
	}
}

func readRows(path string) ([]importer.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return importer.ReadFile(filepath.Base(path), f)
}

