package main

import (
	"fmt"
	"os"
	"strings"

	"leadcrm/common/database"
	"leadcrm/common/logger"

	"github.com/spf13/cobra"
)

func applyMigrationCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "apply-migration <migration_file.sql>",
		Short: "Apply a SQL migration file statement by statement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read migration file: %w", err)
			}
			cfg, err := load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, appName)
			if err != nil {
				return err
			}
			defer log.Sync()

			db, err := database.NewPostgresDBWithRetry(&cfg.Database, cfg.DBConnectTimeout, log)
			if err != nil {
				return fmt.Errorf("cannot connect to database: %w", err)
			}
			defer database.Close(db)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Connected to database: %s\n\n", cfg.Database.Database)

			statements := splitStatements(string(content))
			for i, stmt := range statements {
				fmt.Fprintf(out, "Executing statement %d/%d...\n", i+1, len(statements))
				if _, err := db.ExecContext(cmd.Context(), stmt); err != nil {
					return fmt.Errorf("failed to execute statement %d: %w\nStatement: %s", i+1, err, stmt[:min(100, len(stmt))])
				}
			}
			fmt.Fprintln(out, "Migration completed successfully!")
			return nil
		},
	}
}

// splitStatements drops "--" comment lines and splits on ";".
// Dollar-quoted bodies are not supported.
func splitStatements(sqlText string) []string {
	var b strings.Builder
	for _, line := range strings.Split(sqlText, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}

	var out []string
	for _, stmt := range strings.Split(b.String(), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}
