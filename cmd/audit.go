package cmd

import (
	"fmt"

	"github.com/michaelpento.lv/arbagent/audit"
	"github.com/michaelpento.lv/arbagent/config"
	"github.com/spf13/cobra"
)

var (
	auditLimit int
	auditKind  string
	auditDB    string
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "List records from the SQLite audit log",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := auditDB
		if path == "" {
			cfg, err := config.LoadConfig(cfgFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			path = cfg.Audit.SQLitePath
		}
		if path == "" {
			return fmt.Errorf("no sqlite audit log configured")
		}

		store, err := audit.NewSQLiteStore(path)
		if err != nil {
			return err
		}
		defer store.Close()

		recs, err := store.List(cmd.Context(), audit.Kind(auditKind), auditLimit)
		if err != nil {
			return err
		}
		writeAuditRecords(cmd.OutOrStdout(), recs)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.Flags().IntVar(&auditLimit, "limit", 50, "number of most recent records to show, 0 for all")
	auditCmd.Flags().StringVar(&auditKind, "kind", "", "only show records of this kind")
	auditCmd.Flags().StringVar(&auditDB, "db", "", "sqlite file (default is audit.sqlite_path from the config)")
}
