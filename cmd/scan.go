package cmd

import (
	"fmt"

	"github.com/michaelpento.lv/arbagent/config"
	"github.com/michaelpento.lv/arbagent/utils"
	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the configured tokens once and print the opportunities",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		log, err := configureLogger(cfg)
		if err != nil {
			return err
		}
		defer utils.CleanupLogger()

		a, err := newApp(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer a.Close()

		tokens := config.Addresses(cfg.Agent.ScanTokens)
		if len(tokens) == 0 {
			tokens = config.Addresses(cfg.Agent.ApprovedTokens)
		}

		opps, err := a.agent.FindOpportunities(cmd.Context(), tokens)
		if err != nil {
			return fmt.Errorf("failed to scan: %w", err)
		}

		state := a.agent.Snapshot()
		writeOpportunities(cmd.OutOrStdout(), opps, state.VenueA, state.VenueB)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
}
