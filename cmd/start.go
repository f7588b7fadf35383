package cmd

import (
	"fmt"

	"github.com/michaelpento.lv/arbagent/cmd/bot"
	"github.com/michaelpento.lv/arbagent/config"
	"github.com/michaelpento.lv/arbagent/utils"
	"github.com/michaelpento.lv/arbagent/utils/metrics"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the arbitrage runner",
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

		ctx := cmd.Context()

		a, err := newApp(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer a.Close()

		if cfg.Metrics.Enabled {
			metrics.Serve(ctx, cfg.Metrics.Addr, a.registry, log)
		}

		runCfg := bot.Config{
			Owner:               a.agent.Snapshot().Owner,
			Tokens:              config.Addresses(cfg.Agent.ScanTokens),
			Interval:            cfg.Runner.ScanInterval,
			RecordOpportunities: cfg.Runner.RecordOpportunities,
			DedupeCacheSize:     cfg.Runner.DedupeCacheSize,
			DedupeWindow:        cfg.Runner.DedupeWindow,
			AutoExecute:         cfg.Runner.AutoExecute,
			ExecutionsPerMinute: cfg.Runner.ExecutionsPerMinute,
		}
		if len(runCfg.Tokens) == 0 {
			runCfg.Tokens = config.Addresses(cfg.Agent.ApprovedTokens)
		}
		if cfg.Runner.AutoExecute {
			runCfg.TradeAmount, _ = config.ParseAmount(cfg.Runner.TradeAmount)
		}

		runner, err := bot.New(runCfg, a.agent, a.audit, log)
		if err != nil {
			return fmt.Errorf("failed to create runner: %w", err)
		}
		if err := runner.Start(ctx); err != nil {
			return fmt.Errorf("failed to start runner: %w", err)
		}

		log.Info("Arbitrage agent running",
			zap.Bool("dryRun", cfg.DryRun()),
			zap.String("venueA", a.agent.Snapshot().VenueA),
			zap.String("venueB", a.agent.Snapshot().VenueB))

		<-ctx.Done()
		log.Info("Shutting down gracefully...")
		runner.Stop()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
}
