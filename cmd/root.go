package cmd

import (
	"context"
	"fmt"

	"github.com/michaelpento.lv/arbagent/config"
	"github.com/michaelpento.lv/arbagent/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgFile string
	envFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "arbagent",
	Short: "A two-venue arbitrage agent",
	Long: `A CLI arbitrage agent that compares prices for whitelisted token pairs on
two venues, executes round trips that clear the profit threshold and keeps an
audit log of every decision.`,
	SilenceUsage: true,
}

// ExecuteContext runs the root command; ctx is cancelled on shutdown signals
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.arbagent.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "env file with secrets (default is ./.env)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

func initConfig() {
	log := utils.InitLogger(debug)

	var files []string
	if envFile != "" {
		files = append(files, envFile)
	}
	if err := config.LoadEnv(files...); err != nil {
		log.Warn("Failed to load env file", zap.Error(err))
	}
}

// configureLogger rebuilds the global logger from the loaded config. The
// --debug flag overrides the configured level.
func configureLogger(cfg *config.Config) (*zap.Logger, error) {
	log, err := utils.ConfigureLogger(utils.LogOptions{
		Debug:     debug || cfg.Log.Debug,
		Encoding:  cfg.Log.Encoding,
		File:      cfg.Log.File,
		ErrorFile: cfg.Log.ErrorFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to configure logger: %w", err)
	}
	return log, nil
}
