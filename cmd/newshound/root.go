package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pevans/newshound/config"
	"github.com/pevans/newshound/logger"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	logLevel   string
	debug      bool
}

func newRootCommand() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "newshound",
		Short: "Find news articles mentioning a set of companies",
		Long: `newshound searches Romanian news sites for every alias of every configured
entity, saves the article links it finds and then retrieves their full text.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default ~/.newshound/config.yaml)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error (NEWSHOUND_LOG_LEVEL)")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "human-readable debug logging")

	cmd.AddCommand(
		newSearchCommand(opts),
		newContentCommand(opts),
		newRunCommand(opts),
		newSourcesCommand(opts),
	)
	return cmd
}

// load reads, overrides and validates the configuration, then builds the
// logger it describes.
func (o *globalOptions) load() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, err
	}
	cfg.ApplyEnv()
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.debug {
		cfg.Log.Level = "debug"
		cfg.Log.Development = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, log, nil
}
