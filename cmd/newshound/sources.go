package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pevans/newshound/sources"
)

func newSourcesCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "Show configured sources and their health",
	}
	cmd.AddCommand(newSourcesListCommand(opts), newSourcesStatusCommand(opts))
	return cmd
}

func newSourcesListCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := opts.load()
			if err != nil {
				return err
			}
			printSourceRules(cmd.OutOrStdout(), cfg.Sources)
			return nil
		},
	}
}

func newSourcesStatusCommand(opts *globalOptions) *cobra.Command {
	var failing bool
	var limit int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the health ledger recorded by previous runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := opts.load()
			if err != nil {
				return err
			}
			if cfg.Output.Health == "" {
				return errors.New("no health ledger configured (output.health)")
			}

			store, err := sources.NewHealthStore(cfg.Output.Health)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.List(sources.Filter{FailingOnly: failing, Limit: limit})
			if err != nil {
				return fmt.Errorf("failed to list source health: %w", err)
			}
			printHealth(cmd.OutOrStdout(), entries)
			return nil
		},
	}
	cmd.Flags().BoolVar(&failing, "failing", false, "only sources whose last runs all failed")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of rows")
	return cmd
}
