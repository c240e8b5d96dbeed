package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pevans/newshound"
	"github.com/pevans/newshound/newsfeed"
)

// selectionFlags narrow a run to some sources and entities.
type selectionFlags struct {
	sources  []string
	entities []string
	output   string
}

func (f *selectionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&f.sources, "source", "s", nil, "only search these sources (default: all enabled)")
	cmd.Flags().StringSliceVarP(&f.entities, "entity", "e", nil, "only search these entities (default: all)")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "stubs file (default from config)")
}

func (f *selectionFlags) selection() newshound.Selection {
	return newshound.Selection{Sources: f.sources, Entities: f.entities}
}

func newSearchCommand(opts *globalOptions) *cobra.Command {
	flags := &selectionFlags{}

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search every source and save the article stubs as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck
			if flags.output != "" {
				cfg.Output.Stubs = flags.output
			}

			summary, err := newshound.NewRunner(cfg, log).Search(cmd.Context(), flags.selection())
			if summary != nil && summary.Search != nil {
				printSearchSummary(cmd.OutOrStdout(), summary.Search)
				fmt.Fprintf(cmd.OutOrStdout(), "\nSaved %d articles to %s\n", len(summary.Search.Stubs), cfg.Output.Stubs)
			}
			return err
		},
	}
	flags.register(cmd)
	return cmd
}

func newContentCommand(opts *globalOptions) *cobra.Command {
	var input, output string

	cmd := &cobra.Command{
		Use:   "content",
		Short: "Fetch the full text of the articles in a stubs file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck
			if input == "" {
				input = cfg.Output.Stubs
			}
			if output != "" {
				cfg.Output.Content = output
			}

			stubs, err := newsfeed.ReadStubs(input)
			if err != nil {
				return err
			}

			summary, err := newshound.NewRunner(cfg, log).Content(cmd.Context(), stubs)
			if summary != nil && summary.Content != nil {
				printContentSummary(cmd.OutOrStdout(), summary.Content, cfg.Output.Content)
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "stubs file (default from config)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "content file, .csv or SQLite (default from config)")
	return cmd
}

func newRunCommand(opts *globalOptions) *cobra.Command {
	flags := &selectionFlags{}
	var contentOut string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Search every source, then fetch the full text of what was found",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck
			if flags.output != "" {
				cfg.Output.Stubs = flags.output
			}
			if contentOut != "" {
				cfg.Output.Content = contentOut
			}

			summary, err := newshound.NewRunner(cfg, log).Run(cmd.Context(), flags.selection())
			if summary != nil {
				if summary.Search != nil {
					printSearchSummary(cmd.OutOrStdout(), summary.Search)
				}
				if summary.Content != nil {
					printContentSummary(cmd.OutOrStdout(), summary.Content, cfg.Output.Content)
				}
			}
			return err
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&contentOut, "content-output", "", "content file, .csv or SQLite (default from config)")
	return cmd
}
