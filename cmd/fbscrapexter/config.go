// cmd/fbscrapexter/config.go
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/valpere/FBScrapexter/internal/config"
)

func validateCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config.yaml>",
		Short: "Validate a configuration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFromFile(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, warning := range cfg.ValidateWithDetails().Warnings {
				fmt.Fprintf(out, "⚠ %s\n", warning)
			}
			fmt.Fprintf(out, "✓ Configuration file '%s' is valid\n", args[0])
			if flags.verbose > 0 {
				fmt.Fprintf(out, "Configuration details:\n")
				fmt.Fprintf(out, "  Base URL: %s\n", cfg.Session.BaseURL)
				fmt.Fprintf(out, "  Pages: %d\n", cfg.Scrape.Pages)
				fmt.Fprintf(out, "  Output: %s (%s)\n", cfg.Output.File, cfg.Output.Format)
			}
			return nil
		},
	}
}

func templateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "template",
		Short: "Print a configuration file with the default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.SaveToWriter(config.Default(), cmd.OutOrStdout())
		},
	}
}
