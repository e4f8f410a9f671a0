// cmd/fbscrapexter/info.go
package main

import (
	"github.com/spf13/cobra"

	"github.com/valpere/FBScrapexter/internal/extract"
	"github.com/valpere/FBScrapexter/pkg/api"
)

func exportRecord(client *api.ScraperClient, record api.Record) error {
	return client.ExportRecords([]map[string]interface{}{record})
}

func profileCommand(flags *rootFlags) *cobra.Command {
	var friends string
	cmd := &cobra.Command{
		Use:   "profile <account>",
		Short: "Scrape the profile of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := flags.newClient(cmd)
			if err != nil {
				return err
			}
			opts := client.ProfileOptions()
			if friends != "" {
				mode, err := extract.ParseMode(friends)
				if err != nil {
					return err
				}
				// Lazy streams cannot be written out.
				if mode.Kind == extract.ModeLazy {
					mode = extract.Eager
				}
				opts.Friends = mode
			}
			record, err := client.Profile(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}
			return exportRecord(client, record)
		},
	}
	cmd.Flags().StringVar(&friends, "friends", "", "include friends: true or a maximum count")
	return cmd
}

func pageInfoCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "page-info <page>",
		Short: "Scrape the description of a page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := flags.newClient(cmd)
			if err != nil {
				return err
			}
			record, err := client.PageInfo(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return exportRecord(client, record)
		},
	}
}

func groupInfoCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "group-info <group>",
		Short: "Scrape the description and members of a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := flags.newClient(cmd)
			if err != nil {
				return err
			}
			record, err := client.GroupInfo(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return exportRecord(client, record)
		},
	}
}

func friendsCommand(flags *rootFlags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "friends <account>",
		Short: "Scrape the friend list of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := flags.newClient(cmd)
			if err != nil {
				return err
			}
			var friends []api.Friend
			for friend, err := range client.Friends(cmd.Context(), args[0], limit) {
				if err != nil {
					return err
				}
				friends = append(friends, friend)
			}
			records, err := api.ToRecords(friends)
			if err != nil {
				return err
			}
			client.Logger().Infof("Found %d friends", len(records))
			return client.ExportRecords(records)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "stop after this many friends, 0 for all")
	return cmd
}

func shopCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "shop <page>",
		Short: "Scrape the shop items of a page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := flags.newClient(cmd)
			if err != nil {
				return err
			}
			items, err := client.Shop(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			records, err := api.ToRecords(items)
			if err != nil {
				return err
			}
			return client.ExportRecords(records)
		},
	}
}
