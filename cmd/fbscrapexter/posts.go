// cmd/fbscrapexter/posts.go
package main

import (
	"context"
	"iter"

	"github.com/spf13/cobra"

	"github.com/valpere/FBScrapexter/pkg/api"
)

// listFunc starts a post listing for one target.
type listFunc func(ctx context.Context, client *api.ScraperClient, target string, opts api.Options) iter.Seq2[api.Post, error]

func listPosts(ctx context.Context, client *api.ScraperClient, target string, opts api.Options) iter.Seq2[api.Post, error] {
	return client.Posts(ctx, target, opts)
}

func listGroupPosts(ctx context.Context, client *api.ScraperClient, target string, opts api.Options) iter.Seq2[api.Post, error] {
	return client.GroupPosts(ctx, target, opts)
}

func listHashtag(ctx context.Context, client *api.ScraperClient, target string, opts api.Options) iter.Seq2[api.Post, error] {
	return client.PostsByHashtag(ctx, target, opts)
}

func listSearch(ctx context.Context, client *api.ScraperClient, target string, opts api.Options) iter.Seq2[api.Post, error] {
	return client.PostsBySearch(ctx, target, opts)
}

func listPhotos(ctx context.Context, client *api.ScraperClient, target string, opts api.Options) iter.Seq2[api.Post, error] {
	return client.Photos(ctx, target, opts)
}

func listingCommand(flags *rootFlags, use, short string, list listFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := flags.newClient(cmd)
			if err != nil {
				return err
			}
			opts, err := client.Options()
			if err != nil {
				return err
			}
			return export(client, list(cmd.Context(), client, args[0], opts))
		},
	}
}

func urlsCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "urls <url>...",
		Short: "Scrape single posts by URL",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := flags.newClient(cmd)
			if err != nil {
				return err
			}
			opts, err := client.Options()
			if err != nil {
				return err
			}
			return export(client, client.PostsByURL(cmd.Context(), args, opts))
		},
	}
}

func export(client *api.ScraperClient, seq iter.Seq2[api.Post, error]) error {
	n, err := client.Export(seq)
	if err != nil {
		return err
	}
	client.Logger().Infof("Wrote %d posts", n)
	return nil
}
