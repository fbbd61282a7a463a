package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/unkn0wn-root/opcache/floatplane"
)

type appFunc func() *app

func newVideoCmd(a appFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "video <id>...",
		Short: "Show video metadata; ids are fetched concurrently",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			videos := make([]floatplane.ContentVideo, len(args))
			g, ctx := errgroup.WithContext(cmd.Context())
			for i, id := range args {
				g.Go(func() error {
					v, err := a().client.Video(ctx, id)
					videos[i] = v
					return err
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), videos)
		},
	}
}

func newCreatorCmd(a appFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "creator <url-name>",
		Short: "Show a creator by the name used in its URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a().client.Creator(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), c)
		},
	}
}

func newCreatorsCmd(a appFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "creators",
		Short: "List followed creators",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := a().client.Creators(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), list)
		},
	}
}

func newSubscriptionsCmd(a appFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "subscriptions",
		Short: "List active subscriptions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			subs, err := a().client.Subscriptions(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), subs)
		},
	}
}

func newFeedCmd(a appFunc) *cobra.Command {
	var limit, after int
	cmd := &cobra.Command{
		Use:   "feed <creator-id>",
		Short: "List a creator's posts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := a().client.Feed(cmd.Context(), floatplane.ContentFeedRequest{
				CreatorID:  args[0],
				Limit:      limit,
				FetchAfter: after,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), items)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", floatplane.DefaultFeedLimit, "posts per page")
	cmd.Flags().IntVar(&after, "after", 0, "number of posts already seen")
	return cmd
}

func newSearchCmd(a appFunc) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search <creator-id> <query>",
		Short: "Search a creator's posts",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := a().client.Search(cmd.Context(), floatplane.SearchRequest{
				CreatorID: args[0],
				Query:     args[1],
				Limit:     limit,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), items)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", floatplane.DefaultFeedLimit, "maximum results")
	return cmd
}

func newStreamCmd(a appFunc) *cobra.Command {
	var (
		quality string
		live    bool
	)
	cmd := &cobra.Command{
		Use:   "stream <video-guid|creator-id>",
		Short: "Print a playable stream URL (never cached)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := floatplane.DeliveryKeyRequest{Type: floatplane.DeliveryVOD, GUID: args[0]}
			if live {
				req.Type = floatplane.DeliveryLive
			}
			dk, err := a().client.DeliveryKey(cmd.Context(), req)
			if err != nil {
				return err
			}
			u, err := dk.StreamURL(quality)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), u)
			return nil
		},
	}
	cmd.Flags().StringVar(&quality, "quality", floatplane.DefaultQuality, "quality level name or label; falls back to the lowest level offered")
	cmd.Flags().BoolVar(&live, "live", false, "treat the argument as a creator id and fetch its live stream")
	return cmd
}

func newLogoutCmd(a appFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and clear every cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app := a()
			if err := app.client.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "logged out; cleared %d caches\n", len(app.client.Registry().Names()))
			return nil
		},
	}
}
