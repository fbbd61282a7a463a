package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

type rootFlags struct {
	configPath string
	cookie     string
	store      string
	redisAddr  string
	hooks      string
}

// flagOrEnv returns the flag value when set, then the environment, then def.
func flagOrEnv(cmd *cobra.Command, flag, env, def string) string {
	if v, _ := cmd.Flags().GetString(flag); v != "" {
		return v
	}
	if v, ok := os.LookupEnv(env); ok {
		return v
	}
	return def
}

func newRootCmd() *cobra.Command {
	var (
		flags rootFlags
		a     *app
	)

	root := &cobra.Command{
		Use:           "fpcache",
		Short:         "Query Floatplane through the cached client",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			flags.cookie = flagOrEnv(cmd, "cookie", "FLOATPLANE_COOKIE", "")
			var err error
			a, err = newApp(flags)
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if a == nil {
				return nil
			}
			return a.Close(context.WithoutCancel(cmd.Context()))
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "path to a YAML config file")
	pf.String("cookie", "", "session cookie sent with every request (env FLOATPLANE_COOKIE)")
	pf.StringVar(&flags.store, "store", "", "cache store: memory, ristretto, bigcache or redis (overrides config)")
	pf.StringVar(&flags.redisAddr, "redis-addr", "", "redis address for --store redis (overrides config)")
	pf.StringVar(&flags.hooks, "hooks", "none", "cache event reporting: none, log or otel")

	current := func() *app { return a }
	root.AddCommand(
		newVideoCmd(current),
		newCreatorCmd(current),
		newCreatorsCmd(current),
		newSubscriptionsCmd(current),
		newFeedCmd(current),
		newSearchCmd(current),
		newStreamCmd(current),
		newLogoutCmd(current),
	)
	return root
}
