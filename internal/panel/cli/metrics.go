package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aussiebroadwan/archivepanel/internal/panel/app"
	"github.com/aussiebroadwan/archivepanel/pkg/panelsdk"
	"github.com/spf13/cobra"
)

func newMetricsCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metrics",
		Args:  cobra.NoArgs,
		Short: "Dashboard metrics",
	}

	common := &cobra.Command{
		Use:   "common",
		Args:  cobra.NoArgs,
		Short: "Show the global counters",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return rt.exec(cmd, func(ctx context.Context, a *app.Application) error {
				m, err := a.Metrics.Common(ctx)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), m)
			})
		},
	}

	var (
		window string
		server string
		watch  bool
	)
	activities := &cobra.Command{
		Use:   "activities",
		Args:  cobra.NoArgs,
		Short: "Show backup activity over a time window",
		RunE: func(cmd *cobra.Command, _ []string) error {
			r := panelsdk.ActivityRange(window)
			if _, err := r.Window(time.Now(), server); err != nil {
				return err
			}

			return rt.exec(cmd, func(ctx context.Context, a *app.Application) error {
				fetch := func(ctx context.Context) ([]panelsdk.ActivityBucket, error) {
					q, err := r.Window(time.Now(), server)
					if err != nil {
						return nil, err
					}
					return a.Metrics.Activities(ctx, q)
				}

				if !watch {
					buckets, err := fetch(ctx)
					if err != nil {
						return err
					}
					return writeJSON(cmd.OutOrStdout(), buckets)
				}

				return watchActivities(ctx, cmd, a, fetch)
			})
		},
	}
	activities.Flags().StringVar(&window, "range", string(panelsdk.RangeLastDay), "look-back window: 24h, 7d or 30d")
	activities.Flags().StringVar(&server, "server", "", "restrict to one source server name")
	activities.Flags().BoolVar(&watch, "watch", false, "refresh on the poll interval until interrupted")

	cmd.AddCommand(common, activities)
	return cmd
}

// watchActivities polls until interrupted. A failure that ends the session
// stops the watch and is returned so exec applies the logout once.
func watchActivities(
	ctx context.Context,
	cmd *cobra.Command,
	a *app.Application,
	fetch panelsdk.FetchFunc[[]panelsdk.ActivityBucket],
) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var fatal error
	poller := panelsdk.NewPoller(a.Config().PollInterval, fetch,
		func(buckets []panelsdk.ActivityBucket, err error) {
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), Describe(err))
				if a.Auth.CheckError(err) == panelsdk.ActionLogout {
					fatal = err
					stop()
				}
				return
			}
			_ = writeJSON(cmd.OutOrStdout(), buckets)
		},
		a.Logger(),
	)

	poller.Run(ctx)
	return fatal
}
