package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/aussiebroadwan/archivepanel/internal/panel/app"
	"github.com/aussiebroadwan/archivepanel/pkg/panelsdk"
	"github.com/spf13/cobra"
)

func newListCommand(rt *runtime) *cobra.Command {
	var (
		q      panelsdk.ListQuery
		order  string
		filter string
		typed  bool
	)

	cmd := &cobra.Command{
		Use:   "list <resource>",
		Args:  cobra.ExactArgs(1),
		Short: "List one page of a resource",
		Example: `  panelctl list servers --page 2 --per-page 25
  panelctl list files --server 7 --sort updated_at --order DESC
  panelctl list snapshot --server 7 --file db.sql --default-sort name`,
		RunE: func(cmd *cobra.Command, args []string) error {
			resource := args[0]
			q.Sort.Order = panelsdk.SortOrder(order)
			if filter != "" {
				if err := json.Unmarshal([]byte(filter), &q.Filter); err != nil {
					return fmt.Errorf("--filter must be a JSON object: %w", err)
				}
			}

			return rt.exec(cmd, func(ctx context.Context, a *app.Application) error {
				res, err := a.Adapter.List(ctx, resource, q)
				if err != nil {
					return err
				}
				if typed {
					items, err := decodeTyped(resource, res.Items)
					if err != nil {
						return err
					}
					return writeJSON(cmd.OutOrStdout(), map[string]any{"items": items, "total": res.Total})
				}
				return writeJSON(cmd.OutOrStdout(), res)
			})
		},
	}

	f := cmd.Flags()
	f.IntVar(&q.Pagination.Page, "page", panelsdk.DefaultPage, "page number, starting at 1")
	f.IntVar(&q.Pagination.PerPage, "per-page", panelsdk.DefaultPerPage, "rows per page")
	f.StringVar(&q.Sort.Field, "sort", panelsdk.IDField, "sort field")
	f.StringVar(&order, "order", string(panelsdk.SortAsc), "sort order: ASC or DESC")
	f.StringVar(&filter, "filter", "", "filter as a JSON object")
	f.StringVar(&q.Meta.ServerID, "server", "", "server id (files, snapshot)")
	f.StringVar(&q.Meta.Filename, "file", "", "file name (snapshot)")
	f.StringVar(&q.Meta.UserID, "user", "", "user id (user_activities)")
	f.StringVar(&q.Meta.Sort.DefaultBy, "default-sort", "", "field replacing the id sort (snapshot)")
	f.BoolVar(&typed, "typed", false, "decode rows of built-in resources into their typed form")

	return cmd
}

// decodeTyped converts rows of built-in resources into their record types.
func decodeTyped(resource string, items []panelsdk.Record) (any, error) {
	switch resource {
	case panelsdk.ResourceServers:
		return panelsdk.DecodeItems[panelsdk.Server](items)
	case panelsdk.ResourceFiles:
		return panelsdk.DecodeItems[panelsdk.File](items)
	case panelsdk.ResourceSnapshot:
		return panelsdk.DecodeItems[panelsdk.Snapshot](items)
	case panelsdk.ResourceUsers:
		return panelsdk.DecodeItems[panelsdk.User](items)
	case panelsdk.ResourceUserActivities:
		return panelsdk.DecodeItems[panelsdk.UserActivity](items)
	default:
		return items, nil
	}
}

func newCreateCommand(rt *runtime) *cobra.Command {
	var (
		data string
		set  map[string]string
	)

	cmd := &cobra.Command{
		Use:   "create <resource>",
		Args:  cobra.ExactArgs(1),
		Short: "Create a record of a resource",
		Example: `  panelctl create servers --set name=db-1
  panelctl create users --data '{"username":"alice","email":"alice@example.com","password":"changeme1"}'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := buildPayload(data, set)
			if err != nil {
				return err
			}

			return rt.exec(cmd, func(ctx context.Context, a *app.Application) error {
				res, err := a.Adapter.Create(ctx, args[0], payload)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), res)
			})
		},
	}

	cmd.Flags().StringVar(&data, "data", "", "record as a JSON object")
	cmd.Flags().StringToStringVar(&set, "set", nil, "field=value pairs, values are parsed as JSON when possible")

	return cmd
}

func buildPayload(data string, set map[string]string) (panelsdk.Record, error) {
	payload := panelsdk.Record{}
	if data != "" {
		if err := json.Unmarshal([]byte(data), &payload); err != nil {
			return nil, fmt.Errorf("--data must be a JSON object: %w", err)
		}
	}
	for k, raw := range set {
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			v = raw
		}
		payload[k] = v
	}
	return payload, nil
}

func newResourcesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "resources",
		Args:  cobra.NoArgs,
		Short: "List the resources with a dedicated mapping",
		RunE: func(cmd *cobra.Command, _ []string) error {
			names := panelsdk.NewRegistry(panelsdk.VariantCurrent).Names()
			slices.Sort(names)
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func newDownloadURLCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "download-url <server-id> <filename> <snapshot>",
		Args:  cobra.ExactArgs(3),
		Short: "Print the download URL of a snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.exec(cmd, func(_ context.Context, a *app.Application) error {
				fmt.Fprintln(cmd.OutOrStdout(), a.Client().BaseURL()+panelsdk.SnapshotDownloadPath(args[0], args[1], args[2]))
				return nil
			})
		},
	}
}
