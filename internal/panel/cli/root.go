// Package cli implements the panelctl command tree on top of the panel SDK.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aussiebroadwan/archivepanel/internal/panel/app"
	"github.com/aussiebroadwan/archivepanel/pkg/panelsdk"
	"github.com/aussiebroadwan/archivepanel/pkg/slogx"
	"github.com/spf13/cobra"
)

// runtime carries state shared by every command of one invocation.
type runtime struct {
	configFile string
}

// NewRootCmd creates the panelctl root command.
func NewRootCmd() *cobra.Command {
	rt := &runtime{}

	rootCmd := &cobra.Command{
		Use:           "panelctl",
		Short:         "Administer an Archive1 backup service",
		Version:       app.BuildVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&rt.configFile, "config", "", "config file (default: <state-dir>/panel.yaml)")
	flags.String("base-url", "", "archive API root, e.g. https://archive.example.com/api")
	flags.Duration("timeout", 0, "request timeout (default 30s)")
	flags.String("credentials", "", "credential mode: bearer or cookie")
	flags.String("api-variant", "", "list API convention: current or legacy")
	flags.String("state-dir", "", "directory holding the session database and key")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("log-format", "", "log format: json or text")

	rootCmd.AddCommand(
		newLoginCommand(rt),
		newLogoutCommand(rt),
		newWhoamiCommand(rt),
		newPermissionsCommand(rt),
		newCheckCommand(rt),
		newChangePasswordCommand(rt),
		newAdminCommand(rt),
		newListCommand(rt),
		newCreateCommand(rt),
		newResourcesCommand(),
		newDownloadURLCommand(rt),
		newMetricsCommand(rt),
	)

	return rootCmd
}

// exec builds the application for cmd, runs fn and applies the session
// policy to its error.
func (rt *runtime) exec(cmd *cobra.Command, fn func(ctx context.Context, a *app.Application) error) error {
	cfg, err := app.LoadConfig(rt.configFile, cmd.Flags())
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	ctx = slogx.WithContext(ctx, a.Logger().With("command", cmd.CommandPath()))
	err = fn(ctx, a)
	if err != nil && a.HandleError(ctx, err) {
		return fmt.Errorf("%w (session ended, run 'panelctl login')", err)
	}
	return err
}

// Describe renders err for the operator.
func Describe(err error) string {
	var pcr *panelsdk.PasswordChangeRequiredError
	if errors.As(err, &pcr) {
		return "password change required: run 'panelctl change-password'"
	}

	var apiErr *panelsdk.APIError
	if errors.As(err, &apiErr) {
		msg := panelsdk.DisplayMessage(err)
		if len(apiErr.Fields) > 0 {
			msg = err.Error()
		}
		if apiErr.TrackID != "" {
			msg += " (track id " + apiErr.TrackID + ")"
		}
		return msg
	}
	return err.Error()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
