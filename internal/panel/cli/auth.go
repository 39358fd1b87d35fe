package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aussiebroadwan/archivepanel/internal/panel/app"
	"github.com/aussiebroadwan/archivepanel/pkg/panelsdk"
	"github.com/spf13/cobra"
)

func newLoginCommand(rt *runtime) *cobra.Command {
	var (
		email         string
		password      string
		passwordStdin bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Args:  cobra.NoArgs,
		Short: "Log in and keep the session for later commands",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if passwordStdin {
				line, err := readLine(cmd.InOrStdin())
				if err != nil {
					return err
				}
				password = line
			}

			return rt.exec(cmd, func(ctx context.Context, a *app.Application) error {
				id, err := a.Auth.Login(ctx, email, password)
				var pcr *panelsdk.PasswordChangeRequiredError
				if errors.As(err, &pcr) {
					fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s, the initial password must be changed first\n", pcr.Identity.Username)
					return err
				}
				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s (%s)\n", id.Username, panelsdk.PermissionOf(id))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func newLogoutCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Args:  cobra.NoArgs,
		Short: "End the session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return rt.exec(cmd, func(ctx context.Context, a *app.Application) error {
				if err := a.Auth.Logout(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "logged out")
				return nil
			})
		},
	}
}

func newWhoamiCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Args:  cobra.NoArgs,
		Short: "Show the logged in identity",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return rt.exec(cmd, func(ctx context.Context, a *app.Application) error {
				id, err := a.Auth.GetIdentity(ctx)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), id)
			})
		},
	}
}

func newPermissionsCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "permissions",
		Args:  cobra.NoArgs,
		Short: "Show the permission level of the session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return rt.exec(cmd, func(ctx context.Context, a *app.Application) error {
				level, err := a.Auth.GetPermissions(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), level)
				return nil
			})
		},
	}
}

func newCheckCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Args:  cobra.NoArgs,
		Short: "Verify the session is still accepted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return rt.exec(cmd, func(ctx context.Context, a *app.Application) error {
				if err := a.Auth.CheckAuth(ctx); err != nil {
					return err
				}
				saved, ok, err := a.SessionSavedAt(ctx)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "session valid")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "session valid, saved %s ago\n", time.Since(saved).Round(time.Second))
				return nil
			})
		},
	}
}

func newChangePasswordCommand(rt *runtime) *cobra.Command {
	var req panelsdk.ChangeInitialPasswordRequest

	cmd := &cobra.Command{
		Use:   "change-password",
		Args:  cobra.NoArgs,
		Short: "Replace the initial password of a new account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return rt.exec(cmd, func(ctx context.Context, a *app.Application) error {
				if err := a.Auth.ChangeInitialPassword(ctx, req); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "password changed")
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&req.InitialPassword, "initial", "", "initial password")
	cmd.Flags().StringVar(&req.NewPassword, "new", "", "new password")

	return cmd
}

func newAdminCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Args:  cobra.NoArgs,
		Short: "First admin bootstrap",
	}

	exists := &cobra.Command{
		Use:   "exists",
		Args:  cobra.NoArgs,
		Short: "Report whether an admin has been registered",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return rt.exec(cmd, func(ctx context.Context, a *app.Application) error {
				ok, err := a.Auth.AdminExists(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), ok)
				return nil
			})
		},
	}

	var req panelsdk.RegisterAdminRequest
	register := &cobra.Command{
		Use:   "register",
		Args:  cobra.NoArgs,
		Short: "Register the first admin",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return rt.exec(cmd, func(ctx context.Context, a *app.Application) error {
				admin, err := a.Auth.RegisterAdmin(ctx, req)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), admin)
			})
		},
	}
	register.Flags().StringVar(&req.Email, "email", "", "admin email")
	register.Flags().StringVar(&req.Username, "username", "", "admin username")
	register.Flags().StringVar(&req.Password, "password", "", "admin password")

	cmd.AddCommand(exists, register)
	return cmd
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
