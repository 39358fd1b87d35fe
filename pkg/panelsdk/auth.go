package panelsdk

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
)

// AuthController owns login, logout and identity/permission lookups. It is
// the only writer of the Session besides 401/403 invalidation in the
// transport.
type AuthController struct {
	client *Client
	logger *slog.Logger
}

// NewAuthController creates a controller on top of the transport.
func NewAuthController(c *Client) *AuthController {
	return &AuthController{client: c, logger: c.logger.With("component", "auth")}
}

// ============================================================================
// Login / Logout
// ============================================================================

// Login authenticates with email and password and establishes the session.
// The identity is re-fetched afterwards. When it must change its initial
// password a *PasswordChangeRequiredError carrying the identity is returned;
// the session stays established (and flagged) so ChangeInitialPassword can be
// called. Any other identity failure clears the session again.
func (a *AuthController) Login(ctx context.Context, email, password string) (*Identity, error) {
	req := LoginRequest{Email: email, Password: password}
	if err := validateStruct("login request", &req); err != nil {
		return nil, err
	}

	env, err := call[loginData](ctx, a.client, http.MethodPost, "/auth/login", nil, req)
	if err != nil {
		return nil, loginFailure(err)
	}

	token := ""
	if a.client.credentials == CredentialBearer {
		token = env.Data.AccessToken
		if token == "" {
			a.logger.Warn("login response carried no access token", "track_id", env.TrackID)
			return nil, &APIError{
				Kind:       KindServer,
				StatusCode: http.StatusOK,
				Message:    GenericServerMessage,
				TrackID:    env.TrackID,
			}
		}
	}

	if err := a.client.session.establish(ctx, token); err != nil {
		a.logger.Warn("session established but not persisted", "error", err)
	}

	id, err := a.fetchIdentity(ctx)
	if err != nil {
		var pcr *PasswordChangeRequiredError
		if errors.As(err, &pcr) {
			a.logger.Info("logged in, initial password change required", "user_id", pcr.Identity.ID)
			return nil, err
		}
		if clearErr := a.client.session.Clear(ctx); clearErr != nil {
			a.logger.Warn("clearing session after failed login", "error", clearErr)
		}
		return nil, err
	}

	a.logger.Info("logged in", "user_id", id.ID, "admin", id.IsAdmin)
	return id, nil
}

// loginFailure keeps server messages verbatim and replaces anything else by a
// generic login failure.
func loginFailure(err error) error {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	if apiErr.Kind == KindValidation || apiErr.Kind == KindServer || apiErr.fromServer {
		return err
	}
	out := *apiErr
	out.Message = "login failed"
	return &out
}

// Logout calls the logout endpoint and clears the local session whatever the
// endpoint answers. Only a failure to clear local state is returned.
func (a *AuthController) Logout(ctx context.Context) error {
	if _, err := call[struct{}](ctx, a.client, http.MethodPost, "/auth/logout", nil, nil); err != nil {
		a.logger.Warn("logout endpoint failed", "error", err)
	}

	return a.client.session.Clear(ctx)
}

// ============================================================================
// Checks
// ============================================================================

// CheckAuth performs a lightweight identity fetch. It fails when the backend
// rejects the session and also when the identity must change its password,
// so callers route to the change-password flow.
func (a *AuthController) CheckAuth(ctx context.Context) error {
	_, err := a.fetchIdentity(ctx)
	return err
}

// CheckError classifies a failed call. 401 and 403 invalidate the session and
// ask the caller to log out; everything else is recoverable.
func (a *AuthController) CheckError(err error) ErrorAction {
	if err == nil {
		return ActionNone
	}
	switch StatusCode(err) {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ActionLogout
	}
	return ActionNone
}

// ============================================================================
// Identity
// ============================================================================

// GetIdentity returns the display projection of the current identity.
func (a *AuthController) GetIdentity(ctx context.Context) (*IdentityProjection, error) {
	id, err := a.fetchIdentity(ctx)
	if err != nil {
		return nil, err
	}
	return &IdentityProjection{ID: id.ID, FullName: id.Username}, nil
}

// GetPermissions derives the permission level from a fresh identity. On error
// the level is PermissionUnknown.
func (a *AuthController) GetPermissions(ctx context.Context) (PermissionLevel, error) {
	id, err := a.fetchIdentity(ctx)
	if err != nil {
		return PermissionUnknown, err
	}
	return PermissionOf(id), nil
}

// fetchIdentity reads /auth/me and keeps the password-change flag in sync
// with the server.
func (a *AuthController) fetchIdentity(ctx context.Context) (*Identity, error) {
	env, err := call[meData](ctx, a.client, http.MethodGet, "/auth/me", nil, nil)
	if err != nil {
		return nil, err
	}
	if env.Data.User == nil {
		return nil, &APIError{
			Kind:       KindServer,
			StatusCode: http.StatusOK,
			Message:    GenericServerMessage,
			TrackID:    env.TrackID,
		}
	}

	id := env.Data.User
	a.client.session.setPasswordChangeRequired(id.MustChangePassword)
	if id.MustChangePassword {
		return nil, passwordChangeRequired(id)
	}
	return id, nil
}

// ============================================================================
// Admin Bootstrap
// ============================================================================

// AdminExists reports whether the first admin has been registered.
func (a *AuthController) AdminExists(ctx context.Context) (bool, error) {
	env, err := call[adminExistenceData](ctx, a.client, http.MethodGet, "/auth/admin/existence", nil, nil)
	if err != nil {
		return false, err
	}
	return env.Data.AdminExist, nil
}

// RegisterAdmin creates the first admin. The backend refuses once one exists.
func (a *AuthController) RegisterAdmin(ctx context.Context, req RegisterAdminRequest) (*Identity, error) {
	if err := validateStruct("admin registration", &req); err != nil {
		return nil, err
	}

	env, err := call[registerAdminData](ctx, a.client, http.MethodPost, "/auth/admin/register", nil, req)
	if err != nil {
		return nil, err
	}

	a.logger.Info("admin registered", "username", req.Username)
	return env.Data.Admin, nil
}

// ChangeInitialPassword replaces the initial password of a freshly created
// user and clears the password-change flag of the session.
func (a *AuthController) ChangeInitialPassword(ctx context.Context, req ChangeInitialPasswordRequest) error {
	if err := validateStruct("password change", &req); err != nil {
		return err
	}

	if _, err := call[struct{}](ctx, a.client, http.MethodPost, "/pre-auth/change-user-initial-pass", nil, req); err != nil {
		return err
	}

	a.client.session.setPasswordChangeRequired(false)
	return nil
}
