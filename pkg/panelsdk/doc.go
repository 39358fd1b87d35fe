/*
Package panelsdk provides the resource-access core of the Archive1 admin panel.

# Overview

The package talks to the archive backend on behalf of a console. It owns one
authenticated session, maps generic list and create calls onto the backend's
resource specific REST API and unwraps the {track_id, error, message, data}
envelope every endpoint answers with.

# Transport and Session

A Client is the transport. It holds the base URL, a fixed timeout and the
credential policy, and reads the token from an owned Session on every request:

	session := panelsdk.NewSession(panelsdk.NewMemoryTokenStore())
	client := panelsdk.New("https://archive.example.com/api", session,
		panelsdk.WithCredentialMode(panelsdk.CredentialBearer),
		panelsdk.WithAPIVariant(panelsdk.VariantCurrent),
	)

With CredentialCookie the backend cookie is kept in a jar that is reset when
the session is cleared, and no token is stored.

A 401 or 403 from any endpoint clears the session before the error is
returned.

# Authentication

	auth := panelsdk.NewAuthController(client)

	id, err := auth.Login(ctx, "admin@example.com", "secret")
	var pcr *panelsdk.PasswordChangeRequiredError
	if errors.As(err, &pcr) {
		// route to pcr.RedirectTo and call auth.ChangeInitialPassword
	}

	level, err := auth.GetPermissions(ctx) // PermissionUnknown on error

	if auth.CheckError(err) == panelsdk.ActionLogout {
		_ = auth.Logout(ctx)
	}

# Resources

	adapter := panelsdk.NewResourceAdapter(client)

	page, err := adapter.List(ctx, panelsdk.ResourceFiles, panelsdk.ListQuery{
		Pagination: panelsdk.Pagination{Page: 2, PerPage: 25},
		Sort:       panelsdk.Sort{Field: "updated_at", Order: panelsdk.SortDesc},
		Meta:       panelsdk.ResourceMeta{ServerID: "7"},
	})
	files, err := panelsdk.DecodeItems[panelsdk.File](page.Items)

	created, err := adapter.Create(ctx, panelsdk.ResourceServers, panelsdk.Record{"name": "db-1"})
	var srv panelsdk.NewServer
	err = created.Decode(&srv) // srv.APIKey is only shown once

Resources without a registry entry use GET /{name} (GET /{name}/list on
VariantLegacy) and POST /{name}/new.

# Errors

Every failure is an *APIError classified by Kind. Server errors carry a
generic message; client errors carry the backend message verbatim. Use
KindOf, IsUnauthorized and DisplayMessage to inspect them.
*/
package panelsdk
