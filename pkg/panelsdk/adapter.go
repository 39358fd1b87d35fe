package panelsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
)

// ResourceAdapter translates generic list/create calls into the resource
// specific REST API. It holds no per-call state.
type ResourceAdapter struct {
	client   *Client
	registry *Registry
	logger   *slog.Logger
}

// NewResourceAdapter creates an adapter with the built-in resources plus
// extra.
func NewResourceAdapter(c *Client, extra ...Resource) *ResourceAdapter {
	return &ResourceAdapter{
		client:   c,
		registry: NewRegistry(c.variant, extra...),
		logger:   c.logger.With("component", "adapter"),
	}
}

// Registry returns the resource registry of the adapter.
func (a *ResourceAdapter) Registry() *Registry { return a.registry }

// List fetches one page of resource.
func (a *ResourceAdapter) List(ctx context.Context, resource string, q ListQuery) (*ListResult, error) {
	if err := a.client.requireUsableSession(); err != nil {
		return nil, err
	}

	q = q.normalized()
	if err := validateStruct("list query", &q); err != nil {
		return nil, err
	}

	res := a.registry.Lookup(resource)
	path, err := a.registry.ListPath(res, q.Meta)
	if err != nil {
		return nil, err
	}

	sortBy := a.registry.SortField(res, q.Sort.Field, q.Meta)
	params, err := encodeListParams(a.client.variant, q, sortBy)
	if err != nil {
		return nil, err
	}

	env, err := call[listData](ctx, a.client, http.MethodGet, path, params, nil)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", resource, err)
	}

	items := env.Data.List
	if items == nil {
		items = []Record{}
	}
	if len(items) > q.Pagination.PerPage {
		a.logger.Warn("server returned more rows than requested",
			"resource", resource, "rows", len(items), "per_page", q.Pagination.PerPage, "track_id", env.TrackID)
		items = items[:q.Pagination.PerPage]
	}

	return &ListResult{Items: items, Total: max(env.Data.Total, 0)}, nil
}

// Create submits payload as a new record of resource. The returned record is
// a copy of payload with the server assigned id merged in.
func (a *ResourceAdapter) Create(ctx context.Context, resource string, payload Record) (*CreateResult, error) {
	if err := a.client.requireUsableSession(); err != nil {
		return nil, err
	}
	if len(payload) == 0 {
		return nil, validationError("create payload must not be empty", nil)
	}

	res := a.registry.Lookup(resource)
	path, err := a.registry.CreatePath(res)
	if err != nil {
		return nil, err
	}

	env, err := call[json.RawMessage](ctx, a.client, http.MethodPost, path, nil, payload)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", resource, err)
	}

	record := maps.Clone(payload)
	id, err := a.registry.CreatedID(res, env.Data)
	if err != nil {
		a.logger.Warn("created record carried no readable id", "resource", resource, "track_id", env.TrackID, "error", err)
	} else if id != nil {
		record[IDField] = id
	}

	return &CreateResult{Record: record, Raw: env.Data}, nil
}

// requireUsableSession fails fast while the identity must change its initial
// password.
func (c *Client) requireUsableSession() error {
	if c.session.PasswordChangeRequired() {
		return &PasswordChangeRequiredError{RedirectTo: PasswordChangeRoute}
	}
	return nil
}

// DecodeItems converts list rows into typed records.
func DecodeItems[T any](items []Record) ([]T, error) {
	buf, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("failed to encode items: %w", err)
	}

	out := make([]T, 0, len(items))
	if err := json.Unmarshal(buf, &out); err != nil {
		return nil, fmt.Errorf("failed to decode items: %w", err)
	}
	return out, nil
}

// Decode unmarshals the raw envelope data of a create call into v.
func (r *CreateResult) Decode(v any) error {
	if len(r.Raw) == 0 || bytes.Equal(r.Raw, []byte("null")) {
		return fmt.Errorf("create result carries no data")
	}
	if err := json.Unmarshal(r.Raw, v); err != nil {
		return fmt.Errorf("failed to decode create result: %w", err)
	}
	return nil
}
