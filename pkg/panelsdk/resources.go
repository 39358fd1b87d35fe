package panelsdk

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// Built-in resource names.
const (
	ResourceServers        = "servers"
	ResourceFiles          = "files"
	ResourceSnapshot       = "snapshot"
	ResourceUsers          = "users"
	ResourceUserActivities = "user_activities"
)

// PathFunc resolves the list path of a resource from its addressing meta.
type PathFunc func(meta ResourceMeta) (string, error)

// SortFunc rewrites the requested sort field for a resource.
type SortFunc func(field string, meta ResourceMeta) string

// IDFunc extracts the server assigned id from the data of a create envelope.
type IDFunc func(data json.RawMessage) (any, error)

// Resource describes how one named collection maps onto the REST API. Nil
// fields fall back to the default mapping.
type Resource struct {
	Name string

	// ListPath overrides GET /{name} (or /{name}/list on the legacy API)
	ListPath PathFunc

	// CreatePath overrides POST /{name}/new
	CreatePath string

	// SortField rewrites the requested sort field
	SortField SortFunc

	// CreatedID extracts the new id, default reads data.id
	CreatedID IDFunc
}

// Registry maps resource names to their REST mapping. It is closed once
// built; unknown names use the default mapping.
type Registry struct {
	variant   APIVariant
	resources map[string]Resource
}

// NewRegistry builds the registry of built-in resources plus extra. An extra
// resource with a built-in name replaces it.
func NewRegistry(variant APIVariant, extra ...Resource) *Registry {
	r := &Registry{variant: variant, resources: map[string]Resource{}}
	for _, res := range builtinResources() {
		r.resources[res.Name] = res
	}
	for _, res := range extra {
		if res.Name != "" {
			r.resources[res.Name] = res
		}
	}
	return r
}

// Lookup returns the mapping of name, or the default mapping.
func (r *Registry) Lookup(name string) Resource {
	if res, ok := r.resources[name]; ok {
		return res
	}
	return Resource{Name: name}
}

// Names returns the registered resource names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.resources))
	for name := range r.resources {
		names = append(names, name)
	}
	return names
}

// ListPath resolves the list path of res.
func (r *Registry) ListPath(res Resource, meta ResourceMeta) (string, error) {
	if res.ListPath != nil {
		return res.ListPath(meta)
	}
	if err := checkResourceName(res.Name); err != nil {
		return "", err
	}

	path := "/" + url.PathEscape(res.Name)
	if r.variant == VariantLegacy {
		path += "/list"
	}
	return path, nil
}

// CreatePath resolves the create path of res.
func (r *Registry) CreatePath(res Resource) (string, error) {
	if res.CreatePath != "" {
		return res.CreatePath, nil
	}
	if err := checkResourceName(res.Name); err != nil {
		return "", err
	}
	return "/" + url.PathEscape(res.Name) + "/new", nil
}

// SortField returns the effective sort field for res.
func (r *Registry) SortField(res Resource, field string, meta ResourceMeta) string {
	if res.SortField != nil {
		return res.SortField(field, meta)
	}
	return field
}

// CreatedID extracts the id of a newly created record of res.
func (r *Registry) CreatedID(res Resource, data json.RawMessage) (any, error) {
	if res.CreatedID != nil {
		return res.CreatedID(data)
	}
	return topLevelID(data)
}

func checkResourceName(name string) error {
	if strings.TrimSpace(name) == "" || strings.Contains(name, "/") {
		return validationError(fmt.Sprintf("invalid resource name %q", name), nil)
	}
	return nil
}

// ============================================================================
// Built-in Resources
// ============================================================================

type serverMeta struct {
	ServerID string `json:"serverId" validate:"required"`
}

type fileMeta struct {
	ServerID string `json:"serverId" validate:"required"`
	Filename string `json:"filename" validate:"required"`
}

type userMeta struct {
	UserID string `json:"userId" validate:"required"`
}

func builtinResources() []Resource {
	return []Resource{
		{Name: ResourceServers},
		{
			Name: ResourceFiles,
			ListPath: func(meta ResourceMeta) (string, error) {
				if err := validateStruct("files meta", &serverMeta{ServerID: meta.ServerID}); err != nil {
					return "", err
				}
				return "/servers/" + url.PathEscape(meta.ServerID) + "/files", nil
			},
		},
		{
			Name: ResourceSnapshot,
			ListPath: func(meta ResourceMeta) (string, error) {
				m := fileMeta{ServerID: meta.ServerID, Filename: meta.Filename}
				if err := validateStruct("snapshot meta", &m); err != nil {
					return "", err
				}
				return "/servers/" + url.PathEscape(m.ServerID) + "/files/" + url.PathEscape(m.Filename), nil
			},
			SortField: func(field string, meta ResourceMeta) string {
				if field == IDField && meta.Sort.DefaultBy != "" {
					return meta.Sort.DefaultBy
				}
				return field
			},
		},
		{
			Name:       ResourceUsers,
			CreatePath: "/users/register",
			CreatedID:  nestedID("user"),
		},
		{
			Name: ResourceUserActivities,
			ListPath: func(meta ResourceMeta) (string, error) {
				if err := validateStruct("user activities meta", &userMeta{UserID: meta.UserID}); err != nil {
					return "", err
				}
				return "/users/" + url.PathEscape(meta.UserID) + "/activities", nil
			},
		},
	}
}

// SnapshotDownloadPath is the path a snapshot is downloaded from.
func SnapshotDownloadPath(serverID, filename, snapshot string) string {
	return "/servers/" + url.PathEscape(serverID) +
		"/files/" + url.PathEscape(filename) +
		"/" + url.PathEscape(snapshot) + "/download"
}

// ============================================================================
// Created ID Extraction
// ============================================================================

func topLevelID(data json.RawMessage) (any, error) {
	var obj map[string]any
	if len(data) == 0 {
		return nil, nil
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("failed to decode created record: %w", err)
	}
	return obj[IDField], nil
}

// nestedID reads data.<key>.id, falling back to data.id.
func nestedID(key string) IDFunc {
	return func(data json.RawMessage) (any, error) {
		var obj map[string]json.RawMessage
		if len(data) == 0 {
			return nil, nil
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return nil, fmt.Errorf("failed to decode created record: %w", err)
		}
		if inner, ok := obj[key]; ok {
			if id, err := topLevelID(inner); err == nil && id != nil {
				return id, nil
			}
		}
		return topLevelID(data)
	}
}
