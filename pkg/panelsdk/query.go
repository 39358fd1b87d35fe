package panelsdk

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/google/go-querystring/query"
)

// SortOrder is the direction of a list sort.
type SortOrder string

const (
	SortAsc  SortOrder = "ASC"
	SortDesc SortOrder = "DESC"
)

// Defaults applied to a zero Pagination.
const (
	DefaultPage    = 1
	DefaultPerPage = 10
)

// IDField is the generic identifier every resource exposes.
const IDField = "id"

// Pagination selects one page. Both values are 1-based.
type Pagination struct {
	Page    int `json:"page" validate:"gte=1"`
	PerPage int `json:"perPage" validate:"gte=1,max=1000"`
}

// Sort selects the sort field and direction.
type Sort struct {
	Field string    `json:"field"`
	Order SortOrder `json:"order" validate:"omitempty,oneof=ASC DESC"`
}

// MetaSort carries per-resource sort hints.
type MetaSort struct {
	// DefaultBy replaces the generic id sort for resources where id is not a
	// meaningful key
	DefaultBy string `json:"defaultBy,omitempty"`
}

// ResourceMeta carries resource specific addressing.
type ResourceMeta struct {
	ServerID string   `json:"serverId,omitempty"`
	Filename string   `json:"filename,omitempty"`
	UserID   string   `json:"userId,omitempty"`
	Sort     MetaSort `json:"sort,omitempty"`
}

// ListQuery is the uniform list request.
type ListQuery struct {
	Pagination Pagination     `json:"pagination"`
	Sort       Sort           `json:"sort"`
	Filter     map[string]any `json:"filter,omitempty"`
	Meta       ResourceMeta   `json:"meta"`
}

// normalized fills zero pagination with defaults.
func (q ListQuery) normalized() ListQuery {
	if q.Pagination.Page == 0 {
		q.Pagination.Page = DefaultPage
	}
	if q.Pagination.PerPage == 0 {
		q.Pagination.PerPage = DefaultPerPage
	}
	return q
}

// Range converts a page to the start/end parameters of the variant.
// VariantCurrent is half-open (end = page*perPage); VariantLegacy is closed
// (end = page*perPage - 1). Both start at (page-1)*perPage.
func (v APIVariant) Range(p Pagination) (start, end int) {
	start = (p.Page - 1) * p.PerPage
	end = p.Page * p.PerPage
	if v == VariantLegacy {
		end--
	}
	return start, end
}

// listParams is the wire form of a list query.
type listParams struct {
	SortBy    string `url:"sort_by,omitempty"`
	SortOrder string `url:"sort_order,omitempty"`
	Start     int    `url:"start"`
	End       int    `url:"end"`
	Filter    string `url:"filter"`
}

func encodeListParams(v APIVariant, q ListQuery, sortBy string) (url.Values, error) {
	filter := q.Filter
	if filter == nil {
		filter = map[string]any{}
	}
	filterJSON, err := json.Marshal(filter)
	if err != nil {
		return nil, validationError(fmt.Sprintf("filter is not JSON encodable: %v", err), nil)
	}

	start, end := v.Range(q.Pagination)
	params := listParams{
		SortBy:    sortBy,
		SortOrder: string(q.Sort.Order),
		Start:     start,
		End:       end,
		Filter:    string(filterJSON),
	}

	values, err := query.Values(params)
	if err != nil {
		return nil, validationError(fmt.Sprintf("failed to encode list query: %v", err), nil)
	}
	return values, nil
}
