package panelsdk

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

// capturedRequest is what the fake backend saw of one call.
type capturedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   map[string]any
}

// fakeBackend is an httptest server answering with archive envelopes.
type fakeBackend struct {
	*httptest.Server

	mu       sync.Mutex
	requests []capturedRequest
	handlers map[string]http.HandlerFunc
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()

	fb := &fakeBackend{handlers: map[string]http.HandlerFunc{}}
	fb.Server = httptest.NewServer(http.HandlerFunc(fb.serve))
	t.Cleanup(fb.Close)
	return fb
}

func (fb *fakeBackend) handle(method, path string, h http.HandlerFunc) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.handlers[method+" "+path] = h
}

func (fb *fakeBackend) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	var decoded map[string]any
	if len(body) > 0 {
		_ = json.Unmarshal(body, &decoded)
	}

	fb.mu.Lock()
	fb.requests = append(fb.requests, capturedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Header: r.Header.Clone(),
		Body:   decoded,
	})
	h, ok := fb.handlers[r.Method+" "+r.URL.Path]
	fb.mu.Unlock()

	if !ok {
		writeEnvelope(w, http.StatusNotFound, nil, "route not found", true)
		return
	}
	h(w, r)
}

func (fb *fakeBackend) all() []capturedRequest {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]capturedRequest(nil), fb.requests...)
}

func (fb *fakeBackend) last(t *testing.T) capturedRequest {
	t.Helper()

	reqs := fb.all()
	require.NotEmpty(t, reqs, "no request reached the backend")
	return reqs[len(reqs)-1]
}

func (fb *fakeBackend) countPath(path string) int {
	n := 0
	for _, r := range fb.all() {
		if r.Path == path {
			n++
		}
	}
	return n
}

func writeEnvelope(w http.ResponseWriter, status int, data any, message string, failed bool) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"track_id": "trk-test",
		"error":    failed,
		"message":  message,
		"data":     data,
	})
}

func respondOK(data any) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeEnvelope(w, http.StatusOK, data, "ok", false)
	}
}

func respondError(status int, message string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeEnvelope(w, status, nil, message, true)
	}
}

func identityJSON(id int64, admin, mustChange bool) map[string]any {
	return map[string]any{
		"id":                      id,
		"username":                "operator",
		"email":                   "operator@example.com",
		"is_admin":                admin,
		"change_initial_password": mustChange,
		"created_at":              "2024-05-01T10:00:00Z",
		"updated_at":              "2024-05-01T10:00:00Z",
	}
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "1",
		"exp": exp.Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func newTestClient(fb *fakeBackend, opts ...Option) *Client {
	return New(fb.URL, NewSession(NewMemoryTokenStore()), opts...)
}
