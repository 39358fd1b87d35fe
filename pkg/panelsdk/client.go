package panelsdk

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aussiebroadwan/archivepanel/pkg/slogx"
	"github.com/aussiebroadwan/archivepanel/pkg/trackid"
	"golang.org/x/time/rate"
)

// DefaultTimeout is the fixed request timeout of the transport.
const DefaultTimeout = 30 * time.Second

// CredentialMode selects how the transport authenticates requests.
type CredentialMode string

const (
	// CredentialBearer sends the Session token as "Authorization: Bearer <token>".
	CredentialBearer CredentialMode = "bearer"

	// CredentialCookie relies on the backend session cookie kept in the
	// transport's cookie jar. No token is stored.
	CredentialCookie CredentialMode = "cookie"
)

// APIVariant selects the list addressing and pagination convention of the
// backend.
type APIVariant string

const (
	// VariantCurrent lists with GET /{resource} and a half-open range:
	// end = page*perPage.
	VariantCurrent APIVariant = "current"

	// VariantLegacy lists with GET /{resource}/list and a closed range:
	// end = page*perPage - 1.
	VariantLegacy APIVariant = "legacy"
)

// Client is the transport to the archive panel API. It owns the base URL,
// the timeout and the credential policy, and reads credentials from the
// Session on every request.
type Client struct {
	baseURL     string
	http        *http.Client
	session     *Session
	credentials CredentialMode
	variant     APIVariant
	jar         *resettableJar
	limiter     *rate.Limiter
	logger      *slog.Logger
	headers     map[string]string
}

// New creates a transport for baseURL. A nil session gets a fresh anonymous
// in-memory Session.
func New(baseURL string, session *Session, opts ...Option) *Client {
	if session == nil {
		session = NewSession(nil)
	}

	c := &Client{
		baseURL:     strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:        &http.Client{Timeout: DefaultTimeout},
		session:     session,
		credentials: CredentialBearer,
		variant:     VariantCurrent,
		logger:      slogx.Discard(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	// Work on a copy so a caller supplied http.Client is left untouched.
	hc := *c.http
	hc.Transport = slogx.NewTransport(hc.Transport, c.logger, trackid.Header)
	if c.credentials == CredentialCookie {
		c.jar = newResettableJar()
		hc.Jar = c.jar
		session.setOnClear(c.jar.Reset)
	}
	c.http = &hc

	return c
}

// BaseURL returns the API root all paths are resolved against.
func (c *Client) BaseURL() string { return c.baseURL }

// Session returns the session the transport reads credentials from.
func (c *Client) Session() *Session { return c.session }

// Credentials returns the credential policy.
func (c *Client) Credentials() CredentialMode { return c.credentials }

// Variant returns the list convention of the backend.
func (c *Client) Variant() APIVariant { return c.variant }

// Logger returns the logger used for transport and session events.
func (c *Client) Logger() *slog.Logger { return c.logger }
