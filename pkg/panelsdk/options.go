package panelsdk

import (
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Option customizes the Client.
type Option func(c *Client)

// WithHTTPClient supplies the base HTTP client. It is copied, not mutated.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			hc := *c.http
			hc.Timeout = d
			c.http = &hc
		}
	}
}

// WithCredentialMode selects bearer or cookie authentication.
func WithCredentialMode(mode CredentialMode) Option {
	return func(c *Client) {
		if mode == CredentialBearer || mode == CredentialCookie {
			c.credentials = mode
		}
	}
}

// WithAPIVariant selects the list convention of the backend.
func WithAPIVariant(v APIVariant) Option {
	return func(c *Client) {
		if v == VariantCurrent || v == VariantLegacy {
			c.variant = v
		}
	}
}

// WithRateLimit throttles outgoing requests to rps with the given burst.
// Pollers on short intervals use this to stay polite.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLogger sets the logger for transport and session events.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithHeader sets a static header on all requests.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		if c.headers == nil {
			c.headers = map[string]string{}
		}
		c.headers[key] = value
	}
}
