package panelsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/aussiebroadwan/archivepanel/pkg/trackid"
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 16 << 20

// url builds a complete URL by appending path and query to the base URL.
func (c *Client) url(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// doRequest sends one request with the session credential attached. It
// returns the response and the track id sent with it.
func (c *Client) doRequest(
	ctx context.Context,
	method, path string,
	query url.Values,
	body any,
) (*http.Response, string, error) {
	tid := trackid.New()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, tid, transportError(tid, err)
		}
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, tid, validationError(fmt.Sprintf("failed to encode request body: %v", err), nil)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path, query), reader)
	if err != nil {
		return nil, tid, transportError(tid, fmt.Errorf("failed to create request: %w", err))
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(trackid.Header, tid)
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	if c.credentials == CredentialBearer {
		if token, ok := c.session.Token(); ok {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, tid, transportError(tid, err)
	}

	return resp, tid, nil
}

// decodeEnvelope reads the response, classifies failures and decodes the
// envelope data into T. A 401/403 clears the session before returning.
func decodeEnvelope[T any](ctx context.Context, c *Client, resp *http.Response, sentID string) (*Envelope[T], error) {
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, transportError(sentID, fmt.Errorf("failed to read response body: %w", err))
	}

	var raw Envelope[json.RawMessage]
	parseErr := json.Unmarshal(body, &raw)
	tid := raw.TrackID
	if tid == "" {
		tid = sentID
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := statusError(resp.StatusCode, raw.Message, tid)
		apiErr.fromServer = raw.Message != ""
		if apiErr.Kind == KindUnauthorized {
			c.invalidate(ctx, apiErr)
		}
		return nil, apiErr
	}

	if parseErr != nil {
		c.logger.Warn("undecodable response envelope", "track_id", tid, "status", resp.StatusCode, "error", parseErr)
		return nil, &APIError{
			Kind:       KindServer,
			StatusCode: resp.StatusCode,
			Message:    GenericServerMessage,
			TrackID:    tid,
			err:        parseErr,
		}
	}

	if raw.Error {
		msg := raw.Message
		if msg == "" {
			msg = "request failed"
		}
		return nil, &APIError{
			Kind:       KindClient,
			StatusCode: resp.StatusCode,
			Message:    msg,
			TrackID:    tid,
			fromServer: raw.Message != "",
		}
	}

	env := &Envelope[T]{TrackID: raw.TrackID, Error: raw.Error, Message: raw.Message}
	if len(raw.Data) > 0 && !bytes.Equal(raw.Data, []byte("null")) {
		if err := json.Unmarshal(raw.Data, &env.Data); err != nil {
			c.logger.Warn("undecodable envelope data", "track_id", tid, "error", err)
			return nil, &APIError{
				Kind:       KindServer,
				StatusCode: resp.StatusCode,
				Message:    GenericServerMessage,
				TrackID:    tid,
				err:        err,
			}
		}
	}

	return env, nil
}

// call performs a request and decodes its envelope.
func call[T any](ctx context.Context, c *Client, method, path string, query url.Values, body any) (*Envelope[T], error) {
	resp, tid, err := c.doRequest(ctx, method, path, query, body)
	if err != nil {
		return nil, err
	}
	return decodeEnvelope[T](ctx, c, resp, tid)
}

// invalidate clears the session after an Unauthorized response.
func (c *Client) invalidate(ctx context.Context, cause *APIError) {
	if c.session.Authenticated() {
		c.logger.Info("session invalidated", "status", cause.StatusCode, "track_id", cause.TrackID)
	}
	if err := c.session.Clear(ctx); err != nil {
		c.logger.Warn("failed to clear session", "error", err)
	}
}
