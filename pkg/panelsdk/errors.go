package panelsdk

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ============================================================================
// Error Kinds
// ============================================================================

// ErrorKind classifies a failed call so callers can decide presentation and
// whether the session must be dropped.
type ErrorKind int

const (
	// KindTransport is a network or timeout failure. No status is available.
	KindTransport ErrorKind = iota + 1

	// KindUnauthorized is a 401 or 403. The local session has been cleared.
	KindUnauthorized

	// KindClient is any other 4xx, or a 2xx envelope with error=true.
	// The server message is safe to show.
	KindClient

	// KindServer is a 5xx. The server message is replaced by a generic one.
	KindServer

	// KindValidation is raised locally before any request is sent.
	KindValidation
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindUnauthorized:
		return "unauthorized"
	case KindClient:
		return "client"
	case KindServer:
		return "server"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// GenericServerMessage replaces server supplied messages on 5xx responses.
const GenericServerMessage = "something went wrong"

// ============================================================================
// APIError
// ============================================================================

// APIError is the single error type returned by the Client, AuthController
// and ResourceAdapter for failed calls.
type APIError struct {
	// Kind is the coarse classification of the failure
	Kind ErrorKind

	// StatusCode is the HTTP status, 0 for transport and validation failures
	StatusCode int

	// Message is safe to display to an operator
	Message string

	// TrackID is the envelope track_id, or the request id we sent when the
	// body could not be decoded
	TrackID string

	// Fields holds per-field messages for validation failures
	Fields map[string]string

	fromServer bool
	err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (%d)", e.StatusCode)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "; %s", e.Fields[k])
		}
	}
	if e.err != nil && e.Kind == KindTransport {
		fmt.Fprintf(&b, ": %v", e.err)
	}
	return b.String()
}

// Unwrap exposes the underlying transport error, if any.
func (e *APIError) Unwrap() error { return e.err }

func transportError(trackID string, err error) *APIError {
	return &APIError{
		Kind:    KindTransport,
		Message: "failed to send request",
		TrackID: trackID,
		err:     err,
	}
}

func validationError(msg string, fields map[string]string) *APIError {
	return &APIError{
		Kind:    KindValidation,
		Message: msg,
		Fields:  fields,
	}
}

// statusError builds an APIError from a response status and the (possibly
// empty) envelope message.
func statusError(status int, message, trackID string) *APIError {
	e := &APIError{
		StatusCode: status,
		Message:    message,
		TrackID:    trackID,
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e.Kind = KindUnauthorized
	case status >= http.StatusInternalServerError:
		e.Kind = KindServer
		e.Message = GenericServerMessage
	default:
		e.Kind = KindClient
	}

	if e.Message == "" {
		e.Message = strings.ToLower(http.StatusText(status))
	}

	return e
}

// KindOf returns the kind of an APIError anywhere in err's chain, or 0.
func KindOf(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return 0
}

// IsUnauthorized reports whether err invalidated the session.
func IsUnauthorized(err error) bool {
	return KindOf(err) == KindUnauthorized
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// DisplayMessage returns the text an operator should see for err.
func DisplayMessage(err error) string {
	if err == nil {
		return ""
	}

	var pcr *PasswordChangeRequiredError
	if errors.As(err, &pcr) {
		return pcr.Error()
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return apiErr.Kind.String() + " error"
	}
	return err.Error()
}

// ============================================================================
// Password Change Redirect
// ============================================================================

// PasswordChangeRoute is where a user with a mandatory password change is sent.
const PasswordChangeRoute = "/pre-auth/change-password"

// PasswordChangeRequiredError is returned by Login and CheckAuth when the
// identity must change its initial password before normal use. The session is
// kept (the change-password call needs it) but flagged.
type PasswordChangeRequiredError struct {
	// RedirectTo is the route the caller must navigate to
	RedirectTo string

	// Identity is the identity that triggered the redirect
	Identity *Identity
}

// Error implements the error interface.
func (e *PasswordChangeRequiredError) Error() string {
	return "password change required: redirect to " + e.RedirectTo
}

func passwordChangeRequired(id *Identity) *PasswordChangeRequiredError {
	return &PasswordChangeRequiredError{RedirectTo: PasswordChangeRoute, Identity: id}
}

// IsPasswordChangeRequired reports whether err asks for the forced redirect.
func IsPasswordChangeRequired(err error) bool {
	var pcr *PasswordChangeRequiredError
	return errors.As(err, &pcr)
}

// ============================================================================
// Error Actions
// ============================================================================

// ErrorAction tells the caller what to do with the session after a failure.
type ErrorAction int

const (
	// ActionNone means the failure is recoverable. Keep the session.
	ActionNone ErrorAction = iota

	// ActionLogout means the session is invalid. The caller must log out.
	ActionLogout
)

func (a ErrorAction) String() string {
	if a == ActionLogout {
		return "logout"
	}
	return "none"
}
