package cloudflare

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrConnectivity indicates the Cloudflare API could not be reached at
	// the transport level.
	ErrConnectivity = errors.New("failed to connect to Cloudflare API")
	// ErrDecode indicates a response body that does not match the v4
	// envelope, usually because the API changed shape.
	ErrDecode = errors.New("failed to parse Cloudflare API response")
)

// HTTPStatusError captures non-2xx responses returned by Cloudflare.
type HTTPStatusError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *HTTPStatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("cloudflare request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("cloudflare request failed with status %d: %s", e.StatusCode, e.Body)
}

// APIError is a well-formed envelope with success=false. It carries every
// error entry Cloudflare reported.
type APIError struct {
	Errors []APIErrorItem
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return "cloudflare API returned an unsuccessful response: " + formatAPIErrors(e.Errors)
}

// Messages returns the plain message text of every reported error entry.
func (e *APIError) Messages() []string {
	if len(e.Errors) == 0 {
		return []string{"unknown API error"}
	}
	messages := make([]string, 0, len(e.Errors))
	for _, item := range e.Errors {
		messages = append(messages, item.Message)
	}
	return messages
}

// IsAuthError reports whether err is a 401 or 403 response from Cloudflare,
// meaning the configured key and email were rejected.
func IsAuthError(err error) bool {
	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) {
		return false
	}
	return statusErr.StatusCode == http.StatusUnauthorized ||
		statusErr.StatusCode == http.StatusForbidden
}

// IsConnectivityError reports whether err is a transport-level failure.
func IsConnectivityError(err error) bool {
	return errors.Is(err, ErrConnectivity)
}

func formatAPIErrors(items []APIErrorItem) string {
	if len(items) == 0 {
		return "unknown API error"
	}

	parts := make([]string, 0, len(items))
	for _, item := range items {
		if item.Code == 0 {
			parts = append(parts, item.Message)
			continue
		}
		parts = append(parts, fmt.Sprintf("%d:%s", item.Code, item.Message))
	}
	return strings.Join(parts, ", ")
}
