package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
)

// maxErrorBody caps how much of an error response is kept.
const maxErrorBody = 64 << 10

// Kind classifies the outcome of an API call.
type Kind int

// Outcome kinds.
const (
	KindSuccess Kind = iota
	KindHTTP
	KindTransport
	KindApplication
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindHTTP:
		return "http"
	case KindTransport:
		return "transport"
	case KindApplication:
		return "application"
	case KindCanceled:
		return "canceled"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// KindOf classifies err.
func KindOf(err error) Kind {
	var httpErr *HTTPError
	var transportErr *TransportError
	switch {
	case err == nil:
		return KindSuccess
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.As(err, &httpErr):
		return KindHTTP
	case errors.As(err, &transportErr):
		return KindTransport
	}
	return KindApplication
}

// TransportError is returned when no HTTP response was received.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return "Network error: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransport reports whether err is a transport failure.
func IsTransport(err error) bool {
	var transportErr *TransportError
	return errors.As(err, &transportErr)
}

// HTTPError is returned for non-2xx responses.
type HTTPError struct {
	StatusCode int
	Status     string
	Body       []byte

	// Message is the backend's error text when the body carried one.
	Message string
	// Fields holds per-field validation messages, keyed by JSON field name.
	Fields map[string][]string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("error querying API: %s: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("error querying API: %s", e.Status)
}

// IsHTTP reports whether err is an HTTP failure and returns it.
func IsHTTP(err error) (*HTTPError, bool) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr, true
	}
	return nil, false
}

// FieldMessages returns the messages for one field in a stable order.
func (e *HTTPError) FieldMessages(field string) []string {
	return e.Fields[field]
}

// FieldNames lists the fields that carried messages, sorted.
func (e *HTTPError) FieldNames() []string {
	names := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// newHTTPError reads and parses the body of a failed response.
func newHTTPError(resp *http.Response) *HTTPError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	e := &HTTPError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       body,
	}
	if e.Status == "" {
		e.Status = fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	e.parseBody()
	return e
}

// parseBody extracts a message from {"error"|"detail"|"message": "..."} and
// field lists from {"field": ["..."]}. Unparsable bodies are left as raw bytes.
func (e *HTTPError) parseBody() {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(e.Body, &obj); err != nil {
		return
	}

	for _, key := range []string{"error", "detail", "message"} {
		raw, ok := obj[key]
		if !ok {
			continue
		}
		var s string
		if json.Unmarshal(raw, &s) == nil && s != "" {
			e.Message = s
			break
		}
	}

	for key, raw := range obj {
		var list []string
		if json.Unmarshal(raw, &list) == nil && len(list) > 0 {
			if e.Fields == nil {
				e.Fields = make(map[string][]string)
			}
			e.Fields[key] = list
		}
	}

	if e.Message == "" {
		if msgs := e.Fields["non_field_errors"]; len(msgs) > 0 {
			e.Message = strings.Join(msgs, " ")
		}
	}
}
