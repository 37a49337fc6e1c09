package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

var (
	ErrUnavailable           = errors.New("server unavailable")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrForbidden             = errors.New("forbidden")
	ErrNotFound              = errors.New("not found")
	ErrMalformedResponse     = errors.New("malformed response")
	ErrLocalDataNotAvailable = errors.New("local data unavailable")
)

// TransportError means no HTTP response was received: refused connection,
// DNS failure or timeout. It matches ErrUnavailable.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, ErrUnavailable, e.Err)
}

func (e *TransportError) Unwrap() []error {
	return []error{ErrUnavailable, e.Err}
}

// Timeout reports whether the request ran out of time rather than failing
// to connect.
func (e *TransportError) Timeout() bool {
	var ne net.Error
	return errors.As(e.Err, &ne) && ne.Timeout()
}

// ServiceError is a non-2xx response. Detail carries the backend message,
// possibly empty.
type ServiceError struct {
	StatusCode int
	Detail     string
}

func (e *ServiceError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("service error: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("service error: %d: %s", e.StatusCode, e.Detail)
}

func (e *ServiceError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrForbidden:
		return e.StatusCode == http.StatusForbidden
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

// IsTimeout reports whether err is a TransportError caused by a timeout.
func IsTimeout(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Timeout()
}

// StatusCode returns the HTTP status of a ServiceError in err's chain, or 0.
func StatusCode(err error) int {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// Detail returns the backend message carried by err, or fallback when err
// carries none.
func Detail(err error, fallback string) string {
	var se *ServiceError
	if errors.As(err, &se) && se.Detail != "" {
		return se.Detail
	}
	return fallback
}

type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

type validationIssue struct {
	Loc []any  `json:"loc"`
	Msg string `json:"msg"`
}

// parseDetail understands {"detail": "text"} and the validation form
// {"detail": [{"loc": [...], "msg": "..."}]}.
func parseDetail(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil || len(eb.Detail) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(eb.Detail, &s); err == nil {
		return s
	}

	var issues []validationIssue
	if err := json.Unmarshal(eb.Detail, &issues); err == nil {
		msgs := make([]string, 0, len(issues))
		for _, is := range issues {
			if is.Msg == "" {
				continue
			}
			if field := lastLoc(is.Loc); field != "" {
				msgs = append(msgs, field+": "+is.Msg)
			} else {
				msgs = append(msgs, is.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}

	return string(eb.Detail)
}

func lastLoc(loc []any) string {
	if len(loc) == 0 {
		return ""
	}
	if s, ok := loc[len(loc)-1].(string); ok {
		return s
	}
	return ""
}

func newServiceError(status int, body []byte) *ServiceError {
	return &ServiceError{StatusCode: status, Detail: parseDetail(body)}
}
