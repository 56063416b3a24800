package marketplace

import (
	"encoding/json"
	"errors"
	"fmt"
)

// APIError is returned for every failed platform call. Transport failures and
// non-2xx platform answers share the type so callers can branch on StatusCode
// without inspecting net/http errors.
type APIError struct {
	Method     string
	Path       string
	StatusCode int  // 0 for transport failures
	Transport  bool // request never produced a platform response
	Details    interface{}
	Err        error
}

func (e *APIError) Error() string {
	if e.Transport {
		return fmt.Sprintf("marketplace %s %s: transport error: %s", e.Method, e.Path, e.message())
	}
	return fmt.Sprintf("marketplace %s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.message())
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// message extracts a human readable reason from the platform payload.
// The platform answers {"errors":[{"key":"...","message":"..."}]} for business errors.
func (e *APIError) message() string {
	switch d := e.Details.(type) {
	case nil:
		if e.Err != nil {
			return e.Err.Error()
		}
		return "unknown error"
	case string:
		return d
	case map[string]interface{}:
		if errs, ok := d["errors"].([]interface{}); ok && len(errs) > 0 {
			if first, ok := errs[0].(map[string]interface{}); ok {
				if msg, ok := first["message"].(string); ok && msg != "" {
					return msg
				}
			}
		}
		if msg, ok := d["message"].(string); ok && msg != "" {
			return msg
		}
	}
	raw, err := json.Marshal(e.Details)
	if err != nil {
		return fmt.Sprintf("%v", e.Details)
	}
	return string(raw)
}

// IsTransport reports whether err is a marketplace transport failure
func IsTransport(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Transport
}

// StatusCode returns the platform HTTP status carried by err, or 0
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
