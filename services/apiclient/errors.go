package apiclient

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// ExpiredTokenMessage is the error message the API answers with when the access token is no longer valid.
const ExpiredTokenMessage = "Invalid or expired token"

// ErrSessionExpired is returned when the token could not be refreshed. The session has been torn down by then.
var ErrSessionExpired = errors.New("session expired, please log in again")

func IsSessionExpired(err error) bool {
	return errors.Cause(err) == ErrSessionExpired
}

// ResponseError is a non-2xx API response.
type ResponseError struct {
	StatusCode int
	Message    string            // "message" of the error body, if any
	Fields     map[string]string // validation errors: {field: message}
	Body       []byte
}

func newResponseError(resp *response) *ResponseError {
	rErr := &ResponseError{StatusCode: resp.StatusCode, Body: resp.body}

	var payload map[string]interface{}
	if err := json.Unmarshal(resp.body, &payload); err != nil {
		return rErr
	}
	if msg, ok := payload["message"].(string); ok {
		rErr.Message = msg
		return rErr
	}
	for key, val := range payload {
		if msg, ok := val.(string); ok {
			if rErr.Fields == nil {
				rErr.Fields = make(map[string]string, len(payload))
			}
			rErr.Fields[key] = msg
		}
	}
	return rErr
}

func (e *ResponseError) Error() string {
	status := fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode))
	if e.Message != "" {
		return status + ": " + e.Message
	}
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for key := range e.Fields {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, key := range keys {
			parts = append(parts, key+": "+e.Fields[key])
		}
		return status + ": " + strings.Join(parts, "; ")
	}
	return status
}

// IsExpiredToken reports whether the response is the API's expired token error.
func (e *ResponseError) IsExpiredToken() bool {
	return e.Message == ExpiredTokenMessage
}

// StatusCode returns the HTTP status of a *ResponseError, 0 otherwise.
func StatusCode(err error) int {
	if rErr, ok := errors.Cause(err).(*ResponseError); ok {
		return rErr.StatusCode
	}
	return 0
}
