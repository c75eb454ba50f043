package authapi

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUnauthenticated signals a 401 from any upstream call. Receivers must
// treat it as the authentication-expired signal: clear the local token and
// drop back to the sign-in flow.
var ErrUnauthenticated = errors.New("authapi: unauthenticated")

// APIError is a decoded non-2xx response from the identity API.
type APIError struct {
	Status  int               `json:"status"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"errors,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("authapi: %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("authapi: status %d", e.Status)
}

// IsConflict reports whether the error is a duplicate email/phone conflict.
func (e *APIError) IsConflict() bool {
	return e != nil && e.Status == http.StatusConflict
}

// AsAPIError unwraps err into an *APIError when possible.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
