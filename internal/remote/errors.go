package remote

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a structured error returned by the backend. Transport-level
// failures (DNS, timeout, refused connection) are NOT APIErrors; the caller
// uses that distinction to tell invalid credentials from a dead network.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// IsUnauthorized reports whether err is a server response with status 401.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

// IsAPIError reports whether the server itself rejected the request, as
// opposed to the request never reaching it.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}
