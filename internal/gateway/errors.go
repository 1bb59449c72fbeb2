package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

// RemoteError is a non-2xx reply from the identity API.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("identity api: %s (status %d)", e.Message, e.Status)
}

// IsStatus reports whether err carries a RemoteError with the given status.
func IsStatus(err error, status int) bool {
	var re *RemoteError
	return errors.As(err, &re) && re.Status == status
}

// IsUnauthorized reports whether err is a 401 from the identity API.
func IsUnauthorized(err error) bool {
	return IsStatus(err, http.StatusUnauthorized)
}

// IsRejection reports whether err is a domain rejection (wrong code, expired
// reset, …) rather than an identity or transport failure. Recoverable by
// retrying the same step.
func IsRejection(err error) bool {
	var re *RemoteError
	if !errors.As(err, &re) {
		return false
	}
	switch re.Status {
	case http.StatusBadRequest, http.StatusForbidden, http.StatusConflict, http.StatusUnprocessableEntity:
		return true
	}
	return false
}
