package remote

import (
	"errors"
	"fmt"
)

// ConfigurationError means the collaborator cannot be reached at all because
// required configuration is missing. It is fatal and never retried.
type ConfigurationError struct {
	Setting string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s %s", e.Setting, e.Reason)
}

// TransportError is a non-2xx HTTP response.
type TransportError struct {
	Op         string
	StatusCode int
	Status     string
	// Body is the first bodyLimit bytes of the response.
	Body string
}

func (e *TransportError) Error() string {
	msg := fmt.Sprintf("%s: HTTP %d / %s", e.Op, e.StatusCode, e.Status)
	if e.Body != "" {
		msg += "\n" + e.Body
	}
	return msg
}

// RemoteError is a well-formed response with ok:false.
type RemoteError struct {
	Op      string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: remote error: %s", e.Op, e.Message)
}

// ShapeError is a success response that does not have the expected shape.
type ShapeError struct {
	Op     string
	Detail string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: unexpected response: %s", e.Op, e.Detail)
}

// IsFatal reports whether err can never succeed on retry.
func IsFatal(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}

// Kind names the error category for display and logs.
func Kind(err error) string {
	var (
		cfgErr   *ConfigurationError
		transErr *TransportError
		remErr   *RemoteError
		shapeErr *ShapeError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &cfgErr):
		return "configuration"
	case errors.As(err, &transErr):
		return "transport"
	case errors.As(err, &remErr):
		return "remote"
	case errors.As(err, &shapeErr):
		return "shape"
	}
	return "unknown"
}
