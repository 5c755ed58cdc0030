package apollo

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidArgument is wrapped by every precondition failure raised before a request.
var ErrInvalidArgument = errors.New("invalid argument")

// TransportError reports that the request to the service could not be completed.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: request failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RemoteError reports a completed request that the service answered with a
// non-success status. Body holds the response text when it could be read.
type RemoteError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *RemoteError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: service returned status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: service returned status %d: %s", e.Op, e.StatusCode, e.Body)
}

// DecodeError reports a success response whose body does not have the expected shape.
type DecodeError struct {
	Op  string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: decode response: %v", e.Op, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// MalformedInputError reports a structurally invalid entry of an input collection.
type MalformedInputError struct {
	Field  string
	Index  int
	Reason string
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("malformed %s[%d]: %s", e.Field, e.Index, e.Reason)
}

// DuplicateArticleError reports identities submitted both as new and as already clustered.
type DuplicateArticleError struct {
	IDs []string
}

func (e *DuplicateArticleError) Error() string {
	return fmt.Sprintf("articles submitted as new are already clustered: %s", strings.Join(e.IDs, ", "))
}
