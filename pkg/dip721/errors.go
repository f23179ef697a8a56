package dip721

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedIdentifier = errors.New("malformed content identifier")
	ErrInvalidURI          = errors.New("invalid URI")
	ErrMalformedHash       = errors.New("malformed content hash")
	ErrConflictingLocation = errors.New("at most one content location may be given")
	ErrHashRequired        = errors.New("a content hash is required for an external URI")
	ErrMissingContent      = errors.New("content is required to compute a hash")
	ErrConflictingHash     = errors.New("an explicit hash and automatic hashing are mutually exclusive")
)

type ErrorCode string

const (
	ErrorCodeMalformedIdentifier ErrorCode = "malformed_identifier"
	ErrorCodeInvalidURI          ErrorCode = "invalid_uri"
	ErrorCodeMalformedHash       ErrorCode = "malformed_hash"
	ErrorCodeConflictingLocation ErrorCode = "conflicting_location"
	ErrorCodeHashRequired        ErrorCode = "hash_required"
	ErrorCodeMissingContent      ErrorCode = "missing_content"
	ErrorCodeConflictingHash     ErrorCode = "conflicting_hash"
	ErrorCodeInvalidRequest      ErrorCode = "invalid_request"
)

// ValidationError reports bad caller input. It is raised before any remote
// call and is never retried.
type ValidationError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func validationError(code ErrorCode, err error, format string, args ...any) *ValidationError {
	return &ValidationError{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// ErrorKind classifies a failed remote call.
type ErrorKind string

const (
	// KindUnsupportedService means the capability query does not exist on the target.
	KindUnsupportedService ErrorKind = "unsupported_service"
	// KindUnsupportedOperation means the mint call does not exist on the target.
	KindUnsupportedOperation ErrorKind = "unsupported_operation"
	// KindProtocol is any other call-layer rejection or transport failure.
	KindProtocol ErrorKind = "protocol"
	// KindDecode means a reply arrived but did not match the call schema.
	KindDecode ErrorKind = "decode"
)

// RemoteError wraps a failed remote call with its classification. The
// original error, usually a *ledger.Rejection, stays reachable via Unwrap.
type RemoteError struct {
	Kind   ErrorKind
	Target string
	Method string
	Hint   string
	Err    error
}

func (e *RemoteError) Error() string {
	message := fmt.Sprintf("%s on %s failed", e.Method, e.Target)
	if e.Hint != "" {
		message = e.Hint
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", message, e.Err)
	}
	return message
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// CapabilityMissingError is returned when the target answers the capability
// query but does not list the required capability.
type CapabilityMissingError struct {
	Target     string
	Capability Capability
}

func (e *CapabilityMissingError) Error() string {
	return fmt.Sprintf("canister %s does not support %s", e.Target, e.Capability.description())
}

// IsKind reports whether err is a RemoteError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var remote *RemoteError
	return errors.As(err, &remote) && remote.Kind == kind
}
