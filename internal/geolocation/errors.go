package geolocation

import (
	"errors"
	"fmt"
)

// Kind mirrors the browser GeolocationPositionError codes, with 0 reserved
// for a platform that has no location capability at all.
type Kind int

const (
	KindUnsupported         Kind = 0
	KindPermissionDenied    Kind = 1
	KindPositionUnavailable Kind = 2
	KindTimeout             Kind = 3
)

func (k Kind) String() string {
	switch k {
	case KindUnsupported:
		return "unsupported"
	case KindPermissionDenied:
		return "permission_denied"
	case KindPositionUnavailable:
		return "position_unavailable"
	case KindTimeout:
		return "timeout"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// KindFromCode maps a platform error code. Unknown codes are treated as
// position unavailable.
func KindFromCode(code int) Kind {
	switch Kind(code) {
	case KindUnsupported, KindPermissionDenied, KindPositionUnavailable, KindTimeout:
		return Kind(code)
	default:
		return KindPositionUnavailable
	}
}

const (
	unsupportedMessage = "Geolocation is not supported by this browser."
	timeoutMessage     = "Timeout expired"
)

// PositionError is the terminal failure of a position fetch. Message is the
// platform's text, unmodified.
type PositionError struct {
	Kind    Kind   `json:"code"`
	Message string `json:"message"`
}

func (e *PositionError) Error() string {
	return fmt.Sprintf("geolocation %s: %s", e.Kind, e.Message)
}

// Is matches any PositionError of the same kind, so the sentinels below work
// with errors.Is regardless of message.
func (e *PositionError) Is(target error) bool {
	var t *PositionError
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrUnsupported         = &PositionError{Kind: KindUnsupported}
	ErrPermissionDenied    = &PositionError{Kind: KindPermissionDenied}
	ErrPositionUnavailable = &PositionError{Kind: KindPositionUnavailable}
	ErrTimeout             = &PositionError{Kind: KindTimeout}
)

func newPositionError(kind Kind, message string) *PositionError {
	return &PositionError{Kind: kind, Message: message}
}
