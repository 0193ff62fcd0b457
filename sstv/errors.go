package sstv

import (
	"errors"
	"fmt"
)

// Kind categorizes encoder errors so callers can map them to exit codes.
type Kind int

const (
	// KindUnknown indicates an unspecified failure
	KindUnknown Kind = iota
	// KindNoInputImage indicates a missing or empty source image
	KindNoInputImage
	// KindInvalidProtocol indicates an unrecognized protocol key
	KindInvalidProtocol
	// KindInvalidFormat indicates an unsupported audio container
	KindInvalidFormat
	// KindInvalidSampleRate indicates a sample rate outside 8000-48000 Hz
	KindInvalidSampleRate
	// KindInvalidAspectMode indicates an unrecognized aspect mode
	KindInvalidAspectMode
	// KindInvalidCallsign indicates an empty, overlong or malformed callsign
	KindInvalidCallsign
	// KindInvalidWpm indicates a CW speed outside 1-50 WPM
	KindInvalidWpm
	// KindInvalidTone indicates a CW tone outside 400-2000 Hz
	KindInvalidTone
	// KindCwRequiresCallsign indicates CW parameters were given without a callsign
	KindCwRequiresCallsign
)

// Error is an encoder error. Message is always safe to print; Err holds
// the underlying cause, if any.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Sentinels for errors.Is matching. Only Kind is compared.
var (
	ErrNoInputImage       = &Error{Kind: KindNoInputImage}
	ErrInvalidProtocol    = &Error{Kind: KindInvalidProtocol}
	ErrInvalidFormat      = &Error{Kind: KindInvalidFormat}
	ErrInvalidSampleRate  = &Error{Kind: KindInvalidSampleRate}
	ErrInvalidAspectMode  = &Error{Kind: KindInvalidAspectMode}
	ErrInvalidCallsign    = &Error{Kind: KindInvalidCallsign}
	ErrInvalidWpm         = &Error{Kind: KindInvalidWpm}
	ErrInvalidTone        = &Error{Kind: KindInvalidTone}
	ErrCwRequiresCallsign = &Error{Kind: KindCwRequiresCallsign}
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return e.Message
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target carries the same kind.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

func (k Kind) String() string {
	switch k {
	case KindUnknown:
		return "unknown"
	case KindNoInputImage:
		return "no_input_image"
	case KindInvalidProtocol:
		return "invalid_protocol"
	case KindInvalidFormat:
		return "invalid_format"
	case KindInvalidSampleRate:
		return "invalid_sample_rate"
	case KindInvalidAspectMode:
		return "invalid_aspect_mode"
	case KindInvalidCallsign:
		return "invalid_callsign"
	case KindInvalidWpm:
		return "invalid_wpm"
	case KindInvalidTone:
		return "invalid_tone"
	case KindCwRequiresCallsign:
		return "cw_requires_callsign"
	default:
		return fmt.Sprintf("unknown_kind_%d", int(k))
	}
}

// newError builds an Error with a formatted message.
func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError builds an Error of the given kind around cause.
func WrapError(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: cause}
}

// KindOf returns the kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
