package rtreeindex

import (
	"errors"
	"fmt"
)

// Kind is the error taxonomy from §7. The index never retries; it
// reports, and the planner retries nothing on its own.
type Kind uint8

const (
	Internal Kind = iota
	InvalidArgument
	Empty
	OutOfDomain
	BufferTooSmall
	IoError
	Cancelled
)

func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "InvalidArgument"
	case Empty:
		return "Empty"
	case OutOfDomain:
		return "OutOfDomain"
	case BufferTooSmall:
		return "BufferTooSmall"
	case IoError:
		return "IoError"
	case Cancelled:
		return "Cancelled"
	default:
		return "Internal"
	}
}

// IndexError is the concrete error type returned by every public entry
// point in this package (§7, §9 "explicit result discriminated union").
// It carries a human-readable message plus the enum kind, and wraps an
// underlying cause when one exists (e.g. an IoError from a tile fetch).
type IndexError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *IndexError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *IndexError) Unwrap() error {
	return e.Err
}

// AsIndexError recovers the *IndexError from err, if any, following the
// same errors.As-friendly unwrapping convention as the storage layer's
// own typed errors.
func AsIndexError(err error) (*IndexError, bool) {
	var ie *IndexError
	if errors.As(err, &ie) {
		return ie, true
	}
	return nil, false
}

func errInvalidArgument(format string, args ...any) *IndexError {
	return &IndexError{Kind: InvalidArgument, Message: fmt.Sprintf(format, args...)}
}

func errEmpty(format string, args ...any) *IndexError {
	return &IndexError{Kind: Empty, Message: fmt.Sprintf(format, args...)}
}

func errOutOfDomain(format string, args ...any) *IndexError {
	return &IndexError{Kind: OutOfDomain, Message: fmt.Sprintf(format, args...)}
}

func errBufferTooSmall(format string, args ...any) *IndexError {
	return &IndexError{Kind: BufferTooSmall, Message: fmt.Sprintf(format, args...)}
}

func errIoError(cause error, format string, args ...any) *IndexError {
	return &IndexError{Kind: IoError, Message: fmt.Sprintf(format, args...), Err: cause}
}

func errCancelled(format string, args ...any) *IndexError {
	return &IndexError{Kind: Cancelled, Message: fmt.Sprintf(format, args...)}
}

func errInternal(format string, args ...any) *IndexError {
	return &IndexError{Kind: Internal, Message: fmt.Sprintf(format, args...)}
}
