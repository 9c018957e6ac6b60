// Package errors provides the standardized error taxonomy for the VerseFlow pipeline.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	// ErrMalformedInput indicates input that could not be parsed
	ErrMalformedInput = errors.New("malformed input")
	// ErrUnrepresentable indicates content the target format cannot carry losslessly
	ErrUnrepresentable = errors.New("unrepresentable content")
	// ErrResourceLimit indicates an input exceeded a caller-imposed limit
	ErrResourceLimit = errors.New("resource limit exceeded")
	// ErrUnknownFormat indicates an unrecognized format token
	ErrUnknownFormat = errors.New("unknown format")
	// ErrInvalidInput indicates invalid input or validation failure
	ErrInvalidInput = errors.New("invalid input")
)

// ParseError represents malformed input. Line is 1-based where the input is
// line-oriented; 0 means the position is not line-addressable.
type ParseError struct {
	Format string // Format being parsed (e.g., "tsv", "usfm")
	Line   int    // 1-based line or row number, 0 if not applicable
	Reason string // Error details
	Err    error  // Underlying error, if any
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse %s: line %d: %s", e.Format, e.Line, e.Reason)
	}
	return fmt.Sprintf("parse %s: %s", e.Format, e.Reason)
}

func (e *ParseError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrMalformedInput
}

// SerializeError represents content the target format cannot represent.
// Serialization escapes or fails; it never truncates silently.
type SerializeError struct {
	Format string // Target format (e.g., "xml")
	Reason string // Why the content cannot be represented
	Err    error  // Underlying error, if any
}

func (e *SerializeError) Error() string {
	return fmt.Sprintf("serialize %s: %s", e.Format, e.Reason)
}

func (e *SerializeError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrUnrepresentable
}

// ResourceLimitError indicates an input larger than the caller-imposed byte limit.
type ResourceLimitError struct {
	Size  int64 // Actual input size in bytes
	Limit int64 // Configured limit in bytes
}

func (e *ResourceLimitError) Error() string {
	return fmt.Sprintf("input size %d exceeds limit %d", e.Size, e.Limit)
}

func (e *ResourceLimitError) Unwrap() error {
	return ErrResourceLimit
}

// UnknownFormatError indicates an unrecognized format token.
type UnknownFormatError struct {
	Token string // The token as supplied by the caller
}

func (e *UnknownFormatError) Error() string {
	return fmt.Sprintf("unknown format: %q", e.Token)
}

func (e *UnknownFormatError) Unwrap() error {
	return ErrUnknownFormat
}

// Helper functions for creating common errors

// NewParse creates a ParseError
func NewParse(format string, line int, reason string) *ParseError {
	return &ParseError{
		Format: format,
		Line:   line,
		Reason: reason,
	}
}

// NewParsef creates a ParseError with a formatted reason
func NewParsef(format string, line int, reasonFormat string, args ...interface{}) *ParseError {
	return &ParseError{
		Format: format,
		Line:   line,
		Reason: fmt.Sprintf(reasonFormat, args...),
	}
}

// NewSerialize creates a SerializeError
func NewSerialize(format, reason string) *SerializeError {
	return &SerializeError{
		Format: format,
		Reason: reason,
	}
}

// NewResourceLimit creates a ResourceLimitError
func NewResourceLimit(size, limit int64) *ResourceLimitError {
	return &ResourceLimitError{
		Size:  size,
		Limit: limit,
	}
}

// Wrap adds context to an error. If err is nil, returns nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf adds formatted context to an error. If err is nil, returns nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// Is wraps errors.Is for convenience
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
