package parser

import (
	"errors"
	"fmt"
	"strings"

	"blend-lens/pkg/utils"
)

// Fatal decode errors. Every error returned by this package and by the
// printer matches one of them with errors.Is.
var (
	ErrUnsupportedFormat  = errors.New("unsupported file format")
	ErrSchemaInconsistent = errors.New("schema inconsistent")
	ErrTruncated          = errors.New("file truncated")
	ErrMissingSchema      = errors.New("schema block not found")
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseHeader Phase = "header" // magic, pointer size, endianness
	PhaseBlocks Phase = "blocks" // block scan
	PhaseSchema Phase = "schema" // SDNA decode
	PhaseData   Phase = "data"   // structure printing
)

// Error is the structured error type used by the loader and the printer
type Error struct {
	Phase  Phase
	Offset int64
	Detail string
	Cause  error
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(fmt.Sprintf("offset %d", e.Offset))
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}
	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Fail builds an *Error. Short reads are normalized to ErrTruncated.
func Fail(phase Phase, offset int64, cause error, detail string, args ...any) *Error {
	if errors.Is(cause, utils.ErrShortRead) && !errors.Is(cause, ErrTruncated) {
		cause = fmt.Errorf("%w: %w", ErrTruncated, cause)
	}
	if len(args) > 0 {
		detail = fmt.Sprintf(detail, args...)
	}
	return &Error{Phase: phase, Offset: offset, Detail: detail, Cause: cause}
}

// Code maps an error to the short code used in CLI and HTTP error payloads
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnsupportedFormat):
		return "UNSUPPORTED_FORMAT"
	case errors.Is(err, ErrSchemaInconsistent):
		return "SCHEMA_INCONSISTENT"
	case errors.Is(err, ErrTruncated), errors.Is(err, utils.ErrShortRead):
		return "TRUNCATED"
	case errors.Is(err, ErrMissingSchema):
		return "MISSING_SCHEMA"
	}
	var perr *Error
	if errors.As(err, &perr) {
		return "DECODE_ERROR"
	}
	return "IO_ERROR"
}
