package mediatypes

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind is the failure category of a job.
type ErrorKind string

const (
	// ErrNone means the job succeeded.
	ErrNone ErrorKind = ""
	// ErrOpenFailure means a container or codec could not be opened.
	ErrOpenFailure ErrorKind = "open_failure"
	// ErrStreamNotFound means the input has no usable video stream.
	ErrStreamNotFound ErrorKind = "stream_not_found"
	// ErrCodecUnavailable means a required decoder or encoder is missing.
	ErrCodecUnavailable ErrorKind = "codec_unavailable"
	// ErrIOFailure means the output sink could not be opened or written.
	ErrIOFailure ErrorKind = "io_failure"
	// ErrUnsupportedMedia means the extension was not recognized.
	ErrUnsupportedMedia ErrorKind = "unsupported_media"
	// ErrTranscodeFailure means an encoder rejected data mid-stream.
	ErrTranscodeFailure ErrorKind = "transcode_failure"
	// ErrCanceled means the job was stopped before it finished.
	ErrCanceled ErrorKind = "canceled"
)

// AllErrorKinds lists every failure kind.
var AllErrorKinds = []ErrorKind{
	ErrOpenFailure,
	ErrStreamNotFound,
	ErrCodecUnavailable,
	ErrIOFailure,
	ErrUnsupportedMedia,
	ErrTranscodeFailure,
	ErrCanceled,
}

// Error is a per-job failure with its category.
type Error struct {
	Kind ErrorKind
	Op   string
	Path string
	Err  error
}

// NewError wraps err with a kind, the operation that failed and the file involved.
func NewError(kind ErrorKind, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg += ": " + e.Op
	}
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf builds an Error whose cause is a formatted message.
func Errorf(kind ErrorKind, op, path, format string, args ...interface{}) *Error {
	return NewError(kind, op, path, fmt.Errorf(format, args...))
}

// KindOf returns the ErrorKind carried by err. Context cancellation maps to
// ErrCanceled; any other untyped error is reported as ErrTranscodeFailure.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ErrNone
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ErrCanceled
	}
	return ErrTranscodeFailure
}

func (k ErrorKind) String() string {
	if k == ErrNone {
		return "none"
	}
	return string(k)
}
