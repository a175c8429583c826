package internalerr

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrOversized     = errors.New("document exceeds size limit")
	ErrConflict      = errors.New("already exists")
)

// Kind classifies pipeline failures. Only Decomposition, Persistence and
// Timeout terminate an ingest; the rest degrade into warnings.
type Kind string

const (
	KindDecomposition Kind = "decomposition"
	KindVLM           Kind = "vlm"
	KindExtraction    Kind = "extraction"
	KindPersistence   Kind = "persistence"
	KindIndexing      Kind = "indexing"
	KindTimeout       Kind = "timeout"
)

// Kind sentinels, usable with errors.Is against any *Error of that kind.
var (
	ErrDecomposition = &Error{Kind: KindDecomposition}
	ErrVLM           = &Error{Kind: KindVLM}
	ErrExtraction    = &Error{Kind: KindExtraction}
	ErrPersistence   = &Error{Kind: KindPersistence}
	ErrIndexing      = &Error{Kind: KindIndexing}
	ErrTimeout       = &Error{Kind: KindTimeout}
)

// Error is a typed pipeline error.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// New wraps err with a kind and the operation that failed.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Op)
	}
	return string(e.Kind) + " error"
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports kind equality so callers can match on the kind sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Op == "" || t.Op == e.Op)
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// Fatal reports whether err must terminate an ingest request.
func Fatal(err error) bool {
	if err == nil {
		return false
	}
	kind, ok := KindOf(err)
	if !ok {
		return true
	}
	switch kind {
	case KindDecomposition, KindPersistence, KindTimeout:
		return true
	}
	return false
}

// Warning is a non-fatal condition reported alongside a successful result.
type Warning struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// Warn builds a Warning from a formatted message.
func Warn(kind Kind, format string, args ...any) Warning {
	return Warning{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
