package apperr

import "errors"

// Kind classifies a failure so the entry point can decide how to report it.
type Kind int

const (
	Unknown Kind = iota
	// Network covers connection, timeout and HTTP status failures.
	Network
	// Parse covers malformed stored state and unparseable page content.
	Parse
	// Write covers failures to persist a snapshot or a change report.
	Write
	// Usage covers bad command-line invocations and malformed URLs.
	Usage
	// EmptyContent is returned when a page yields no text and the caller
	// asked for that to be treated as a failure.
	EmptyContent
)

func (k Kind) String() string {
	switch k {
	case Network:
		return "network"
	case Parse:
		return "parse"
	case Write:
		return "write"
	case Usage:
		return "usage"
	case EmptyContent:
		return "empty content"
	default:
		return "unknown"
	}
}

// Error attaches a Kind and the failing operation to an underlying error.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// E wraps err with kind and op. A nil err stays nil.
func E(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
