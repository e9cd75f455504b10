package diag

import (
	"errors"
	"fmt"
)

// Kind groups codes by their failure policy.
type Kind uint8

const (
	KindUnknown Kind = iota
	// KindMalformedInput aborts the current module.
	KindMalformedInput
	// KindAnnotationShape aborts the current module.
	KindAnnotationShape
	// KindUnsupportedSignature is recoverable.
	KindUnsupportedSignature
	// KindUsage aborts the whole build.
	KindUsage
	KindConsistency
	KindIO
)

func (k Kind) String() string {
	switch k {
	case KindMalformedInput:
		return "malformed input"
	case KindAnnotationShape:
		return "annotation shape"
	case KindUnsupportedSignature:
		return "unsupported signature"
	case KindUsage:
		return "usage"
	case KindConsistency:
		return "consistency"
	case KindIO:
		return "io"
	}
	return "unknown"
}

// Kind returns the failure kind encoded in the code's range.
func (c Code) Kind() Kind {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return KindMalformedInput
	case ic >= 2000 && ic < 3000:
		return KindAnnotationShape
	case ic >= 3000 && ic < 4000:
		return KindUnsupportedSignature
	case ic >= 4000 && ic < 5000:
		return KindUsage
	case ic >= 5000 && ic < 6000:
		return KindConsistency
	case ic >= 6000 && ic < 7000:
		return KindIO
	}
	return KindUnknown
}

// Sentinels for errors.Is; an *Error matches the sentinel of its kind.
var (
	ErrMalformedInput  = errors.New("malformed input")
	ErrAnnotationShape = errors.New("annotation shape")
	ErrUsage           = errors.New("usage error")
	ErrIO              = errors.New("io error")
)

// Error is a hard failure attributed to a module and optionally a member.
type Error struct {
	Code Code
	Loc  Location
	Msg  string
	Err  error
}

// Errorf builds an *Error with a formatted message.
func Errorf(code Code, loc Location, format string, args ...any) *Error {
	return &Error{Code: code, Loc: loc, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and location to an underlying error.
func Wrap(code Code, loc Location, err error, msg string) *Error {
	return &Error{Code: code, Loc: loc, Msg: msg, Err: err}
}

func (e *Error) Error() string {
	msg := e.Msg
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg = msg + ": " + e.Err.Error()
		}
	}
	return fmt.Sprintf("%s %s: %s", e.Code.ID(), e.Loc, msg)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	switch target {
	case ErrMalformedInput:
		return e.Code.Kind() == KindMalformedInput
	case ErrAnnotationShape:
		return e.Code.Kind() == KindAnnotationShape
	case ErrUsage:
		return e.Code.Kind() == KindUsage
	case ErrIO:
		return e.Code.Kind() == KindIO
	}
	return false
}

// Diagnostic converts the error into an error-severity diagnostic.
func (e *Error) Diagnostic() Diagnostic {
	return New(SevError, e.Code, e.Loc, e.Error())
}

// CodeOf extracts the code of the first *Error in err's chain.
func CodeOf(err error) (Code, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Code, true
	}
	return UnknownCode, false
}

// WithModule fills in the module of an *Error that was raised without one.
// Other errors are returned unchanged.
func WithModule(err error, module string) error {
	var de *Error
	if errors.As(err, &de) && de.Loc.Module == "" {
		de.Loc.Module = module
	}
	return err
}
