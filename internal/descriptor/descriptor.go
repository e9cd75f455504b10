// Package descriptor extracts the event type of a subscriber method from its
// erased descriptor and optional generic signature.
package descriptor

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoArgument is returned for a method taking no arguments.
	ErrNoArgument = errors.New("must have one argument")
	// ErrTooManyArguments is returned for more than one argument or a
	// primitive argument.
	ErrTooManyArguments = errors.New("must have only one argument")
	// ErrMalformed is returned when the descriptor is not a method descriptor.
	ErrMalformed = errors.New("malformed method descriptor")
)

// Issue is a non-fatal problem found in a generic signature.
type Issue uint8

const (
	IssueNone Issue = iota
	// IssueWildcard: the type argument is *, +T or -T.
	IssueWildcard
	// IssueMultiple: the type argument is not a single class type.
	IssueMultiple
)

func (i Issue) String() string {
	switch i {
	case IssueWildcard:
		return "wildcard generic"
	case IssueMultiple:
		return "multiple generics"
	}
	return "none"
}

// Generic is the single type argument of a generic event. The zero value
// means the event is not generic.
type Generic struct {
	Class   string // internal name
	Unknown bool
}

// Present reports whether a generic parameter was found.
func (g Generic) Present() bool { return g.Class != "" || g.Unknown }

func (g Generic) String() string {
	switch {
	case g.Unknown:
		return "?"
	case g.Class != "":
		return g.Class
	}
	return ""
}

// Result describes a subscriber's single parameter.
type Result struct {
	EventType      string // internal name
	Generic        Generic
	HasReturnValue bool
	Issue          Issue
	Detail         string // the offending signature fragment when Issue is set
}

// Parse inspects a method descriptor and optional generic signature.
// Shape errors wrap ErrNoArgument, ErrTooManyArguments or ErrMalformed.
func Parse(desc, signature string) (Result, error) {
	var res Result
	open := strings.IndexByte(desc, '(')
	closing := strings.LastIndexByte(desc, ')')
	if open != 0 || closing < 0 || closing == len(desc)-1 {
		return res, fmt.Errorf("%w: %q", ErrMalformed, desc)
	}
	res.HasReturnValue = desc[closing+1:] != "V"

	arg := desc[1:closing]
	switch {
	case arg == "":
		return res, fmt.Errorf("%w (descriptor %s)", ErrNoArgument, desc)
	case strings.Count(arg, ";") != 1 || arg[0] != 'L' || arg[len(arg)-1] != ';':
		return res, fmt.Errorf("%w (descriptor %s)", ErrTooManyArguments, desc)
	}
	res.EventType = arg[1 : len(arg)-1]

	if signature != "" {
		res.Generic, res.Issue, res.Detail = parseGeneric(signature)
	}
	return res, nil
}

// parseGeneric reads the type argument of the parameter in a method
// signature. Method type parameters before '(' are skipped.
func parseGeneric(signature string) (Generic, Issue, string) {
	params := signature
	if i := strings.IndexByte(params, '('); i >= 0 {
		params = params[i+1:]
	}
	if i := strings.LastIndexByte(params, ')'); i >= 0 {
		params = params[:i]
	}
	lt := strings.IndexByte(params, '<')
	gt := strings.LastIndexByte(params, '>')
	if lt < 0 || gt < lt {
		return Generic{}, IssueNone, ""
	}
	inner := params[lt+1 : gt]
	if i := strings.IndexByte(inner, '<'); i >= 0 {
		inner = inner[:i] + ";"
	}
	if inner == "" {
		return Generic{Unknown: true}, IssueMultiple, inner
	}
	switch inner[0] {
	case '*', '+', '-':
		return Generic{Unknown: true}, IssueWildcard, inner
	}
	if strings.Count(inner, ";") != 1 || inner[0] != 'L' || inner[len(inner)-1] != ';' {
		return Generic{Unknown: true}, IssueMultiple, inner
	}
	return Generic{Class: inner[1 : len(inner)-1]}, IssueNone, ""
}
