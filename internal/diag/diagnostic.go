package diag

import "fmt"

// Location attributes a finding to a class and optionally one of its members.
type Location struct {
	Module string // internal class name, e.g. "com/example/Mod"
	Member string // "name descriptor", empty for class-level findings
}

func (l Location) String() string {
	switch {
	case l.Module == "" && l.Member == "":
		return "<build>"
	case l.Member == "":
		return l.Module
	default:
		return fmt.Sprintf("%s.%s", l.Module, l.Member)
	}
}

// MemberLocation is a shortcut for a member-level Location.
func MemberLocation(module, name, descriptor string) Location {
	return Location{Module: module, Member: name + " " + descriptor}
}

type Note struct {
	Loc Location
	Msg string
}

type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  Location
	Notes    []Note
}

func New(sev Severity, code Code, primary Location, msg string) Diagnostic {
	return Diagnostic{Severity: sev, Code: code, Primary: primary, Message: msg}
}

func NewWarning(code Code, primary Location, msg string) Diagnostic {
	return New(SevWarning, code, primary, msg)
}

// WithNote returns a copy of d with a note appended.
func (d Diagnostic) WithNote(loc Location, msg string) Diagnostic {
	d.Notes = append(d.Notes[:len(d.Notes):len(d.Notes)], Note{Loc: loc, Msg: msg})
	return d
}

// ReportTo hands d to r. A nil r drops it.
func (d Diagnostic) ReportTo(r Reporter) {
	if r != nil {
		r.Report(d.Code, d.Severity, d.Primary, d.Message, d.Notes)
	}
}
