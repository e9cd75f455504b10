package diag

import "sync"

type findingKey struct {
	code Code
	sev  Severity
	loc  Location
	msg  string
}

// DedupReporter drops findings already reported with the same code,
// severity, location and message. Notes are not compared. A cached class
// replays its warnings, so the same finding can arrive twice in one build.
type DedupReporter struct {
	next Reporter
	seen sync.Map // findingKey -> struct{}
}

func NewDedupReporter(next Reporter) *DedupReporter {
	return &DedupReporter{next: next}
}

func (r *DedupReporter) Report(code Code, sev Severity, primary Location, msg string, notes []Note) {
	if _, dup := r.seen.LoadOrStore(findingKey{code, sev, primary, msg}, struct{}{}); dup {
		return
	}
	if r.next != nil {
		r.next.Report(code, sev, primary, msg, notes)
	}
}
