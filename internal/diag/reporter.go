package diag

// Reporter receives findings from the rewriting stages. Implementations
// must be safe for concurrent use when shared between classes.
type Reporter interface {
	Report(code Code, sev Severity, primary Location, msg string, notes []Note)
}

// Pending is a warning that has not been reported yet, so notes can be
// chained before Emit.
type Pending struct {
	r Reporter
	d Diagnostic
}

// ReportWarning starts a warning for r. Nothing reaches r until Emit.
func ReportWarning(r Reporter, code Code, primary Location, msg string) *Pending {
	return &Pending{r: r, d: NewWarning(code, primary, msg)}
}

func (p *Pending) WithNote(loc Location, msg string) *Pending {
	p.d = p.d.WithNote(loc, msg)
	return p
}

// Emit reports the warning. Later calls do nothing.
func (p *Pending) Emit() {
	p.d.ReportTo(p.r)
	p.r = nil
}

// BagReporter collects into a Bag.
type BagReporter struct{ Bag *Bag }

func (r BagReporter) Report(code Code, sev Severity, primary Location, msg string, notes []Note) {
	if r.Bag != nil {
		r.Bag.Add(Diagnostic{Severity: sev, Code: code, Primary: primary, Message: msg, Notes: notes})
	}
}

type NopReporter struct{}

func (NopReporter) Report(Code, Severity, Location, string, []Note) {}

// MultiReporter forwards every finding to each of its reporters in order.
type MultiReporter []Reporter

func (m MultiReporter) Report(code Code, sev Severity, primary Location, msg string, notes []Note) {
	for _, r := range m {
		if r != nil {
			r.Report(code, sev, primary, msg, notes)
		}
	}
}
