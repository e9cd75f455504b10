package trace

import "time"

// Kind represents the type of trace event.
type Kind uint8

const (
	KindSpanBegin Kind = iota + 1
	KindSpanEnd
	KindPoint // a log line
	KindHeartbeat
)

var kindNames = [...]string{
	KindSpanBegin: "begin",
	KindSpanEnd:   "end",
	KindPoint:     "point",
	KindHeartbeat: "heartbeat",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "unknown"
}

// Scope is the granularity of an event. Coarser scopes have lower values.
type Scope uint8

const (
	// ScopeBuild covers a whole transform run (submit fan-out, finish).
	ScopeBuild Scope = iota + 1
	// ScopeStage covers pipeline stages and initializer synthesis.
	ScopeStage
	// ScopeModule covers one class.
	ScopeModule
	ScopeMember // methods and fields
)

var scopeNames = [...]struct{ name, letter string }{
	ScopeBuild:  {"build", "B"},
	ScopeStage:  {"stage", "S"},
	ScopeModule: {"module", "M"},
	ScopeMember: {"member", "m"},
}

func (s Scope) String() string {
	if int(s) < len(scopeNames) && scopeNames[s].name != "" {
		return scopeNames[s].name
	}
	return "unknown"
}

func (s Scope) letter() string {
	if int(s) < len(scopeNames) && scopeNames[s].letter != "" {
		return scopeNames[s].letter
	}
	return "?"
}

// Event is a single trace record.
type Event struct {
	Time     time.Time
	Seq      uint64 // stamped by the tracer that stores the event
	Kind     Kind
	Scope    Scope
	SpanID   uint64
	ParentID uint64 // 0 for root spans
	GID      uint64 // goroutine that emitted the event
	Module   string // internal class name for module-scoped spans
	Name     string
	Detail   string
	Extra    map[string]string
}
