package trace

import (
	"fmt"
	"strings"
)

// Level controls tracing verbosity. Each level admits every scope up to
// its ceiling.
type Level uint8

const (
	LevelOff    Level = iota
	LevelError        // nothing streamed; the ring is dumped when the build fails
	LevelPhase        // build and stage boundaries
	LevelModule       // per-class spans
	LevelDebug        // per-member points too
)

var levels = [...]struct {
	name    string
	ceiling Scope // 0 admits nothing
}{
	LevelOff:    {"off", 0},
	LevelError:  {"error", 0},
	LevelPhase:  {"phase", ScopeStage},
	LevelModule: {"module", ScopeModule},
	LevelDebug:  {"debug", ScopeMember},
}

func (l Level) String() string {
	if int(l) < len(levels) {
		return levels[l].name
	}
	return "unknown"
}

// ParseLevel converts a flag value to a Level. "detail" is accepted as an
// alias for module.
func ParseLevel(s string) (Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "":
		return LevelOff, nil
	case "detail":
		return LevelModule, nil
	}
	for l, info := range levels {
		if info.name == s {
			return Level(l), nil
		}
	}
	return LevelOff, fmt.Errorf("invalid trace level: %q (expected: off|error|phase|module|debug)", s)
}

// ShouldEmit reports whether events of scope pass this level.
func (l Level) ShouldEmit(scope Scope) bool {
	return int(l) < len(levels) && scope != 0 && scope <= levels[l].ceiling
}
