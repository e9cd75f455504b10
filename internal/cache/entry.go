package cache

import (
	"github.com/valoeghese/patchwork-patcher/internal/diag"
	"github.com/valoeghese/patchwork-patcher/internal/event"
	"github.com/valoeghese/patchwork-patcher/internal/initializer"
)

// SchemaVersion changes whenever Entry's encoding does.
const SchemaVersion uint16 = 1

// Output is one class written by a transform.
type Output struct {
	Name string
	Data []byte
}

// Entry is everything a successful Submit produced for one module, enough to
// replay it without transforming again.
type Entry struct {
	Schema       uint16
	Module       string
	Outputs      []Output
	Scan         *event.Scan
	Applications []initializer.Application
	Holders      []initializer.ObjectHolderEntry
	Diagnostics  []diag.Diagnostic
}

// Valid reports whether the entry was written with the current schema.
func (e *Entry) Valid() bool {
	return e != nil && e.Schema == SchemaVersion && e.Scan != nil
}
