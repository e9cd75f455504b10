package pipeline

import (
	"context"

	"github.com/valoeghese/patchwork-patcher/internal/access"
	"github.com/valoeghese/patchwork-patcher/internal/classfile"
	"github.com/valoeghese/patchwork-patcher/internal/diag"
	"github.com/valoeghese/patchwork-patcher/internal/event"
	"github.com/valoeghese/patchwork-patcher/internal/initializer"
)

// Stage is one step of the per-module transform. Stages run in order on the
// same Module; the first error aborts the module.
type Stage interface {
	Name() string
	Transform(ctx context.Context, m *Module) error
}

// ApplicationDescriptor is an @Mod class and its id.
type ApplicationDescriptor = initializer.Application

// ObjectHolderEntry pairs a generated shim with its holder.
type ObjectHolderEntry = initializer.ObjectHolderEntry

// Shim is an extra class emitted next to the module.
type Shim struct {
	Name  string
	Class *classfile.Class
}

// Module is the per-Submit state shared by the stages.
type Module struct {
	Name     string
	Class    *classfile.Class
	Access   access.ClassTransformations
	Reporter diag.Reporter

	// Filled by stages.
	Events        *event.Scan
	Applications  []ApplicationDescriptor
	ObjectHolders []ObjectHolderEntry
	Shims         []Shim
}

// Location returns the module-level diagnostic location.
func (m *Module) Location() diag.Location {
	return diag.Location{Module: m.Name}
}
