package pipeline

import (
	"context"

	"github.com/valoeghese/patchwork-patcher/internal/diag"
	"github.com/valoeghese/patchwork-patcher/internal/event"
	"github.com/valoeghese/patchwork-patcher/internal/trace"
)

// ModAnnotation marks an application entry point.
const ModAnnotation = "Lnet/minecraftforge/fml/common/Mod;"

// AppScanner records @Mod classes as applications.
type AppScanner struct{}

func (AppScanner) Name() string { return "mods" }

func (AppScanner) Transform(ctx context.Context, m *Module) error {
	ann, err := m.Class.FindAnnotation(m.Class.Attributes, ModAnnotation)
	if err != nil {
		return diag.Wrap(diag.MalAnnotation, m.Location(), err, "decode class annotations")
	}
	if ann == nil {
		return nil
	}
	v, ok := ann.Element("value")
	if !ok || v.Tag != 's' || v.String == "" {
		return diag.Errorf(diag.ShpBadApplicationID, m.Location(), "@Mod annotation must carry a non-empty string id")
	}
	trace.Pointf(trace.FromContext(ctx), trace.ScopeModule, "mod", "found @Mod annotation at %s (id: %s)", m.Name, v.String)
	m.Applications = append(m.Applications, ApplicationDescriptor{ID: v.String, Class: m.Name})
	return nil
}

// EventStage runs the event rewriter on the module.
type EventStage struct {
	Rewriter *event.Rewriter
}

func (EventStage) Name() string { return "events" }

func (s EventStage) Transform(ctx context.Context, m *Module) error {
	rw := s.Rewriter
	if rw == nil {
		rw = event.NewRewriter()
	}
	scan, err := rw.Rewrite(ctx, m.Class, &m.Access, m.Reporter)
	if err != nil {
		return err
	}
	m.Events = scan
	return nil
}
