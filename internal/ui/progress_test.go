package ui

import (
	"fmt"
	"strings"
	"testing"

	"github.com/valoeghese/patchwork-patcher/internal/pipeline"
)

func TestApplyEventCountsSettledOnce(t *testing.T) {
	m := NewProgressModel("patching", []string{"a/A", "b/B", "c/C"}, nil).(*progressModel)
	for _, ev := range []pipeline.Event{
		{Module: "a/A", Status: pipeline.StatusWorking},
		{Module: "a/A", Status: pipeline.StatusDone},
		{Module: "b/B", Status: pipeline.StatusWorking},
		{Module: "b/B", Stage: "events", Status: pipeline.StatusError},
		{Module: "b/B", Status: pipeline.StatusError},
		{Module: "c/C", Status: pipeline.StatusCached},
		{Module: "c/C", Status: pipeline.StatusCached},
		{Module: "patchwork_generated/a/AInitializer", Stage: pipeline.PhaseFinish, Status: pipeline.StatusDone},
	} {
		m.applyEvent(ev)
	}
	if m.finished != 3 || m.failed != 1 {
		t.Fatalf("finished=%d failed=%d", m.finished, m.failed)
	}
	if m.percent() != 1 {
		t.Fatalf("percent = %v", m.percent())
	}
	if m.phase != pipeline.PhaseFinish {
		t.Fatalf("phase = %q", m.phase)
	}
	view := m.View()
	if !strings.Contains(view, "3/3, 1 failed") {
		t.Fatalf("header missing counts:\n%s", view)
	}
}

func TestVisibleRowsPrefersActive(t *testing.T) {
	names := make([]string, maxRows+10)
	for i := range names {
		names[i] = fmt.Sprintf("x/C%02d", i)
	}
	m := NewProgressModel("patching", names, nil).(*progressModel)
	last := names[len(names)-1]
	m.applyEvent(pipeline.Event{Module: last, Status: pipeline.StatusWorking})
	rows := m.visibleRows()
	if len(rows) != maxRows || rows[0].name != last {
		t.Fatalf("rows = %d, first %s", len(rows), rows[0].name)
	}
	if !strings.Contains(m.View(), "... 10 more") {
		t.Fatalf("hidden rows not summarized")
	}
}

func TestTruncate(t *testing.T) {
	got := truncate("net/example/VeryLongClassName", 12)
	if !strings.HasSuffix(got, "...") || len(got) > 12 {
		t.Fatalf("truncate = %q", got)
	}
	if got = truncate("short", 12); got != "short" {
		t.Fatalf("truncate = %q", got)
	}
}
