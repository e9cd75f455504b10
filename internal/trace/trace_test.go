package trace

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{"off": LevelOff, "PHASE": LevelPhase, "module": LevelModule, "detail": LevelModule, "debug": LevelDebug}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestLevelFiltersScopes(t *testing.T) {
	if !LevelPhase.ShouldEmit(ScopeStage) || LevelPhase.ShouldEmit(ScopeModule) {
		t.Fatal("phase level must stop at stage scope")
	}
	if !LevelModule.ShouldEmit(ScopeModule) || LevelModule.ShouldEmit(ScopeMember) {
		t.Fatal("module level must stop at module scope")
	}
	if !LevelDebug.ShouldEmit(ScopeMember) {
		t.Fatal("debug emits everything")
	}
}

func TestStreamTracerSpanAndPoint(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelModule, FormatText)
	span := Begin(tr, ScopeModule, "module:a/B", 0)
	Point(tr, ScopeModule, "found-mod", "id=example")
	Point(tr, ScopeMember, "filtered", "")
	span.WithExtra("subscribers", "2").End("ok")
	if err := tr.Flush(); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	for _, want := range []string{"→ module:a/B", "• found-mod (id=example)", "← module:a/B (ok) {subscribers=2}"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
	if strings.Contains(out, "filtered") {
		t.Fatal("member scope must be filtered at module level")
	}
}

func TestNDJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelDebug, FormatNDJSON)
	Point(tr, ScopeBuild, "finish", "primary=example")
	_ = tr.Flush()
	if !strings.Contains(buf.String(), `"name":"finish"`) || !strings.HasSuffix(buf.String(), "\n") {
		t.Fatalf("unexpected ndjson: %s", buf.String())
	}
}

func TestRingTracerWraps(t *testing.T) {
	r := NewRingTracer(2, LevelDebug)
	for _, name := range []string{"a", "b", "c"} {
		Point(r, ScopeBuild, name, "")
	}
	snap := r.Snapshot()
	if len(snap) != 2 || snap[0].Name != "b" || snap[1].Name != "c" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestMultiTracerRing(t *testing.T) {
	var buf bytes.Buffer
	m := NewMultiTracer(LevelDebug, NewStreamTracer(&buf, LevelDebug, FormatText), NewRingTracer(8, LevelDebug))
	Point(m, ScopeStage, "event", "")
	_ = m.Flush()
	if m.Ring() == nil || len(m.Ring().Snapshot()) != 1 {
		t.Fatal("ring child must receive the event")
	}
	if buf.Len() == 0 {
		t.Fatal("stream child must receive the event")
	}
}

func TestContextPropagation(t *testing.T) {
	if FromContext(context.Background()) != Nop {
		t.Fatal("expected Nop by default")
	}
	r := NewRingTracer(4, LevelDebug)
	ctx := WithTracer(context.Background(), r)
	if FromContext(ctx) != Tracer(r) {
		t.Fatal("tracer not propagated")
	}
	span := Begin(r, ScopeBuild, "build", 0)
	ctx = WithSpan(ctx, span)
	if CurrentSpan(ctx) != span.ID() {
		t.Fatal("span not propagated")
	}
}

func TestNewOffReturnsNop(t *testing.T) {
	tr, err := New(Config{Level: LevelOff})
	if err != nil || tr.Enabled() {
		t.Fatalf("expected disabled tracer, got %v %v", tr, err)
	}
}

func TestLevelErrorStreamsNothing(t *testing.T) {
	for _, scope := range []Scope{ScopeBuild, ScopeStage, ScopeModule, ScopeMember} {
		if LevelError.ShouldEmit(scope) || LevelOff.ShouldEmit(scope) {
			t.Fatalf("scope %v must be filtered", scope)
		}
	}
}

func TestModuleSpanText(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelModule, FormatText)
	BeginModule(tr, "com/example/Handlers", "submit", 0).End("done")
	_ = tr.Flush()
	if !strings.Contains(buf.String(), "← submit @com/example/Handlers (done)") {
		t.Fatalf("module not rendered:\n%s", buf.String())
	}
}

func TestRingDumpFiltersModule(t *testing.T) {
	r := NewRingTracer(16, LevelModule)
	BeginModule(r, "a/Good", "submit", 0).End("done")
	BeginModule(r, "a/Bad", "submit", 0).End("error")
	Point(r, ScopeBuild, "finish", "")
	if r.Len() != 5 {
		t.Fatalf("Len = %d, want 5", r.Len())
	}

	var buf bytes.Buffer
	if err := r.Dump(&buf, FormatText, "a/Bad"); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if strings.Count(out, "\n") != 2 || strings.Contains(out, "a/Good") || strings.Contains(out, "finish") {
		t.Fatalf("unexpected dump:\n%s", out)
	}
	if RingOf(r) != r || RingOf(Nop) != nil {
		t.Fatal("RingOf")
	}
}

func TestHeartbeatStatus(t *testing.T) {
	r := NewRingTracer(8, LevelPhase)
	hb := StartHeartbeat(r, time.Millisecond, func() string { return "3/7 classes" })
	deadline := time.Now().Add(2 * time.Second)
	for r.Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	hb.Stop()
	hb.Stop()
	snap := r.Snapshot()
	if len(snap) == 0 {
		t.Fatal("no heartbeat recorded")
	}
	if snap[0].Kind != KindHeartbeat || !strings.HasSuffix(snap[0].Detail, " 3/7 classes") {
		t.Fatalf("unexpected beat: %+v", snap[0])
	}
	if StartHeartbeat(Nop, time.Millisecond, nil) != nil {
		t.Fatal("disabled tracer must not start a heartbeat")
	}
}

func TestNewBothMode(t *testing.T) {
	var buf bytes.Buffer
	tr, err := New(Config{Level: LevelPhase, Mode: ModeBoth, Output: &buf})
	if err != nil {
		t.Fatal(err)
	}
	Point(tr, ScopeStage, "events", "")
	if err := tr.Close(); err != nil {
		t.Fatal(err)
	}
	if RingOf(tr) == nil || RingOf(tr).Len() != 1 || !strings.Contains(buf.String(), "• events") {
		t.Fatalf("both mode must stream and record; got %q", buf.String())
	}
	if _, err := ParseMode("disk"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}
