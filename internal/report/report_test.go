package report

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/valoeghese/patchwork-patcher/internal/diag"
	"github.com/valoeghese/patchwork-patcher/internal/pipeline"
)

func TestCollectorCountsOutcomes(t *testing.T) {
	c := NewCollector("in.jar", "out.jar")
	bad := diag.Errorf(diag.MalNameMismatch, diag.Location{Module: "com/b/B"}, "class file declares com/b/C")
	events := []pipeline.Event{
		{Module: "com/a/A", Status: pipeline.StatusWorking},
		{Module: "com/a/A", Status: pipeline.StatusDone},
		{Module: "com/b/B", Status: pipeline.StatusError, Err: bad},
		{Module: "com/c/C", Stage: "events", Status: pipeline.StatusError, Err: errors.New("stage")},
		{Module: "com/c/C", Status: pipeline.StatusError, Err: errors.New("plain")},
		{Module: "com/d/D", Status: pipeline.StatusCached},
	}
	for _, e := range events {
		c.OnEvent(e)
	}
	r := c.Snapshot()
	want := Counts{Total: 4, Written: 1, Cached: 1, Failed: 2}
	if r.Modules != want {
		t.Fatalf("counts = %+v, want %+v", r.Modules, want)
	}
	if len(r.Failures) != 2 || r.Failures[0].Code != diag.MalNameMismatch.ID() || r.Failures[1].Code != "" {
		t.Fatalf("failures = %+v", r.Failures)
	}
}

func TestWriteFile(t *testing.T) {
	c := NewCollector("in", "out")
	c.Report(diag.ChkOverriddenSubscriber, diag.SevWarning, diag.MemberLocation("com/a/B", "on", "(Lx;)V"), "overrides",
		[]diag.Note{{Loc: diag.MemberLocation("com/a/A", "on", "(Lx;)V"), Msg: "overridden subscriber"}})
	c.Finish("example", []string{"patchwork_generated.com.a.ModInitializer"})
	var timings pipeline.Timings
	timings.Add("events", 1500*time.Microsecond)
	c.Timings(&timings)

	path := filepath.Join(t.TempDir(), "report.yaml")
	if err := c.WriteFile(path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var got Report
	if err := yaml.Unmarshal(data, &got); err != nil {
		t.Fatalf("yaml unmarshal: %v", err)
	}
	if got.Primary != "example" || len(got.Entrypoints) != 1 {
		t.Fatalf("finish not recorded: %+v", got)
	}
	if len(got.Diagnostics) != 1 || got.Diagnostics[0].Code != "CHK5001" || got.Diagnostics[0].Severity != diag.SevWarning || len(got.Diagnostics[0].Notes) != 1 {
		t.Fatalf("diagnostics = %+v", got.Diagnostics)
	}
	if len(got.Timings) != 1 || got.Timings[0].Ms != 1.5 {
		t.Fatalf("timings = %+v", got.Timings)
	}

	var buf bytes.Buffer
	if err := c.Encode(&buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "primary: example") || !strings.Contains(buf.String(), "severity: warning") {
		t.Fatalf("encoded report:\n%s", buf.String())
	}
}
