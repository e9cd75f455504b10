// Package report collects a build summary and writes it as YAML.
package report

import (
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/valoeghese/patchwork-patcher/internal/diag"
	"github.com/valoeghese/patchwork-patcher/internal/pipeline"
)

// Report is the serialized summary.
type Report struct {
	Input       string       `yaml:"input,omitempty"`
	Output      string       `yaml:"output,omitempty"`
	Primary     string       `yaml:"primary,omitempty"`
	Entrypoints []string     `yaml:"entrypoints,omitempty"`
	Modules     Counts       `yaml:"modules"`
	Failures    []Failure    `yaml:"failures,omitempty"`
	Diagnostics []Diagnostic `yaml:"diagnostics,omitempty"`
	Timings     []Timing     `yaml:"timings,omitempty"`
}

type Counts struct {
	Total   int `yaml:"total"`
	Written int `yaml:"written"`
	Cached  int `yaml:"cached"`
	Failed  int `yaml:"failed"`
}

type Failure struct {
	Module  string `yaml:"module"`
	Code    string `yaml:"code,omitempty"`
	Message string `yaml:"message"`
}

type Diagnostic struct {
	Code     string        `yaml:"code"`
	Title    string        `yaml:"title"`
	Severity diag.Severity `yaml:"severity"`
	Location string        `yaml:"location"`
	Message  string        `yaml:"message"`
	Notes    []string      `yaml:"notes,omitempty"`
}

type Timing struct {
	Stage string  `yaml:"stage"`
	Ms    float64 `yaml:"ms"`
}

// Collector builds a Report. It is a pipeline.ProgressSink and a
// diag.Reporter, both safe for concurrent use.
type Collector struct {
	mu sync.Mutex
	r  Report
}

// NewCollector starts a report for the given input and output paths.
func NewCollector(input, output string) *Collector {
	return &Collector{r: Report{Input: input, Output: output}}
}

// OnEvent counts module outcomes. Stage-level events are ignored.
func (c *Collector) OnEvent(evt pipeline.Event) {
	if evt.Stage != "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	switch evt.Status {
	case pipeline.StatusDone:
		c.r.Modules.Written++
	case pipeline.StatusCached:
		c.r.Modules.Cached++
	case pipeline.StatusError:
		c.r.Modules.Failed++
		f := Failure{Module: evt.Module}
		if evt.Err != nil {
			f.Message = evt.Err.Error()
			if code, ok := diag.CodeOf(evt.Err); ok {
				f.Code = code.ID()
			}
		}
		c.r.Failures = append(c.r.Failures, f)
	default:
		return
	}
	c.r.Modules.Total++
}

// Report records a diagnostic.
func (c *Collector) Report(code diag.Code, sev diag.Severity, primary diag.Location, msg string, notes []diag.Note) {
	d := Diagnostic{
		Code:     code.ID(),
		Title:    code.Title(),
		Severity: sev,
		Location: primary.String(),
		Message:  msg,
	}
	for _, n := range notes {
		d.Notes = append(d.Notes, fmt.Sprintf("%s: %s", n.Loc, n.Msg))
	}
	c.mu.Lock()
	c.r.Diagnostics = append(c.r.Diagnostics, d)
	c.mu.Unlock()
}

// Finish records the outcome of Pipeline.Finish.
func (c *Collector) Finish(primary string, entrypoints []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.r.Primary = primary
	c.r.Entrypoints = append([]string(nil), entrypoints...)
}

// Timings copies accumulated stage durations.
func (c *Collector) Timings(t *pipeline.Timings) {
	if t == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.r.Timings = c.r.Timings[:0]
	for _, stage := range t.Stages() {
		c.r.Timings = append(c.r.Timings, Timing{
			Stage: stage,
			Ms:    float64(t.Duration(stage).Microseconds()) / 1000,
		})
	}
}

// Snapshot returns the report with failures and diagnostics in a stable
// order.
func (c *Collector) Snapshot() Report {
	c.mu.Lock()
	defer c.mu.Unlock()
	r := c.r
	r.Failures = append([]Failure(nil), c.r.Failures...)
	r.Diagnostics = append([]Diagnostic(nil), c.r.Diagnostics...)
	r.Timings = append([]Timing(nil), c.r.Timings...)
	sort.SliceStable(r.Failures, func(i, j int) bool { return r.Failures[i].Module < r.Failures[j].Module })
	sort.SliceStable(r.Diagnostics, func(i, j int) bool {
		a, b := r.Diagnostics[i], r.Diagnostics[j]
		if a.Location != b.Location {
			return a.Location < b.Location
		}
		return a.Code < b.Code
	})
	return r
}

// Encode writes the snapshot as YAML.
func (c *Collector) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c.Snapshot()); err != nil {
		return fmt.Errorf("yaml marshal: %w", err)
	}
	return enc.Close()
}

// WriteFile writes the snapshot to path.
func (c *Collector) WriteFile(path string) error {
	data, err := yaml.Marshal(c.Snapshot())
	if err != nil {
		return fmt.Errorf("yaml marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
