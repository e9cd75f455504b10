package pipeline

import (
	"sync"
	"time"
)

// Phases reported besides stage names.
const (
	PhaseParse  = "parse"
	PhaseAccess = "access"
	PhaseWrite  = "write"
	PhaseCache  = "cache"
	PhaseFinish = "finish"
)

// Status captures progress state of a module.
type Status string

const (
	// StatusQueued indicates the module is waiting to start.
	StatusQueued Status = "queued"
	// StatusWorking indicates the module is being transformed.
	StatusWorking Status = "working"
	// StatusDone indicates the module was written.
	StatusDone Status = "done"
	// StatusCached indicates the module was replayed from the cache.
	StatusCached Status = "cached"
	// StatusError indicates the module was rejected.
	StatusError Status = "error"
)

// Event reports progress for a module (or for the whole build when Module
// is empty).
type Event struct {
	Module  string
	Stage   string
	Status  Status
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events. OnEvent may be called from several
// goroutines.
type ProgressSink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

// SinkFunc adapts a function to ProgressSink.
type SinkFunc func(Event)

func (f SinkFunc) OnEvent(evt Event) { f(evt) }

func emit(sink ProgressSink, module, stage string, status Status, err error, elapsed time.Duration) {
	if sink == nil {
		return
	}
	sink.OnEvent(Event{Module: module, Stage: stage, Status: status, Err: err, Elapsed: elapsed})
}

// Timings accumulates time spent per stage across all modules.
type Timings struct {
	mu     sync.Mutex
	stages map[string]time.Duration
	order  []string
}

// Add accumulates a duration for stage.
func (t *Timings) Add(stage string, dur time.Duration) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stages == nil {
		t.stages = make(map[string]time.Duration)
	}
	if _, ok := t.stages[stage]; !ok {
		t.order = append(t.order, stage)
	}
	t.stages[stage] += dur
}

// Has reports whether a duration for stage is recorded.
func (t *Timings) Has(stage string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.stages[stage]
	return ok
}

// Duration returns the recorded duration for stage.
func (t *Timings) Duration(stage string) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stages[stage]
}

// Stages returns recorded stage names in first-seen order.
func (t *Timings) Stages() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.order...)
}

// Sum returns the sum of durations across the provided stages.
func (t *Timings) Sum(stages ...string) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	var total time.Duration
	for _, stage := range stages {
		total += t.stages[stage]
	}
	return total
}
