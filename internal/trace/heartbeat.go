package trace

import (
	"strconv"
	"sync"
	"time"
)

// Heartbeat emits a liveness event at a fixed interval. A stuck transform
// shows up as heartbeats without matching span ends.
type Heartbeat struct {
	stop chan struct{}
	done sync.WaitGroup
	once sync.Once
}

// StartHeartbeat starts emitting heartbeats. status, when set, supplies the
// detail of each beat (for example "12/340 classes"). It returns nil when
// tracing is off or interval is not positive; Stop is nil-safe.
func StartHeartbeat(tracer Tracer, interval time.Duration, status func() string) *Heartbeat {
	if tracer == nil || !tracer.Enabled() || interval <= 0 {
		return nil
	}
	h := &Heartbeat{stop: make(chan struct{})}
	h.done.Add(1)
	go func() {
		defer h.done.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		var beat uint64
		for {
			select {
			case now := <-ticker.C:
				beat++
				detail := "#" + strconv.FormatUint(beat, 10)
				if status != nil {
					detail += " " + status()
				}
				tracer.Emit(&Event{
					Time:   now,
					Kind:   KindHeartbeat,
					Scope:  ScopeBuild,
					GID:    goroutineID(),
					Name:   "heartbeat",
					Detail: detail,
				})
			case <-h.stop:
				return
			}
		}
	}()
	return h
}

// Stop ends the heartbeat and waits for its goroutine.
func (h *Heartbeat) Stop() {
	if h == nil {
		return
	}
	h.once.Do(func() {
		close(h.stop)
		h.done.Wait()
	})
}
