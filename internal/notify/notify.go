// Package notify delivers user-facing alerts keyed to a report. Delivery is
// fire-and-forget: a sink never blocks or fails the caller.
package notify

import (
	"log/slog"
	"sync"
	"time"
)

type Sink interface {
	Notify(title, body, reportID string)
}

// Nop discards every notification.
type Nop struct{}

func (Nop) Notify(string, string, string) {}

// Log writes notifications to the structured log.
type Log struct{}

func (Log) Notify(title, body, reportID string) {
	slog.Info("notification", "title", title, "body", body, "report_id", reportID)
}

// Burst coalesces campus-wide announcements. The first notice in a window is
// delivered as is, the second is replaced by a single summary, and the rest
// of the window stays silent.
type Burst struct {
	sink   Sink
	window time.Duration
	now    func() time.Time

	mu    sync.Mutex
	state map[string]*burstState
}

type burstState struct {
	started time.Time
	count   int
}

func NewBurst(sink Sink, window time.Duration) *Burst {
	return &Burst{
		sink:   sink,
		window: window,
		now:    time.Now,
		state:  make(map[string]*burstState),
	}
}

// WithClock replaces the clock; used by tests.
func (b *Burst) WithClock(now func() time.Time) *Burst {
	b.now = now
	return b
}

// Announce sends title/body for key, or summaryBody under a generic title
// when it is the second announcement inside the current window.
func (b *Burst) Announce(key, title, body, summaryBody, reportID string) {
	now := b.now()

	b.mu.Lock()
	st, ok := b.state[key]
	if !ok {
		st = &burstState{}
		b.state[key] = st
	}
	inWindow := !st.started.IsZero() && now.Sub(st.started) < b.window
	count := 0
	if inWindow {
		st.count++
		count = st.count
	} else {
		st.started = now
		st.count = 0
	}
	b.mu.Unlock()

	switch {
	case !inWindow:
		b.sink.Notify(title, body, reportID)
	case count == 1:
		b.sink.Notify("Multiple Reports Submitted", summaryBody, "")
	}
}
