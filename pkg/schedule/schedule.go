// Package schedule runs recurring background tasks.
//
//	schedule.EveryMinute().Name("sessions:sweep").Run(sweep)
//	schedule.DailyAt("03:00").Name("uploads:gc").Run(collect)
//	schedule.Start(ctx)
package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sesamoshop/tienda/pkg/logger"
)

// Task is the function signature for a scheduled task.
type Task func()

type entry struct {
	id        string
	interval  time.Duration
	atHour    int // wall-clock daily entries
	atMinute  int
	daily     bool
	runFn     Task
	lastRun   time.Time
	running   bool
	noOverlap bool
	mu        sync.Mutex
}

// Schedule is a fluent builder for a single entry before it is registered.
type Schedule struct {
	e *entry
}

var (
	regMu   sync.Mutex
	entries []*entry
)

// EveryMinute schedules the task to run every 60 seconds.
func EveryMinute() *Schedule { return Every(1).Minutes() }

// Every starts a fluent builder with n units.
func Every(n int) *freqBuilder { return &freqBuilder{n: n} }

// DailyAt schedules the task once a day at the given "HH:MM" wall-clock
// time. A malformed time falls back to midnight.
func DailyAt(at string) *Schedule {
	var h, m int
	fmt.Sscanf(at, "%d:%d", &h, &m)
	if h < 0 || h > 23 || m < 0 || m > 59 {
		h, m = 0, 0
	}
	return &Schedule{e: &entry{daily: true, atHour: h, atMinute: m}}
}

type freqBuilder struct{ n int }

func (f *freqBuilder) Seconds() *Schedule {
	return &Schedule{e: &entry{interval: time.Duration(f.n) * time.Second}}
}
func (f *freqBuilder) Minutes() *Schedule {
	return &Schedule{e: &entry{interval: time.Duration(f.n) * time.Minute}}
}
func (f *freqBuilder) Hours() *Schedule {
	return &Schedule{e: &entry{interval: time.Duration(f.n) * time.Hour}}
}

// WithoutOverlapping prevents a new run if the previous one is still executing.
func (s *Schedule) WithoutOverlapping() *Schedule {
	s.e.noOverlap = true
	return s
}

// Name gives the entry a human-readable identifier for logging.
func (s *Schedule) Name(id string) *Schedule {
	s.e.id = id
	return s
}

// Run registers the task. Call Start() to begin dispatching.
func (s *Schedule) Run(fn Task) {
	e := s.e
	if e.id == "" {
		e.id = fmt.Sprintf("task-%d", len(entries)+1)
	}
	e.runFn = fn
	regMu.Lock()
	entries = append(entries, e)
	regMu.Unlock()
}

// Start begins the scheduler loop in the background. It ticks every second
// and dispatches due tasks until ctx is cancelled.
func Start(ctx context.Context) {
	go run(ctx)
	logger.Info("schedule: scheduler started")
}

func run(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("schedule: scheduler stopped")
			return
		case now := <-ticker.C:
			regMu.Lock()
			current := make([]*entry, len(entries))
			copy(current, entries)
			regMu.Unlock()

			for _, e := range current {
				if e.isDue(now) {
					e.dispatch()
				}
			}
		}
	}
}

func (e *entry) isDue(now time.Time) bool {
	if e.daily {
		if now.Hour() != e.atHour || now.Minute() != e.atMinute {
			return false
		}
		// At most once per day.
		return e.lastRun.IsZero() || now.Sub(e.lastRun) > time.Minute
	}
	if e.lastRun.IsZero() {
		return true // first run
	}
	return now.Sub(e.lastRun) >= e.interval
}

func (e *entry) dispatch() {
	e.mu.Lock()
	if e.noOverlap && e.running {
		e.mu.Unlock()
		logger.Warn("schedule: skipping overlapping task", "id", e.id)
		return
	}
	e.running = true
	e.lastRun = time.Now()
	e.mu.Unlock()

	go func() {
		defer func() {
			e.mu.Lock()
			e.running = false
			e.mu.Unlock()
			if r := recover(); r != nil {
				logger.Error("schedule: task panicked", "id", e.id, "panic", r)
			}
		}()
		logger.Info("schedule: running task", "id", e.id)
		e.runFn()
	}()
}

// Flush clears the registry (useful in tests).
func Flush() {
	regMu.Lock()
	defer regMu.Unlock()
	entries = nil
}

// List returns all registered entries formatted for CLI display.
func List() []string {
	regMu.Lock()
	defer regMu.Unlock()
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		freq := e.interval.String()
		if e.daily {
			freq = fmt.Sprintf("daily %02d:%02d", e.atHour, e.atMinute)
		}
		out = append(out, fmt.Sprintf("%s  [%s]", e.id, freq))
	}
	return out
}
