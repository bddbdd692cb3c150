// Package watch layers target-agnostic liveness polling on top of the
// process oracle. Sources answer "dead yet?" for one target; Run turns the
// answers into transition events.
package watch

import (
	"context"
	"time"
)

// Status captures the liveness condition surfaced by a poll loop.
type Status string

const (
	// StatusUnknown is used internally to track transitions and is not
	// emitted on the public channel.
	StatusUnknown Status = "unknown"
	// StatusAlive indicates the target answered its most recent probe.
	StatusAlive Status = "alive"
	// StatusDead indicates the target has been observed dead. Dead is
	// terminal: the loop emits it once and stops.
	StatusDead Status = "dead"
)

// Event describes a liveness transition emitted by Run.
type Event struct {
	Target string
	Status Status
	Detail string
	At     time.Time
}

// Source answers liveness queries for one watched target. Dead answers
// must be sticky: once a source reports dead it keeps reporting dead.
type Source interface {
	// Describe identifies the target in events, metrics and tables.
	Describe() string
	// Dead reports whether the target has been observed dead.
	Dead(ctx context.Context) bool
	// Close releases source resources.
	Close() error
}

// Run polls src every interval until the context is cancelled or the
// target is observed dead. Transitions are emitted on the returned
// channel, which is closed once the loop stops. A target that is already
// dead on the first poll produces a single dead event and no alive event.
// The source itself is not closed; it stays owned by the caller.
func Run(ctx context.Context, src Source, interval time.Duration) <-chan Event {
	events := make(chan Event, 1)
	if ctx == nil {
		close(events)
		return events
	}
	if interval <= 0 {
		interval = time.Second
	}
	go func() {
		defer close(events)

		target := src.Describe()
		status := StatusUnknown
		for {
			dead := src.Dead(ctx)
			if ctx.Err() != nil {
				return
			}

			if dead {
				event := Event{
					Target: target,
					Status: StatusDead,
					Detail: "liveness probe reported dead",
					At:     time.Now(),
				}
				sendEvent(ctx, events, event)
				return
			}
			if status != StatusAlive {
				status = StatusAlive
				if !sendEvent(ctx, events, Event{Target: target, Status: StatusAlive, At: time.Now()}) {
					return
				}
			}

			timer := time.NewTimer(interval)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
	}()
	return events
}

func sendEvent(ctx context.Context, events chan<- Event, event Event) bool {
	select {
	case <-ctx.Done():
		return false
	case events <- event:
		return true
	}
}
