package watcher

import (
	"context"
	"time"

	"github.com/ritzau/mindmesh/pkg/logging"
)

// Debouncer merges bursts of change events. A batch is flushed after
// quietPeriod without new events, or maxWait after its first event.
type Debouncer struct {
	input       <-chan ChangeEvent
	output      chan ChangeEvent
	quietPeriod time.Duration
	maxWait     time.Duration
}

// NewDebouncer creates a debouncer reading from input.
func NewDebouncer(input <-chan ChangeEvent, quietPeriod, maxWait time.Duration) *Debouncer {
	return &Debouncer{
		input:       input,
		output:      make(chan ChangeEvent, 10),
		quietPeriod: quietPeriod,
		maxWait:     maxWait,
	}
}

// Start processes events in the background until ctx is done or the input
// closes.
func (d *Debouncer) Start(ctx context.Context) {
	go d.run(ctx)
}

func (d *Debouncer) run(ctx context.Context) {
	defer close(d.output)

	var (
		quiet, deadline <-chan time.Time
		quietTimer      *time.Timer
		pending         = make(map[ChangeKind][]string)
		order           []ChangeKind
		count           int
	)

	flush := func() {
		if count == 0 {
			return
		}
		logging.Debug("flushing file changes", "count", count)
		for _, kind := range order {
			select {
			case d.output <- ChangeEvent{Kind: kind, Paths: pending[kind], Timestamp: time.Now()}:
			case <-ctx.Done():
			}
		}
		pending = make(map[ChangeKind][]string)
		order = nil
		count = 0
		quiet, deadline = nil, nil
		if quietTimer != nil {
			quietTimer.Stop()
		}
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-d.input:
			if !ok {
				flush()
				return
			}
			if _, seen := pending[event.Kind]; !seen {
				order = append(order, event.Kind)
			}
			pending[event.Kind] = append(pending[event.Kind], event.Paths...)
			count++

			if quietTimer == nil {
				quietTimer = time.NewTimer(d.quietPeriod)
			} else {
				quietTimer.Stop()
				quietTimer.Reset(d.quietPeriod)
			}
			quiet = quietTimer.C
			if deadline == nil {
				deadline = time.After(d.maxWait)
			}

		case <-quiet:
			flush()

		case <-deadline:
			flush()
		}
	}
}

// Output returns the debounced events.
func (d *Debouncer) Output() <-chan ChangeEvent {
	return d.output
}
