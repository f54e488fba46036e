package forcegraph

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ritzau/mindmesh/pkg/cogmap"
	"github.com/ritzau/mindmesh/pkg/logging"
)

var (
	// ErrNotRunning is returned by drag calls when no graph is loaded.
	ErrNotRunning = errors.New("no simulation running")
	// ErrUnknownNode is returned by drag calls naming a node not in the graph.
	ErrUnknownNode = errors.New("unknown node")
)

// Frame is one published tick of the layout.
type Frame struct {
	Epoch     uint64     `json:"epoch"`
	Alpha     float64    `json:"alpha"`
	Positions []Position `json:"positions"`
}

// TickObserver receives the number of ticks and settle events.
type TickObserver interface {
	ObserveTick()
	ObserveSettled(ticks int, elapsed time.Duration)
}

// Runner owns the tick loop of at most one simulation at a time. Start
// replaces the current simulation, Stop tears it down; once Stop returns no
// further frames from the stopped simulation are delivered.
type Runner struct {
	opts     Options
	onTick   func(Frame)
	observer TickObserver

	life sync.Mutex // serialises Start and Stop

	mu      sync.Mutex
	sim     *Simulation
	epoch   uint64
	running bool
	cancel  context.CancelFunc
	ticks   int
	started time.Time

	wg sync.WaitGroup
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithTickObserver reports ticks and settle times.
func WithTickObserver(o TickObserver) RunnerOption {
	return func(r *Runner) { r.observer = o }
}

// NewRunner creates a stopped runner. onTick is called from the tick
// goroutine after every step.
func NewRunner(opts Options, onTick func(Frame), options ...RunnerOption) *Runner {
	r := &Runner{opts: opts.withDefaults(), onTick: onTick}
	for _, o := range options {
		o(r)
	}
	return r
}

// Start stops any running simulation and starts a new one for the given
// graph. It returns the epoch stamped on every frame of the new run.
func (r *Runner) Start(nodes []cogmap.Node, edges []cogmap.Edge) uint64 {
	r.life.Lock()
	defer r.life.Unlock()

	r.stopLocked()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.epoch++
	r.sim = NewSimulation(nodes, edges, r.opts)
	r.ticks = 0
	r.started = time.Now()
	if len(nodes) > 0 {
		r.spawn()
	}
	logging.Debug("simulation started", "epoch", r.epoch, "nodes", len(nodes), "edges", len(edges))
	return r.epoch
}

// Stop halts the tick loop and discards the simulation. It is safe to call
// any number of times.
func (r *Runner) Stop() {
	r.life.Lock()
	defer r.life.Unlock()
	r.stopLocked()
}

func (r *Runner) stopLocked() {
	r.mu.Lock()
	cancel := r.cancel
	hadSim := r.sim != nil
	r.sim = nil
	r.cancel = nil
	r.running = false
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	r.wg.Wait()
	if hadSim {
		logging.Debug("simulation stopped", "epoch", r.epoch)
	}
}

// Running reports whether the tick loop is active.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Positions returns the current layout, or nil when stopped.
func (r *Runner) Positions() []Position {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sim == nil {
		return nil
	}
	return r.sim.Positions()
}

// DragStart pins id at its current position and reheats the simulation.
func (r *Runner) DragStart(id cogmap.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, err := r.lookup(id)
	if err != nil {
		return err
	}
	p := r.sim.Position(i)
	r.sim.Pin(i, p.X, p.Y)
	r.sim.SetAlphaTarget(r.opts.DragAlphaTarget)
	r.spawn()
	return nil
}

// DragMove moves the pin of id to the pointer.
func (r *Runner) DragMove(id cogmap.ID, x, y float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, err := r.lookup(id)
	if err != nil {
		return err
	}
	r.sim.Pin(i, x, y)
	r.spawn()
	return nil
}

// DragEnd releases id and lets the simulation cool down.
func (r *Runner) DragEnd(id cogmap.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, err := r.lookup(id)
	if err != nil {
		return err
	}
	r.sim.Unpin(i)
	r.sim.SetAlphaTarget(0)
	return nil
}

func (r *Runner) lookup(id cogmap.ID) (int, error) {
	if r.sim == nil {
		return 0, ErrNotRunning
	}
	i, ok := r.sim.Index(id)
	if !ok {
		return 0, ErrUnknownNode
	}
	return i, nil
}

// spawn starts the tick loop unless it is already running. Callers hold mu.
func (r *Runner) spawn() {
	if r.running || r.sim == nil {
		return
	}
	if r.cancel != nil {
		r.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.running = true
	r.wg.Add(1)
	go r.loop(ctx, r.sim, r.epoch)
}

func (r *Runner) loop(ctx context.Context, sim *Simulation, epoch uint64) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.opts.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		r.mu.Lock()
		if r.sim != sim {
			r.mu.Unlock()
			return
		}
		sim.Tick()
		r.ticks++
		frame := Frame{Epoch: epoch, Alpha: sim.Alpha(), Positions: sim.Positions()}
		settled := sim.Settled()
		ticks, elapsed := r.ticks, time.Since(r.started)
		if settled {
			r.running = false
		}
		r.mu.Unlock()

		if r.observer != nil {
			r.observer.ObserveTick()
		}
		if ctx.Err() == nil && r.onTick != nil {
			r.onTick(frame)
		}
		if settled {
			if r.observer != nil {
				r.observer.ObserveSettled(ticks, elapsed)
			}
			logging.Trace("simulation settled", "epoch", epoch, "ticks", ticks)
			return
		}
	}
}
