package dynamics

import (
	"context"
	"time"

	"github.com/satmesh-network/satmesh/pkg/simapi"
	"github.com/satmesh-network/satmesh/pkg/util"
)

// DefaultTick is the simulated time advanced per loop iteration.
const DefaultTick = 10 * time.Second

// SnapshotSink receives the snapshot produced each tick.
type SnapshotSink interface {
	PostSnapshot(ctx context.Context, data *simapi.GraphData) error
}

// Runner drives the engine on a fixed wall-clock tick and pushes snapshots
// to the controller. Ticks never overlap; a tick whose delivery fails is
// dropped and state converges at the next successful tick because snapshots
// are full, not incremental.
type Runner struct {
	engine *Engine
	sink   SnapshotSink
	tick   time.Duration

	// now and sleep are swappable for tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRunner creates a runner with the given tick length.
func NewRunner(engine *Engine, sink SnapshotSink, tick time.Duration) *Runner {
	if tick <= 0 {
		tick = DefaultTick
	}
	return &Runner{
		engine: engine,
		sink:   sink,
		tick:   tick,
		now:    time.Now,
		sleep:  sleepCtx,
	}
}

// Run loops until the context is cancelled. Simulation time tracks
// wall-clock: each iteration computes the snapshot for the next slice, posts
// it, then sleeps until that instant. If computation or delivery overran the
// slice the sleep is skipped and a warning is logged.
func (r *Runner) Run(ctx context.Context) error {
	current := r.now().UTC()
	for {
		next := current.Add(r.tick)

		data := r.engine.Evaluate(next)
		if err := r.sink.PostSnapshot(ctx, data); err != nil {
			util.WithOperation("snapshot").Warnf("dropping tick %s: %v", next.Format(time.RFC3339), err)
		}

		remaining := next.Sub(r.now().UTC())
		if remaining > 0 {
			if err := r.sleep(ctx, remaining); err != nil {
				return err
			}
		} else {
			util.WithOperation("tick").Warnf("tick overran by %s", -remaining)
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		current = next
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
