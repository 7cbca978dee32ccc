package monitor

import (
	"context"
	"time"
)

const defaultRenderTick = 250 * time.Millisecond

// Sink consumes snapshots, e.g. to draw them on a terminal.
type Sink interface {
	Render([]Snapshot)
}

// Exporter produces snapshots. *Monitor implements it.
type Exporter interface {
	Export() []Snapshot
}

// RenderOptions configures RenderLoop.
type RenderOptions struct {
	Tick     time.Duration   // render interval, default 250ms
	Quit     <-chan struct{} // closed on user exit request
	Shutdown func()          // called once before RenderLoop returns
	Clock    Clock           // default RealClock
}

// RenderLoop forwards snapshots of src to sink on every tick until ctx is
// cancelled or opts.Quit is closed. It then renders a last time, calls
// opts.Shutdown and returns.
func RenderLoop(ctx context.Context, src Exporter, sink Sink, opts RenderOptions) {
	if opts.Tick <= 0 {
		opts.Tick = defaultRenderTick
	}
	if opts.Clock == nil {
		opts.Clock = RealClock{}
	}

	defer func() {
		sink.Render(src.Export())
		if opts.Shutdown != nil {
			opts.Shutdown()
		}
	}()

	timer := opts.Clock.NewTimer(opts.Tick)
	defer timer.Stop()

	sink.Render(src.Export())

	for {
		select {
		case <-ctx.Done():
			return
		case <-opts.Quit:
			return
		case <-timer.C():
			timer.Reset(opts.Tick)
			sink.Render(src.Export())
		}
	}
}
