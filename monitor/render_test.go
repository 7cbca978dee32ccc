package monitor

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticExporter []Snapshot

func (e staticExporter) Export() []Snapshot { return e }

func runRender(ctx context.Context, sink Sink, opts RenderOptions) <-chan struct{} {
	done := make(chan struct{})
	src := staticExporter{{Index: 0, Target: target("192.0.2.1")}}
	go func() {
		RenderLoop(ctx, src, sink, opts)
		close(done)
	}()
	return done
}

func TestRenderLoopTicks(t *testing.T) {
	clock := newFakeClock()
	sink := &fakeSink{}
	var shutdown atomic.Int32

	ctx, cancel := context.WithCancel(context.Background())
	done := runRender(ctx, sink, RenderOptions{
		Tick:     time.Second,
		Clock:    clock,
		Shutdown: func() { shutdown.Add(1) },
	})

	// initial frame without waiting for the first tick
	require.Eventually(t, func() bool { return sink.count() == 1 }, waitFor, tick)

	for i := 2; i <= 4; i++ {
		clock.Advance(time.Second)
		require.Eventually(t, func() bool { return sink.count() == i }, waitFor, tick)
	}

	cancel()
	<-done
	assert.Equal(t, 5, sink.count(), "final frame on shutdown")
	assert.EqualValues(t, 1, shutdown.Load())
}

func TestRenderLoopQuit(t *testing.T) {
	sink := &fakeSink{}
	quit := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := runRender(ctx, sink, RenderOptions{
		Tick:     time.Hour,
		Quit:     quit,
		Shutdown: cancel,
	})

	close(quit)
	select {
	case <-done:
	case <-time.After(waitFor):
		t.Fatal("RenderLoop did not return")
	}

	assert.Equal(t, 2, sink.count())
	assert.Error(t, ctx.Err(), "shutdown cancels the monitor")
}

func TestRenderLoopSnapshots(t *testing.T) {
	cfg := Config{Interval: time.Second}
	f := start(t, cfg, target("192.0.2.1")).run()
	f.advance(t, time.Second, 2, func(step int) bool { return f.history(0).Len() == step })

	sink := &fakeSink{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	RenderLoop(ctx, f.monitor, sink, RenderOptions{Clock: f.clock})

	require.NotZero(t, sink.count())
	last := sink.frames[len(sink.frames)-1]
	require.Len(t, last, 1)
	assert.EqualValues(t, 2, last[0].Received)
	assert.Equal(t, f.clock.Now(), last[0].Taken)
}
