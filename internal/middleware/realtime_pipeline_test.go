package middleware

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FeatCast/internal/domain/models"
)

type captureProc struct {
	mu    sync.Mutex
	ticks []*models.Tick
	fail  bool
}

func (p *captureProc) Process(_ context.Context, t *models.Tick) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return fmt.Errorf("downstream down")
	}
	p.ticks = append(p.ticks, t)
	return nil
}

func (p *captureProc) setFail(v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fail = v
}

func (p *captureProc) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.ticks)
}

type nopMetrics struct{}

func (nopMetrics) RecordMessageSent(string, string) {}
func (nopMetrics) RecordError(string)               {}
func (nopMetrics) RecordLastPrice(string, float64)  {}
func (nopMetrics) RecordLatency(string, float64)    {}

func tick(sym string, ts time.Time) *models.Tick {
	return &models.Tick{Symbol: sym, Price: 10, Volume: 1, TS: ts}
}

func TestPipeline_RejectsInvalidTicks(t *testing.T) {
	proc := &captureProc{}
	p := NewRealtimePipeline(proc, nopMetrics{})
	ctx := context.Background()

	assert.Error(t, p.Process(ctx, nil))
	assert.Error(t, p.Process(ctx, &models.Tick{Symbol: "", TS: time.Now()}))
	assert.Error(t, p.Process(ctx, &models.Tick{Symbol: "X"}), "zero timestamp")
	assert.Error(t, p.Process(ctx, &models.Tick{Symbol: "X", Price: -1, TS: time.Now()}))
	assert.Empty(t, proc.ticks)
}

func TestPipeline_ThrottlesPerSymbol(t *testing.T) {
	proc := &captureProc{}
	p := NewRealtimePipeline(proc, nopMetrics{}, WithMaxRPS(10))
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, p.Process(ctx, tick("A", now)))
	// second tick within the 100ms window is dropped, not errored
	require.NoError(t, p.Process(ctx, tick("A", now.Add(time.Millisecond))))
	// other symbols have their own budget
	require.NoError(t, p.Process(ctx, tick("B", now.Add(time.Millisecond))))

	assert.Len(t, proc.ticks, 2)
}

func TestPipeline_TransformApplies(t *testing.T) {
	proc := &captureProc{}
	p := NewRealtimePipeline(proc, nopMetrics{}, WithTransform(func(in *models.Tick) *models.Tick {
		out := *in
		out.Symbol = "X:" + in.Symbol
		return &out
	}))

	require.NoError(t, p.Process(context.Background(), tick("BTC", time.Now())))
	require.Len(t, proc.ticks, 1)
	assert.Equal(t, "X:BTC", proc.ticks[0].Symbol)
}

func TestPipeline_BuffersOnDownstreamError(t *testing.T) {
	proc := &captureProc{fail: true}
	p := NewRealtimePipeline(proc, nopMetrics{}, WithBufferSize(4))
	ctx := context.Background()

	err := p.Process(ctx, tick("A", time.Now()))
	require.Error(t, err)

	// downstream recovers; Start drains the buffer
	proc.setFail(false)
	p.Start(ctx)
	defer p.Stop()

	assert.Eventually(t, func() bool {
		return proc.count() == 1
	}, 2*time.Second, 10*time.Millisecond)
}
