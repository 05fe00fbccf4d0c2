package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHook struct {
	before int
	after  int
	errs   int
}

func (h *recordingHook) BeforeHandle(ctx context.Context, _ string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
	h.before++
	return ctx, km, data, nil
}

func (h *recordingHook) AfterHandle(context.Context, string, kafka.Message, []byte, error) {
	h.after++
}

func (h *recordingHook) OnError(context.Context, string, kafka.Message, []byte, error) {
	h.errs++
}

type panicHook struct{ NoopHook }

func (panicHook) BeforeHandle(context.Context, string, kafka.Message, []byte) (context.Context, kafka.Message, []byte, error) {
	panic("boom")
}

func TestHookChain_RunsAllHooks(t *testing.T) {
	a, b := &recordingHook{}, &recordingHook{}
	chain := NewHookChain(a, nil, b)

	km := kafka.Message{Value: []byte("payload")}
	ctx, _, data, err := chain.BeforeHandle(context.Background(), "ticks", km, km.Value)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)
	assert.Equal(t, 1, a.before)
	assert.Equal(t, 1, b.before)

	chain.AfterHandle(ctx, "ticks", km, data, nil)
	assert.Equal(t, 1, a.after)
	assert.Equal(t, 1, b.after)
}

func TestHookChain_PanicBecomesHookError(t *testing.T) {
	rec := &recordingHook{}
	chain := NewHookChain(panicHook{}, rec)

	_, _, _, err := chain.BeforeHandle(context.Background(), "ticks", kafka.Message{}, nil)
	require.Error(t, err)

	var hookErr *HookError
	require.ErrorAs(t, err, &hookErr)
	assert.Equal(t, "ERR_PANIC", hookErr.Code)

	// the panicking hook short-circuits the chain
	assert.Equal(t, 0, rec.before)
	// but every hook still sees the error
	assert.Equal(t, 1, rec.errs)
}

func TestTraceHook_StampsContext(t *testing.T) {
	km := kafka.Message{Headers: []kafka.Header{{Key: "trace_id", Value: []byte("abc-123")}}}

	ctx, _, _, err := TraceHook{}.BeforeHandle(context.Background(), "ticks", km, nil)
	require.NoError(t, err)

	assert.Equal(t, "abc-123", ctx.Value(CtxTraceID))
	start, ok := ctx.Value(CtxStartTime).(time.Time)
	require.True(t, ok)
	assert.WithinDuration(t, time.Now(), start, time.Second)
}

func TestTraceHook_NoHeaderLeavesContextBare(t *testing.T) {
	ctx, _, _, err := TraceHook{}.BeforeHandle(context.Background(), "ticks", kafka.Message{}, nil)
	require.NoError(t, err)
	assert.Nil(t, ctx.Value(CtxTraceID))
}

func TestBackoffWithJitter_StaysWithinWindow(t *testing.T) {
	for attempt := 1; attempt <= 8; attempt++ {
		d := backoffWithJitter(50*time.Millisecond, 2*time.Second, attempt)
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 2*time.Second)
	}
}
