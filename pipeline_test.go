package gelf_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nicwaller/gelf"
	"github.com/nicwaller/gelf/codec"
	"github.com/nicwaller/gelf/framing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// recorder is a Sender that keeps every payload it is given.
type recorder struct {
	compress bool
	err      error
	// block, when set, holds every Send until it is closed or ctx ends
	block chan struct{}

	mu       sync.Mutex
	payloads [][]byte
	closed   bool
}

func (r *recorder) Send(ctx context.Context, payload []byte) error {
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloads = append(r.payloads, payload)
	return r.err
}

func (r *recorder) Compressed() bool { return r.compress }

func (r *recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *recorder) messages(t *testing.T) []gelf.Message {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]gelf.Message, 0, len(r.payloads))
	for _, p := range r.payloads {
		msg, err := codec.Gelf().Decode(p)
		require.NoError(t, err)
		out = append(out, msg)
	}
	return out
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.payloads)
}

func newPipeline(t *testing.T, opts gelf.PipelineOptions, outputs ...*recorder) *gelf.Pipeline {
	t.Helper()
	x, err := gelf.NewExtractor(gelf.DefaultOptions())
	require.NoError(t, err)
	p := gelf.NewPipeline("test", x, codec.Gelf(), opts)
	for i, out := range outputs {
		p.Output(string(rune('a'+i)), out)
	}
	return p
}

func TestDeliverFanOut(t *testing.T) {
	plain := &recorder{}
	zipped := &recorder{compress: true}
	p := newPipeline(t, gelf.PipelineOptions{}, plain, zipped)

	evt := gelf.NewEvent(gelf.LevelWarning, "disk at %d%%", 91)
	require.NoError(t, p.Deliver(context.Background(), &evt))

	require.Equal(t, 1, plain.count())
	require.Equal(t, 1, zipped.count())
	assert.Equal(t, framing.CompressionNone, framing.Detect(plain.payloads[0]))
	assert.Equal(t, framing.CompressionZlib, framing.Detect(zipped.payloads[0]))

	a, b := plain.messages(t)[0], zipped.messages(t)[0]
	assert.Equal(t, "disk at 91%", a.ShortMessage())
	assert.True(t, a.Fields.Equal(b.Fields))
	assert.Equal(t, gelf.Stats{Delivered: 1}, p.Stats())
}

func TestDeliverJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	good := &recorder{}
	bad := &recorder{err: boom}
	p := newPipeline(t, gelf.PipelineOptions{}, good, bad)

	evt := gelf.NewEvent(gelf.LevelInfo, "hello")
	err := p.Deliver(context.Background(), &evt)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, good.count())
	assert.Equal(t, int64(1), p.Stats().Failed)
}

func TestDeliverFilters(t *testing.T) {
	out := &recorder{}
	p := newPipeline(t, gelf.PipelineOptions{}, out)
	p.Filter("tag", func(evt *gelf.Event, drop func()) error {
		evt.Extra.Set("tagged", gelf.BoolValue(true))
		return nil
	})
	p.Filter("drop secrets", func(evt *gelf.Event, drop func()) error {
		if evt.Message == "secret" {
			drop()
		}
		return nil
	})

	evt := gelf.NewEvent(gelf.LevelInfo, "hello")
	require.NoError(t, p.Deliver(context.Background(), &evt))
	assert.False(t, evt.Extra.Has("tagged"), "filters must work on a copy")

	secret := gelf.NewEvent(gelf.LevelInfo, "secret")
	require.NoError(t, p.Deliver(context.Background(), &secret))

	msgs := out.messages(t)
	require.Len(t, msgs, 1)
	v, ok := msgs[0].Get("_tagged")
	require.True(t, ok)
	assert.True(t, v.Bool())
	assert.Equal(t, gelf.Stats{Delivered: 1, Filtered: 1}, p.Stats())
}

func TestEnqueueBeforeStart(t *testing.T) {
	p := newPipeline(t, gelf.PipelineOptions{}, &recorder{})
	evt := gelf.NewEvent(gelf.LevelInfo, "hello")
	assert.False(t, p.Started())
	assert.False(t, p.Enqueue(&evt))
	assert.Equal(t, int64(1), p.Stats().Dropped)
}

func TestStopDrains(t *testing.T) {
	out := &recorder{}
	p := newPipeline(t, gelf.PipelineOptions{QueueSize: 100, Workers: 4}, out)
	p.Start(context.Background())
	assert.True(t, p.Started())

	for i := 0; i < 50; i++ {
		evt := gelf.NewEvent(gelf.LevelInfo, "event %d", i)
		require.True(t, p.Enqueue(&evt))
	}
	require.NoError(t, p.Stop())
	assert.Equal(t, 50, out.count())
	assert.True(t, out.closed)
	assert.False(t, p.Started())

	require.NoError(t, p.Stop())
	evt := gelf.NewEvent(gelf.LevelInfo, "late")
	assert.False(t, p.Enqueue(&evt))
}

func TestEnqueueNeverBlocks(t *testing.T) {
	out := &recorder{block: make(chan struct{})}
	p := newPipeline(t, gelf.PipelineOptions{QueueSize: 1, Workers: 1}, out)
	p.Start(context.Background())

	accepted := 0
	for i := 0; i < 10; i++ {
		evt := gelf.NewEvent(gelf.LevelInfo, "event %d", i)
		if p.Enqueue(&evt) {
			accepted++
		}
	}
	assert.LessOrEqual(t, accepted, 2)
	assert.Equal(t, int64(10-accepted), p.Stats().Dropped)

	close(out.block)
	require.NoError(t, p.Stop())
	assert.Equal(t, accepted, out.count())
}

func TestStopTimeout(t *testing.T) {
	out := &recorder{block: make(chan struct{})}
	p := newPipeline(t, gelf.PipelineOptions{StopTimeout: 50 * time.Millisecond}, out)
	p.Start(context.Background())

	evt := gelf.NewEvent(gelf.LevelInfo, "stuck")
	require.True(t, p.Enqueue(&evt))

	err := p.Stop()
	assert.ErrorIs(t, err, gelf.ErrStopTimeout)
	assert.True(t, out.closed)
}

func TestStatsSummary(t *testing.T) {
	s := gelf.Stats{Delivered: 3, Failed: 1}
	assert.Equal(t, "Delivered=3 Failed=1 Filtered=0 Dropped=0", s.Summary())
}
