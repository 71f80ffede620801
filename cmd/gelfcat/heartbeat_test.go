package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/nicwaller/gelf"
	"github.com/nicwaller/gelf/codec"
	"github.com/nicwaller/gelf/output"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeartbeat(t *testing.T) {
	x, err := gelf.NewExtractor(gelf.DefaultOptions())
	require.NoError(t, err)
	var buf bytes.Buffer
	p := gelf.NewPipeline("heartbeat", x, codec.Gelf(), gelf.PipelineOptions{})
	p.Output("buf", output.Writer(&buf))

	heartbeat(context.Background(), p, heartbeatOptions{Interval: time.Millisecond, Count: 3})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	for i, line := range lines {
		msg, err := codec.Gelf().Decode([]byte(line))
		require.NoError(t, err)
		assert.Equal(t, "heartbeat", msg.ShortMessage())
		seq, ok := msg.Get("_sequence")
		require.True(t, ok)
		assert.Equal(t, int64(i), seq.Int64())
		assert.Equal(t, i > 0, msg.Has("_duration_ms"))
	}
}

func TestHeartbeatCancelled(t *testing.T) {
	x, err := gelf.NewExtractor(gelf.DefaultOptions())
	require.NoError(t, err)
	var buf bytes.Buffer
	p := gelf.NewPipeline("heartbeat", x, codec.Gelf(), gelf.PipelineOptions{})
	p.Output("buf", output.Writer(&buf))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	heartbeat(ctx, p, heartbeatOptions{Interval: time.Hour})
	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))
}
