package config

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/nicwaller/gelf"
	"github.com/nicwaller/gelf/codec"
	"github.com/nicwaller/gelf/framing"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamCompressionRejected(t *testing.T) {
	cfg, err := Parse([]byte("transport: tcp\ncompress: true\n"))
	require.NoError(t, err)
	assert.ErrorIs(t, cfg.Validate(), ErrStreamCompression)

	_, err = cfg.NewPipeline(context.Background(), "test")
	assert.ErrorIs(t, err, ErrStreamCompression)

	cfg, err = Parse([]byte("transport: tls\ncompress: true\n"))
	require.NoError(t, err)
	assert.ErrorIs(t, cfg.Validate(), ErrStreamCompression)
}

func TestCompressDefaults(t *testing.T) {
	cfg, err := Parse([]byte("transport: tcp\n"))
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate())
	assert.False(t, cfg.compress())

	cfg = Default()
	assert.True(t, cfg.compress())

	cfg.Transport = TransportHTTP
	assert.False(t, cfg.compress())
}

func TestChunkSize(t *testing.T) {
	cases := map[string]ChunkSize{
		"chunk_size: wan\n":  framing.WANChunkSize,
		"chunk_size: LAN\n":  framing.LANChunkSize,
		"chunk_size: 512\n":  512,
		"transport: udp\n":   framing.WANChunkSize,
	}
	for doc, want := range cases {
		cfg, err := Parse([]byte(doc))
		require.NoError(t, err, doc)
		assert.Equal(t, want, cfg.ChunkSize, doc)
	}

	for _, doc := range []string{"chunk_size: huge\n", "chunk_size: -5\n", "chunk_size: [1]\n"} {
		_, err := Parse([]byte(doc))
		assert.Error(t, err, doc)
	}
}

func TestUnknownKeysRejected(t *testing.T) {
	_, err := Parse([]byte("transprot: udp\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())

	cfg.Transport = "carrier-pigeon"
	assert.ErrorIs(t, cfg.Validate(), ErrUnknownTransport)

	cfg = Default()
	cfg.Overflow = "explode"
	assert.ErrorIs(t, cfg.Validate(), ErrUnknownOverflow)

	cfg = Default()
	cfg.FQDN = true
	cfg.LocalName = "web1"
	assert.ErrorIs(t, cfg.Validate(), gelf.ErrHostModeConflict)

	cfg = Default()
	cfg.Schema = "gelf/2"
	assert.Error(t, cfg.Validate())
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvHost:      "graylog.internal",
		EnvPort:      "12299",
		EnvTransport: "TCP",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(lookup))
	assert.Equal(t, "graylog.internal", cfg.Host)
	assert.Equal(t, 12299, cfg.Port)
	assert.Equal(t, TransportTCP, cfg.Transport)

	env[EnvPort] = "not-a-port"
	assert.Error(t, cfg.ApplyEnv(lookup))
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gelf.yaml")
	doc := `
transport: udp
host: graylog
chunk_size: lan
overflow: truncate
facility: billing
static_fields:
  env: prod
exclude:
  - app.noisy
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
	t.Setenv(EnvHost, "")
	t.Setenv(EnvPort, "")
	t.Setenv(EnvTransport, "")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "graylog", cfg.Host)
	assert.Equal(t, ChunkSize(framing.LANChunkSize), cfg.ChunkSize)
	assert.Equal(t, framing.OverflowTruncate, cfg.Overflow)
	assert.Equal(t, []string{"app.noisy"}, cfg.Exclude)

	opts, err := cfg.Options()
	require.NoError(t, err)
	assert.Equal(t, "billing", opts.Facility)
	assert.Equal(t, "prod", opts.StaticFields["env"])
	assert.True(t, opts.DebuggingFields)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestOptionsFormat(t *testing.T) {
	cfg := Default()
	cfg.Format = "{{.LevelName}} {{.Text}}"
	opts, err := cfg.Options()
	require.NoError(t, err)
	require.NotNil(t, opts.Formatter)

	cfg.Format = "{{.Broken"
	_, err = cfg.Options()
	assert.Error(t, err)
}

func TestOptionsNamedFormats(t *testing.T) {
	evt := gelf.NewEvent(gelf.LevelInfo, "user logged in")
	evt.Extra.Set("session", gelf.IntValue(42))

	cases := map[string]string{
		"kv":            "user logged in session=42",
		"plain":         "user logged in",
		"field:session": "42",
	}
	for format, want := range cases {
		t.Run(format, func(t *testing.T) {
			cfg := Default()
			cfg.Format = format
			opts, err := cfg.Options()
			require.NoError(t, err)
			require.NotNil(t, opts.Formatter)
			assert.Equal(t, want, opts.Formatter.Format(&evt))
		})
	}

	cfg := Default()
	cfg.Format = "field:"
	_, err := cfg.Options()
	assert.Error(t, err)
}

func TestNewPipelineUDP(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer pc.Close()
	_, port, err := net.SplitHostPort(pc.LocalAddr().String())
	require.NoError(t, err)

	cfg := Default()
	cfg.Host = "127.0.0.1"
	cfg.Port, _ = strconv.Atoi(port)
	cfg.Exclude = []string{"app.noisy"}

	p, err := cfg.NewPipeline(context.Background(), "udp-test")
	require.NoError(t, err)
	defer p.Close()

	noisy := gelf.NewEvent(gelf.LevelInfo, "ignored")
	noisy.Logger = "app.noisy.loop"
	require.NoError(t, p.Deliver(context.Background(), &noisy))

	evt := gelf.NewEvent(gelf.LevelError, "hello")
	evt.Logger = "app"
	require.NoError(t, p.Deliver(context.Background(), &evt))

	buf := make([]byte, 65535)
	require.NoError(t, pc.SetReadDeadline(time.Now().Add(2*time.Second)))
	n, _, err := pc.ReadFrom(buf)
	require.NoError(t, err)

	assert.Equal(t, framing.CompressionZlib, framing.Detect(buf[:n]))
	msg, err := codec.Gelf().Decode(buf[:n])
	require.NoError(t, err)
	assert.Equal(t, "hello", msg.ShortMessage())
	level, _ := msg.Level()
	assert.Equal(t, 3, level)

	stats := p.Stats()
	assert.Equal(t, int64(1), stats.Delivered)
	assert.Equal(t, int64(1), stats.Filtered)
}

func TestNewPipelineRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	host, port, err := net.SplitHostPort(mr.Addr())
	require.NoError(t, err)

	cfg := Default()
	cfg.Transport = TransportRedis
	cfg.Host = host
	cfg.Port, _ = strconv.Atoi(port)
	cfg.Redis.Stream = "logs"

	p, err := cfg.NewPipeline(context.Background(), "redis-test")
	require.NoError(t, err)
	defer p.Close()

	evt := gelf.NewEvent(gelf.LevelInfo, "queued")
	require.NoError(t, p.Deliver(context.Background(), &evt))

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	n, err := client.XLen(context.Background(), "logs").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
