package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/nicwaller/gelf"
	"github.com/nicwaller/gelf/codec"
	"github.com/nicwaller/gelf/filter"
	"github.com/nicwaller/gelf/framing"
	"github.com/nicwaller/gelf/output"
	"gopkg.in/yaml.v3"
)

var (
	ErrStreamCompression = errors.New("compression is not supported on stream transports")
	ErrUnknownTransport  = errors.New("unknown transport")
	ErrUnknownOverflow   = errors.New("unknown chunk overflow policy")
)

// Transports understood by NewPipeline.
const (
	TransportUDP    = "udp"
	TransportTCP    = "tcp"
	TransportTLS    = "tls"
	TransportHTTP   = "http"
	TransportHTTPS  = "https"
	TransportRedis  = "redis"
	TransportStdout = "stdout"
)

// Environment variables that override the file.
const (
	EnvHost      = "GELF_HOST"
	EnvPort      = "GELF_PORT"
	EnvTransport = "GELF_TRANSPORT"
)

type Config struct {
	Transport string `yaml:"transport"`
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	// URL addresses HTTP and Redis transports; it wins over Host and Port.
	URL string `yaml:"url"`
	// Compress defaults to true for UDP and false elsewhere.
	Compress  *bool         `yaml:"compress"`
	ChunkSize ChunkSize     `yaml:"chunk_size"`
	Overflow  string        `yaml:"overflow"`
	Timeout   time.Duration `yaml:"timeout"`

	TLS   TLSConfig   `yaml:"tls"`
	Redis RedisConfig `yaml:"redis"`

	DebuggingFields *bool          `yaml:"debugging_fields"`
	ExtraFields     *bool          `yaml:"extra_fields"`
	FQDN            bool           `yaml:"fqdn"`
	LocalName       string         `yaml:"localname"`
	Facility        string         `yaml:"facility"`
	LevelNames      bool           `yaml:"level_names"`
	FullMessage     bool           `yaml:"full_message_fallback"`
	Schema          string         `yaml:"schema"`
	Format          string         `yaml:"format"`
	StaticFields    map[string]any `yaml:"static_fields"`

	// Exclude drops events from these loggers and their children.
	Exclude []string `yaml:"exclude"`

	QueueSize   int           `yaml:"queue_size"`
	Workers     int           `yaml:"workers"`
	StopTimeout time.Duration `yaml:"stop_timeout"`
}

type TLSConfig struct {
	Validate   bool   `yaml:"validate"`
	CAFile     string `yaml:"ca_certs"`
	CertFile   string `yaml:"certfile"`
	KeyFile    string `yaml:"keyfile"`
	ServerName string `yaml:"server_name"`
}

type RedisConfig struct {
	Stream string `yaml:"stream"`
	MaxLen int64  `yaml:"max_len"`
}

// ChunkSize accepts "wan", "lan" or a byte count.
type ChunkSize int

func (c *ChunkSize) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: chunk_size must be a scalar", node.Line)
	}
	switch strings.ToLower(node.Value) {
	case "wan":
		*c = framing.WANChunkSize
		return nil
	case "lan":
		*c = framing.LANChunkSize
		return nil
	}
	n, err := strconv.Atoi(node.Value)
	if err != nil || n <= 0 {
		return fmt.Errorf("line %d: chunk_size must be wan, lan or a positive integer, not %q", node.Line, node.Value)
	}
	*c = ChunkSize(n)
	return nil
}

func Default() Config {
	return Config{
		Transport: TransportUDP,
		Host:      "localhost",
		ChunkSize: framing.WANChunkSize,
		Overflow:  framing.OverflowDrop,
		Schema:    string(gelf.SchemaGraypy),
	}
}

// Load reads a YAML file over Default and applies environment overrides.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Parse decodes YAML over Default. Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides the destination from the environment.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvHost); ok && v != "" {
		c.Host = v
	}
	if v, ok := lookup(EnvPort); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return fmt.Errorf("%s=%q is not a valid port", EnvPort, v)
		}
		c.Port = port
	}
	if v, ok := lookup(EnvTransport); ok && v != "" {
		c.Transport = strings.ToLower(v)
	}
	return nil
}

func (c *Config) stream() bool {
	return c.Transport == TransportTCP || c.Transport == TransportTLS
}

// compress resolves the per-transport default.
func (c *Config) compress() bool {
	if c.Compress != nil {
		return *c.Compress
	}
	return c.Transport == TransportUDP
}

func (c *Config) Validate() error {
	switch c.Transport {
	case TransportUDP, TransportTCP, TransportTLS, TransportHTTP, TransportHTTPS, TransportRedis, TransportStdout:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTransport, c.Transport)
	}
	if c.stream() && c.compress() {
		return fmt.Errorf("%w: %s", ErrStreamCompression, c.Transport)
	}
	if _, ok := framing.ParseOverflow(c.Overflow); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownOverflow, c.Overflow)
	}
	if c.FQDN && c.LocalName != "" {
		return gelf.ErrHostModeConflict
	}
	if !gelf.Schema(c.Schema).Valid() {
		return fmt.Errorf("unknown schema %q", c.Schema)
	}
	if c.ChunkSize < 0 {
		return fmt.Errorf("chunk_size must be positive")
	}
	return nil
}

// Options builds the extractor options.
func (c *Config) Options() (gelf.Options, error) {
	opts := gelf.DefaultOptions()
	if c.DebuggingFields != nil {
		opts.DebuggingFields = *c.DebuggingFields
	}
	if c.ExtraFields != nil {
		opts.ExtraFields = *c.ExtraFields
	}
	opts.FQDN = c.FQDN
	opts.LocalName = c.LocalName
	opts.Facility = c.Facility
	opts.LevelNames = c.LevelNames
	opts.FullMessageFallback = c.FullMessage
	opts.Schema = gelf.Schema(c.Schema)
	opts.StaticFields = c.StaticFields
	if c.Format != "" {
		f, err := formatter(c.Format)
		if err != nil {
			return opts, err
		}
		opts.Formatter = f
	}
	return opts, nil
}

// formatter picks the short message formatter named by format: "kv",
// "plain", "field:<name>", or otherwise a text/template.
func formatter(format string) (gelf.Formatter, error) {
	switch {
	case format == "kv":
		return codec.Kv(), nil
	case format == "plain":
		return codec.Plain(""), nil
	case strings.HasPrefix(format, "field:"):
		name := strings.TrimPrefix(format, "field:")
		if name == "" {
			return nil, errors.New("format field: needs a field name")
		}
		return codec.Plain(name), nil
	}
	return codec.Template(format)
}

// Sender builds the configured transport.
func (c *Config) Sender(ctx context.Context, enc gelf.Encoder) (gelf.Sender, error) {
	addr := c.Host
	if c.Port != 0 {
		addr = net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
	}
	switch c.Transport {
	case TransportUDP:
		overflow, _ := framing.ParseOverflow(c.Overflow)
		return output.UDP(output.UDPOptions{
			Addr:      addr,
			ChunkSize: int(c.ChunkSize),
			Overflow:  overflow,
			Encoder:   enc,
			Compress:  c.compress(),
		})
	case TransportTCP, TransportTLS:
		opts := output.TCPOptions{Addr: addr, Timeout: c.Timeout}
		if c.Transport == TransportTLS {
			opts.TLS = &output.TLSOptions{
				Validate:   c.TLS.Validate,
				CAFile:     c.TLS.CAFile,
				CertFile:   c.TLS.CertFile,
				KeyFile:    c.TLS.KeyFile,
				ServerName: c.TLS.ServerName,
			}
		}
		return output.TCP(opts)
	case TransportHTTP, TransportHTTPS:
		opts := output.HTTPOptions{
			URL:      c.URL,
			Host:     c.Host,
			Port:     c.Port,
			Timeout:  c.Timeout,
			Compress: c.compress(),
		}
		if c.URL == "" && c.Transport == TransportHTTPS {
			port := c.Port
			if port == 0 {
				port = output.DefaultHTTPPort
			}
			opts.URL = "https://" + net.JoinHostPort(c.Host, strconv.Itoa(port)) + output.DefaultHTTPPath
		}
		return output.HTTP(opts)
	case TransportRedis:
		url := c.URL
		if url == "" {
			port := c.Port
			if port == 0 {
				port = 6379
			}
			url = "redis://" + net.JoinHostPort(c.Host, strconv.Itoa(port)) + "/0"
		}
		return output.Redis(ctx, output.RedisOptions{
			URL:      url,
			Stream:   c.Redis.Stream,
			MaxLen:   c.Redis.MaxLen,
			Compress: c.compress(),
			Timeout:  c.Timeout,
		})
	case TransportStdout:
		return output.Writer(os.Stdout), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownTransport, c.Transport)
}

// NewPipeline validates c and assembles a pipeline with one output.
func (c *Config) NewPipeline(ctx context.Context, name string) (*gelf.Pipeline, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	opts, err := c.Options()
	if err != nil {
		return nil, err
	}
	extractor, err := gelf.NewExtractor(opts)
	if err != nil {
		return nil, err
	}
	enc := codec.Gelf()
	sender, err := c.Sender(ctx, enc)
	if err != nil {
		return nil, err
	}

	p := gelf.NewPipeline(name, extractor, enc, gelf.PipelineOptions{
		QueueSize:   c.QueueSize,
		Workers:     c.Workers,
		StopTimeout: c.StopTimeout,
	})
	for _, logger := range c.Exclude {
		f, err := filter.Exclude(logger)
		if err != nil {
			_ = sender.Close()
			return nil, err
		}
		p.Filter("exclude "+logger, f)
	}
	p.Output(c.Transport, sender)
	return p, nil
}
