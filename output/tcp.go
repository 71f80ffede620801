package output

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/nicwaller/gelf"
	"github.com/nicwaller/gelf/framing"
)

const (
	DefaultTCPPort = 12201
	DefaultTLSPort = 12204
)

var (
	ErrMissingCA   = errors.New("CA bundle file path must be specified to validate the server certificate")
	ErrMissingCert = errors.New("certificate file must be specified with a key file")
)

type TLSOptions struct {
	// Validate checks the server certificate against CAFile.
	Validate bool
	CAFile   string
	CertFile string
	// KeyFile defaults to CertFile, for PEM files holding both.
	KeyFile    string
	ServerName string
}

type TCPOptions struct {
	Addr    string
	Timeout time.Duration
	TLS     *TLSOptions
}

// TCP writes null-terminated, uncompressed payloads to a stream. The
// connection is opened on first use and reopened after a failed write.
func TCP(opts TCPOptions) (gelf.Sender, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	port := DefaultTCPPort
	var tlsConfig *tls.Config
	if opts.TLS != nil {
		port = DefaultTLSPort
		var err error
		tlsConfig, err = opts.TLS.config(opts.Addr)
		if err != nil {
			return nil, err
		}
	}
	return &tcpOutput{
		addr:      withDefaultPort(opts.Addr, port),
		timeout:   opts.Timeout,
		tlsConfig: tlsConfig,
	}, nil
}

func (o *TLSOptions) config(addr string) (*tls.Config, error) {
	if o.Validate && o.CAFile == "" {
		return nil, ErrMissingCA
	}
	if o.KeyFile != "" && o.CertFile == "" {
		return nil, ErrMissingCert
	}

	cfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: !o.Validate, //nolint:gosec
		ServerName:         o.ServerName,
	}
	if cfg.ServerName == "" {
		if host, _, err := net.SplitHostPort(addr); err == nil {
			cfg.ServerName = host
		} else {
			cfg.ServerName = addr
		}
	}
	if o.CAFile != "" {
		pem, err := os.ReadFile(o.CAFile)
		if err != nil {
			return nil, fmt.Errorf("read CA bundle: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %s", o.CAFile)
		}
		cfg.RootCAs = pool
	}
	if o.CertFile != "" {
		keyFile := gelf.CoalesceStr(o.KeyFile, o.CertFile)
		cert, err := tls.LoadX509KeyPair(o.CertFile, keyFile)
		if err != nil {
			return nil, fmt.Errorf("load client certificate: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}
	return cfg, nil
}

type tcpOutput struct {
	addr      string
	timeout   time.Duration
	tlsConfig *tls.Config

	mu   sync.Mutex
	conn net.Conn
}

func (p *tcpOutput) dial(ctx context.Context) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: p.timeout}
	if p.tlsConfig != nil {
		td := &tls.Dialer{NetDialer: dialer, Config: p.tlsConfig}
		return td.DialContext(ctx, "tcp", p.addr)
	}
	return dialer.DialContext(ctx, "tcp", p.addr)
}

func (p *tcpOutput) Send(ctx context.Context, payload []byte) error {
	frame := framing.NullTerminated(payload)

	p.mu.Lock()
	defer p.mu.Unlock()

	var err error
	// one reconnect attempt: the server may have dropped an idle connection
	for attempt := 0; attempt < 2; attempt++ {
		if p.conn == nil {
			p.conn, err = p.dial(ctx)
			if err != nil {
				p.conn = nil
				return fmt.Errorf("tcp connect to %s failed: %w", p.addr, err)
			}
		}
		deadline := time.Now().Add(p.timeout)
		if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
			deadline = d
		}
		_ = p.conn.SetWriteDeadline(deadline)
		if _, err = p.conn.Write(frame); err == nil {
			return nil
		}
		_ = p.conn.Close()
		p.conn = nil
	}
	return fmt.Errorf("tcp write to %s failed: %w", p.addr, err)
}

// Compressed is always false: a compressed payload may contain the 0x00
// frame delimiter.
func (p *tcpOutput) Compressed() bool {
	return false
}

func (p *tcpOutput) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn = nil
	return err
}
