package output

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/nicwaller/gelf"
	"github.com/nicwaller/gelf/framing"
	"github.com/nicwaller/gelf/metrics"
)

const DefaultUDPPort = 12202

type UDPOptions struct {
	// Addr is host:port; a bare host gets DefaultUDPPort.
	Addr      string
	ChunkSize int
	Overflow  framing.OverflowPolicy
	// Encoder lets the truncate policy rebuild an oversized message.
	Encoder  gelf.Encoder
	Compress bool
}

// UDP sends each payload as one datagram, or as GELF chunks when it is
// larger than ChunkSize. Delivery is best effort.
func UDP(opts UDPOptions) (gelf.Sender, error) {
	addr := withDefaultPort(opts.Addr, DefaultUDPPort)
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("udp output cannot use %s: %w", addr, err)
	}
	return &udpOutput{
		opts:    opts,
		conn:    conn,
		chunker: framing.NewChunker(opts.ChunkSize, opts.Overflow, opts.Encoder, opts.Compress),
	}, nil
}

type udpOutput struct {
	opts    UDPOptions
	chunker *framing.Chunker
	mu      sync.Mutex
	conn    net.Conn
}

func (p *udpOutput) Send(ctx context.Context, payload []byte) error {
	datagrams := p.chunker.Datagrams(payload)
	if len(datagrams) > 1 {
		metrics.AddChunks("udp", len(datagrams))
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return net.ErrClosed
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = p.conn.SetWriteDeadline(deadline)
	}
	for _, d := range datagrams {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := p.conn.Write(d); err != nil {
			return fmt.Errorf("udp write failed: %w", err)
		}
	}
	return nil
}

func (p *udpOutput) Compressed() bool {
	return p.opts.Compress
}

func (p *udpOutput) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn = nil
	return err
}

func withDefaultPort(addr string, port int) string {
	if _, _, err := net.SplitHostPort(addr); err == nil {
		return addr
	}
	if addr == "" {
		addr = "localhost"
	}
	return net.JoinHostPort(addr, fmt.Sprint(port))
}
