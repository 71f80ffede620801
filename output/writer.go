package output

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/nicwaller/gelf"
)

// Writer writes each payload followed by a newline. It is meant for dry
// runs and debugging; nil means stdout.
func Writer(w io.Writer) gelf.Sender {
	if w == nil {
		w = os.Stdout
	}
	return &writerOutput{w: w}
}

type writerOutput struct {
	mu sync.Mutex
	w  io.Writer
}

func (p *writerOutput) Send(_ context.Context, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	line := make([]byte, 0, len(payload)+1)
	line = append(line, payload...)
	line = append(line, '\n')
	_, err := p.w.Write(line)
	return err
}

func (p *writerOutput) Compressed() bool {
	return false
}

func (p *writerOutput) Close() error {
	return nil
}
