package gelf

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nicwaller/gelf/metrics"
	"golang.org/x/sync/errgroup"
)

// payloads encodes a message at most once per compression setting, no
// matter how many outputs want it.
type payloads struct {
	enc        Encoder
	msg        Message
	mu         sync.Mutex
	plain      []byte
	compressed []byte
}

func (pl *payloads) get(compress bool) []byte {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	if compress {
		if pl.compressed == nil {
			pl.compressed = pl.enc.Encode(pl.msg, true)
			metrics.ObservePayload(len(pl.compressed))
		}
		return pl.compressed
	}
	if pl.plain == nil {
		pl.plain = pl.enc.Encode(pl.msg, false)
		metrics.ObservePayload(len(pl.plain))
	}
	return pl.plain
}

// sendAll fans the message out to every output concurrently. A failing
// output does not cancel the others; all failures are joined.
func sendAll(ctx context.Context, outputs []NamedEntity[Sender], pl *payloads) error {
	errs := make([]error, len(outputs))
	var g errgroup.Group
	for i, out := range outputs {
		g.Go(func() error {
			err := out.Value.Send(ctx, pl.get(out.Value.Compressed()))
			metrics.IncMessage(out.Name, err)
			if err != nil {
				errs[i] = fmt.Errorf("output[%s]: %w", out.Name, err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// Stats counts what happened to events since the pipeline was created.
type Stats struct {
	Delivered int64
	Failed    int64
	Filtered  int64
	Dropped   int64
}

func (s Stats) Summary() string {
	return fmt.Sprintf("Delivered=%d Failed=%d Filtered=%d Dropped=%d",
		s.Delivered, s.Failed, s.Filtered, s.Dropped)
}
