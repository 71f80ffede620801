package gelf

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nicwaller/gelf/metrics"
	"golang.org/x/time/rate"
)

var ErrStopTimeout = errors.New("pipeline did not drain before the stop timeout")

type PipelineOptions struct {
	// QueueSize bounds the asynchronous queue; Enqueue drops beyond it.
	QueueSize int
	Workers   int
	// StopTimeout bounds how long Stop waits for the queue to drain.
	StopTimeout time.Duration
	// ErrorLogEvery limits how often delivery failures are logged.
	ErrorLogEvery time.Duration
}

const (
	DefaultQueueSize   = 1024
	DefaultStopTimeout = 5 * time.Second
)

// Pipeline carries events through filters, the extractor and the encoder
// to every output. Deliver works synchronously; Start/Enqueue/Stop run the
// same path on background workers.
type Pipeline struct {
	Name      string
	extractor *Extractor
	encoder   Encoder
	filters   []NamedEntity[FilterPlugin]
	outputs   []NamedEntity[Sender]
	opts      PipelineOptions

	errLimit   *rate.Limiter
	suppressed atomic.Int64

	mu      sync.RWMutex
	queue   chan *Event
	closed  bool
	stop    context.CancelCauseFunc
	workers sync.WaitGroup

	delivered atomic.Int64
	failed    atomic.Int64
	filtered  atomic.Int64
	dropped   atomic.Int64
}

func NewPipeline(name string, extractor *Extractor, encoder Encoder, options PipelineOptions) *Pipeline {
	if options.QueueSize <= 0 {
		options.QueueSize = DefaultQueueSize
	}
	if options.Workers <= 0 {
		options.Workers = 1
	}
	if options.StopTimeout <= 0 {
		options.StopTimeout = DefaultStopTimeout
	}
	if options.ErrorLogEvery <= 0 {
		options.ErrorLogEvery = time.Second
	}
	return &Pipeline{
		Name:      name,
		extractor: extractor,
		encoder:   encoder,
		opts:      options,
		errLimit:  rate.NewLimiter(rate.Every(options.ErrorLogEvery), 1),
	}
}

func (p *Pipeline) GetName() string {
	return p.Name
}

func (p *Pipeline) Filter(name string, f FilterPlugin) {
	p.filters = append(p.filters, NamedEntity[FilterPlugin]{
		Name:  name,
		Value: f,
	})
}

func (p *Pipeline) Output(name string, s Sender) {
	p.outputs = append(p.outputs, NamedEntity[Sender]{
		Name:  name,
		Value: s,
	})
}

func (p *Pipeline) context(ctx context.Context) context.Context {
	return context.WithValue(ctx, ContextKeyPipelineName, p.Name)
}

// Deliver runs evt through the pipeline and returns once every output has
// answered. Transport failures are returned, joined.
func (p *Pipeline) Deliver(ctx context.Context, evt *Event) error {
	ctx = p.context(ctx)
	working := evt.Copy()
	if !runFilters(ctx, p.filters, &working) {
		p.filtered.Add(1)
		return nil
	}
	pl := &payloads{
		enc: p.encoder,
		msg: p.extractor.Extract(&working),
	}
	if err := sendAll(ctx, p.outputs, pl); err != nil {
		p.failed.Add(1)
		return err
	}
	p.delivered.Add(1)
	return nil
}

// Start launches the background workers. Calling it twice is a no-op.
func (p *Pipeline) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.queue != nil {
		return
	}
	ctx = p.context(ctx)
	ctx, p.stop = context.WithCancelCause(ctx)
	p.queue = make(chan *Event, p.opts.QueueSize)
	p.closed = false

	log := ContextLogger(ctx)
	log.Debug("starting pipeline",
		"workers", p.opts.Workers,
		"outputs", strings.Join(Map(func(o NamedEntity[Sender]) string { return o.Name }, p.outputs), ","))
	for i := 0; i < p.opts.Workers; i++ {
		p.workers.Add(1)
		go func() {
			defer p.workers.Done()
			pumpToFunction(ctx, p.queue, p.deliverQueued)
		}()
	}
}

// Started reports whether Enqueue will be accepted.
func (p *Pipeline) Started() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.queue != nil && !p.closed
}

// Enqueue hands evt to the workers without blocking. It reports false, and
// counts a drop, when the queue is full or not running.
func (p *Pipeline) Enqueue(evt *Event) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.queue == nil || p.closed {
		p.drop()
		return false
	}
	working := evt.Copy()
	select {
	case p.queue <- &working:
		return true
	default:
		p.drop()
		return false
	}
}

func (p *Pipeline) drop() {
	p.dropped.Add(1)
	metrics.IncQueueDropped(p.Name)
}

func (p *Pipeline) deliverQueued(ctx context.Context, evt *Event) {
	if err := p.Deliver(ctx, evt); err != nil {
		p.reportFailure(ctx, err)
	}
}

func (p *Pipeline) reportFailure(ctx context.Context, err error) {
	if !p.errLimit.Allow() {
		p.suppressed.Add(1)
		return
	}
	Diagnostics(ctx).Warn("delivery failed",
		"error", err,
		"suppressed", p.suppressed.Swap(0))
}

// Stop stops accepting events, waits up to StopTimeout for queued events to
// be delivered, then closes every output.
func (p *Pipeline) Stop() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	if p.queue == nil {
		p.closed = true
		p.mu.Unlock()
		return p.Close()
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	log := ContextLogger(p.context(context.Background()))
	log.Debug("pipeline stop requested")

	done := make(chan struct{})
	go func() {
		p.workers.Wait()
		close(done)
	}()

	var stopErr error
	select {
	case <-done:
	case <-time.After(p.opts.StopTimeout):
		stopErr = fmt.Errorf("%w (%v)", ErrStopTimeout, p.opts.StopTimeout)
		p.stop(stopErr)
		<-done
	}
	p.stop(nil)
	return errors.Join(stopErr, p.Close())
}

// Close closes every output.
func (p *Pipeline) Close() error {
	errs := make([]error, 0)
	for _, out := range p.outputs {
		if err := out.Value.Close(); err != nil {
			errs = append(errs, fmt.Errorf("output[%s]: %w", out.Name, err))
		}
	}
	return errors.Join(errs...)
}

func (p *Pipeline) Stats() Stats {
	return Stats{
		Delivered: p.delivered.Load(),
		Failed:    p.failed.Load(),
		Filtered:  p.filtered.Load(),
		Dropped:   p.dropped.Load(),
	}
}
