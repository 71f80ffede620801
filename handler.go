package gelf

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"strings"
)

// Attribute keys with a meaning beyond a plain custom field.
const (
	AttrException = "exc_info"
	AttrExcText   = "exc_text"
	AttrLogger    = DiagnosticKey
)

type HandlerOptions struct {
	// Level is the minimum record level handled; nil means slog.LevelInfo.
	Level slog.Leveler
	// Logger names the events when no "logger" attribute is present.
	Logger string
}

// Handler is a slog.Handler that turns records into events for a Pipeline.
// Records from this library's own diagnostics are never forwarded.
type Handler struct {
	p      *Pipeline
	opts   HandlerOptions
	attrs  []slog.Attr
	prefix string
	// diagnostic is set once logger=gelf has been attached with WithAttrs,
	// at any group depth.
	diagnostic bool
}

func NewHandler(p *Pipeline, opts *HandlerOptions) *Handler {
	h := &Handler{p: p}
	if opts != nil {
		h.opts = *opts
	}
	return h
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	min := slog.LevelInfo
	if h.opts.Level != nil {
		min = h.opts.Level.Level()
	}
	return level >= min
}

// Handle never reports delivery problems; those are counted and logged by
// the pipeline.
func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	if h.diagnostic {
		return nil
	}
	evt := NewEvent(LevelFromSlog(r.Level), r.Message)
	evt.Args = nil
	if !r.Time.IsZero() {
		evt.Time = r.Time
	}
	evt.Logger = h.opts.Logger
	if r.PC != 0 {
		frame, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		evt.Source = Source{
			File:     frame.File,
			Line:     frame.Line,
			Function: frame.Function,
		}
	}

	for _, a := range h.attrs {
		h.addAttr(&evt, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		h.addAttr(&evt, h.prefix, a)
		return true
	})

	if evt.Logger == DiagnosticLogger {
		return nil
	}

	if h.p.Started() {
		h.p.Enqueue(&evt)
		return nil
	}
	if err := h.p.Deliver(ctx, &evt); err != nil {
		h.p.reportFailure(h.p.context(ctx), err)
	}
	return nil
}

func (h *Handler) addAttr(evt *Event, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		inner := prefix
		if a.Key != "" {
			inner = prefix + a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			h.addAttr(evt, inner, ga)
		}
		return
	}
	if prefix == "" {
		switch a.Key {
		case AttrLogger:
			evt.Logger = a.Value.String()
			return
		case AttrExcText:
			evt.ExcText = a.Value.String()
			return
		case AttrException:
			if exc := asException(a.Value.Any()); exc != nil {
				evt.Exception = exc
				return
			}
		}
	}
	evt.Extra.Set(prefix+a.Key, AnyValue(a.Value))
}

func asException(v any) *Exception {
	switch x := v.(type) {
	case *Exception:
		return x
	case error:
		exc := &Exception{Err: x}
		var st interface{ StackTrace() string }
		if errors.As(x, &st) {
			exc.Stack = st.StackTrace()
		}
		return exc
	}
	return nil
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	h2 := *h
	h2.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	h2.attrs = append(h2.attrs, h.attrs...)
	for _, a := range attrs {
		if isDiagnosticTag(a) {
			h2.diagnostic = true
		}
		if h.prefix != "" {
			a = slog.Attr{Key: strings.TrimSuffix(h.prefix, "."), Value: slog.GroupValue(a)}
		}
		h2.attrs = append(h2.attrs, a)
	}
	return &h2
}

func isDiagnosticTag(a slog.Attr) bool {
	return a.Key == DiagnosticKey && a.Value.Resolve().String() == DiagnosticLogger
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.prefix = h.prefix + name + "."
	return &h2
}
