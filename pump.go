package gelf

import (
	"context"
)

// intended to be run as a goroutine
// returns when input is closed and drained, or when ctx is done
func pumpToFunction(ctx context.Context, input <-chan *Event, fn func(context.Context, *Event)) {
	log := ContextLogger(ctx)
	log.Debug("starting pump to function")
	count := 0
functionPump:
	for {
		select {
		case event, more := <-input:
			if !more {
				break functionPump
			}
			if event == nil {
				log.Warn("functionPump saw nil event")
				continue
			}
			fn(ctx, event)
			count++
		case <-ctx.Done():
			break functionPump
		}
	}
	log.Debug("stopped pump to function",
		"cause", context.Cause(ctx),
		"count", count)
}

// runFilters applies filters in order to evt. It reports false if any
// filter dropped the event; filter errors are logged and the event carries on.
func runFilters(ctx context.Context, filters []NamedEntity[FilterPlugin], evt *Event) bool {
	for _, filter := range filters {
		fctx := context.WithValue(ctx, ContextKeyPluginType, "filter")
		fctx = context.WithValue(fctx, ContextKeyPluginName, filter.Name)
		dropped := false
		dropFunc := func() {
			if dropped {
				Diagnostics(fctx).Warn("drop() should only be called once")
			} else {
				dropped = true
			}
		}
		if err := filter.Value(evt, dropFunc); err != nil {
			Diagnostics(fctx).Warn("filter error", "error", err)
		}
		if dropped {
			// do not pass to next stage of filter pipeline
			return false
		}
	}
	return true
}
