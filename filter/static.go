package filter

import (
	"github.com/nicwaller/gelf"
)

// Static adds fields to every event that does not already carry them.
func Static(fields map[string]any) gelf.FilterPlugin {
	template := gelf.NewFields()
	for k, v := range fields {
		template.Set(k, gelf.AnyValue(v))
	}
	return func(event *gelf.Event, drop func()) error {
		event.Merge(template, false)
		return nil
	}
}
