package filter

import (
	"fmt"

	"github.com/nicwaller/gelf"
)

// Replace the value of a field with a new value, or add the field if it doesn’t already exist.
func Replace(field string, content any) gelf.FilterPlugin {
	return func(event *gelf.Event, drop func()) error {
		event.Field(field).Set(content)
		return nil
	}
}

func Remove(field string) gelf.FilterPlugin {
	return func(event *gelf.Event, drop func()) error {
		event.Field(field).Delete()
		return nil
	}
}

// Rename moves a top-level extra field. A missing source field is an error
// and leaves the event as it was.
func Rename(oldField string, newField string) gelf.FilterPlugin {
	return func(event *gelf.Event, drop func()) error {
		oldF := event.Field(oldField)
		v, err := oldF.Get()
		if err != nil {
			return fmt.Errorf("cannot rename %s: %w", oldField, err)
		}
		event.Extra.Set(newField, v)
		if oldField != newField {
			oldF.Delete()
		}
		return nil
	}
}
