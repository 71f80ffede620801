package filter

import (
	"fmt"
	"strings"

	"github.com/nicwaller/gelf"
	"github.com/nicwaller/gelf/codec"
)

// Json parses a JSON object held in a string field and merges its members
// into the event's extra fields. The source field is removed on success.
// Existing fields are overwritten.
func Json(sourceField string) gelf.FilterPlugin {
	dec := codec.Gelf()
	return func(event *gelf.Event, drop func()) error {
		source := strings.TrimSpace(event.Field(sourceField).GetString())
		if !strings.HasPrefix(source, "{") ||
			!strings.HasSuffix(source, "}") {
			return fmt.Errorf("field [%s] doesn't look like a JSON object", sourceField)
		}
		body, err := dec.Decode([]byte(source))
		if err != nil {
			return fmt.Errorf("field [%s]: %w", sourceField, err)
		}
		event.Field(sourceField).Delete()
		event.Merge(&body.Fields, true)
		return nil
	}
}
