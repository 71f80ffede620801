package codec

import (
	"github.com/nicwaller/gelf"
)

// Plain uses an extra field as the short message, or the event message
// when fieldName is empty.
//
//goland:noinspection GoUnusedExportedFunction
func Plain(fieldName string) gelf.Formatter {
	return &plainFormatter{fieldName: fieldName}
}

type plainFormatter struct {
	fieldName string
}

func (p *plainFormatter) Format(evt *gelf.Event) string {
	if p.fieldName == "" {
		return evt.GetMessage()
	}
	if v, err := evt.Field(p.fieldName).Get(); err == nil {
		return v.String()
	}
	// missing field; fall back to the whole event
	return kvFormat(evt)
}
