package codec

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/nicwaller/gelf"
)

// Template renders the short message with text/template. The event's
// fields are available directly, plus LevelName and Text (the formatted
// message), e.g. "{{.LevelName}} : {{.Text}}".
func Template(layout string) (gelf.Formatter, error) {
	tpl, err := template.New("short_message").Option("missingkey=zero").Parse(layout)
	if err != nil {
		return nil, fmt.Errorf("invalid message template: %w", err)
	}
	return &templateFormatter{tpl: tpl}, nil
}

type templateFormatter struct {
	tpl *template.Template
}

type templateData struct {
	*gelf.Event
	LevelName string
	Text      string
}

func (f *templateFormatter) Format(evt *gelf.Event) string {
	var sb strings.Builder
	err := f.tpl.Execute(&sb, templateData{
		Event:     evt,
		LevelName: evt.Level.String(),
		Text:      evt.GetMessage(),
	})
	if err != nil {
		// a broken template must not lose the event
		return evt.GetMessage()
	}
	return sb.String()
}
