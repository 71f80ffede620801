package gelf

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Event is one application log record on its way to becoming a GELF message.
// Treat it as immutable once handed to a pipeline; filters work on their own copy.
type Event struct {
	Message string
	Args    []any
	Level   Level
	Time    time.Time
	Logger  string

	// Exception is formatted into full_message unless ExcText is set,
	// which takes priority.
	Exception *Exception
	ExcText   string

	Source      Source
	ProcessID   int
	ProcessName string
	ThreadName  string

	// caller-supplied attributes, in the order they were attached
	Extra Fields
}

type Source struct {
	File     string
	Line     int
	Function string
}

type Exception struct {
	Err   error
	Stack string
}

func (e *Exception) Format() string {
	if e == nil || e.Err == nil {
		return ""
	}
	var sb strings.Builder
	if e.Stack != "" {
		sb.WriteString(strings.TrimRight(e.Stack, "\n"))
		sb.WriteString("\n")
	}
	sb.WriteString(e.Err.Error())
	return sb.String()
}

// NewEvent stamps the current time and process identity.
func NewEvent(level Level, message string, args ...any) Event {
	return Event{
		Message:     message,
		Args:        args,
		Level:       level,
		Time:        time.Now(),
		ProcessID:   os.Getpid(),
		ProcessName: processName(),
		ThreadName:  "main",
	}
}

func processName() string {
	if len(os.Args) == 0 {
		return ""
	}
	return filepath.Base(os.Args[0])
}

// GetMessage applies Args to the Message template, if there are any.
func (evt *Event) GetMessage() string {
	if len(evt.Args) == 0 {
		return evt.Message
	}
	return fmt.Sprintf(evt.Message, evt.Args...)
}

// FullMessage is the pre-formatted traceback if present, else the formatted
// exception, else "".
func (evt *Event) FullMessage() string {
	if evt.ExcText != "" {
		return evt.ExcText
	}
	return evt.Exception.Format()
}

func (evt *Event) Field(path ...string) *Field {
	// warning: don't try to be clever and split the path components
	// on "." to get smaller path components. It must be possible to
	// specify fields that contain a "." in the Name!
	return &Field{
		Path:     path,
		original: evt,
	}
}

func (evt *Event) Set(field string, value any) {
	evt.Field(field).Set(value)
}

func (evt *Event) Get(field string) any {
	v, _ := evt.Field(field).Get()
	return v.Any()
}

type fieldCb func(field Field)

// TraverseFields visits every leaf of Extra, depth first, keys sorted.
func (evt *Event) TraverseFields(cb fieldCb) {
	evt.traverseFields(cb, []string{}, &evt.Extra)
}

func (evt *Event) traverseFields(cb fieldCb, prefix []string, from *Fields) {
	// an ordered set of keys is essential for deterministic output, especially for the kv formatter
	keys := from.Keys()
	sort.Strings(keys)
	for _, k := range keys {
		v, _ := from.Get(k)
		path := append(append([]string{}, prefix...), k)
		if v.Kind() == KindMap && v.Map() != nil {
			evt.traverseFields(cb, path, v.Map())
		} else {
			cb(Field{
				Path:     path,
				original: evt,
			})
		}
	}
}

// Copy is deep enough that filters can edit Extra without touching the original.
func (evt *Event) Copy() Event {
	newEvt := *evt
	newEvt.Extra = *evt.Extra.Clone()
	if evt.Args != nil {
		newEvt.Args = append([]any(nil), evt.Args...)
	}
	return newEvt
}

// Merge copies extra fields from template into evt.
func (evt *Event) Merge(template *Fields, overwrite bool) {
	template.Range(func(key string, v Value) bool {
		if overwrite || !evt.Extra.Has(key) {
			evt.Extra.Set(key, cloneValue(v))
		}
		return true
	})
}
