package gelf

import (
	"context"
)

// Formatter renders the short_message text for an event.
type Formatter interface {
	Format(*Event) string
}

type FormatterFunc func(*Event) string

func (f FormatterFunc) Format(evt *Event) string {
	return f(evt)
}

// Encoder turns a Message into a wire payload and back.
// Encode never fails: values that cannot be represented natively fall back
// to a string form.
type Encoder interface {
	Encode(msg Message, compress bool) []byte
	Decode(payload []byte) (Message, error)
}

// Sender delivers one encoded payload. Implementations decide framing:
// datagrams, null-terminated stream writes, HTTP bodies, queue entries.
type Sender interface {
	Send(ctx context.Context, payload []byte) error
	// Compressed reports whether this sender wants zlib-compressed payloads.
	Compressed() bool
	Close() error
}

// FilterPlugin may modify the event in place, or call drop() to discard it.
type FilterPlugin func(event *Event, drop func()) error
