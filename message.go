package gelf

// GELF field names set by the protocol rather than by callers.
const (
	FieldVersion       = "version"
	FieldHost          = "host"
	FieldShortMessage  = "short_message"
	FieldFullMessage   = "full_message"
	FieldTimestamp     = "timestamp"
	FieldLevel         = "level"
	FieldFacility      = "facility"
	FieldLevelName     = "level_name"
	FieldLogger        = "_logger"
	FieldChunkOverflow = "_chunk_overflow"
)

// Message is the GELF field mapping for one event: built fresh by an
// Extractor, consumed once by an Encoder.
type Message struct {
	Fields
}

func NewMessage() Message {
	return Message{Fields: *NewFields()}
}

func (m *Message) ShortMessage() string {
	v, _ := m.Get(FieldShortMessage)
	return v.Str()
}

func (m *Message) Host() string {
	v, _ := m.Get(FieldHost)
	return v.Str()
}

// Level returns the numeric syslog level, if present.
func (m *Message) Level() (int, bool) {
	v, ok := m.Get(FieldLevel)
	if !ok {
		return 0, false
	}
	switch v.Kind() {
	case KindInt:
		return int(v.Int64()), true
	case KindFloat:
		return int(v.Float64()), true
	}
	return 0, false
}
