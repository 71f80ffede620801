package gelf

import (
	"errors"
	"fmt"
	"net"
	"os"
	"sort"
	"strings"
	"time"
)

var ErrHostModeConflict = errors.New("cannot specify FQDN and LocalName together")

// Options control which fields the Extractor emits.
type Options struct {
	// DebuggingFields adds source location, pid, thread and process name.
	DebuggingFields bool
	// ExtraFields copies the event's Extra attributes as custom fields.
	ExtraFields bool

	FQDN      bool
	LocalName string

	// Facility replaces the logger name in "facility"; the logger name
	// moves to "_logger".
	Facility string

	LevelNames bool

	// FullMessageFallback fills full_message with the message text when
	// the event carries no exception.
	FullMessageFallback bool

	Formatter    Formatter
	Schema       Schema
	StaticFields map[string]any
}

func DefaultOptions() Options {
	return Options{
		DebuggingFields: true,
		ExtraFields:     true,
		Schema:          SchemaGraypy,
	}
}

// skipFields are record attributes that are never copied as custom fields.
var skipFields = map[string]struct{}{
	"args": {}, "asctime": {}, "created": {}, "exc_info": {}, "exc_text": {},
	"filename": {}, "funcName": {}, "id": {}, "levelname": {}, "levelno": {},
	"lineno": {}, "module": {}, "msecs": {}, "message": {}, "msg": {},
	"name": {}, "pathname": {}, "process": {}, "processName": {},
	"relativeCreated": {}, "stack_info": {}, "thread": {}, "threadName": {},
}

// CustomFieldName maps an attribute key to its GELF additional-field name.
// The second result is false for keys that must not be emitted.
func CustomFieldName(key string) (string, bool) {
	if key == "" {
		return "", false
	}
	if _, skip := skipFields[key]; skip {
		return "", false
	}
	if !strings.HasPrefix(key, "_") {
		key = "_" + key
	}
	if key == "_id" {
		return "", false
	}
	return key, true
}

// Extractor builds GELF messages from events. It is safe for concurrent use.
type Extractor struct {
	opts   Options
	host   string
	names  fieldNames
	static *Fields
}

// lookups are swapped out in tests
var (
	hostname   = os.Hostname
	lookupFQDN = resolveFQDN
)

func NewExtractor(opts Options) (*Extractor, error) {
	if opts.FQDN && opts.LocalName != "" {
		return nil, ErrHostModeConflict
	}
	if !opts.Schema.Valid() {
		return nil, fmt.Errorf("unknown schema %q", opts.Schema)
	}
	x := &Extractor{
		opts:   opts,
		names:  opts.Schema.names(),
		static: NewFields(),
	}
	x.host = x.resolveHost()

	keys := make([]string, 0, len(opts.StaticFields))
	for k := range opts.StaticFields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if name, ok := CustomFieldName(k); ok {
			x.static.Set(name, AnyValue(opts.StaticFields[k]))
		}
	}
	return x, nil
}

func (x *Extractor) Host() string {
	return x.host
}

func (x *Extractor) resolveHost() string {
	if x.opts.LocalName != "" {
		return x.opts.LocalName
	}
	name, err := hostname()
	if err != nil {
		name = "localhost"
	}
	if x.opts.FQDN {
		return lookupFQDN(name)
	}
	return name
}

// resolveFQDN returns the first dotted name the resolver knows for host,
// or host itself.
func resolveFQDN(host string) string {
	if cname, err := net.LookupCNAME(host); err == nil {
		if cname = strings.TrimSuffix(cname, "."); strings.Contains(cname, ".") {
			return cname
		}
	}
	addrs, err := net.LookupHost(host)
	if err != nil {
		return host
	}
	for _, addr := range addrs {
		names, err := net.LookupAddr(addr)
		if err != nil {
			continue
		}
		for _, n := range names {
			if n = strings.TrimSuffix(n, "."); strings.Contains(n, ".") {
				return n
			}
		}
	}
	return host
}

// Extract never fails; attributes that cannot be emitted are left out.
func (x *Extractor) Extract(evt *Event) Message {
	msg := NewMessage()
	n := x.names

	var short string
	if x.opts.Formatter != nil {
		short = x.opts.Formatter.Format(evt)
	} else {
		short = evt.GetMessage()
	}

	ts := evt.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	msg.Set(FieldVersion, StringValue(n.version))
	msg.Set(FieldHost, StringValue(x.host))
	msg.Set(FieldShortMessage, StringValue(short))
	msg.Set(FieldTimestamp, FloatValue(float64(ts.UnixMicro())/1e6))
	msg.Set(FieldLevel, IntValue(int64(evt.Level.Syslog())))
	if x.opts.Facility != "" {
		msg.Set(n.facility, StringValue(x.opts.Facility))
	} else {
		msg.Set(n.facility, StringValue(evt.Logger))
	}

	if full := evt.FullMessage(); full != "" {
		msg.Set(FieldFullMessage, StringValue(full))
	} else if x.opts.FullMessageFallback {
		msg.Set(FieldFullMessage, StringValue(evt.GetMessage()))
	}

	if x.opts.LevelNames {
		msg.Set(FieldLevelName, StringValue(evt.Level.String()))
	}

	if x.opts.Facility != "" {
		msg.Set(FieldLogger, StringValue(evt.Logger))
	}

	if x.opts.DebuggingFields {
		x.addDebuggingFields(&msg, evt)
	}

	// anything set so far belongs to the protocol and is not replaced
	reserved := make(map[string]struct{}, msg.Len())
	for _, k := range msg.Keys() {
		reserved[k] = struct{}{}
	}
	x.static.Range(func(key string, v Value) bool {
		if _, taken := reserved[key]; !taken {
			msg.Set(key, cloneValue(v))
		}
		return true
	})
	if x.opts.ExtraFields {
		evt.Extra.Range(func(key string, v Value) bool {
			name, ok := CustomFieldName(key)
			if !ok {
				return true
			}
			if _, taken := reserved[name]; !taken {
				msg.Set(name, cloneValue(v))
			}
			return true
		})
	}
	return msg
}

func (x *Extractor) addDebuggingFields(msg *Message, evt *Event) {
	n := x.names
	msg.Set(n.file, StringValue(evt.Source.File))
	msg.Set(n.line, IntValue(int64(evt.Source.Line)))
	msg.Set(n.function, StringValue(evt.Source.Function))
	msg.Set(n.pid, IntValue(int64(evt.ProcessID)))
	msg.Set(n.threadName, StringValue(evt.ThreadName))
	if evt.ProcessName != "" {
		msg.Set(n.processName, StringValue(evt.ProcessName))
	}
}
