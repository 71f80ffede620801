package codec

import (
	"bytes"
	"context"
	"strconv"
	"strings"

	"github.com/nicwaller/gelf"
)

// Kv formats the message followed by its extra fields as key/value pairs
// example:
//
//	user logged in session.id=42 user="alice"
//
// See also:
//   - Logstash calls this "kv"
//     https://www.elastic.co/guide/en/logstash/current/plugins-filters-kv.html
//   - Fluentd/Fluentbit calls this "logfmt"
//     https://docs.fluentbit.io/manual/pipeline/parsers/logfmt
func Kv() gelf.Formatter {
	return gelf.FormatterFunc(kvFormat)
}

func kvFormat(evt *gelf.Event) string {
	var sb strings.Builder
	sb.WriteString(evt.GetMessage())
	sb.WriteString(KvEncode(evt))
	return strings.TrimSpace(sb.String())
}

// KvEncode renders the extra fields of evt, sorted, each preceded by a space.
func KvEncode(evt *gelf.Event) string {
	var sb strings.Builder
	evt.TraverseFields(func(field gelf.Field) {
		value := field.MustGet()
		sb.WriteString(` `)
		sb.WriteString(strings.Join(field.Path, "."))
		sb.WriteString(`=`)
		switch value.Kind() {
		case gelf.KindString, gelf.KindBytes, gelf.KindTime, gelf.KindAny, gelf.KindList:
			strVal := strings.ReplaceAll(value.String(), `"`, `\"`)
			sb.WriteString(`"` + strVal + `"`)
		default:
			sb.WriteString(value.String())
		}
	})
	return sb.String()
}

// KvDecode parses key=value pairs into fields. Bare words become true.
func KvDecode(dat []byte) *gelf.Fields {
	fields := gelf.NewFields()
	for _, field := range bytes.Fields(dat) {
		keyB, valueB, didCut := bytes.Cut(field, []byte{'='})
		if !didCut {
			fields.Set(string(field), gelf.BoolValue(true))
			continue
		}
		if len(keyB) == 0 {
			gelf.Diagnostics(context.Background()).Warn("kv decoder skipped a value with no key")
			continue
		}

		key := string(keyB)
		value := string(valueB)
		quot := `"`
		if len(value) >= 2 && strings.HasSuffix(value, quot) && strings.HasPrefix(value, quot) {
			// FIXME: This may trim too much. eg `foo="bar\""
			value = value[1 : len(value)-1]
			value = strings.ReplaceAll(value, `\"`, `"`)
			fields.Set(key, gelf.StringValue(value))
		} else if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			fields.Set(key, gelf.IntValue(intVal))
		} else if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			fields.Set(key, gelf.FloatValue(floatVal))
		} else if value == "true" || value == "false" {
			fields.Set(key, gelf.BoolValue(value == "true"))
		} else {
			fields.Set(key, gelf.StringValue(value))
		}
	}
	return fields
}
