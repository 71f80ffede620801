package codec

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/nicwaller/gelf"
	"github.com/nicwaller/gelf/framing"
	"github.com/valyala/fastjson"
	"golang.org/x/text/encoding/unicode"
)

// Gelf encodes messages as compact GELF JSON, zlib-compressed on request.
func Gelf() gelf.Encoder {
	return &gelfCodec{}
}

type gelfCodec struct{}

var (
	arenas  fastjson.ArenaPool
	parsers fastjson.ParserPool
)

func (c *gelfCodec) Encode(msg gelf.Message, compress bool) []byte {
	a := arenas.Get()
	defer arenas.Put(a)

	out := fieldsToJSON(a, &msg.Fields).MarshalTo(nil)
	if compress {
		return framing.Zlib(out)
	}
	return out
}

func (c *gelfCodec) Decode(payload []byte) (gelf.Message, error) {
	data, err := framing.Decompress(payload)
	if err != nil {
		return gelf.Message{}, err
	}

	p := parsers.Get()
	defer parsers.Put(p)

	v, err := p.ParseBytes(data)
	if err != nil {
		return gelf.Message{}, fmt.Errorf("invalid GELF JSON: %w", err)
	}
	obj, err := v.Object()
	if err != nil {
		return gelf.Message{}, fmt.Errorf("GELF payload is not an object: %w", err)
	}
	msg := gelf.NewMessage()
	obj.Visit(func(key []byte, v *fastjson.Value) {
		msg.Set(string(key), fromJSON(v))
	})
	return msg, nil
}

func fieldsToJSON(a *fastjson.Arena, f *gelf.Fields) *fastjson.Value {
	obj := a.NewObject()
	f.Range(func(key string, v gelf.Value) bool {
		obj.Set(sanitizeKey(key), toJSON(a, v))
		return true
	})
	return obj
}

func toJSON(a *fastjson.Arena, v gelf.Value) *fastjson.Value {
	switch v.Kind() {
	case gelf.KindString:
		return stringToJSON(a, SanitizeString(v.Str()))
	case gelf.KindInt:
		return a.NewNumberString(strconv.FormatInt(v.Int64(), 10))
	case gelf.KindFloat:
		return floatToJSON(a, v.Float64())
	case gelf.KindBool:
		if v.Bool() {
			return a.NewTrue()
		}
		return a.NewFalse()
	case gelf.KindTime:
		return a.NewString(v.Time().Format(time.RFC3339Nano))
	case gelf.KindBytes:
		return stringToJSON(a, SanitizeString(string(v.Bytes())))
	case gelf.KindList:
		arr := a.NewArray()
		for i, item := range v.List() {
			arr.SetArrayItem(i, toJSON(a, item))
		}
		return arr
	case gelf.KindMap:
		if v.Map() == nil {
			return a.NewObject()
		}
		return fieldsToJSON(a, v.Map())
	default:
		if v.IsNil() {
			return a.NewNull()
		}
		return stringToJSON(a, SanitizeString(fallbackString(v.Any())))
	}
}

// stringToJSON leaves plain strings to fastjson and quotes the rest itself:
// fastjson falls back to Go quoting, which is not valid JSON for control
// characters.
func stringToJSON(a *fastjson.Arena, s string) *fastjson.Value {
	for i := 0; i < len(s); i++ {
		if c := s[i]; c < 0x20 || c == '"' || c == '\\' {
			// a number value is written out verbatim
			return a.NewNumberString(string(appendQuoted(nil, s)))
		}
	}
	return a.NewString(s)
}

const hexDigits = "0123456789abcdef"

func appendQuoted(dst []byte, s string) []byte {
	dst = append(dst, '"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"' || c == '\\':
			dst = append(dst, '\\', c)
		case c == '\n':
			dst = append(dst, '\\', 'n')
		case c == '\r':
			dst = append(dst, '\\', 'r')
		case c == '\t':
			dst = append(dst, '\\', 't')
		case c < 0x20:
			dst = append(dst, '\\', 'u', '0', '0', hexDigits[c>>4], hexDigits[c&0xf])
		default:
			dst = append(dst, c)
		}
	}
	return append(dst, '"')
}

// sanitizeKey also replaces non-printable runes, which have no valid
// escaped form in fastjson's key output.
func sanitizeKey(key string) string {
	key = SanitizeString(key)
	return strings.Map(func(r rune) rune {
		if !strconv.IsPrint(r) {
			return utf8.RuneError
		}
		return r
	}, key)
}

func floatToJSON(a *fastjson.Arena, f float64) *fastjson.Value {
	switch {
	case math.IsNaN(f):
		return a.NewString("NaN")
	case math.IsInf(f, 1):
		return a.NewString("Infinity")
	case math.IsInf(f, -1):
		return a.NewString("-Infinity")
	}
	format := byte('f')
	if abs := math.Abs(f); abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		format = 'e'
	}
	return a.NewNumberString(strconv.FormatFloat(f, format, -1, 64))
}

// fallbackString renders values JSON has no type for.
func fallbackString(v any) (s string) {
	defer func() {
		if r := recover(); r != nil {
			s = fmt.Sprintf("<unprintable %T>", v)
		}
	}()
	switch x := v.(type) {
	case error:
		return x.Error()
	case fmt.GoStringer:
		return x.GoString()
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprintf("%#v", v)
}

func fromJSON(v *fastjson.Value) gelf.Value {
	switch v.Type() {
	case fastjson.TypeString:
		return gelf.StringValue(string(v.GetStringBytes()))
	case fastjson.TypeNumber:
		if i, err := v.Int64(); err == nil {
			return gelf.IntValue(i)
		}
		return gelf.FloatValue(v.GetFloat64())
	case fastjson.TypeTrue:
		return gelf.BoolValue(true)
	case fastjson.TypeFalse:
		return gelf.BoolValue(false)
	case fastjson.TypeArray:
		items := v.GetArray()
		values := make([]gelf.Value, len(items))
		for i, item := range items {
			values[i] = fromJSON(item)
		}
		return gelf.ListValue(values...)
	case fastjson.TypeObject:
		f := gelf.NewFields()
		v.GetObject().Visit(func(key []byte, inner *fastjson.Value) {
			f.Set(string(key), fromJSON(inner))
		})
		return gelf.MapValue(f)
	default:
		return gelf.AnyValue(nil)
	}
}

// SanitizeString replaces each byte that is not part of valid UTF-8 with
// U+FFFD. Valid input comes back unchanged.
func SanitizeString(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	// decoders carry state, so each call gets its own
	out, err := unicode.UTF8.NewDecoder().String(s)
	if err != nil {
		return string([]rune(s))
	}
	return out
}

// SanitizeValue applies SanitizeString to every string and key inside v,
// keeping lists as lists and maps as maps.
func SanitizeValue(v gelf.Value) gelf.Value {
	switch v.Kind() {
	case gelf.KindString:
		return gelf.StringValue(SanitizeString(v.Str()))
	case gelf.KindBytes:
		return gelf.StringValue(SanitizeString(string(v.Bytes())))
	case gelf.KindList:
		items := make([]gelf.Value, len(v.List()))
		for i, item := range v.List() {
			items[i] = SanitizeValue(item)
		}
		return gelf.ListValue(items...)
	case gelf.KindMap:
		if v.Map() == nil {
			return v
		}
		return gelf.MapValue(SanitizeFields(v.Map()))
	}
	return v
}

func SanitizeFields(f *gelf.Fields) *gelf.Fields {
	out := gelf.NewFields()
	f.Range(func(key string, v gelf.Value) bool {
		out.Set(SanitizeString(key), SanitizeValue(v))
		return true
	})
	return out
}
