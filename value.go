package gelf

import (
	"fmt"
	"log/slog"
	"math"
	"reflect"
	"sort"
	"strconv"
	"time"
)

// Kind identifies which arm of the Value variant is populated.
type Kind int

const (
	KindAny Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindTime
	KindBytes
	KindList
	KindMap
)

var kindNames = [...]string{"any", "string", "int", "float", "bool", "time", "bytes", "list", "map"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
	return kindNames[k]
}

// Value is a closed variant over the types an event attribute may hold.
// Anything that doesn't fit one of the concrete kinds is kept as KindAny
// and stringified by the encoder.
type Value struct {
	kind Kind
	v    any
}

func StringValue(s string) Value     { return Value{kind: KindString, v: s} }
func IntValue(i int64) Value         { return Value{kind: KindInt, v: i} }
func FloatValue(f float64) Value     { return Value{kind: KindFloat, v: f} }
func BoolValue(b bool) Value         { return Value{kind: KindBool, v: b} }
func TimeValue(t time.Time) Value    { return Value{kind: KindTime, v: t} }
func BytesValue(b []byte) Value      { return Value{kind: KindBytes, v: b} }
func ListValue(items ...Value) Value { return Value{kind: KindList, v: items} }

func MapValue(f *Fields) Value {
	if f == nil {
		f = NewFields()
	}
	return Value{kind: KindMap, v: f}
}

// AnyValue wraps v in the most specific kind it can find.
func AnyValue(v any) Value {
	switch x := v.(type) {
	case Value:
		return x
	case string:
		return StringValue(x)
	case int:
		return IntValue(int64(x))
	case int8:
		return IntValue(int64(x))
	case int16:
		return IntValue(int64(x))
	case int32:
		return IntValue(int64(x))
	case int64:
		return IntValue(x)
	case uint:
		return uintValue(uint64(x))
	case uint8:
		return IntValue(int64(x))
	case uint16:
		return IntValue(int64(x))
	case uint32:
		return IntValue(int64(x))
	case uint64:
		return uintValue(x)
	case float32:
		return FloatValue(float64(x))
	case float64:
		return FloatValue(x)
	case bool:
		return BoolValue(x)
	case time.Time:
		return TimeValue(x)
	case time.Duration:
		return StringValue(x.String())
	case []byte:
		return BytesValue(x)
	case []Value:
		return ListValue(x...)
	case []any:
		items := make([]Value, len(x))
		for i, item := range x {
			items[i] = AnyValue(item)
		}
		return ListValue(items...)
	case []string:
		items := make([]Value, len(x))
		for i, item := range x {
			items[i] = StringValue(item)
		}
		return ListValue(items...)
	case map[string]any:
		return MapValue(fieldsFromMap(x))
	case map[string]string:
		m := make(map[string]any, len(x))
		for k, s := range x {
			m[k] = s
		}
		return MapValue(fieldsFromMap(m))
	case *Fields:
		return MapValue(x)
	case Fields:
		return MapValue(x.Clone())
	case slog.Value:
		return slogValue(x)
	default:
		return Value{kind: KindAny, v: v}
	}
}

func uintValue(u uint64) Value {
	if u > math.MaxInt64 {
		return StringValue(strconv.FormatUint(u, 10))
	}
	return IntValue(int64(u))
}

// go maps have no order, so keys are sorted to keep encoding stable
func fieldsFromMap(m map[string]any) *Fields {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	f := NewFields()
	for _, k := range keys {
		f.Set(k, AnyValue(m[k]))
	}
	return f
}

func slogValue(v slog.Value) Value {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return StringValue(v.String())
	case slog.KindInt64:
		return IntValue(v.Int64())
	case slog.KindUint64:
		return uintValue(v.Uint64())
	case slog.KindFloat64:
		return FloatValue(v.Float64())
	case slog.KindBool:
		return BoolValue(v.Bool())
	case slog.KindDuration:
		return StringValue(v.Duration().String())
	case slog.KindTime:
		return TimeValue(v.Time())
	case slog.KindGroup:
		f := NewFields()
		for _, a := range v.Group() {
			f.Set(a.Key, slogValue(a.Value))
		}
		return MapValue(f)
	default:
		return AnyValue(v.Any())
	}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) Str() string {
	s, _ := v.v.(string)
	return s
}

func (v Value) Int64() int64 {
	i, _ := v.v.(int64)
	return i
}

func (v Value) Float64() float64 {
	f, _ := v.v.(float64)
	return f
}

func (v Value) Bool() bool {
	b, _ := v.v.(bool)
	return b
}

func (v Value) Time() time.Time {
	t, _ := v.v.(time.Time)
	return t
}

func (v Value) Bytes() []byte {
	b, _ := v.v.([]byte)
	return b
}

func (v Value) List() []Value {
	l, _ := v.v.([]Value)
	return l
}

func (v Value) Map() *Fields {
	m, _ := v.v.(*Fields)
	return m
}

// Any returns the underlying Go value.
func (v Value) Any() any { return v.v }

func (v Value) IsNil() bool { return v.kind == KindAny && v.v == nil }

// String renders the value for humans (formatters, diagnostics); it is not
// the wire representation.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.Str()
	case KindInt:
		return strconv.FormatInt(v.Int64(), 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.Bool())
	case KindTime:
		return v.Time().Format(time.RFC3339Nano)
	case KindBytes:
		return string(v.Bytes())
	default:
		return fmt.Sprint(v.v)
	}
}

// Equal reports deep equality; KindAny values compare with reflect.DeepEqual.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindTime:
		return v.Time().Equal(o.Time())
	case KindBytes:
		return string(v.Bytes()) == string(o.Bytes())
	case KindFloat:
		a, b := v.Float64(), o.Float64()
		return a == b || (math.IsNaN(a) && math.IsNaN(b))
	case KindList:
		a, b := v.List(), o.List()
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if !a[i].Equal(b[i]) {
				return false
			}
		}
		return true
	case KindMap:
		a, b := v.Map(), o.Map()
		if a == nil || b == nil {
			return a == b
		}
		return a.Equal(*b)
	case KindAny:
		return reflect.DeepEqual(v.v, o.v)
	default:
		return v.v == o.v
	}
}

// Fields is an insertion-ordered map of attribute names to values.
// The zero value is ready to use.
type Fields struct {
	keys   []string
	values map[string]Value
}

func NewFields() *Fields {
	return &Fields{values: make(map[string]Value)}
}

func (f *Fields) Len() int { return len(f.keys) }

// Set replaces an existing key in place or appends a new one.
func (f *Fields) Set(key string, v Value) {
	if f.values == nil {
		f.values = make(map[string]Value)
	}
	if _, exists := f.values[key]; !exists {
		f.keys = append(f.keys, key)
	}
	f.values[key] = v
}

func (f *Fields) Get(key string) (Value, bool) {
	v, ok := f.values[key]
	return v, ok
}

func (f *Fields) Has(key string) bool {
	_, ok := f.values[key]
	return ok
}

func (f *Fields) Delete(key string) {
	if _, exists := f.values[key]; !exists {
		return
	}
	delete(f.values, key)
	for i, k := range f.keys {
		if k == key {
			f.keys = append(f.keys[:i], f.keys[i+1:]...)
			break
		}
	}
}

func (f *Fields) Keys() []string {
	keys := make([]string, len(f.keys))
	copy(keys, f.keys)
	return keys
}

// Range calls fn for each field in insertion order until fn returns false.
func (f *Fields) Range(fn func(key string, v Value) bool) {
	for _, k := range f.keys {
		if !fn(k, f.values[k]) {
			return
		}
	}
}

// Clone copies nested maps and lists so the clone can be mutated freely.
func (f *Fields) Clone() *Fields {
	c := &Fields{
		keys:   make([]string, len(f.keys)),
		values: make(map[string]Value, len(f.values)),
	}
	copy(c.keys, f.keys)
	for k, v := range f.values {
		c.values[k] = cloneValue(v)
	}
	return c
}

func cloneValue(v Value) Value {
	switch v.kind {
	case KindMap:
		if m := v.Map(); m != nil {
			return MapValue(m.Clone())
		}
	case KindList:
		items := make([]Value, len(v.List()))
		for i, item := range v.List() {
			items[i] = cloneValue(item)
		}
		return ListValue(items...)
	}
	return v
}

// Equal compares keys, order and values.
func (f Fields) Equal(o Fields) bool {
	if len(f.keys) != len(o.keys) {
		return false
	}
	for i, k := range f.keys {
		if o.keys[i] != k {
			return false
		}
		if !f.values[k].Equal(o.values[k]) {
			return false
		}
	}
	return true
}
