package gelf

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Field represents exactly one (possibly nested) attribute of an event's Extra
// like a terrible version of XPath or JSONPath
type Field struct {
	Path     []string
	original *Event
}

func (fld *Field) MustGet() Value {
	v, _ := fld.Get()
	return v
}

func (fld *Field) Get() (Value, error) {
	if fld.original == nil {
		return Value{}, fmt.Errorf("cannot Field.Get() because there is no linked event")
	}
	if len(fld.Path) == 0 {
		return Value{}, fmt.Errorf("cannot traverse empty Path")
	}

	level := &fld.original.Extra
	for depth, key := range fld.Path {
		inner, keyExists := level.Get(key)
		if !keyExists {
			return Value{}, fmt.Errorf("no such field %s", fld)
		}
		if depth == len(fld.Path)-1 {
			return inner, nil
		}
		if inner.Kind() != KindMap || inner.Map() == nil {
			return Value{}, fmt.Errorf("field %s is not a map", strings.Join(fld.Path[:depth+1], "."))
		}
		level = inner.Map()
	}
	panic("impossible")
}

func (fld *Field) Exists() bool {
	_, err := fld.Get()
	return err == nil
}

// Default sets the value only if the field is absent.
func (fld *Field) Default(value any) {
	if err := fld.set(AnyValue(value), false); err != nil {
		Diagnostics(context.Background()).Warn(err.Error())
	}
}

func (fld *Field) Set(value any) {
	if err := fld.set(AnyValue(value), true); err != nil {
		Diagnostics(context.Background()).Warn(err.Error())
	}
}

func (fld *Field) SetCarefully(value any) error {
	return fld.set(AnyValue(value), true)
}

func (fld *Field) set(value Value, overwrite bool) error {
	if fld.original == nil {
		return fmt.Errorf("cannot Field.Set() because there is no linked event")
	}
	if len(fld.Path) == 0 {
		return fmt.Errorf("cannot traverse empty Path")
	}

	level := &fld.original.Extra
	for i := 0; i < len(fld.Path)-1; i++ {
		key := fld.Path[i]
		inner, keyExists := level.Get(key)
		if !keyExists || inner.Kind() != KindMap || inner.Map() == nil {
			if keyExists {
				Diagnostics(context.Background()).Warn(strings.Join(fld.Path[:i+1], ".") + " is getting implicitly overwritten; make sure to delete it first")
			}
			inner = MapValue(NewFields())
			level.Set(key, inner)
		}
		level = inner.Map()
	}

	leafKey := fld.Path[len(fld.Path)-1]
	if level.Has(leafKey) && !overwrite {
		// being quiet is okay if we explicitly do not want overwrites
		return nil
	}
	level.Set(leafKey, value)
	return nil
}

func (fld *Field) SetString(value string) {
	fld.Set(value)
}

func (fld *Field) SetInt(value int) {
	fld.Set(value)
}

func (fld *Field) SetFloat(value float64) {
	fld.Set(value)
}

func (fld *Field) SetBool(value bool) {
	fld.Set(value)
}

func (fld *Field) GetString() string {
	v, err := fld.Get()
	if err != nil {
		return ""
	}
	return v.String()
}

func (fld *Field) GetInt() int {
	v, err := fld.Get()
	if err != nil {
		return 0
	}

	switch v.Kind() {
	case KindString:
		if i, err := strconv.Atoi(v.Str()); err == nil {
			return i
		}
		return 0
	case KindInt:
		return int(v.Int64())
	case KindFloat:
		return int(v.Float64())
	case KindBool:
		if v.Bool() {
			return 1
		}
		return 0
	default:
		return 0
	}
}

func (fld *Field) GetFloat() float64 {
	v, err := fld.Get()
	if err != nil {
		return 0
	}

	switch v.Kind() {
	case KindString:
		if f, err := strconv.ParseFloat(v.Str(), 64); err == nil {
			return f
		}
		return 0
	case KindInt:
		return float64(v.Int64())
	case KindFloat:
		return v.Float64()
	case KindBool:
		if v.Bool() {
			return 1
		}
		return 0
	default:
		return 0
	}
}

func (fld *Field) GetBool() bool {
	v, err := fld.Get()
	if err != nil {
		return false
	}

	switch v.Kind() {
	case KindString:
		b, _ := strconv.ParseBool(v.Str())
		return b
	case KindInt:
		return v.Int64() > 0
	case KindFloat:
		return v.Float64() > 0
	case KindBool:
		return v.Bool()
	default:
		return false
	}
}

func (fld *Field) Delete() {
	_ = fld.DeleteCarefully()
}

func (fld *Field) DeleteCarefully() error {
	if fld.original == nil {
		return fmt.Errorf("cannot Field.Delete() because there is no linked event")
	}
	if len(fld.Path) == 0 {
		return fmt.Errorf("cannot traverse empty Path")
	}

	level := &fld.original.Extra
	for i := 0; i < len(fld.Path)-1; i++ {
		inner, keyExists := level.Get(fld.Path[i])
		if !keyExists || inner.Kind() != KindMap || inner.Map() == nil {
			// nothing to delete
			return nil
		}
		level = inner.Map()
	}

	level.Delete(fld.Path[len(fld.Path)-1])
	return nil
}

func (fld *Field) String() string {
	var sb strings.Builder
	for _, v := range fld.Path {
		sb.WriteString(`[` + v + `]`)
	}
	return sb.String()
}
