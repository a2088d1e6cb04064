// internal/pprint/pprint.go

// Package pprint derives short display labels and truncated textual forms
// for arbitrary runtime values.
package pprint

import (
	"fmt"
	"reflect"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"go-steely/internal/design"
)

const (
	// DefaultMaxLen is the rune budget for a value's text.
	DefaultMaxLen = 40
	// ChangeMaxLen is the budget for the previous value in a change line.
	ChangeMaxLen = 20

	maxDepth = 4
)

// LogValuer lets a type choose the value that is displayed in its place.
type LogValuer interface {
	LogValue() any
}

// Classify maps v to its display category. Booleans are tested first.
func Classify(v any) design.Category {
	if v == nil {
		return design.None
	}
	return classifyValue(reflect.ValueOf(v))
}

func classifyValue(rv reflect.Value) design.Category {
	switch rv.Kind() {
	case reflect.Bool:
		return design.Bool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return design.Int
	case reflect.Float32, reflect.Float64:
		return design.Float
	case reflect.String:
		return design.Str
	case reflect.Slice:
		return design.List
	case reflect.Array:
		return design.Tuple
	case reflect.Map:
		if isSet(rv.Type()) {
			return design.Set
		}
		return design.Dict
	case reflect.Func:
		if rv.IsNil() {
			return design.None
		}
		return design.Callable
	case reflect.Pointer, reflect.Interface, reflect.UnsafePointer:
		if rv.IsNil() {
			return design.None
		}
		return design.Other
	case reflect.Invalid:
		return design.None
	case reflect.Complex64, reflect.Complex128, reflect.Chan, reflect.Struct:
		return design.Other
	}
	return design.Other
}

// isSet reports whether t is a map used as a set (map[K]struct{}).
func isSet(t reflect.Type) bool {
	e := t.Elem()
	return e.Kind() == reflect.Struct && e.NumField() == 0
}

// DisplayType returns the short type label of v, e.g. "int", "str[5]",
// "list[3]", "dict{2}". Values outside the known categories are labelled
// with their Go type.
func DisplayType(v any) string {
	switch Classify(v) {
	case design.Bool:
		return "bool"
	case design.Int:
		return "int"
	case design.Float:
		return "float"
	case design.Str:
		return fmt.Sprintf("str[%d]", utf8.RuneCountInString(reflect.ValueOf(v).String()))
	case design.None:
		return "none"
	case design.List:
		return fmt.Sprintf("list[%d]", reflect.ValueOf(v).Len())
	case design.Dict:
		return fmt.Sprintf("dict{%d}", reflect.ValueOf(v).Len())
	case design.Tuple:
		return fmt.Sprintf("tuple[%d]", reflect.ValueOf(v).Len())
	case design.Set:
		return fmt.Sprintf("set[%d]", reflect.ValueOf(v).Len())
	case design.Callable, design.Other:
		return reflect.TypeOf(v).String()
	}
	return reflect.TypeOf(v).String()
}

// DisplayText renders v and truncates the result to maxLen runes, the last
// of which is an ellipsis when truncation happened.
func DisplayText(v any, maxLen int) string {
	if maxLen < 1 {
		return design.Ellipsis
	}
	b := &budgetWriter{limit: maxLen + 1}
	writeValue(b, reflect.ValueOf(v), 0)
	return Truncate(b.String(), maxLen)
}

// Truncate shortens s to at most maxLen runes.
func Truncate(s string, maxLen int) string {
	if maxLen < 1 {
		return design.Ellipsis
	}
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen-1]) + design.Ellipsis
}

// budgetWriter stops accepting text once limit runes have been written, so
// large or self-referencing values terminate early.
type budgetWriter struct {
	sb    strings.Builder
	runes int
	limit int
}

func (b *budgetWriter) full() bool { return b.runes >= b.limit }

func (b *budgetWriter) WriteString(s string) {
	for _, r := range s {
		if b.full() {
			return
		}
		b.sb.WriteRune(r)
		b.runes++
	}
}

func (b *budgetWriter) String() string { return b.sb.String() }

func writeValue(b *budgetWriter, rv reflect.Value, depth int) {
	if b.full() {
		return
	}
	if !rv.IsValid() {
		b.WriteString("nil")
		return
	}
	if s, ok := customText(b, rv, depth); ok {
		b.WriteString(s)
		return
	}

	switch rv.Kind() {
	case reflect.Bool:
		b.WriteString(strconv.FormatBool(rv.Bool()))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		b.WriteString(strconv.FormatInt(rv.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		b.WriteString(strconv.FormatUint(rv.Uint(), 10))
	case reflect.Float32:
		b.WriteString(strconv.FormatFloat(rv.Float(), 'g', -1, 32))
	case reflect.Float64:
		b.WriteString(strconv.FormatFloat(rv.Float(), 'g', -1, 64))
	case reflect.Complex64, reflect.Complex128:
		b.WriteString(fmt.Sprint(rv.Complex()))
	case reflect.String:
		b.WriteString(strconv.Quote(rv.String()))
	case reflect.Slice, reflect.Array:
		writeSequence(b, rv, depth)
	case reflect.Map:
		writeMap(b, rv, depth)
	case reflect.Struct:
		writeStruct(b, rv, depth)
	case reflect.Pointer:
		if rv.IsNil() {
			b.WriteString("nil")
			return
		}
		if depth >= maxDepth {
			b.WriteString("&" + design.Ellipsis)
			return
		}
		b.WriteString("&")
		writeValue(b, rv.Elem(), depth+1)
	case reflect.Interface:
		if rv.IsNil() {
			b.WriteString("nil")
			return
		}
		writeValue(b, rv.Elem(), depth)
	case reflect.Func:
		if rv.IsNil() {
			b.WriteString("nil")
			return
		}
		name := "?"
		if fn := runtime.FuncForPC(rv.Pointer()); fn != nil {
			name = fn.Name()
		}
		b.WriteString("func " + name)
	case reflect.Chan:
		b.WriteString(rv.Type().String())
	case reflect.UnsafePointer:
		b.WriteString(fmt.Sprintf("%#x", rv.Pointer()))
	case reflect.Invalid:
		b.WriteString("nil")
	}
}

// customText applies LogValue, Error and String methods. Panics inside them
// degrade to the type name.
func customText(b *budgetWriter, rv reflect.Value, depth int) (text string, ok bool) {
	if !rv.CanInterface() {
		return "", false
	}
	if (rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface) && rv.IsNil() {
		return "", false
	}
	iv := rv.Interface()

	defer func() {
		if r := recover(); r != nil {
			text, ok = "<"+rv.Type().String()+">", true
		}
	}()

	switch x := iv.(type) {
	case LogValuer:
		if depth >= maxDepth {
			return "<" + rv.Type().String() + ">", true
		}
		lv := x.LogValue()
		if lv != nil && reflect.TypeOf(lv) == rv.Type() {
			return "", false
		}
		sub := &budgetWriter{limit: b.limit - b.runes}
		writeValue(sub, reflect.ValueOf(lv), depth+1)
		return sub.String(), true
	case error:
		return x.Error(), true
	case fmt.Stringer:
		return x.String(), true
	}
	return "", false
}

func writeSequence(b *budgetWriter, rv reflect.Value, depth int) {
	if rv.Len() == 0 {
		b.WriteString("[]")
		return
	}
	if depth >= maxDepth {
		b.WriteString("[" + design.Ellipsis + "]")
		return
	}
	b.WriteString("[")
	for i := 0; i < rv.Len() && !b.full(); i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		writeValue(b, rv.Index(i), depth+1)
	}
	b.WriteString("]")
}

type mapEntry struct {
	key string
	val reflect.Value
}

func writeMap(b *budgetWriter, rv reflect.Value, depth int) {
	if rv.Len() == 0 {
		b.WriteString("{}")
		return
	}
	if depth >= maxDepth {
		b.WriteString("{" + design.Ellipsis + "}")
		return
	}

	entries := make([]mapEntry, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		kb := &budgetWriter{limit: b.limit}
		writeValue(kb, iter.Key(), depth+1)
		entries = append(entries, mapEntry{key: kb.String(), val: iter.Value()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })

	set := isSet(rv.Type())
	b.WriteString("{")
	for i, e := range entries {
		if b.full() {
			break
		}
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(e.key)
		if !set {
			b.WriteString(": ")
			writeValue(b, e.val, depth+1)
		}
	}
	b.WriteString("}")
}

func writeStruct(b *budgetWriter, rv reflect.Value, depth int) {
	t := rv.Type()
	name := t.Name()
	if name == "" {
		name = "struct"
	}
	if depth >= maxDepth {
		b.WriteString(name + "{" + design.Ellipsis + "}")
		return
	}
	b.WriteString(name + "{")
	for i := 0; i < rv.NumField() && !b.full(); i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(t.Field(i).Name + ": ")
		writeValue(b, rv.Field(i), depth+1)
	}
	b.WriteString("}")
}
