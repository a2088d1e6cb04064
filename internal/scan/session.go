// internal/scan/session.go
package scan

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"runtime"
	"strings"
	"sync"

	"github.com/google/uuid"

	"go-steely/internal/decorate"
)

// State is the lifecycle position of a Session.
type State int

const (
	// Idle sessions ignore every checkpoint.
	Idle State = iota
	// Armed sessions wait for the first checkpoint inside the target.
	Armed
	// Stepping sessions have observed at least one checkpoint.
	Stepping
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	case Stepping:
		return "stepping"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Binding is one name/value pair visible in the traced function.
type Binding struct {
	Name  string
	Value any
}

// EventKind tells a first sighting apart from a rebinding.
type EventKind int

const (
	New EventKind = iota
	Changed
)

func (k EventKind) String() string {
	if k == Changed {
		return "changed"
	}
	return "new"
}

// Event is a binding observed at a checkpoint. Old is only set for Changed.
type Event struct {
	Kind  EventKind
	Name  string
	Old   any
	Value any
	Line  int
}

// snapshot is an insertion-ordered name to value mapping.
type snapshot struct {
	names  []string
	values map[string]any
}

func (s *snapshot) get(name string) (any, bool) {
	v, ok := s.values[name]
	return v, ok
}

func (s *snapshot) set(name string, v any) {
	if s.values == nil {
		s.values = make(map[string]any)
	}
	if _, ok := s.values[name]; !ok {
		s.names = append(s.names, name)
	}
	s.values[name] = v
}

func (s *snapshot) bindings() []Binding {
	out := make([]Binding, 0, len(s.names))
	for _, n := range s.names {
		out = append(out, Binding{Name: n, Value: s.values[n]})
	}
	return out
}

// Session traces a single call of one target function.
type Session struct {
	ID string

	target   decorate.Info
	receiver string
	obs      Observer

	mu     sync.Mutex
	state  State
	prev   snapshot
	events []Event
}

// NewSession creates an idle session for target. Events are reported to obs
// when it is non-nil.
func NewSession(target decorate.Info, obs Observer, receiver string) *Session {
	return &Session{
		ID:       uuid.NewString(),
		target:   target,
		receiver: receiver,
		obs:      obs,
	}
}

// Target returns the traced function.
func (s *Session) Target() decorate.Info { return s.target }

// State reports where the session is in its lifecycle.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Seed records bindings as already seen without reporting them.
func (s *Session) Seed(bindings []Binding) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range bindings {
		if s.hidden(b.Name) {
			continue
		}
		s.prev.set(b.Name, b.Value)
	}
}

// Events returns a copy of the events observed so far.
func (s *Session) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

// Bindings returns the latest snapshot in first-seen order.
func (s *Session) Bindings() []Binding {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prev.bindings()
}

type sessionKey struct{}

// Arm installs s as the active session of the returned context. The parent
// context keeps whatever session it held before. disarm may be called any
// number of times; only the first call has an effect.
func (s *Session) Arm(ctx context.Context) (armed context.Context, disarm func()) {
	s.mu.Lock()
	s.state = Armed
	s.mu.Unlock()

	var once sync.Once
	return context.WithValue(ctx, sessionKey{}, s), func() {
		once.Do(func() {
			s.mu.Lock()
			s.state = Idle
			s.mu.Unlock()
		})
	}
}

// Current returns the session armed in ctx, or nil.
func Current(ctx context.Context) *Session {
	if ctx == nil {
		return nil
	}
	s, _ := ctx.Value(sessionKey{}).(*Session)
	return s
}

// Track reports bindings at the caller's line. kv alternates names and
// values the way slog attributes do.
//
//go:noinline
func Track(ctx context.Context, kv ...any) {
	s := Current(ctx)
	if s == nil {
		return
	}
	fr := callerFrame()
	s.step(fr.Function, fr.Line, pairs(kv))
}

// TrackAt is Track with an explicit source line. Instrumented code calls it
// so lines refer to the original file.
//
//go:noinline
func TrackAt(ctx context.Context, line int, kv ...any) {
	s := Current(ctx)
	if s == nil {
		return
	}
	fr := callerFrame()
	s.step(fr.Function, line, pairs(kv))
}

// callerFrame returns the frame that called Track or TrackAt.
//
//go:noinline
func callerFrame() runtime.Frame {
	var pcs [1]uintptr
	if runtime.Callers(3, pcs[:]) == 0 {
		return runtime.Frame{}
	}
	fr, _ := runtime.CallersFrames(pcs[:]).Next()
	return fr
}

const missingValue = "!MISSING"

func pairs(kv []any) []Binding {
	out := make([]Binding, 0, (len(kv)+1)/2)
	for i := 0; i < len(kv); i += 2 {
		name, ok := kv[i].(string)
		if !ok {
			name = fmt.Sprint(kv[i])
		}
		var v any = missingValue
		if i+1 < len(kv) {
			v = kv[i+1]
		}
		out = append(out, Binding{Name: name, Value: v})
	}
	return out
}

func (s *Session) hidden(name string) bool {
	return name == "" || strings.HasPrefix(name, "_") || (s.receiver != "" && name == s.receiver)
}

func (s *Session) step(caller string, line int, bindings []Binding) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Idle || !decorate.Within(caller, s.target.Handle) {
		return
	}
	s.state = Stepping

	for _, b := range bindings {
		if s.hidden(b.Name) {
			continue
		}
		ev := Event{Kind: New, Name: b.Name, Value: b.Value, Line: line}
		old, seen := s.prev.get(b.Name)
		s.prev.set(b.Name, b.Value)
		if seen {
			if Equal(old, b.Value) {
				continue
			}
			ev.Kind = Changed
			ev.Old = old
		}
		s.events = append(s.events, ev)
		if s.obs != nil {
			s.obs.Event(ev)
		}
	}
}

// Equal compares two bindings with ==. Values whose dynamic type is not
// comparable are compared by identity instead, and floats by their bits so
// a NaN equals itself.
func Equal(a, b any) (eq bool) {
	defer func() {
		if recover() != nil {
			eq = identical(reflect.ValueOf(a), reflect.ValueOf(b))
		}
	}()
	if a == b {
		return true
	}
	return sameFloat(reflect.ValueOf(a), reflect.ValueOf(b))
}

func sameFloat(a, b reflect.Value) bool {
	if !a.IsValid() || !b.IsValid() || a.Type() != b.Type() {
		return false
	}
	switch a.Kind() {
	case reflect.Float32, reflect.Float64:
		return math.Float64bits(a.Float()) == math.Float64bits(b.Float())
	}
	return false
}

func identical(a, b reflect.Value) bool {
	if !a.IsValid() || !b.IsValid() {
		return a.IsValid() == b.IsValid()
	}
	if a.Type() != b.Type() {
		return false
	}
	switch a.Kind() {
	case reflect.Slice:
		if a.IsNil() || b.IsNil() {
			return a.IsNil() == b.IsNil()
		}
		return a.Pointer() == b.Pointer() && a.Len() == b.Len() && a.Cap() == b.Cap()
	case reflect.Map, reflect.Func, reflect.Chan, reflect.Pointer, reflect.UnsafePointer:
		return a.Pointer() == b.Pointer()
	case reflect.Interface:
		return identical(a.Elem(), b.Elem())
	case reflect.Array:
		for i := 0; i < a.Len(); i++ {
			if !identical(a.Index(i), b.Index(i)) {
				return false
			}
		}
		return true
	case reflect.Struct:
		for i := 0; i < a.NumField(); i++ {
			if !identical(a.Field(i), b.Field(i)) {
				return false
			}
		}
		return true
	}
	return a.Equal(b)
}
