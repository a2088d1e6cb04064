// internal/decorate/decorate.go

// Package decorate holds the building blocks shared by the function
// decorators: the wrapped function shapes, futures for asynchronous calls
// and runtime function identity.
package decorate

import (
	"context"
	"reflect"
	"runtime"
	"strings"
)

// Func is the synchronous shape every decorator accepts and returns.
type Func[In, Out any] func(ctx context.Context, in In) (Out, error)

// AsyncFunc is the asynchronous shape: calling it starts the work and
// returns a Future for its result.
type AsyncFunc[In, Out any] func(ctx context.Context, in In) *Future[Out]

// Info identifies a wrapped function.
type Info struct {
	// Name is the function name inside its package, e.g. "Add",
	// "(*Store).Get" or "main.func1".
	Name string
	// Package is the last element of the package path.
	Package string
	// Handle is the full runtime name. Steps are matched against it.
	Handle string
}

// Identify derives Info from a function value.
func Identify(fn any) Info {
	rv := reflect.ValueOf(fn)
	if rv.Kind() != reflect.Func || rv.IsNil() {
		return Info{Name: "unknown", Package: "unknown"}
	}
	f := runtime.FuncForPC(rv.Pointer())
	if f == nil {
		return Info{Name: "unknown", Package: "unknown"}
	}
	return ParseName(f.Name())
}

// ParseName splits a runtime function name such as
// "go-steely/internal/demo.(*Store).Get" into its parts.
func ParseName(full string) Info {
	full = strings.TrimSuffix(full, "-fm")
	rest := full
	if i := strings.LastIndex(full, "/"); i >= 0 {
		rest = full[i+1:]
	}
	dot := strings.Index(rest, ".")
	if dot < 0 {
		return Info{Name: rest, Package: rest, Handle: full}
	}
	return Info{Name: rest[dot+1:], Package: rest[:dot], Handle: full}
}

// Within reports whether the runtime function caller is target itself or a
// function literal declared inside it.
func Within(caller, target string) bool {
	if target == "" {
		return false
	}
	caller = strings.TrimSuffix(caller, "-fm")
	return caller == target || strings.HasPrefix(caller, target+".")
}

// Outcome is what one invocation of a wrapped function produced.
type Outcome[Out any] struct {
	Value    Out
	Err      error
	Panic    any
	Panicked bool
}

// Failed reports whether the call returned an error or panicked.
func (o Outcome[Out]) Failed() bool { return o.Panicked || o.Err != nil }

// Unwrap returns the call's results, re-raising a captured panic.
func (o Outcome[Out]) Unwrap() (Out, error) {
	if o.Panicked {
		panic(o.Panic)
	}
	return o.Value, o.Err
}

// Invoke calls fn and captures a panic instead of unwinding.
func Invoke[In, Out any](ctx context.Context, fn Func[In, Out], in In) (o Outcome[Out]) {
	defer func() {
		if r := recover(); r != nil {
			o.Panicked = true
			o.Panic = r
		}
	}()
	o.Value, o.Err = fn(ctx, in)
	return o
}

// InvokeAsync calls fn and awaits its future under ctx.
func InvokeAsync[In, Out any](ctx context.Context, fn AsyncFunc[In, Out], in In) Outcome[Out] {
	return Invoke(ctx, func(ctx context.Context, in In) (Out, error) {
		return fn(ctx, in).Await(ctx)
	}, in)
}
