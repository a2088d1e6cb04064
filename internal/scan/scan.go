// internal/scan/scan.go

// Package scan traces local bindings of a single function call and prints
// them as they change.
//
// Go has no per-statement interpreter hook, so the traced function reports
// its bindings through checkpoints:
//
//	var Add = scan.Wrap(func(ctx context.Context, in Pair) (int, error) {
//		c := in.A + in.B
//		scan.Track(ctx, "c", c)
//		return c, nil
//	})
//
// The tracer package can insert these checkpoints automatically.
package scan

import (
	"context"
	"io"
	"os"
	"reflect"
	"time"
	"unicode"
	"unicode/utf8"

	"go-steely/internal/decorate"
	"go-steely/internal/design"
)

// Option configures Wrap and WrapAsync.
type Option func(*options)

type options struct {
	obs      Observer
	out      io.Writer
	palette  []design.Option
	names    []string
	receiver string
	name     string
	pkg      string
}

// WithObserver sends the transcript to obs instead of a Printer.
func WithObserver(obs Observer) Option {
	return func(o *options) { o.obs = obs }
}

// WithOutput sets the Printer's destination. Defaults to os.Stdout.
func WithOutput(w io.Writer, opts ...design.Option) Option {
	return func(o *options) {
		o.out = w
		o.palette = opts
	}
}

// WithParamNames names the input. One name labels the whole input; several
// names spread an array input over them.
func WithParamNames(names ...string) Option {
	return func(o *options) { o.names = names }
}

// WithReceiver hides the named receiver from reported bindings.
func WithReceiver(name string) Option {
	return func(o *options) { o.receiver = name }
}

// WithName overrides the displayed function and package names. Checkpoint
// scoping still uses the runtime identity.
func WithName(name, pkg string) Option {
	return func(o *options) {
		o.name = name
		o.pkg = pkg
	}
}

func newOptions(fn any, opts []Option) (*options, decorate.Info) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	info := decorate.Identify(fn)
	if o.name != "" {
		info.Name = o.name
	}
	if o.pkg != "" {
		info.Package = o.pkg
	}
	if o.obs == nil {
		w := o.out
		if w == nil {
			w = os.Stdout
		}
		o.obs = NewPrinter(w, o.palette...)
	}
	return o, info
}

// Wrap returns fn with its calls traced. Results are passed through
// unchanged and panics are re-raised after the failure is printed.
func Wrap[In, Out any](fn decorate.Func[In, Out], opts ...Option) decorate.Func[In, Out] {
	o, info := newOptions(fn, opts)
	return func(ctx context.Context, in In) (Out, error) {
		return run(ctx, o, info, params(in, o.names), func(ctx context.Context) decorate.Outcome[Out] {
			return decorate.Invoke(ctx, fn, in)
		})
	}
}

// WrapAsync is Wrap for functions that return a Future. The returned
// function starts the traced call and returns immediately.
func WrapAsync[In, Out any](fn decorate.AsyncFunc[In, Out], opts ...Option) decorate.AsyncFunc[In, Out] {
	o, info := newOptions(fn, opts)
	return func(ctx context.Context, in In) *decorate.Future[Out] {
		return decorate.Go(ctx, func(ctx context.Context) (Out, error) {
			return run(ctx, o, info, params(in, o.names), func(ctx context.Context) decorate.Outcome[Out] {
				return decorate.InvokeAsync(ctx, fn, in)
			})
		})
	}
}

func run[Out any](ctx context.Context, o *options, info decorate.Info, prms []Binding, call func(context.Context) decorate.Outcome[Out]) (Out, error) {
	start := time.Now()
	o.obs.Header(info)
	o.obs.Params(prms)

	sess := NewSession(info, o.obs, o.receiver)
	sess.Seed(prms)

	outcome := func() (out decorate.Outcome[Out]) {
		armed, disarm := sess.Arm(ctx)
		defer disarm()
		out = call(armed)
		if out.Panicked {
			o.obs.Failure(PanicFailure(out.Panic))
		} else if out.Err != nil {
			o.obs.Failure(ErrorFailure(out.Err))
		} else {
			o.obs.Return(out.Value)
		}
		return out
	}()

	o.obs.Footer(time.Since(start))
	return outcome.Unwrap()
}

// Dump prints every binding seen so far by the session armed in ctx, if its
// observer supports snapshots.
func Dump(ctx context.Context, title string) {
	s := Current(ctx)
	if s == nil {
		return
	}
	so, ok := s.obs.(SnapshotObserver)
	if !ok {
		return
	}
	if title == "" {
		title = "Local Variables"
	}
	so.LocalsSnapshot(title, s.Bindings())
}

// params lists the call's inputs. Struct inputs contribute their exported
// fields, named by a `scan:"name"` tag or the lower-camel field name.
func params(in any, names []string) []Binding {
	rv := reflect.ValueOf(in)
	if rv.Kind() == reflect.Struct {
		return structParams(rv)
	}
	if rv.Kind() == reflect.Array && len(names) > 1 {
		vals := make([]any, rv.Len())
		for i := range vals {
			vals[i] = rv.Index(i).Interface()
		}
		return BindArgs(names, vals, nil)
	}
	if len(names) == 0 {
		names = []string{"in"}
	}
	return BindArgs(names[:1], []any{in}, nil)
}

func structParams(rv reflect.Value) []Binding {
	t := rv.Type()
	var out []Binding
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := f.Tag.Get("scan")
		if name == "-" {
			continue
		}
		if name == "" {
			name = lowerFirst(f.Name)
		}
		out = append(out, Binding{Name: name, Value: rv.Field(i).Interface()})
	}
	return out
}

func lowerFirst(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	return string(unicode.ToLower(r)) + s[n:]
}
