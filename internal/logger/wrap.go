// internal/logger/wrap.go
package logger

import (
	"context"
	"fmt"

	"go-steely/internal/decorate"
)

// ErrorPolicy decides what a logged function returns after a failure.
type ErrorPolicy int

const (
	// Observed swallows errors of synchronous functions, returning the zero
	// value and a nil error, and returns errors of asynchronous functions.
	Observed ErrorPolicy = iota
	// Propagate returns the error unchanged in both shapes.
	Propagate
)

const (
	msgStarted  = "Function Execution Started..."
	msgFinished = "Function Finished"
	msgFailed   = "Function Failed: "
)

// WrapOption configures Wrap and WrapAsync.
type WrapOption func(*wrapConfig)

type wrapConfig struct {
	policy ErrorPolicy
	opts   []Option
	name   string
	pkg    string
}

// WithErrorPolicy selects the failure behavior. The default is Observed.
func WithErrorPolicy(p ErrorPolicy) WrapOption {
	return func(c *wrapConfig) { c.policy = p }
}

// WithLoggerOptions passes options to the Logger created for the function.
func WithLoggerOptions(opts ...Option) WrapOption {
	return func(c *wrapConfig) { c.opts = append(c.opts, opts...) }
}

// WithName overrides the owner and fallback app name taken from the
// function's identity.
func WithName(name, pkg string) WrapOption {
	return func(c *wrapConfig) {
		c.name = name
		c.pkg = pkg
	}
}

func newWrap(fn any, opts []WrapOption) (*wrapConfig, *Logger) {
	c := &wrapConfig{}
	for _, opt := range opts {
		opt(c)
	}
	info := decorate.Identify(fn)
	if c.name == "" {
		c.name = info.Name
	}
	if c.pkg == "" {
		c.pkg = info.Package
	}
	return c, New(c.name, c.opts...)
}

// app is the global app name when set, else the package name.
func (c *wrapConfig) app() string {
	if g := GlobalAppName(); g != "" {
		return g
	}
	return c.pkg
}

func failureText[Out any](o decorate.Outcome[Out]) string {
	if o.Panicked {
		return fmt.Sprint(o.Panic)
	}
	return o.Err.Error()
}

// Wrap logs the start, success or failure of each call of fn. Panics are
// logged and re-raised regardless of the policy.
func Wrap[In, Out any](fn decorate.Func[In, Out], opts ...WrapOption) decorate.Func[In, Out] {
	c, lg := newWrap(fn, opts)
	return func(ctx context.Context, in In) (Out, error) {
		app := AppName(c.app())
		lg.LogContext(ctx, LevelStart, msgStarted, app)

		out := decorate.Invoke(ctx, fn, in)
		if !out.Failed() {
			lg.LogContext(ctx, LevelSuccess, msgFinished, app)
			return out.Value, nil
		}
		lg.LogContext(ctx, LevelError, msgFailed+failureText(out), app)
		if out.Panicked || c.policy == Propagate {
			return out.Unwrap()
		}
		var zero Out
		return zero, nil
	}
}

// WrapAsync is Wrap for functions that return a Future. Failures are always
// returned through the Future.
func WrapAsync[In, Out any](fn decorate.AsyncFunc[In, Out], opts ...WrapOption) decorate.AsyncFunc[In, Out] {
	c, lg := newWrap(fn, opts)
	return func(ctx context.Context, in In) *decorate.Future[Out] {
		return decorate.Go(ctx, func(ctx context.Context) (Out, error) {
			app := AppName(c.app())
			lg.LogContext(ctx, LevelStart, msgStarted, app)

			out := decorate.InvokeAsync(ctx, fn, in)
			if out.Failed() {
				lg.LogContext(ctx, LevelError, msgFailed+failureText(out), app)
			} else {
				lg.LogContext(ctx, LevelSuccess, msgFinished, app)
			}
			return out.Unwrap()
		})
	}
}
