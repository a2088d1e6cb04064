// steely.go

// Package steely bundles the call decorators: Scan traces local bindings,
// Cronos times calls and Log reports their start and end.
//
//	add := steely.Scan(func(ctx context.Context, in Pair) (int, error) {
//		c := in.A + in.B
//		steely.Track(ctx, "c", c)
//		return c, nil
//	})
//
// Decorated functions keep their signature, so decorators stack:
//
//	timed := steely.Cronos(steely.Log(add))
package steely

import (
	"context"

	"go-steely/internal/cronos"
	"go-steely/internal/decorate"
	"go-steely/internal/logger"
	"go-steely/internal/scan"
)

// Func is the shape every decorator accepts and returns.
type Func[In, Out any] = decorate.Func[In, Out]

// AsyncFunc is Func for calls that complete later.
type AsyncFunc[In, Out any] = decorate.AsyncFunc[In, Out]

// Future is the pending result of an AsyncFunc.
type Future[T any] = decorate.Future[T]

type (
	ScanOption   = scan.Option
	CronosOption = cronos.Option
	LogOption    = logger.WrapOption
	Logger       = logger.Logger
	LoggerOption = logger.Option
)

// Checkpoints. They are variables so the traced function stays the direct
// caller of the scan package.
var (
	Track   = scan.Track
	TrackAt = scan.TrackAt
	Dump    = scan.Dump
)

var (
	WithOutput      = scan.WithOutput
	WithParamNames  = scan.WithParamNames
	WithReceiver    = scan.WithReceiver
	WithObserver    = cronos.WithObserver
	WithErrorPolicy = logger.WithErrorPolicy
)

// Error policies for Log.
const (
	Observed  = logger.Observed
	Propagate = logger.Propagate
)

// Scan traces every call of fn.
func Scan[In, Out any](fn Func[In, Out], opts ...ScanOption) Func[In, Out] {
	return scan.Wrap(fn, opts...)
}

// ScanAsync traces every call of fn until its Future resolves.
func ScanAsync[In, Out any](fn AsyncFunc[In, Out], opts ...ScanOption) AsyncFunc[In, Out] {
	return scan.WrapAsync(fn, opts...)
}

// Cronos logs the elapsed time of every call of fn.
func Cronos[In, Out any](fn Func[In, Out], opts ...CronosOption) Func[In, Out] {
	return cronos.Wrap(fn, opts...)
}

// CronosAsync logs the time until fn's Future resolves.
func CronosAsync[In, Out any](fn AsyncFunc[In, Out], opts ...CronosOption) AsyncFunc[In, Out] {
	return cronos.WrapAsync(fn, opts...)
}

// Log reports the start, end and failure of every call of fn.
func Log[In, Out any](fn Func[In, Out], opts ...LogOption) Func[In, Out] {
	return logger.Wrap(fn, opts...)
}

// LogAsync is Log for asynchronous functions.
func LogAsync[In, Out any](fn AsyncFunc[In, Out], opts ...LogOption) AsyncFunc[In, Out] {
	return logger.WrapAsync(fn, opts...)
}

// NewLogger returns a Logger whose lines carry owner.
func NewLogger(owner string, opts ...LoggerOption) *Logger {
	return logger.New(owner, opts...)
}

// SetAppName sets the app name used by every Logger that has no per-call
// override.
func SetAppName(name string) {
	logger.SetGlobalAppName(name)
}

// Flush waits until queued log lines are written.
func Flush(ctx context.Context) error {
	return logger.Flush(ctx)
}
