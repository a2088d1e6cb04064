// internal/cronos/cronos.go

// Package cronos times function calls and reports the elapsed time through
// the logger.
package cronos

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"go-steely/internal/decorate"
	"go-steely/internal/logger"
)

// Owner is the owner label of every timing line.
const Owner = "*-cronos-*"

// Observer receives the measurement of every call. err is the returned
// error; a panic is reported as a non-nil error wrapping its value.
type Observer interface {
	Observe(fn decorate.Info, elapsed time.Duration, err error)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(fn decorate.Info, elapsed time.Duration, err error)

func (f ObserverFunc) Observe(fn decorate.Info, elapsed time.Duration, err error) {
	f(fn, elapsed, err)
}

// Option configures Wrap and WrapAsync.
type Option func(*config)

type config struct {
	observers []Observer
	logOpts   []logger.Option
	name      string
	silent    bool
}

// WithObserver adds an observer.
func WithObserver(o Observer) Option {
	return func(c *config) { c.observers = append(c.observers, o) }
}

// WithLoggerOptions passes options to the timing Logger.
func WithLoggerOptions(opts ...logger.Option) Option {
	return func(c *config) { c.logOpts = append(c.logOpts, opts...) }
}

// WithName overrides the function name used as app name and metric label.
func WithName(name string) Option {
	return func(c *config) { c.name = name }
}

// WithoutLog only notifies observers.
func WithoutLog() Option {
	return func(c *config) { c.silent = true }
}

type timer struct {
	info decorate.Info
	cfg  *config
	log  *logger.Logger
}

func newTimer(fn any, opts []Option) *timer {
	c := &config{}
	for _, opt := range opts {
		opt(c)
	}
	info := decorate.Identify(fn)
	if c.name != "" {
		info.Name = c.name
	}
	return &timer{
		info: info,
		cfg:  c,
		log:  logger.New(Owner, append([]logger.Option{logger.WithAppName(info.Name)}, c.logOpts...)...),
	}
}

func (t *timer) report(ctx context.Context, elapsed time.Duration, err error) {
	if !t.cfg.silent {
		t.log.LogContext(ctx, logger.LevelTestResult, "Total Time Elapsed: "+FormatElapsed(elapsed))
	}
	for _, o := range t.cfg.observers {
		o.Observe(t.info, elapsed, err)
	}
}

func outcomeErr[Out any](o decorate.Outcome[Out]) error {
	if o.Panicked {
		return fmt.Errorf("panic: %v", o.Panic)
	}
	return o.Err
}

// Wrap reports how long each call of fn took, including failed calls.
// Results, errors and panics pass through untouched.
func Wrap[In, Out any](fn decorate.Func[In, Out], opts ...Option) decorate.Func[In, Out] {
	t := newTimer(fn, opts)
	return func(ctx context.Context, in In) (Out, error) {
		start := time.Now()
		out := decorate.Invoke(ctx, fn, in)
		t.report(ctx, time.Since(start), outcomeErr(out))
		return out.Unwrap()
	}
}

// WrapAsync is Wrap for functions that return a Future. The time includes
// waiting for the Future.
func WrapAsync[In, Out any](fn decorate.AsyncFunc[In, Out], opts ...Option) decorate.AsyncFunc[In, Out] {
	t := newTimer(fn, opts)
	return func(ctx context.Context, in In) *decorate.Future[Out] {
		start := time.Now()
		return decorate.Go(ctx, func(ctx context.Context) (Out, error) {
			out := decorate.InvokeAsync(ctx, fn, in)
			t.report(ctx, time.Since(start), outcomeErr(out))
			return out.Unwrap()
		})
	}
}

// FormatElapsed renders d as H:MM:SS.ffffff. The fraction is omitted for
// whole seconds and whole days are prefixed ("1 day, 0:00:03").
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	us := d.Microseconds()
	days := us / (24 * 3600 * 1e6)
	us -= days * 24 * 3600 * 1e6
	h := us / (3600 * 1e6)
	us -= h * 3600 * 1e6
	m := us / (60 * 1e6)
	us -= m * 60 * 1e6
	s := us / 1e6
	us -= s * 1e6

	out := fmt.Sprintf("%d:%02d:%02d", h, m, s)
	if us > 0 {
		out += fmt.Sprintf(".%06d", us)
	}
	switch {
	case days == 1:
		out = "1 day, " + out
	case days > 1:
		out = fmt.Sprintf("%d days, %s", days, out)
	}
	return out
}

// NewDurationHistogram builds the histogram PrometheusObserver feeds.
func NewDurationHistogram(namespace string) *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "function_duration_seconds",
			Help:      "Duration of timed function calls",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"function", "outcome"},
	)
}

// PrometheusObserver records every call in h, labelled by function name
// and "ok" or "error".
func PrometheusObserver(h *prometheus.HistogramVec) Observer {
	return ObserverFunc(func(fn decorate.Info, elapsed time.Duration, err error) {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		h.WithLabelValues(fn.Name, outcome).Observe(elapsed.Seconds())
	})
}
