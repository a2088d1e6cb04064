// internal/logger/logger.go

// Package logger writes colored, leveled lines to the console and to one
// log file per day, off the caller's goroutine.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/muesli/termenv"

	"go-steely/internal/design"
	"go-steely/internal/logging"
)

const (
	timestampLayout = "02-01-2006 15:04:05"
	fileLayout      = "02-01-2006"
	debugEnv        = "debug"
)

var globalApp atomic.Pointer[string]

// SetGlobalAppName sets the application name used by every Logger that is
// not given one per call. An empty name clears it.
func SetGlobalAppName(name string) {
	if name == "" {
		globalApp.Store(nil)
		return
	}
	up := strings.ToUpper(name)
	globalApp.Store(&up)
}

// GlobalAppName returns the global application name, or "".
func GlobalAppName() string {
	if p := globalApp.Load(); p != nil {
		return *p
	}
	return ""
}

// Logger formats and delivers log lines for one owner.
type Logger struct {
	owner   string
	appName atomic.Pointer[string]
	dest    string
	debug   bool
	env     string
	clean   bool
	tags    []string
	out     io.Writer
	palOpts []design.Option
	pal     *design.Palette
	disp    *Dispatcher
	clock   func() time.Time
	diag    *slog.Logger

	mu           sync.Mutex // serializes writes
	pendingClear bool
}

// Option configures a Logger.
type Option func(*Logger)

// WithAppName sets the instance application name.
func WithAppName(name string) Option {
	return func(l *Logger) { l.SetAppName(name) }
}

// WithDestination enables file output under dir. In debug mode the
// directory gets a "_debug" suffix.
func WithDestination(dir string) Option {
	return func(l *Logger) { l.dest = dir }
}

// WithDebug toggles debug mode. Debug is on by default.
func WithDebug(debug bool) Option {
	return func(l *Logger) { l.debug = debug }
}

// WithClean clears the terminal before every line.
func WithClean(clean bool) Option {
	return func(l *Logger) { l.clean = clean }
}

// WithTags adds bracketed tags to every line.
func WithTags(tags ...string) Option {
	return func(l *Logger) { l.tags = append(l.tags, tags...) }
}

// WithOutput sets the console destination. Defaults to os.Stdout.
func WithOutput(w io.Writer, opts ...design.Option) Option {
	return func(l *Logger) {
		l.out = w
		l.palOpts = opts
	}
}

// WithDispatcher delivers lines through d instead of the package
// dispatcher.
func WithDispatcher(d *Dispatcher) Option {
	return func(l *Logger) { l.disp = d }
}

// WithClock replaces time.Now.
func WithClock(clock func() time.Time) Option {
	return func(l *Logger) { l.clock = clock }
}

// WithDiagnostics sets where swallowed I/O errors are reported.
func WithDiagnostics(log *slog.Logger) Option {
	return func(l *Logger) { l.diag = log }
}

// New creates a Logger for owner, usually a component or function name.
func New(owner string, opts ...Option) *Logger {
	l := &Logger{
		owner: owner,
		debug: true,
		out:   os.Stdout,
		clock: time.Now,
		diag:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.debug {
		l.env = debugEnv
	}
	l.pendingClear = l.clean
	l.pal = design.NewPalette(l.out, l.palOpts...)
	return l
}

// SetAppName replaces the instance application name. "" removes it.
func (l *Logger) SetAppName(name string) {
	if name == "" {
		l.appName.Store(nil)
		return
	}
	up := strings.ToUpper(name)
	l.appName.Store(&up)
}

// Owner returns the owner label.
func (l *Logger) Owner() string { return l.owner }

// Dir returns the directory log files are written to, or "" when file
// output is disabled.
func (l *Logger) Dir() string {
	if l.dest == "" {
		return ""
	}
	if l.env != "" {
		return l.dest + "_" + l.env
	}
	return l.dest
}

// CallOption adjusts a single log call.
type CallOption func(*call)

type call struct {
	appName  string
	clean    bool
	suppress bool
	tags     []string
}

// AppName overrides the application name for one line.
func AppName(name string) CallOption {
	return func(c *call) { c.appName = name }
}

// Clean clears the terminal before the next line.
func Clean() CallOption {
	return func(c *call) { c.clean = true }
}

// Suppress keeps the line off the console unless the logger is in debug
// mode. File output is unaffected.
func Suppress() CallOption {
	return func(c *call) { c.suppress = true }
}

// Tags adds bracketed tags to one line.
func Tags(tags ...string) CallOption {
	return func(c *call) { c.tags = append(c.tags, tags...) }
}

func (l *Logger) Info(msg string, opts ...CallOption)       { l.Log(LevelInfo, msg, opts...) }
func (l *Logger) Start(msg string, opts ...CallOption)      { l.Log(LevelStart, msg, opts...) }
func (l *Logger) Warning(msg string, opts ...CallOption)    { l.Log(LevelWarning, msg, opts...) }
func (l *Logger) Alert(msg string, opts ...CallOption)      { l.Log(LevelAlert, msg, opts...) }
func (l *Logger) Success(msg string, opts ...CallOption)    { l.Log(LevelSuccess, msg, opts...) }
func (l *Logger) OK(msg string, opts ...CallOption)         { l.Log(LevelOK, msg, opts...) }
func (l *Logger) Critical(msg string, opts ...CallOption)   { l.Log(LevelCritical, msg, opts...) }
func (l *Logger) Error(msg string, opts ...CallOption)      { l.Log(LevelError, msg, opts...) }
func (l *Logger) Fault(msg string, opts ...CallOption)      { l.Log(LevelFault, msg, opts...) }
func (l *Logger) Fail(msg string, opts ...CallOption)       { l.Log(LevelFail, msg, opts...) }
func (l *Logger) Fatal(msg string, opts ...CallOption)      { l.Log(LevelFatal, msg, opts...) }
func (l *Logger) TestResult(msg string, opts ...CallOption) { l.Log(LevelTestResult, msg, opts...) }
func (l *Logger) Test(msg string, opts ...CallOption)       { l.Log(LevelTest, msg, opts...) }

// Log queues a line at level.
func (l *Logger) Log(level Level, msg string, opts ...CallOption) {
	l.LogContext(context.Background(), level, msg, opts...)
}

// LogContext queues a line at level. When the queue is full it waits until
// there is room or ctx ends; if the line cannot be queued it is written
// before returning.
func (l *Logger) LogContext(ctx context.Context, level Level, msg string, opts ...CallOption) {
	var c call
	for _, opt := range opts {
		opt(&c)
	}
	now := l.clock()
	line := l.format(now, level, msg, c)
	job := func() { l.write(now, level, line, c) }

	d := l.disp
	if d == nil {
		d = Default()
	}
	if err := d.Enqueue(ctx, job); err != nil {
		job()
	}
}

func (l *Logger) appFor(c call) string {
	if c.appName != "" {
		return strings.ToUpper(c.appName)
	}
	if g := GlobalAppName(); g != "" {
		return g
	}
	if p := l.appName.Load(); p != nil {
		return *p
	}
	return ""
}

// format renders one line:
//
//	DD-MM-YYYY HH:MM:SS - [APP] [OWNER] [TAG] [LEVEL]: message
func (l *Logger) format(now time.Time, level Level, msg string, c call) string {
	var b strings.Builder
	b.WriteString(now.Format(timestampLayout))
	b.WriteString(" -")
	if app := l.appFor(c); app != "" {
		b.WriteString(" [" + app + "]")
	}
	b.WriteString(" [" + strings.ToUpper(l.owner) + "]")
	for _, tag := range l.tags {
		b.WriteString(" [" + strings.ToUpper(tag) + "]")
	}
	for _, tag := range c.tags {
		b.WriteString(" [" + strings.ToUpper(tag) + "]")
	}
	b.WriteString(" [" + string(level) + "]: ")
	b.WriteString(msg)
	return b.String()
}

func (l *Logger) write(now time.Time, level Level, line string, c call) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.pendingClear {
		termenv.NewOutput(l.out).ClearScreen()
		l.pendingClear = l.clean
	}

	if l.dest != "" {
		l.appendFile(now, line)
	}

	if !c.suppress || l.debug {
		_, _ = io.WriteString(l.out, l.pal.Tone(level.Tone()).Render(line)+"\n")
		if c.clean {
			l.pendingClear = true
		}
	}
}

// appendFile adds "\n"+line to today's file. Failures are reported to the
// diagnostics logger only.
func (l *Logger) appendFile(now time.Time, line string) {
	dir := l.Dir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		l.diag.Debug("create log directory", "dir", dir, "error", err)
	}
	path := filepath.Join(dir, now.Format(fileLayout)+".log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		l.diag.Debug("open log file", "path", path, "error", err)
		return
	}
	defer f.Close()
	if _, err := fmt.Fprint(f, "\n"+line); err != nil {
		l.diag.Debug("write log file", "path", path, "error", err)
	}
}
