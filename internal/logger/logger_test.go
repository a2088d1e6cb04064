package logger

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-steely/internal/design"
)

var fixedNow = time.Date(2026, 10, 19, 14, 5, 9, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

// harness owns a dispatcher and console buffer for one test.
type harness struct {
	t   *testing.T
	d   *Dispatcher
	buf bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{t: t, d: NewDispatcher()}
	require.NoError(t, h.d.Start())
	t.Cleanup(func() { _ = h.d.Stop(context.Background()) })
	return h
}

func (h *harness) options(extra ...Option) []Option {
	return append([]Option{
		WithOutput(&h.buf, design.WithProfile(termenv.Ascii)),
		WithDispatcher(h.d),
		WithClock(fixedClock),
	}, extra...)
}

// lines flushes the dispatcher and returns the console lines.
func (h *harness) lines() []string {
	h.t.Helper()
	require.NoError(h.t, h.d.Stop(context.Background()))
	out := strings.TrimRight(h.buf.String(), "\n")
	if out == "" {
		return nil
	}
	return strings.Split(out, "\n")
}

func TestFormat(t *testing.T) {
	h := newHarness(t)
	l := New("main", h.options(WithAppName("shop"), WithTags("eu", "v2"))...)
	l.Info("ready", Tags("req-1"))
	l.Warning("slow")

	assert.Equal(t, []string{
		"19-10-2026 14:05:09 - [SHOP] [MAIN] [EU] [V2] [REQ-1] [INFO]: ready",
		"19-10-2026 14:05:09 - [SHOP] [MAIN] [EU] [V2] [WARNING]: slow",
	}, h.lines())
}

func TestFormatWithoutAppName(t *testing.T) {
	h := newHarness(t)
	New("main", h.options()...).OK("done")
	assert.Equal(t, []string{"19-10-2026 14:05:09 - [MAIN] [OK]: done"}, h.lines())
}

func TestAppNamePriority(t *testing.T) {
	t.Cleanup(func() { SetGlobalAppName("") })
	h := newHarness(t)
	l := New("svc", h.options(WithAppName("instance"))...)

	l.Info("a")
	SetGlobalAppName("global")
	l.Info("b")
	l.Info("c", AppName("call"))
	SetGlobalAppName("")
	l.SetAppName("")
	l.Info("d")

	assert.Equal(t, []string{
		"19-10-2026 14:05:09 - [INSTANCE] [SVC] [INFO]: a",
		"19-10-2026 14:05:09 - [GLOBAL] [SVC] [INFO]: b",
		"19-10-2026 14:05:09 - [CALL] [SVC] [INFO]: c",
		"19-10-2026 14:05:09 - [SVC] [INFO]: d",
	}, h.lines())
}

func TestEveryLevelMethod(t *testing.T) {
	h := newHarness(t)
	l := New("x", h.options()...)
	calls := []func(string, ...CallOption){
		l.Info, l.Start, l.Warning, l.Alert, l.Success, l.OK, l.Critical,
		l.Error, l.Fault, l.Fail, l.Fatal, l.TestResult, l.Test,
	}
	for _, fn := range calls {
		fn("m")
	}

	lines := h.lines()
	require.Len(t, lines, len(Levels))
	for i, lvl := range Levels {
		assert.True(t, strings.HasSuffix(lines[i], "["+string(lvl)+"]: m"), lines[i])
	}
}

func TestDailyFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")

	h := newHarness(t)
	l := New("api", h.options(WithDestination(dir))...)
	l.Info("one")
	l.Error("two")
	h.lines()

	assert.Equal(t, dir+"_debug", l.Dir())
	data, err := os.ReadFile(filepath.Join(dir+"_debug", "19-10-2026.log"))
	require.NoError(t, err)
	assert.Equal(t,
		"\n19-10-2026 14:05:09 - [API] [INFO]: one\n19-10-2026 14:05:09 - [API] [ERROR]: two",
		string(data))
}

func TestSuppressOnlyOutsideDebug(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")

	h := newHarness(t)
	quiet := New("q", h.options(WithDebug(false), WithDestination(dir))...)
	loud := New("l", h.options()...)
	quiet.Info("hidden", Suppress())
	loud.Info("shown", Suppress())

	assert.Equal(t, []string{"19-10-2026 14:05:09 - [L] [INFO]: shown"}, h.lines())
	assert.Equal(t, dir, quiet.Dir())
	data, err := os.ReadFile(filepath.Join(dir, "19-10-2026.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "[Q] [INFO]: hidden")
}

func TestUnwritableDestinationIsIgnored(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	h := newHarness(t)
	l := New("x", h.options(WithDebug(false), WithDestination(filepath.Join(blocker, "sub")))...)
	assert.NotPanics(t, func() { l.Info("still printed") })
	assert.Len(t, h.lines(), 1)
}

func TestCleanClearsScreen(t *testing.T) {
	h := newHarness(t)
	once := New("x", h.options()...)
	once.Info("first", Clean())
	once.Info("second")
	once.Info("third")

	out := h.lines()
	joined := strings.Join(out, "\n")
	assert.Equal(t, 1, strings.Count(joined, "\x1b[2J"))
	assert.Less(t, strings.Index(joined, "first"), strings.Index(joined, "\x1b[2J"))
	assert.Less(t, strings.Index(joined, "\x1b[2J"), strings.Index(joined, "second"))
}

func TestPersistentClean(t *testing.T) {
	h := newHarness(t)
	l := New("x", h.options(WithClean(true))...)
	l.Info("a")
	l.Info("b")
	assert.Equal(t, 2, strings.Count(strings.Join(h.lines(), "\n"), "\x1b[2J"))
}

func TestWritesSynchronouslyAfterStop(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.d.Stop(context.Background()))

	l := New("late", h.options()...)
	l.Info("after stop")
	assert.Contains(t, h.buf.String(), "[LATE] [INFO]: after stop")
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel(" test-result ")
	require.NoError(t, err)
	assert.Equal(t, LevelTestResult, lvl)

	_, err = ParseLevel("verbose")
	assert.ErrorIs(t, err, ErrUnknownLevel)
}

func TestLevelTone(t *testing.T) {
	assert.Equal(t, design.ToneInfo, LevelStart.Tone())
	assert.Equal(t, design.ToneWarn, LevelAlert.Tone())
	assert.Equal(t, design.ToneSuccess, LevelOK.Tone())
	assert.Equal(t, design.ToneFail, LevelFatal.Tone())
	assert.Equal(t, design.ToneTest, LevelTest.Tone())
	assert.Equal(t, design.ToneDefault, Level("OTHER").Tone())
}
