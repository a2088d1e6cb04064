package decorate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type store struct{}

func (*store) Get(context.Context, string) (int, error) { return 1, nil }

func add(_ context.Context, in [2]int) (int, error) { return in[0] + in[1], nil }

func TestParseName(t *testing.T) {
	tests := []struct {
		full string
		want Info
	}{
		{"go-steely/internal/demo.Add", Info{Name: "Add", Package: "demo", Handle: "go-steely/internal/demo.Add"}},
		{"main.main.func1", Info{Name: "main.func1", Package: "main", Handle: "main.main.func1"}},
		{"go-steely/internal/demo.(*Store).Get-fm", Info{Name: "(*Store).Get", Package: "demo", Handle: "go-steely/internal/demo.(*Store).Get"}},
		{"weird", Info{Name: "weird", Package: "weird", Handle: "weird"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseName(tt.full), tt.full)
	}
}

func TestIdentify(t *testing.T) {
	info := Identify(add)
	assert.Equal(t, "add", info.Name)
	assert.Equal(t, "decorate", info.Package)

	s := &store{}
	m := Identify(s.Get)
	assert.Equal(t, "(*store).Get", m.Name)

	assert.Equal(t, "unknown", Identify(nil).Name)
	assert.Equal(t, "unknown", Identify(42).Name)
}

func TestWithin(t *testing.T) {
	assert.True(t, Within("pkg.Run", "pkg.Run"))
	assert.True(t, Within("pkg.Run.func1", "pkg.Run"))
	assert.True(t, Within("pkg.Run.func1.2", "pkg.Run"))
	assert.False(t, Within("pkg.Runner", "pkg.Run"))
	assert.False(t, Within("pkg.helper", "pkg.Run"))
	assert.False(t, Within("pkg.Run", ""))
}

func TestInvokeCapturesPanic(t *testing.T) {
	o := Invoke(context.Background(), func(context.Context, int) (int, error) {
		panic("kaboom")
	}, 0)
	require.True(t, o.Panicked)
	assert.True(t, o.Failed())
	assert.Equal(t, "kaboom", o.Panic)
	assert.PanicsWithValue(t, "kaboom", func() { _, _ = o.Unwrap() })

	ok := Invoke(context.Background(), add, [2]int{2, 3})
	v, err := ok.Unwrap()
	require.NoError(t, err)
	assert.Equal(t, 5, v)
	assert.False(t, ok.Failed())
}

func TestFutureAwait(t *testing.T) {
	f := Go(context.Background(), func(context.Context) (string, error) {
		time.Sleep(5 * time.Millisecond)
		return "done", nil
	})
	v, err := f.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "done", v)

	boom := errors.New("boom")
	_, err = Resolved(0, boom).Await(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestFutureAwaitCancelled(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	f := Go(context.Background(), func(context.Context) (int, error) {
		<-release
		return 1, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.Await(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFuturePanicReRaised(t *testing.T) {
	f := Go(context.Background(), func(context.Context) (int, error) {
		panic("async boom")
	})
	<-f.Done()
	assert.PanicsWithValue(t, "async boom", func() { _, _ = f.Await(context.Background()) })
}
