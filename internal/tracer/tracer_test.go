package tracer

import (
	"errors"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `package sample

import "context"

type counter struct {
	n int
}

func Add(ctx context.Context, a, b int) int {
	c := a + b
	c++
	return c
}

func Loop(ctx context.Context, xs []int) int {
	var total int
	for i, x := range xs {
		total += x * i
	}
	for j := 0; j < 2; j++ {
		total -= j
	}
	_skip := 1
	_ = _skip
	f := func() int {
		inner := 3
		return inner
	}
	return total + f()
}

func (c *counter) Bump(ctx context.Context, by int) {
	switch {
	case by > 0:
		next := c.n + by
		c.n = next
	}
}

func NoContext(a int) int {
	b := a * 2
	return b
}
`

func parse(t *testing.T) (*token.FileSet, Target) {
	t.Helper()
	fset, file, err := ParseSource("sample.go", []byte(sample))
	require.NoError(t, err)
	target, err := Lookup(fset, file, "Loop")
	require.NoError(t, err)
	return fset, target
}

func TestLookup(t *testing.T) {
	fset, file, err := ParseSource("sample.go", []byte(sample))
	require.NoError(t, err)

	for _, name := range []string{"Add", "Bump", "counter.Bump"} {
		target, err := Lookup(fset, file, name)
		require.NoError(t, err, name)
		assert.NotNil(t, target.Fn)
	}

	_, err = Lookup(fset, file, "Missing")
	assert.True(t, errors.Is(err, ErrFuncNotFound))
}

func TestGetFuncCode(t *testing.T) {
	fset, file, err := ParseSource("sample.go", []byte(sample))
	require.NoError(t, err)
	target, err := Lookup(fset, file, "Add")
	require.NoError(t, err)

	code, err := GetFuncCode(target)
	require.NoError(t, err)
	assert.Equal(t, "func Add(ctx context.Context, a, b int) int {\n\tc := a + b\n\tc++\n\treturn c\n}", code)
}

func TestGetTypeCode(t *testing.T) {
	fset, file, err := ParseSource("sample.go", []byte(sample))
	require.NoError(t, err)

	bump, err := Lookup(fset, file, "Bump")
	require.NoError(t, err)
	code, err := GetTypeCode(bump)
	require.NoError(t, err)
	assert.Equal(t, "type counter struct {\n\tn int\n}", code)

	add, err := Lookup(fset, file, "Add")
	require.NoError(t, err)
	_, err = GetTypeCode(add)
	assert.Error(t, err)
}

func TestAssignments(t *testing.T) {
	_, target := parse(t)

	got := Assignments(target)
	assert.Equal(t, []Assignment{
		{Line: 16, Names: []string{"total"}},
		{Line: 17, Names: []string{"i", "x"}},
		{Line: 18, Names: []string{"total"}},
		{Line: 20, Names: []string{"j"}},
		{Line: 20, Names: []string{"j"}},
		{Line: 21, Names: []string{"total"}},
		{Line: 25, Names: []string{"f"}},
	}, got)
}

func TestInstrument(t *testing.T) {
	fset, file, err := ParseSource("sample.go", []byte(sample))
	require.NoError(t, err)

	out, err := Instrument(fset, file, "Loop")
	require.NoError(t, err)

	_, err = parser.ParseFile(token.NewFileSet(), "out.go", out, 0)
	require.NoError(t, err, out)

	assert.Contains(t, out, `steely "go-steely"`)
	assert.Contains(t, out, "var total int\n\tsteely.TrackAt(ctx, 16, \"total\", total)\n")
	assert.Contains(t, out, "for i, x := range xs {\n\t\tsteely.TrackAt(ctx, 17, \"i\", i, \"x\", x)\n\t\ttotal += x * i\n\t\tsteely.TrackAt(ctx, 18, \"total\", total)\n")
	assert.Contains(t, out, "for j := 0; j < 2; j++ {\n\t\tsteely.TrackAt(ctx, 20, \"j\", j)\n")
	assert.Contains(t, out, "steely.TrackAt(ctx, 25, \"f\", f)")
	assert.NotContains(t, out, `"_skip"`)
	assert.NotContains(t, out, `"inner"`)
	// Other functions are untouched.
	assert.Equal(t, 0, strings.Count(out, `"c", c`))
}

func TestInstrumentCaseBodyAndImport(t *testing.T) {
	fset, file, err := ParseSource("sample.go", []byte(sample))
	require.NoError(t, err)

	out, err := Instrument(fset, file, "Bump", WithImport(Import{Path: "example.com/tap", Name: "tap"}))
	require.NoError(t, err)
	assert.Contains(t, out, `tap "example.com/tap"`)
	assert.Contains(t, out, "next := c.n + by\n\t\ttap.TrackAt(ctx, 35, \"next\", next)\n")
	assert.NotContains(t, out, "steely")
}

const shadowing = `package sample

import (
	"context"
	"time"
)

func Rebind(ctx context.Context, n int) int {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if n > 0 {
		ctx := context.WithValue(ctx, "k", n)
		_ = ctx
	}
	return n
}

func Shadow(ctx context.Context, n int) int {
	if n > 0 {
		ctx := "x"
		n += len(ctx)
	}
	return n
}

func ShadowVar(ctx context.Context, n int) int {
	for ctx := range n {
		n += ctx
	}
	return n
}
`

func TestInstrumentRejectsShadowedContext(t *testing.T) {
	fset, file, err := ParseSource("shadow.go", []byte(shadowing))
	require.NoError(t, err)

	out, err := Instrument(fset, file, "Rebind")
	require.NoError(t, err)
	assert.Contains(t, out, `steely.TrackAt(ctx, 9, "ctx", ctx, "cancel", cancel)`)

	_, err = Instrument(fset, file, "Shadow")
	assert.ErrorIs(t, err, ErrContextShadowed)
	assert.Contains(t, err.Error(), "shadow.go:20")

	_, err = Instrument(fset, file, "ShadowVar")
	assert.ErrorIs(t, err, ErrContextShadowed)
}

func TestInstrumentRequiresContext(t *testing.T) {
	fset, file, err := ParseSource("sample.go", []byte(sample))
	require.NoError(t, err)

	_, err = Instrument(fset, file, "NoContext")
	assert.True(t, errors.Is(err, ErrNoContextParam))

	_, err = Instrument(fset, file, "Missing")
	assert.True(t, errors.Is(err, ErrFuncNotFound))
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.go")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	fset, file, err := ParseFile(path)
	require.NoError(t, err)
	_, err = Lookup(fset, file, "Add")
	assert.NoError(t, err)

	_, _, err = ParseFile(filepath.Join(t.TempDir(), "missing.go"))
	assert.Error(t, err)

	_, _, err = ParseSource("broken.go", []byte("package"))
	assert.Error(t, err)
}
