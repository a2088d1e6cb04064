package server

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

const source = `package sample

import "context"

type acc struct{ n int }

func Sum(ctx context.Context, xs []int) int {
	total := 0
	for _, x := range xs {
		total += x
	}
	return total
}

func (a *acc) Add(ctx context.Context, by int) {
	a.n += by
}

func Plain(a int) int {
	b := a + 1
	return b
}
`

func writeSource(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sample.go"), []byte(source), 0o644))
	return dir
}

func call(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestFuncCode(t *testing.T) {
	dir := writeSource(t)
	h := New(nil)

	res, err := h.funcCode(context.Background(), call(map[string]any{
		"file": filepath.Join(dir, "sample.go"),
		"func": "Plain",
	}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, "func Plain(a int) int {\n\tb := a + 1\n\treturn b\n}", text(t, res))
}

func TestFuncCodeWithReceiver(t *testing.T) {
	dir := writeSource(t)
	h := New(nil)

	res, err := h.funcCode(context.Background(), call(map[string]any{
		"file":     filepath.Join(dir, "sample.go"),
		"func":     "acc.Add",
		"receiver": true,
	}))
	require.NoError(t, err)
	assert.Equal(t, "type acc struct{ n int }\n\nfunc (a *acc) Add(ctx context.Context, by int) {\n\ta.n += by\n}", text(t, res))
}

func TestMissingArguments(t *testing.T) {
	h := New(nil)

	res, err := h.assignments(context.Background(), call(map[string]any{"func": "Sum"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = h.instrument(context.Background(), call(map[string]any{"file": "nowhere.go", "func": "Sum"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "Failed to parse file")
}

func TestAssignmentsTool(t *testing.T) {
	dir := writeSource(t)
	h := New(nil)

	res, err := h.assignments(context.Background(), call(map[string]any{
		"project": dir,
		"file":    "sample.go",
		"func":    "Sum",
	}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	payload, err := json.Marshal(res.StructuredContent)
	require.NoError(t, err)
	assert.Equal(t, "Sum", gjson.GetBytes(payload, "function").String())
	assert.True(t, gjson.GetBytes(payload, "context").Bool())
	assert.Equal(t, `[8,9,10]`, gjson.GetBytes(payload, "assignments.#.line").Raw)
	assert.Equal(t, `["x"]`, gjson.GetBytes(payload, "assignments.1.names").Raw)
}

func TestInstrumentTool(t *testing.T) {
	dir := writeSource(t)
	h := New(nil)

	res, err := h.instrument(context.Background(), call(map[string]any{
		"project": dir,
		"file":    "sample.go",
		"func":    "Sum",
	}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	out := text(t, res)
	assert.Contains(t, out, `steely.TrackAt(ctx, 8, "total", total)`)
	assert.Contains(t, out, `steely.TrackAt(ctx, 9, "x", x)`)

	// The file on disk is left alone.
	raw, err := os.ReadFile(filepath.Join(dir, "sample.go"))
	require.NoError(t, err)
	assert.Equal(t, source, string(raw))

	res, err = h.instrument(context.Background(), call(map[string]any{
		"file": filepath.Join(dir, "sample.go"),
		"func": "Plain",
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "context.Context")
}

func TestInstrumentCustomImport(t *testing.T) {
	dir := writeSource(t)
	h := New(nil)

	res, err := h.instrument(context.Background(), call(map[string]any{
		"file":   filepath.Join(dir, "sample.go"),
		"func":   "Sum",
		"import": "example.com/kit/tap",
	}))
	require.NoError(t, err)
	out := text(t, res)
	assert.Contains(t, out, `tap "example.com/kit/tap"`)
	assert.Contains(t, out, `tap.TrackAt(ctx, 8, "total", total)`)
}

func TestToolsRegistered(t *testing.T) {
	s := NewMCPServer("test", nil)

	msg := s.HandleMessage(context.Background(), json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	raw, err := json.Marshal(msg)
	require.NoError(t, err)

	var names []string
	for _, n := range gjson.GetBytes(raw, "result.tools.#.name").Array() {
		names = append(names, n.String())
	}
	assert.ElementsMatch(t, []string{"func_code", "assignments", "instrument"}, names)
}
