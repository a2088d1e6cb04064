package demo

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/muesli/termenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"go-steely/internal/design"
	"go-steely/internal/logger"
	"go-steely/internal/recorder"
)

// syncBuffer is shared by the scan printer and the log dispatcher.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func startDispatcher(t *testing.T) *logger.Dispatcher {
	t.Helper()
	d := logger.NewDispatcher()
	require.NoError(t, d.Start())
	t.Cleanup(func() { _ = d.Stop(context.Background()) })
	return d
}

func TestRunPrintsEverySample(t *testing.T) {
	var out syncBuffer
	d := startDispatcher(t)

	err := Run(context.Background(), Options{
		Out:     &out,
		Palette: []design.Option{design.WithProfile(termenv.Ascii)},
		Logger:  []logger.Option{logger.WithDispatcher(d)},
	})
	require.NoError(t, err)
	require.NoError(t, d.Stop(context.Background()))

	text := out.String()
	for _, want := range []string{
		"│ ⚡ SCAN │ add @ demo\n",
		"◈ c : int = 5\n",
		"→ c : int 5 → 10\n",
		"│ ⚡ SCAN │ fibonacci @ demo\n",
		"│   ◈ n : int = 6\n",
		"│ Local Variables:\n",
		"│ ⟼ return : list[6] = [0, 1, 1, 2, 3, 5]\n",
		"│ ✗ Exception : errors.errorString - division by zero\n",
		"│ ⚡ SCAN │ fetchPrice @ demo\n",
		"◈ price : float = 11.25\n",
		"[DEMO] [START]: running samples",
		"[DIVIDE] [ERROR]: Function Failed: division by zero",
		"[DEMO] [ASYNC] [INFO]: price resolved: 11.25",
		"[CHECKSUM] [*-CRONOS-*] [TEST-RESULT]: Total Time Elapsed: ",
		"[DEMO] [SUCCESS]: samples done",
	} {
		assert.Contains(t, text, want)
	}
	assert.NotContains(t, text, "_raw")
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	_, err := s.Put(ctx, Item{Name: "  "})
	assert.ErrorIs(t, err, ErrInvalidItem)
	_, err = s.Put(ctx, Item{Name: "nut", Price: -1})
	assert.ErrorIs(t, err, ErrInvalidItem)

	it, err := s.Put(ctx, Item{Name: " nut ", Price: 0.1})
	require.NoError(t, err)
	assert.NotEmpty(t, it.ID)
	assert.Equal(t, "nut", it.Name)

	got, err := s.Get(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, it, got)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Put(ctx, Item{ID: "a", Name: "bolt"})
	require.NoError(t, err)
	all, err := s.List(ctx, struct{}{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].ID)
}

type apiFixture struct {
	srv     *httptest.Server
	curl    *recorder.Curl
	postman *recorder.Postman
	logs    *syncBuffer
	disp    *logger.Dispatcher
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	return newAPIWith(t, NewStore())
}

func newAPIWith(t *testing.T, store ItemStore) *apiFixture {
	t.Helper()
	dir := t.TempDir()
	curl, err := recorder.NewCurl("api", recorder.WithDir(dir))
	require.NoError(t, err)
	postman, err := recorder.NewPostman("api", recorder.WithDir(dir))
	require.NoError(t, err)

	f := &apiFixture{curl: curl, postman: postman, logs: &syncBuffer{}, disp: startDispatcher(t)}
	h := NewHandler(store, APIConfig{
		Recorders: []recorder.Recorder{curl, postman},
		Registry:  prometheus.NewRegistry(),
		Logger: []logger.Option{
			logger.WithOutput(f.logs, design.WithProfile(termenv.Ascii)),
			logger.WithDispatcher(f.disp),
		},
	})
	f.srv = httptest.NewServer(h)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *apiFixture) do(t *testing.T, method, path, body string) (int, []byte) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, f.srv.URL+path, rd)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func TestAPIRoutes(t *testing.T) {
	f := newAPI(t)

	status, body := f.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", gjson.GetBytes(body, "status").String())

	status, body = f.do(t, http.MethodPost, "/items", `{"name":"bolt","price":0.5}`)
	require.Equal(t, http.StatusCreated, status)
	id := gjson.GetBytes(body, "id").String()
	require.NotEmpty(t, id)

	status, body = f.do(t, http.MethodGet, "/items/"+id, "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "bolt", gjson.GetBytes(body, "name").String())
	assert.Equal(t, 0.5, gjson.GetBytes(body, "price").Float())

	status, body = f.do(t, http.MethodGet, "/items", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(1), gjson.GetBytes(body, "#").Int())

	status, body = f.do(t, http.MethodGet, "/items/nope", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, gjson.GetBytes(body, "error").String(), "item not found")

	status, _ = f.do(t, http.MethodPost, "/items", `{"name":""}`)
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = f.do(t, http.MethodPost, "/items", `not json`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAPIMetrics(t *testing.T) {
	f := newAPI(t)
	f.do(t, http.MethodGet, "/items/nope", "")
	f.do(t, http.MethodPost, "/items", `{"name":"bolt"}`)

	status, body := f.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, status)
	text := string(body)
	assert.Contains(t, text, `steely_function_duration_seconds_count{function="GetItem",outcome="error"} 1`)
	assert.Contains(t, text, `steely_function_duration_seconds_count{function="PutItem",outcome="ok"} 1`)
}

func TestAPIRecordsRequests(t *testing.T) {
	f := newAPI(t)
	f.do(t, http.MethodGet, "/health", "")
	f.do(t, http.MethodPost, "/items", `{"name":"bolt"}`)
	f.do(t, http.MethodPost, "/items", `{"name":"nut"}`)
	f.do(t, http.MethodGet, "/metrics", "")

	script, err := os.ReadFile(f.curl.ScriptPath())
	require.NoError(t, err)
	assert.Contains(t, string(script), "# GET /health - ")
	assert.Equal(t, 2, strings.Count(string(script), "-X POST"))
	assert.NotContains(t, string(script), "/metrics")

	var names []string
	for _, it := range f.postman.Collection().Item {
		names = append(names, it.Name)
	}
	assert.Equal(t, []string{"GET /health", "POST /items"}, names)
	assert.Contains(t, f.postman.Collection().Item[1].Request.Body.Raw, `"nut"`)
}

func TestAPITimingLines(t *testing.T) {
	f := newAPI(t)
	f.do(t, http.MethodGet, "/items/nope", "")
	require.NoError(t, f.disp.Stop(context.Background()))
	assert.Contains(t, f.logs.String(), "[GETITEM] [*-CRONOS-*] [TEST-RESULT]: Total Time Elapsed: ")
}
