// internal/demo/api.go
package demo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"go-steely/internal/cronos"
	"go-steely/internal/logger"
	"go-steely/internal/logging"
	"go-steely/internal/recorder"
)

var (
	ErrNotFound    = errors.New("item not found")
	ErrInvalidItem = errors.New("invalid item")
)

// Item is the resource served by the demo API.
type Item struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// ItemStore persists items for the API.
type ItemStore interface {
	Get(ctx context.Context, id string) (Item, error)
	Put(ctx context.Context, item Item) (Item, error)
	List(ctx context.Context, _ struct{}) ([]Item, error)
}

// Store keeps items in memory.
type Store struct {
	mu    sync.RWMutex
	items map[string]Item
}

func NewStore() *Store {
	return &Store{items: make(map[string]Item)}
}

func (s *Store) Get(_ context.Context, id string) (Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.items[id]
	if !ok {
		return Item{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return it, nil
}

// Put stores item, assigning an ID when it has none.
func (s *Store) Put(_ context.Context, item Item) (Item, error) {
	item, err := normalize(item)
	if err != nil {
		return Item{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[item.ID] = item
	return item, nil
}

// List returns every item ordered by ID.
func (s *Store) List(_ context.Context, _ struct{}) ([]Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Item, 0, len(s.items))
	for _, it := range s.items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// normalize validates item and assigns an ID when it has none.
func normalize(item Item) (Item, error) {
	item.Name = strings.TrimSpace(item.Name)
	if item.Name == "" {
		return Item{}, fmt.Errorf("%w: name is required", ErrInvalidItem)
	}
	if item.Price < 0 {
		return Item{}, fmt.Errorf("%w: negative price", ErrInvalidItem)
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	return item, nil
}

// APIConfig wires the demo API's supporting pieces.
type APIConfig struct {
	// Recorders receive every request before it is handled.
	Recorders []recorder.Recorder
	// Registry exposes call durations on /metrics when set.
	Registry *prometheus.Registry
	// Logger configures the timing lines of each handler.
	Logger []logger.Option
	Log    *slog.Logger
}

type api struct {
	get  func(context.Context, string) (Item, error)
	put  func(context.Context, Item) (Item, error)
	list func(context.Context, struct{}) ([]Item, error)
	log  *slog.Logger
}

// NewHandler returns the demo router.
func NewHandler(store ItemStore, cfg APIConfig) http.Handler {
	if cfg.Log == nil {
		cfg.Log = logging.NewNop()
	}
	opts := []cronos.Option{cronos.WithLoggerOptions(cfg.Logger...)}

	r := chi.NewRouter()
	if cfg.Registry != nil {
		h := cronos.NewDurationHistogram("steely")
		cfg.Registry.MustRegister(h)
		opts = append(opts, cronos.WithObserver(cronos.PrometheusObserver(h)))
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}))
	}

	named := func(name string) []cronos.Option {
		return append(slices.Clip(opts), cronos.WithName(name))
	}
	a := &api{
		get:  cronos.Wrap(store.Get, named("GetItem")...),
		put:  cronos.Wrap(store.Put, named("PutItem")...),
		list: cronos.Wrap(store.List, named("ListItems")...),
		log:  cfg.Log,
	}

	r.Group(func(r chi.Router) {
		r.Use(recorder.Middleware(cfg.Log, cfg.Recorders...))
		r.Get("/health", a.health)
		r.Get("/items", a.listItems)
		r.Get("/items/{id}", a.getItem)
		r.Post("/items", a.createItem)
	})
	return r
}

func (a *api) health(w http.ResponseWriter, r *http.Request) {
	a.write(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *api) listItems(w http.ResponseWriter, r *http.Request) {
	items, err := a.list(r.Context(), struct{}{})
	if err != nil {
		a.fail(w, err)
		return
	}
	a.write(w, http.StatusOK, items)
}

func (a *api) getItem(w http.ResponseWriter, r *http.Request) {
	it, err := a.get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, err)
		return
	}
	a.write(w, http.StatusOK, it)
}

func (a *api) createItem(w http.ResponseWriter, r *http.Request) {
	var body Item
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		a.fail(w, fmt.Errorf("%w: %v", ErrInvalidItem, err))
		return
	}
	it, err := a.put(r.Context(), body)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.write(w, http.StatusCreated, it)
}

func (a *api) fail(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrInvalidItem):
		status = http.StatusBadRequest
	}
	a.write(w, status, map[string]string{"error": err.Error()})
}

func (a *api) write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.log.Debug("encode response", "err", err)
	}
}
