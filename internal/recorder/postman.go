// internal/recorder/postman.go
package recorder

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
)

const (
	// DefaultPostmanDir is where collections go when no directory is given.
	DefaultPostmanDir = "./.postman_collections"
	// SchemaURL identifies the Postman collection format written.
	SchemaURL = "https://schema.getpostman.com/json/collection/v2.1.0/collection.json"
)

var postmanSkipHeaders = []string{"host", "content-length"}

// Collection is a Postman v2.1 collection.
type Collection struct {
	Info CollectionInfo `json:"info"`
	Item []Item         `json:"item"`
}

type CollectionInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Schema      string `json:"schema"`
	PostmanID   string `json:"_postman_id"`
}

// Item is one saved request. Response is always present, usually empty.
type Item struct {
	Name     string            `json:"name"`
	Request  ItemRequest       `json:"request"`
	Response []json.RawMessage `json:"response"`
}

type ItemRequest struct {
	Method string       `json:"method"`
	Header []ItemHeader `json:"header"`
	URL    ItemURL      `json:"url"`
	Body   *ItemBody    `json:"body,omitempty"`
}

type ItemHeader struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	Type  string `json:"type"`
}

type ItemURL struct {
	Raw      string      `json:"raw"`
	Protocol string      `json:"protocol"`
	Host     []string    `json:"host"`
	Path     []string    `json:"path"`
	Query    []ItemQuery `json:"query"`
}

type ItemQuery struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type ItemBody struct {
	Mode    string           `json:"mode"`
	Raw     string           `json:"raw"`
	Options *ItemBodyOptions `json:"options,omitempty"`
}

type ItemBodyOptions struct {
	Raw struct {
		Language string `json:"language"`
	} `json:"raw"`
}

// Postman keeps <dir>/<name>.json up to date with one item per method and
// path.
type Postman struct {
	path string
	set  settings

	mu   sync.Mutex
	coll Collection
}

// NewPostman loads the collection file if it exists or starts a new one.
func NewPostman(name string, opts ...Option) (*Postman, error) {
	set := newSettings(DefaultPostmanDir, opts)
	p := &Postman{path: filepath.Join(set.dir, name+".json"), set: set}
	if err := os.MkdirAll(set.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create collection directory: %w", err)
	}

	data, err := os.ReadFile(p.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		p.coll = Collection{
			Info: CollectionInfo{
				Name:        name,
				Description: "Auto-generated collection for " + name,
				Schema:      SchemaURL,
				PostmanID:   uuid.NewString(),
			},
			Item: []Item{},
		}
	case err != nil:
		return nil, fmt.Errorf("read collection: %w", err)
	default:
		if err := json.Unmarshal(data, &p.coll); err != nil {
			return nil, fmt.Errorf("parse collection %s: %w", p.path, err)
		}
	}
	return p, nil
}

// CollectionPath returns the file the collection is saved to.
func (p *Postman) CollectionPath() string { return p.path }

// Collection returns a copy of the current collection.
func (p *Postman) Collection() Collection {
	p.mu.Lock()
	defer p.mu.Unlock()
	c := p.coll
	c.Item = append([]Item(nil), p.coll.Item...)
	return c
}

// RecordRequest upserts the item for req and saves the collection.
func (p *Postman) RecordRequest(req Request) error {
	item := BuildItem(req)

	p.mu.Lock()
	defer p.mu.Unlock()

	replaced := false
	for i := range p.coll.Item {
		if p.coll.Item[i].Name == item.Name {
			item.Response = append(item.Response, p.coll.Item[i].Response...)
			p.coll.Item[i] = item
			replaced = true
			break
		}
	}
	if !replaced {
		p.coll.Item = append(p.coll.Item, item)
	}

	data, err := json.MarshalIndent(p.coll, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal collection: %w", err)
	}
	return writeFileAtomic(p.path, data)
}

// BuildItem converts req into a collection item named "<METHOD> <path>".
func BuildItem(req Request) Item {
	item := Item{
		Name: req.Method + " " + req.Path,
		Request: ItemRequest{
			Method: req.Method,
			Header: []ItemHeader{},
			URL: ItemURL{
				Raw:      req.URL,
				Protocol: req.Scheme,
				Host:     []string{req.Host},
				Path:     req.Segments(),
				Query:    []ItemQuery{},
			},
		},
		Response: []json.RawMessage{},
	}
	if item.Request.URL.Protocol == "" {
		item.Request.URL.Protocol = "http"
	}
	if req.Host == "" {
		item.Request.URL.Host = []string{"localhost"}
	}
	for _, h := range req.Header {
		if skipHeader(h.Key, postmanSkipHeaders...) {
			continue
		}
		item.Request.Header = append(item.Request.Header, ItemHeader{Key: h.Key, Value: h.Value, Type: "text"})
	}
	for _, q := range req.Query {
		item.Request.URL.Query = append(item.Request.URL.Query, ItemQuery{Key: q.Key, Value: q.Value})
	}

	if len(req.Body) > 0 && req.ContentType != "" {
		if req.IsJSON() && gjson.ValidBytes(req.Body) {
			opts := &ItemBodyOptions{}
			opts.Raw.Language = "json"
			item.Request.Body = &ItemBody{
				Mode:    "raw",
				Raw:     strings.TrimRight(string(pretty.Pretty(req.Body)), "\n"),
				Options: opts,
			}
		} else {
			item.Request.Body = &ItemBody{Mode: "raw", Raw: string(req.Body)}
		}
	}
	return item
}

// writeFileAtomic replaces path with data via a synced temp file in the
// same directory.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("fsync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
