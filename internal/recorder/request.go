// internal/recorder/request.go

// Package recorder turns inbound HTTP requests into replayable artifacts:
// a shell script of curl commands and a Postman collection.
package recorder

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// MaxBodySize caps how much of a request body is captured.
const MaxBodySize = 10 << 20

// HeaderField is one header line. Repeated headers give repeated fields.
type HeaderField struct {
	Key   string
	Value string
}

// QueryPair is one query parameter in the order it appeared.
type QueryPair struct {
	Key   string
	Value string
}

// Request is the recorded form of an inbound request.
type Request struct {
	Method      string
	URL         string
	Scheme      string
	Host        string
	Path        string
	Header      []HeaderField
	Query       []QueryPair
	Body        []byte
	ContentType string
}

// Recorder persists a captured request.
type Recorder interface {
	RecordRequest(req Request) error
}

// Capture copies what the recorders need from r. The body is read only when
// a Content-Type is present, and r.Body is replaced so handlers can still
// read it.
func Capture(r *http.Request) (Request, error) {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if p := r.Header.Get("X-Forwarded-Proto"); p != "" {
		scheme = p
	}
	host := r.Host
	if host == "" {
		host = r.URL.Host
	}

	req := Request{
		Method:      strings.ToUpper(r.Method),
		Scheme:      scheme,
		Host:        host,
		Path:        r.URL.EscapedPath(),
		Header:      headerFields(r.Header),
		Query:       queryPairs(r.URL.RawQuery),
		ContentType: r.Header.Get("Content-Type"),
	}
	if req.Path == "" {
		req.Path = "/"
	}
	req.URL = scheme + "://" + host + req.Path
	if r.URL.RawQuery != "" {
		req.URL += "?" + r.URL.RawQuery
	}

	if req.ContentType == "" || r.Body == nil || r.Body == http.NoBody {
		return req, nil
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxBodySize))
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil {
		return req, fmt.Errorf("read request body: %w", err)
	}
	req.Body = body
	return req, nil
}

func headerFields(h http.Header) []HeaderField {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []HeaderField
	for _, k := range keys {
		for _, v := range h[k] {
			out = append(out, HeaderField{Key: k, Value: v})
		}
	}
	return out
}

// queryPairs splits a raw query keeping order and duplicates. Pairs that
// fail to unescape are kept verbatim.
func queryPairs(raw string) []QueryPair {
	var out []QueryPair
	for _, part := range strings.Split(raw, "&") {
		if part == "" {
			continue
		}
		k, v, _ := strings.Cut(part, "=")
		if uk, err := url.QueryUnescape(k); err == nil {
			k = uk
		}
		if uv, err := url.QueryUnescape(v); err == nil {
			v = uv
		}
		out = append(out, QueryPair{Key: k, Value: v})
	}
	return out
}

// IsJSON reports whether the request declares a JSON body.
func (r Request) IsJSON() bool {
	return strings.Contains(strings.ToLower(r.ContentType), "application/json")
}

// IsForm reports whether the body is application/x-www-form-urlencoded.
func (r Request) IsForm() bool {
	return strings.HasPrefix(strings.ToLower(r.ContentType), "application/x-www-form-urlencoded")
}

// Segments splits the path into its non-empty elements.
func (r Request) Segments() []string {
	trimmed := strings.Trim(r.Path, "/")
	if trimmed == "" {
		return []string{}
	}
	return strings.Split(trimmed, "/")
}

func skipHeader(key string, deny ...string) bool {
	for _, d := range deny {
		if strings.EqualFold(key, d) {
			return true
		}
	}
	return false
}
