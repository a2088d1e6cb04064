// internal/recorder/curl.go
package recorder

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
)

// DefaultCurlDir is where scripts go when no directory is given.
const DefaultCurlDir = "./.curl_scripts"

var curlSkipHeaders = []string{"host", "content-length", "connection", "accept-encoding"}

// Curl appends one curl command per request to <dir>/<name>.sh.
type Curl struct {
	name string
	path string
	set  settings

	mu sync.Mutex
}

// NewCurl prepares the script, writing its header when the file does not
// exist yet or group mode is off.
func NewCurl(name string, opts ...Option) (*Curl, error) {
	set := newSettings(DefaultCurlDir, opts)
	c := &Curl{
		name: name,
		path: filepath.Join(set.dir, name+".sh"),
		set:  set,
	}
	if err := os.MkdirAll(set.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create curl script directory: %w", err)
	}
	if _, err := os.Stat(c.path); !set.group || os.IsNotExist(err) {
		if err := c.writeHeader(); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// ScriptPath returns the absolute path of the script.
func (c *Curl) ScriptPath() string {
	if abs, err := filepath.Abs(c.path); err == nil {
		return abs
	}
	return c.path
}

func (c *Curl) writeHeader() error {
	var b strings.Builder
	b.WriteString("#!/bin/bash\n")
	fmt.Fprintf(&b, "# Auto-generated curl commands for %s\n", c.name)
	fmt.Fprintf(&b, "# Generated: %s\n", c.set.clock().Format("2006-01-02 15:04:05"))
	b.WriteString("#\n")
	fmt.Fprintf(&b, "# Usage: bash %s\n", filepath.Base(c.path))
	b.WriteString("#\n\n")

	if err := os.WriteFile(c.path, []byte(b.String()), 0o755); err != nil {
		return fmt.Errorf("write curl script header: %w", err)
	}
	if err := os.Chmod(c.path, 0o755); err != nil {
		return fmt.Errorf("chmod curl script: %w", err)
	}
	return nil
}

// RecordRequest appends the command for req. Outside group mode the script
// is reset first so it only holds the latest request.
func (c *Curl) RecordRequest(req Request) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.set.group {
		if err := c.writeHeader(); err != nil {
			return err
		}
	}

	comment := fmt.Sprintf("%s %s - %s", req.Method, req.Path, c.set.clock().Format("2006-01-02 15:04:05"))
	cmd := FormatCurl(req, comment)

	f, err := os.OpenFile(c.path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0o755)
	if err != nil {
		return fmt.Errorf("open curl script: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString("\n" + cmd + "\n"); err != nil {
		return fmt.Errorf("append curl command: %w", err)
	}
	return nil
}

// FormatCurl renders req as a curl invocation, preceded by "# comment" when
// comment is set. Commands with more than three parts are split over
// several lines.
func FormatCurl(req Request, comment string) string {
	var lines []string
	if comment != "" {
		lines = append(lines, "# "+comment)
	}

	parts := []string{"curl"}
	if req.Method != "" && req.Method != "GET" {
		parts = append(parts, "-X "+req.Method)
	}
	parts = append(parts, shellQuote(req.URL))
	for _, h := range req.Header {
		if skipHeader(h.Key, curlSkipHeaders...) {
			continue
		}
		parts = append(parts, "-H "+shellQuote(h.Key+": "+h.Value))
	}
	if body, ok := curlBody(req); ok {
		parts = append(parts, "-d "+shellQuote(body))
	}

	if len(parts) <= 3 {
		lines = append(lines, strings.Join(parts, " "))
		return strings.Join(lines, "\n")
	}
	lines = append(lines, parts[0]+` \`)
	for _, p := range parts[1 : len(parts)-1] {
		lines = append(lines, "  "+p+` \`)
	}
	lines = append(lines, "  "+parts[len(parts)-1])
	return strings.Join(lines, "\n")
}

// shellQuote wraps s in single quotes so bash expands nothing inside it.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// curlBody returns the -d payload: compacted JSON, or the raw text of any
// other declared body. Form bodies are left out.
func curlBody(req Request) (string, bool) {
	if len(req.Body) == 0 || req.ContentType == "" || req.IsForm() {
		return "", false
	}
	if req.IsJSON() && gjson.ValidBytes(req.Body) {
		return string(pretty.Ugly(req.Body)), true
	}
	return string(req.Body), true
}
