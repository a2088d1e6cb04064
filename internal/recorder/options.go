// internal/recorder/options.go
package recorder

import "time"

// Option configures a recorder.
type Option func(*settings)

type settings struct {
	dir   string
	group bool
	clock func() time.Time
}

// WithDir sets the output directory.
func WithDir(dir string) Option {
	return func(s *settings) { s.dir = dir }
}

// WithGroupMode chooses between appending every command to one script
// (true, the default) and rewriting the script on each request.
func WithGroupMode(group bool) Option {
	return func(s *settings) { s.group = group }
}

// WithClock replaces time.Now for generated timestamps.
func WithClock(clock func() time.Time) Option {
	return func(s *settings) { s.clock = clock }
}

func newSettings(dir string, opts []Option) settings {
	s := settings{dir: dir, group: true, clock: time.Now}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}
