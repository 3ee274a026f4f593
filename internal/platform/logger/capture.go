package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"sync"
)

// Capture records JSON log lines so tests can assert on them. It is safe
// for concurrent writers.
type Capture struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

// NewCapture returns a debug-level JSON logger that writes into a new
// Capture. The default slog logger is left untouched.
func NewCapture() (*slog.Logger, *Capture) {
	c := &Capture{}
	return slog.New(slog.NewJSONHandler(c, &slog.HandlerOptions{Level: slog.LevelDebug})), c
}

// Write implements io.Writer.
func (c *Capture) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Write(p)
}

// String returns everything written so far.
func (c *Capture) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.String()
}

// Entries decodes the captured lines. Lines that are not JSON objects are
// skipped.
func (c *Capture) Entries() []map[string]any {
	var entries []map[string]any
	for _, line := range bytes.Split([]byte(c.String()), []byte("\n")) {
		var entry map[string]any
		if len(bytes.TrimSpace(line)) == 0 || json.Unmarshal(line, &entry) != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries
}

// Find returns the first entry logged with message msg.
func (c *Capture) Find(msg string) (map[string]any, bool) {
	for _, entry := range c.Entries() {
		if entry[slog.MessageKey] == msg {
			return entry, true
		}
	}
	return nil, false
}
