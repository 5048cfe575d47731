// Package audit writes one-line JSON audit entries for the operations that
// mutate products or touch the marketplace. Session cookies and tokens are
// never written; values under sensitive keys are redacted.
package audit

import (
	"encoding/json"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

const redacted = "[REDACTED]"

var sensitiveKeys = []string{"cookie", "token", "authorization", "password", "secret", "session"}

type entry struct {
	TS     string         `json:"ts"`
	Level  string         `json:"level"`
	Action string         `json:"action"`
	UserID string         `json:"user_id,omitempty"`
	Err    string         `json:"err,omitempty"`
	Fields map[string]any `json:"fields,omitempty"`
}

// Logger emits structured audit entries to a writer, stderr by default.
type Logger struct {
	mu  sync.Mutex
	out io.Writer
}

// New creates a Logger writing to out; nil means stderr.
func New(out io.Writer) *Logger {
	if out == nil {
		out = os.Stderr
	}
	return &Logger{out: out}
}

// Record writes an info-level audit entry.
func (l *Logger) Record(action, userID string, fields map[string]any) {
	l.write("audit", action, userID, nil, fields)
}

// Error writes an error-level audit entry.
func (l *Logger) Error(action, userID string, err error, fields map[string]any) {
	l.write("error", action, userID, err, fields)
}

func (l *Logger) write(level, action, userID string, err error, fields map[string]any) {
	e := entry{
		TS:     time.Now().UTC().Format(time.RFC3339),
		Level:  level,
		Action: action,
		UserID: userID,
		Fields: Sanitize(fields),
	}
	if err != nil {
		e.Err = err.Error()
	}

	b, merr := json.Marshal(e)
	if merr != nil {
		log.Printf("audit: marshal entry: %v", merr)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.out.Write(append(b, '\n'))
}

// Sanitize returns a copy of fields with values under sensitive keys
// replaced. Nested maps are sanitized recursively.
func Sanitize(fields map[string]any) map[string]any {
	if fields == nil {
		return nil
	}
	clean := make(map[string]any, len(fields))
	for k, v := range fields {
		if isSensitive(k) {
			clean[k] = redacted
			continue
		}
		if nested, ok := v.(map[string]any); ok {
			clean[k] = Sanitize(nested)
			continue
		}
		clean[k] = v
	}
	return clean
}

func isSensitive(key string) bool {
	lower := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}
