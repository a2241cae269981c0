package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
)

// EnvFile persists credentials as KEY=value lines. Writes keep every
// unrelated line in place.
type EnvFile struct {
	mu   sync.Mutex
	path string
}

// NewEnvFile returns a store backed by path.
func NewEnvFile(path string) *EnvFile {
	return &EnvFile{path: path}
}

// Path returns the backing file.
func (f *EnvFile) Path() string {
	return f.path
}

// Entry is one KEY=value line.
type Entry struct {
	Key   string
	Value string
}

// Upsert rewrites every line that sets one of the entry keys and appends,
// in the given order, the entries that had no line. Entries with an empty
// value are skipped.
func (f *EnvFile) Upsert(entries ...Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to read %s: %w", f.path, err)
	}

	var lines []string
	if len(data) > 0 {
		lines = strings.SplitAfter(string(data), "\n")
		if lines[len(lines)-1] == "" {
			lines = lines[:len(lines)-1]
		}
	}
	if n := len(lines); n > 0 && !strings.HasSuffix(lines[n-1], "\n") {
		lines[n-1] += "\n"
	}

	for _, e := range entries {
		if e.Value == "" {
			continue
		}
		replaced := false
		for i, line := range lines {
			if strings.HasPrefix(line, e.Key+"=") {
				lines[i] = e.Key + "=" + e.Value + "\n"
				replaced = true
			}
		}
		if !replaced {
			lines = append(lines, e.Key+"="+e.Value+"\n")
		}
	}

	if err := os.WriteFile(f.path, []byte(strings.Join(lines, "")), 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", f.path, err)
	}
	return nil
}
