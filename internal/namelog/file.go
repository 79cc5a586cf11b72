package namelog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
)

// File keeps the name log in a flat JSON array on disk. The file holds the
// deduplicated set; the full append history lives only in memory for the
// lifetime of the process.
type File struct {
	path string

	mu    sync.Mutex
	names []string
}

// OpenFile loads an existing log if present. A missing file is an empty log.
func OpenFile(path string) (*File, error) {
	f := &File{path: path}
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return f, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, &f.names); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return f, nil
}

func (f *File) Append(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.names = append(f.names, name)
	return f.save()
}

// save writes the deduplicated set, lock held by caller.
func (f *File) save() error {
	b, err := json.MarshalIndent(distinct(f.names, 0), "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(f.path, b, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", f.path, err)
	}
	return nil
}

func (f *File) Distinct(_ context.Context, limit int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return distinct(f.names, limit), nil
}

func (f *File) Close() error { return nil }
