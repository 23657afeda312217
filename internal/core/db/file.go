package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileGateway stores the whole document as one JSON object in a file. Writes
// go through a temp file and a rename so readers never see a torn document.
//
// The mutex only orders writers inside this process. Other processes writing
// the same file race with this one and the last rename wins.
type FileGateway struct {
	path string
	mu   sync.Mutex
}

func NewFileGateway(path string) (*FileGateway, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("%w: empty file path", ErrUnsupportedDSN)
	}
	return &FileGateway{path: path}, nil
}

// Path returns the document file path.
func (f *FileGateway) Path() string {
	return f.path
}

func (f *FileGateway) Get(ctx context.Context, keys ...string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := f.load()
	if err != nil {
		return nil, err
	}
	return selectKeys(doc, keys), nil
}

func (f *FileGateway) Set(ctx context.Context, patch Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkPatch(patch); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.load()
	if err != nil {
		return err
	}
	applyPatch(doc, patch)
	return f.save(doc)
}

func (f *FileGateway) Close() error {
	return nil
}

func (f *FileGateway) load() (Document, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return make(Document), nil
		}
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	doc := make(Document)
	if len(strings.TrimSpace(string(data))) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document %s: %w", f.path, err)
	}
	return doc, nil
}

func (f *FileGateway) save(doc Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create document directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".linksaver-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace document: %w", err)
	}
	return nil
}
