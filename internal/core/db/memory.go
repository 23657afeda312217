package db

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryGateway keeps the document in process memory. Values are copied on the
// way in and out, so callers never share state with the stored document.
type MemoryGateway struct {
	mu     sync.Mutex
	doc    Document
	closed bool
}

func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{doc: make(Document)}
}

func (m *MemoryGateway) Get(ctx context.Context, keys ...string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	return selectKeys(m.doc, keys), nil
}

func (m *MemoryGateway) Set(ctx context.Context, patch Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkPatch(patch); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	applyPatch(m.doc, patch)
	return nil
}

func (m *MemoryGateway) CompareAndSet(ctx context.Context, key string, expected json.RawMessage, patch Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkPatch(patch); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	current := m.doc[key]
	if !rawEqual(current, expected) {
		return &ConflictError{Key: key, Expected: string(expected), Current: string(current)}
	}
	applyPatch(m.doc, patch)
	return nil
}

func (m *MemoryGateway) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
