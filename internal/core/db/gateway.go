package db

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrQuotaExceeded is returned when a write would push the document past
	// the configured storage quota.
	ErrQuotaExceeded = errors.New("storage quota exceeded")
	// ErrRevisionConflict is returned by CompareAndSet when the compared key
	// changed since it was read.
	ErrRevisionConflict = errors.New("revision conflict")
	// ErrUnsupportedDSN is returned by Open for DSNs no backend understands.
	ErrUnsupportedDSN = errors.New("unsupported DSN")
	// ErrClosed is returned by operations on a closed gateway.
	ErrClosed = errors.New("gateway closed")
)

// Document is a partial view of the persisted document: top-level key to raw
// JSON value. In a patch passed to Set, a nil value removes the key.
type Document map[string]json.RawMessage

// Gateway is the read/write contract against the persisted document. There is
// no atomic read-modify-write in this contract: a caller that reads, changes
// and writes back races every other writer, and the later Set wins.
type Gateway interface {
	// Get returns the requested keys that are present. With no keys it
	// returns the whole document.
	Get(ctx context.Context, keys ...string) (Document, error)
	// Set merges patch into the document in one all-or-nothing write.
	Set(ctx context.Context, patch Document) error
	Close() error
}

// Swapper is implemented by gateways able to make a write conditional on the
// current value of one key.
type Swapper interface {
	// CompareAndSet applies patch only if the stored value of key equals
	// expected (nil meaning absent). Otherwise it returns a *ConflictError.
	CompareAndSet(ctx context.Context, key string, expected json.RawMessage, patch Document) error
}

// ConflictError describes a failed CompareAndSet.
type ConflictError struct {
	Key      string
	Expected string
	Current  string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("revision conflict on %q: expected %s, found %s", e.Key, orAbsent(e.Expected), orAbsent(e.Current))
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrRevisionConflict
}

func orAbsent(s string) string {
	if s == "" {
		return "<absent>"
	}
	return s
}

// AsSwapper reports whether gw supports CompareAndSet all the way down to
// its backing store.
func AsSwapper(gw Gateway) (Swapper, bool) {
	if u, ok := gw.(interface{ Unwrap() Gateway }); ok {
		if _, ok := AsSwapper(u.Unwrap()); !ok {
			return nil, false
		}
	}
	s, ok := gw.(Swapper)
	return s, ok
}

// PathOf returns the filesystem path backing gw, if any.
func PathOf(gw Gateway) (string, bool) {
	if p, ok := gw.(interface{ Path() string }); ok && p.Path() != "" {
		return p.Path(), true
	}
	if u, ok := gw.(interface{ Unwrap() Gateway }); ok {
		return PathOf(u.Unwrap())
	}
	return "", false
}

// applyPatch merges patch into doc in place.
func applyPatch(doc Document, patch Document) {
	for k, v := range patch {
		if v == nil {
			delete(doc, k)
			continue
		}
		doc[k] = cloneRaw(v)
	}
}

// selectKeys copies the requested keys out of doc. No keys selects all.
func selectKeys(doc Document, keys []string) Document {
	out := make(Document)
	if len(keys) == 0 {
		for k, v := range doc {
			out[k] = cloneRaw(v)
		}
		return out
	}
	for _, k := range keys {
		if v, ok := doc[k]; ok {
			out[k] = cloneRaw(v)
		}
	}
	return out
}

func cloneRaw(v json.RawMessage) json.RawMessage {
	if v == nil {
		return nil
	}
	cp := make(json.RawMessage, len(v))
	copy(cp, v)
	return cp
}

// rawEqual compares two JSON values ignoring insignificant whitespace.
func rawEqual(a, b json.RawMessage) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	var ca, cb bytes.Buffer
	if err := json.Compact(&ca, a); err != nil {
		return bytes.Equal(a, b)
	}
	if err := json.Compact(&cb, b); err != nil {
		return bytes.Equal(a, b)
	}
	return bytes.Equal(ca.Bytes(), cb.Bytes())
}

func checkPatch(patch Document) error {
	for k, v := range patch {
		if k == "" {
			return fmt.Errorf("empty key in patch")
		}
		if v != nil && !json.Valid(v) {
			return fmt.Errorf("invalid JSON value for key %q", k)
		}
	}
	return nil
}
