package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/seckatie/linksaver/internal/core"
)

// Quota bounds the persisted document. Zero fields are unlimited.
type Quota struct {
	// Bytes bounds the total size: key lengths plus JSON value lengths.
	Bytes int
	// BytesPerItem bounds a single key plus its JSON value.
	BytesPerItem int
	// MaxItems bounds the number of top-level keys.
	MaxItems int
}

// SyncQuota mirrors the browser sync-storage limits.
var SyncQuota = Quota{
	Bytes:        core.SyncQuotaBytes,
	BytesPerItem: core.SyncQuotaBytesPerItem,
	MaxItems:     core.SyncMaxItems,
}

// Enabled reports whether any limit is set.
func (q Quota) Enabled() bool {
	return q.Bytes > 0 || q.BytesPerItem > 0 || q.MaxItems > 0
}

// Check returns ErrQuotaExceeded if doc breaks a limit.
func (q Quota) Check(doc Document) error {
	if q.MaxItems > 0 && len(doc) > q.MaxItems {
		return fmt.Errorf("%w: %d items, limit %d", ErrQuotaExceeded, len(doc), q.MaxItems)
	}
	total := 0
	for k, v := range doc {
		size := len(k) + len(v)
		if q.BytesPerItem > 0 && size > q.BytesPerItem {
			return fmt.Errorf("%w: key %q is %d bytes, limit %d", ErrQuotaExceeded, k, size, q.BytesPerItem)
		}
		total += size
	}
	if q.Bytes > 0 && total > q.Bytes {
		return fmt.Errorf("%w: document is %d bytes, limit %d", ErrQuotaExceeded, total, q.Bytes)
	}
	return nil
}

// QuotaGateway rejects writes that would leave the document over quota. The
// check reads the current document first, so it is advisory across processes
// in the same way the underlying write is last-writer-wins.
type QuotaGateway struct {
	inner Gateway
	quota Quota
}

// WithQuota wraps gw with q. A disabled quota returns gw unchanged.
func WithQuota(gw Gateway, q Quota) Gateway {
	if !q.Enabled() {
		return gw
	}
	return &QuotaGateway{inner: gw, quota: q}
}

func (g *QuotaGateway) Unwrap() Gateway {
	return g.inner
}

func (g *QuotaGateway) Get(ctx context.Context, keys ...string) (Document, error) {
	return g.inner.Get(ctx, keys...)
}

func (g *QuotaGateway) Set(ctx context.Context, patch Document) error {
	if err := g.check(ctx, patch); err != nil {
		return err
	}
	return g.inner.Set(ctx, patch)
}

func (g *QuotaGateway) CompareAndSet(ctx context.Context, key string, expected json.RawMessage, patch Document) error {
	s, ok := g.inner.(Swapper)
	if !ok {
		return fmt.Errorf("compare-and-set not supported by %T", g.inner)
	}
	if err := g.check(ctx, patch); err != nil {
		return err
	}
	return s.CompareAndSet(ctx, key, expected, patch)
}

func (g *QuotaGateway) Close() error {
	return g.inner.Close()
}

func (g *QuotaGateway) check(ctx context.Context, patch Document) error {
	doc, err := g.inner.Get(ctx)
	if err != nil {
		return err
	}
	applyPatch(doc, patch)
	return g.quota.Check(doc)
}
