package db

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestQuotaCheck(t *testing.T) {
	tests := []struct {
		name    string
		quota   Quota
		doc     Document
		wantErr bool
	}{
		{
			name:  "disabled quota accepts anything",
			quota: Quota{},
			doc:   Document{"a": json.RawMessage(`"` + strings.Repeat("x", 100000) + `"`)},
		},
		{
			name:    "per item limit",
			quota:   Quota{BytesPerItem: 10},
			doc:     Document{"categories": json.RawMessage(`{"Unsorted":[]}`)},
			wantErr: true,
		},
		{
			name:    "total limit",
			quota:   Quota{Bytes: 5},
			doc:     Document{"a": json.RawMessage(`1`), "b": json.RawMessage(`22`), "c": json.RawMessage(`3`)},
			wantErr: true,
		},
		{
			name:    "item count limit",
			quota:   Quota{MaxItems: 1},
			doc:     Document{"a": json.RawMessage(`1`), "b": json.RawMessage(`2`)},
			wantErr: true,
		},
		{
			name:  "within limits",
			quota: SyncQuota,
			doc:   Document{"categories": json.RawMessage(`{"Unsorted":[]}`)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.quota.Check(tt.doc)
			if tt.wantErr && !errors.Is(err, ErrQuotaExceeded) {
				t.Errorf("expected ErrQuotaExceeded, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		})
	}
}

func TestQuotaGateway(t *testing.T) {
	ctx := context.Background()
	inner := NewMemoryGateway()
	gw := WithQuota(inner, Quota{BytesPerItem: 32})

	if err := gw.Set(ctx, Document{"categories": json.RawMessage(`{"Unsorted":[]}`)}); err != nil {
		t.Fatalf("expected small write to succeed, got %v", err)
	}

	big := json.RawMessage(`{"Unsorted":[{"url":"http://example.com/very/long"}]}`)
	err := gw.Set(ctx, Document{"categories": big})
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}

	doc, _ := inner.Get(ctx, "categories")
	if !rawEqual(doc["categories"], json.RawMessage(`{"Unsorted":[]}`)) {
		t.Errorf("rejected write must leave document unchanged, got %s", doc["categories"])
	}

	t.Run("compare-and-set is checked too", func(t *testing.T) {
		s, ok := AsSwapper(gw)
		if !ok {
			t.Fatal("expected quota wrapper over memory gateway to swap")
		}
		err := s.CompareAndSet(ctx, "revision", nil, Document{"categories": big})
		if !errors.Is(err, ErrQuotaExceeded) {
			t.Errorf("expected ErrQuotaExceeded, got %v", err)
		}
	})

	t.Run("disabled quota returns the gateway itself", func(t *testing.T) {
		if WithQuota(inner, Quota{}) != Gateway(inner) {
			t.Error("expected unwrapped gateway")
		}
	})
}
