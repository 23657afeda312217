package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/seckatie/linksaver/internal/core/db"
	"github.com/seckatie/linksaver/internal/core/store"
	"github.com/seckatie/linksaver/internal/core/tab"
)

// fakeResolver returns a fixed tab or error.
type fakeResolver struct {
	tab   tab.Tab
	err   error
	calls int
}

func (f *fakeResolver) Resolve(ctx context.Context, rawURL string) (tab.Tab, error) {
	f.calls++
	if f.err != nil {
		return tab.Tab{}, f.err
	}
	return f.tab, nil
}

// newTestStore creates a Store over gw, or over a fresh in-memory gateway.
func newTestStore(t *testing.T, gw db.Gateway) *store.Store {
	t.Helper()
	if gw == nil {
		gw = db.NewMemoryGateway()
	}
	s, err := store.New(gw)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return s
}

// newTestServer creates a new Server instance for testing.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	server, err := NewServer(newTestStore(t, nil), nil)
	if err != nil {
		t.Fatalf("failed to create test server: %v", err)
	}
	return server
}

// do sends a request through the full route table.
func do(t *testing.T, server *Server, method, target string, form url.Values, htmx bool) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)
	return w
}

func TestStartServerReturnsListenError(t *testing.T) {
	err := StartServer("127.0.0.1:-1", newTestStore(t, nil), nil)
	if err == nil {
		t.Fatal("expected an error for an invalid listen address")
	}
}

// TestNewServer tests server initialization.
func TestNewServer(t *testing.T) {
	t.Run("creates server successfully", func(t *testing.T) {
		s := newTestStore(t, nil)
		server, err := NewServer(s, &fakeResolver{})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if server.store != s {
			t.Error("expected store to be set")
		}
		if server.resolver == nil {
			t.Error("expected resolver to be set")
		}
		if server.templates == nil {
			t.Error("expected templates to be loaded")
		}
	})

	t.Run("loads all templates", func(t *testing.T) {
		server := newTestServer(t)
		for _, name := range []string{"index.html", "panel", "bookmarklet.html", "bookmarklet_add.html", "head", "foot"} {
			if server.templates.Lookup(name) == nil {
				t.Errorf("expected template %q to be loaded", name)
			}
		}
	})

	t.Run("serves static assets", func(t *testing.T) {
		server := newTestServer(t)
		w := do(t, server, http.MethodGet, "/static/style.css", nil, false)
		if w.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
		}
	})
}
