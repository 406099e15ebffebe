package policysource

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/riskibarqy/faultline/internal/domain/faultpolicy"
)

func TestHTTPSource_Load(t *testing.T) {
	var gotAuth atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(jsonPolicy))
	}))
	defer srv.Close()

	src, err := NewHTTPSource(HTTPSourceConfig{URL: srv.URL, BearerToken: "secret"}, nil)
	if err != nil {
		t.Fatalf("new http source: %v", err)
	}

	policy, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	assertLoadedPolicy(t, policy)

	if gotAuth.Load() != "Bearer secret" {
		t.Fatalf("expected bearer token, got %v", gotAuth.Load())
	}
}

func TestHTTPSource_LoadNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	src, err := NewHTTPSource(HTTPSourceConfig{URL: srv.URL}, nil)
	if err != nil {
		t.Fatalf("new http source: %v", err)
	}

	if _, err := src.Load(context.Background()); err == nil {
		t.Fatal("expected status error surfaced")
	}
}

func TestHTTPSource_WatchFiresOnBodyChange(t *testing.T) {
	var body atomic.Value
	body.Store(jsonPolicy)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body.Load().(string)))
	}))
	defer srv.Close()

	src, err := NewHTTPSource(HTTPSourceConfig{URL: srv.URL, PollInterval: 10 * time.Millisecond}, nil)
	if err != nil {
		t.Fatalf("new http source: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	changed := make(chan faultpolicy.Policy, 1)
	done := make(chan error, 1)
	go func() {
		done <- src.Watch(ctx, func(p faultpolicy.Policy) {
			select {
			case changed <- p:
			default:
			}
		})
	}()

	body.Store(`{"engine": {"evalInterval": "3s"}}`)

	select {
	case p := <-changed:
		if p.EvalInterval() != 3*time.Second {
			t.Fatalf("expected changed policy, got %+v", p.Engine)
		}
	case <-ctx.Done():
		t.Fatal("watch never fired on body change")
	}

	cancel()
	if err := <-done; err != context.Canceled {
		t.Fatalf("expected canceled watch, got %v", err)
	}
}

func TestNewHTTPSource_Validation(t *testing.T) {
	if _, err := NewHTTPSource(HTTPSourceConfig{URL: ""}, nil); err == nil {
		t.Fatal("expected empty url rejected")
	}
	if _, err := NewHTTPSource(HTTPSourceConfig{URL: "redis://policy"}, nil); err == nil {
		t.Fatal("expected non-http url rejected")
	}
}
