package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestEvaluate_FailingDepMarksRootUnhealthy(t *testing.T) {
	root := NewReadyGraph()
	root.Add("metrics", CheckAlwaysReady())
	root.Add("postgres", func(context.Context) error { return errors.New("connection refused") })

	res := Evaluate(context.Background(), root)
	if res.Healthy {
		t.Fatalf("expected unhealthy root")
	}
	if !res.Deps["metrics"].Healthy {
		t.Fatalf("metrics should stay healthy")
	}
	if got := res.Deps["postgres"].Error; got != "connection refused" {
		t.Fatalf("postgres error=%q", got)
	}
}

func TestEvaluate_FailingCheckSkipsSubtree(t *testing.T) {
	called := false
	root := &Node{Name: "svc", Check: func(context.Context) error { return errors.New("down") }}
	root.Add("child", func(context.Context) error { called = true; return nil })

	res := Evaluate(context.Background(), root)
	if res.Healthy || called {
		t.Fatalf("healthy=%v childCalled=%v", res.Healthy, called)
	}
}

func TestEvaluate_LeafWithoutCheckIsHealthy(t *testing.T) {
	if !Evaluate(context.Background(), NewReadyGraph()).Healthy {
		t.Fatalf("empty graph should be healthy")
	}
}

func TestHandler_StatusCodes(t *testing.T) {
	healthy := NewReadyGraph()
	healthy.Add("otel", CheckAlwaysReady())

	broken := NewReadyGraph()
	broken.Add("postgres", func(context.Context) error { return errors.New("nope") })

	tests := []struct {
		name    string
		root    *Node
		serving func() bool
		want    int
	}{
		{"healthy", healthy, nil, http.StatusOK},
		{"unhealthy", broken, nil, http.StatusServiceUnavailable},
		{"draining", healthy, func() bool { return false }, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			Handler(tt.root, tt.serving).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
			if rr.Code != tt.want {
				t.Fatalf("status=%d want %d", rr.Code, tt.want)
			}
		})
	}

	rr := httptest.NewRecorder()
	Handler(broken, nil).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	var out Result
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode err=%v", err)
	}
	if out.Deps["postgres"].Error != "nope" {
		t.Fatalf("body=%s", rr.Body.String())
	}
}

func TestSQLPing_NilPool(t *testing.T) {
	if err := SQLPing(nil)(context.Background()); err == nil {
		t.Fatalf("expected error for nil pool")
	}
}
