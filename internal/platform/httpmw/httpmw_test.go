package httpmw

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"dbcheck/internal/platform/authctx"
	"dbcheck/internal/platform/authjwt"

	"golang.org/x/time/rate"
)

func ok() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
}

func TestAuthBearer(t *testing.T) {
	svc, err := authjwt.New([]byte("secret"), "dbcheck")
	if err != nil {
		t.Fatalf("authjwt.New err=%v", err)
	}
	tok, _, err := svc.NewToken("oncall", time.Minute)
	if err != nil {
		t.Fatalf("NewToken err=%v", err)
	}

	var subject string
	h := AuthBearer(svc, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, _ = authctx.Subject(r.Context())
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"empty token", "Bearer   ", http.StatusUnauthorized},
		{"garbage", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer " + tok, http.StatusOK},
		{"valid lowercase scheme", "bearer " + tok, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subject = ""
			req := httptest.NewRequest(http.MethodGet, "/api/test-db", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Fatalf("status=%d want %d", rr.Code, tt.want)
			}
			if tt.want == http.StatusUnauthorized && rr.Header().Get("WWW-Authenticate") == "" {
				t.Fatalf("expected WWW-Authenticate challenge")
			}
			if tt.want == http.StatusOK && subject != "oncall" {
				t.Fatalf("subject=%q", subject)
			}
		})
	}
}

func TestAuthBearer_NilParserFailsClosed(t *testing.T) {
	rr := httptest.NewRecorder()
	AuthBearer(nil, ok()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", rr.Code)
	}
	if WithAuth(nil) != nil {
		t.Fatalf("WithAuth(nil) should disable auth")
	}
}

func TestIPLimiter_PerClientBuckets(t *testing.T) {
	l := NewIPLimiter(rate.Limit(1), 2, time.Minute)
	h := l.Middleware(ok())

	do := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}

	for i := 0; i < 2; i++ {
		if rr := do("10.0.0.1:1234"); rr.Code != http.StatusOK {
			t.Fatalf("burst request %d: status=%d", i, rr.Code)
		}
	}
	rr := do("10.0.0.1:5678")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") != "1" {
		t.Fatalf("Retry-After=%q", rr.Header().Get("Retry-After"))
	}
	if rr := do("10.0.0.2:1234"); rr.Code != http.StatusOK {
		t.Fatalf("other client throttled: %d", rr.Code)
	}
}

func TestIPLimiter_SweepsIdleClients(t *testing.T) {
	l := NewIPLimiter(rate.Limit(1), 1, time.Minute)
	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }

	l.get("10.0.0.1")
	now = now.Add(2 * time.Minute)
	l.get("10.0.0.2")

	if _, ok := l.clients["10.0.0.1"]; ok {
		t.Fatalf("idle client not swept")
	}
	if len(l.clients) != 1 {
		t.Fatalf("clients=%d", len(l.clients))
	}
}

func TestInFlightLimit_RejectsWhenFull(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	h := InFlightLimit(1, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/slow" {
			close(entered)
			<-release
		}
	}))

	go h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/slow", nil))
	<-entered

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/fast", nil))
	close(release)

	if rr.Code != http.StatusServiceUnavailable || rr.Header().Get("Retry-After") == "" {
		t.Fatalf("status=%d retry-after=%q", rr.Code, rr.Header().Get("Retry-After"))
	}
	if !strings.Contains(rr.Body.String(), `"error"`) {
		t.Fatalf("expected JSON error body, got %q", rr.Body.String())
	}
}

func TestRequestID_ReplacesOversizedIDs(t *testing.T) {
	h := RequestID(ok())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Header().Get(RequestIDHeader) != "abc" {
		t.Fatalf("expected echo, got %q", rr.Header().Get(RequestIDHeader))
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, strings.Repeat("x", 500))
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if got := rr.Header().Get(RequestIDHeader); len(got) != 36 {
		t.Fatalf("expected fresh uuid, got %q", got)
	}
}

func TestTimeout_AnswersWithJSON(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	h := Timeout(20*time.Millisecond, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"error"`) {
		t.Fatalf("body=%q", rr.Body.String())
	}
}

func TestTimeout_HandlerDeadlineResponseWins(t *testing.T) {
	h := Timeout(20*time.Millisecond, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(r.Context().Err().Error()))
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d body=%q", rr.Code, rr.Body.String())
	}
	if rr.Body.String() != "context deadline exceeded" {
		t.Fatalf("body=%q", rr.Body.String())
	}
}
