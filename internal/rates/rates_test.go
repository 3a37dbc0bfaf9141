package rates

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"conti/internal/core"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFrankfurterProvider_Latest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("base") != "EUR" || r.URL.Query().Get("symbols") != "USD" {
			t.Errorf("unexpected query %q", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"amount":1.0,"base":"EUR","date":"2024-03-15","rates":{"USD":1.0876}}`)
	}))
	defer srv.Close()

	p := NewFrankfurterProvider(srv.URL+"/v1/latest?base=EUR&symbols=USD", time.Second)
	got, err := p.Latest(context.Background())
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if got["USD"] != 1.0876 {
		t.Errorf("USD = %v, want 1.0876", got["USD"])
	}
}

func TestFrankfurterProvider_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusBadGateway, "upstream down"},
		{"malformed json", http.StatusOK, "{"},
		{"wrong base", http.StatusOK, `{"base":"USD","rates":{"EUR":0.9}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			if _, err := NewFrankfurterProvider(srv.URL, time.Second).Latest(context.Background()); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

type stubProvider struct {
	calls   atomic.Int32
	payload map[string]float64
	err     error
}

func (s *stubProvider) Latest(context.Context) (map[string]float64, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return s.payload, nil
}

func TestCachedProvider(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	stub := &stubProvider{payload: map[string]float64{"USD": 1.1}}
	p := NewCachedProvider(stub, time.Hour, discardLogger())
	p.Cache().WithClock(func() time.Time { return now })

	for i := 0; i < 3; i++ {
		if got, err := p.Latest(ctx); err != nil || got["USD"] != 1.1 {
			t.Fatalf("Latest = %v, %v", got, err)
		}
	}
	if stub.calls.Load() != 1 {
		t.Errorf("upstream called %d times, want 1", stub.calls.Load())
	}

	now = now.Add(2 * time.Hour)
	stub.err = errors.New("timeout")
	got, err := p.Latest(ctx)
	if err != nil || got["USD"] != 1.1 {
		t.Fatalf("expected stale payload after upstream failure, got %v, %v", got, err)
	}
	if stub.calls.Load() != 2 {
		t.Errorf("expired entry must trigger a refetch, calls = %d", stub.calls.Load())
	}
}

func TestCachedProvider_ColdFailure(t *testing.T) {
	stub := &stubProvider{err: errors.New("dns")}
	if _, err := NewCachedProvider(stub, time.Hour, discardLogger()).Latest(context.Background()); err == nil {
		t.Fatal("expected error with an empty cache")
	}
}

func TestRates(t *testing.T) {
	ctx := context.Background()

	got := Rates(ctx, &stubProvider{payload: map[string]float64{"USD": 1.25, "GBP": 0.85, "EUR": 3}}, discardLogger())
	if len(got) != 2 || got[core.USD] != 1.25 || got[core.EUR] != 1 {
		t.Errorf("unexpected rate map %v", got)
	}

	fallback := NewSource(&stubProvider{err: errors.New("offline")}, discardLogger()).Current(ctx)
	if len(fallback) != 1 || fallback[core.EUR] != 1 {
		t.Errorf("expected base-only map on failure, got %v", fallback)
	}
	if v := core.ConvertToEuro(100, core.USD, fallback); v != 100 {
		t.Errorf("conversion without rates must be a no-op, got %v", v)
	}

	if m := Rates(ctx, nil, nil); m[core.EUR] != 1 {
		t.Errorf("nil provider must yield the base-only map, got %v", m)
	}
}
