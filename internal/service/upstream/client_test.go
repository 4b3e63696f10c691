package upstream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/products/BTC-USD/ticker", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"trade_id":1,"price":"64123.45","size":"0.01"}`))
	})
	mux.HandleFunc("/products/BTC-USD/stats", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"open":"1","volume":"18234.5501"}`))
	})
	mux.HandleFunc("/products/ZERO-USD/ticker", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"price":"0"}`))
	})
	mux.HandleFunc("/products/BAD-USD/ticker", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"price":"not-a-number"}`))
	})
	mux.HandleFunc("/products/DOWN-USD/ticker", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClientFetchPriceAndVolume(t *testing.T) {
	srv := newTestServer(t)
	c := NewClient(srv.URL+"/", time.Second)
	ctx := context.Background()

	p, err := c.FetchPrice(ctx, "BTC-USD")
	if err != nil || p != 64123.45 {
		t.Fatalf("price = %v, %v", p, err)
	}
	v, err := c.FetchVolume(ctx, "BTC-USD")
	if err != nil || v != 18234.5501 {
		t.Fatalf("volume = %v, %v", v, err)
	}
}

func TestClientErrors(t *testing.T) {
	srv := newTestServer(t)
	c := NewClient(srv.URL, time.Second)
	ctx := context.Background()

	cases := []struct {
		symbol  string
		invalid bool
	}{
		{"ZERO-USD", true},
		{"BAD-USD", false},
		{"DOWN-USD", false},
		{"MISSING-USD", false},
	}
	for _, tc := range cases {
		_, err := c.FetchPrice(ctx, tc.symbol)
		if err == nil {
			t.Errorf("%s: expected error", tc.symbol)
			continue
		}
		if tc.invalid && !errors.Is(err, ErrInvalidQuote) {
			t.Errorf("%s: expected ErrInvalidQuote, got %v", tc.symbol, err)
		}
	}
}
