package permutation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func newTestServer(t *testing.T, fuzzDomains []string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/to_hex/", func(w http.ResponseWriter, r *http.Request) {
		domain := strings.TrimPrefix(r.URL.Path, "/to_hex/")
		json.NewEncoder(w).Encode(toHexResponse{DomainAsHexadecimal: hexEncode(domain)})
	})
	mux.HandleFunc("/fuzz/", func(w http.ResponseWriter, r *http.Request) {
		var matches []struct {
			Domain string `json:"domain"`
		}
		for _, d := range fuzzDomains {
			matches = append(matches, struct {
				Domain string `json:"domain"`
			}{Domain: d})
		}
		json.NewEncoder(w).Encode(fuzzResponse{FuzzyDomains: matches})
	})
	return httptest.NewServer(mux)
}

func hexEncode(s string) string {
	const hexdigits = "0123456789abcdef"
	out := make([]byte, 0, len(s)*2)
	for i := 0; i < len(s); i++ {
		out = append(out, hexdigits[s[i]>>4], hexdigits[s[i]&0xf])
	}
	return string(out)
}

func TestPermutations_FetchesAndCaches(t *testing.T) {
	srv := newTestServer(t, []string{"paypa1.com", "paypaI.com"})
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	got, err := c.Permutations(context.Background(), "paypal.com")
	if err != nil {
		t.Fatalf("Permutations returned error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d: %v", len(got), got)
	}

	got2, err := c.Permutations(context.Background(), "paypal.com")
	if err != nil {
		t.Fatalf("second Permutations call returned error: %v", err)
	}
	if len(got2) != 2 {
		t.Fatalf("expected cached result to still have 2 candidates")
	}
}

func TestPermutations_RetriesOnFailureThenSucceeds(t *testing.T) {
	var attempt int32
	mux := http.NewServeMux()
	mux.HandleFunc("/to_hex/", func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&attempt, 1)
		if n < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(toHexResponse{DomainAsHexadecimal: "6578616d706c652e636f6d"})
	})
	mux.HandleFunc("/fuzz/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(fuzzResponse{})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Retries: 3})
	_, err := c.Permutations(context.Background(), "example.com")
	if err != nil {
		t.Fatalf("expected eventual success after retry, got error: %v", err)
	}
	if attempt < 2 {
		t.Fatalf("expected at least 2 attempts, got %d", attempt)
	}
}

func TestPermutations_FailsAfterExhaustingRetries(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/to_hex/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Retries: 2})
	_, err := c.Permutations(context.Background(), "example.com")
	if err == nil {
		t.Fatalf("expected error after exhausting retries")
	}
}
