// Package permutation fetches typo-squat candidate domains from the
// dnstwister.report fuzzing API (spec.md §4.3), grounded on
// original_source's utils/dns_twister.py two-step to_hex/fuzz call and its
// retry/backoff shape. The process-wide admission semaphore follows
// jbouey-msp-flake's channel-semaphore idiom in l2planner/budget.go.
package permutation

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/rawblock/phishsentry/internal/sentryerr"
)

// Client fetches and caches permutation sets for a domain.
type Client struct {
	baseURL    string
	httpClient *http.Client
	sem        *semaphore.Weighted
	retries    int

	cacheMu sync.RWMutex
	cache   map[string][]string
}

// Config configures a Client.
type Config struct {
	BaseURL     string
	Concurrency int64
	Retries     int
	Timeout     time.Duration
}

// New builds a Client with the given config, defaulting zero values to
// spec.md's constants (30 concurrent, 3 retries, 10s per request).
func New(cfg Config) *Client {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 30
	}
	if cfg.Retries <= 0 {
		cfg.Retries = 3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		sem:        semaphore.NewWeighted(cfg.Concurrency),
		retries:    cfg.Retries,
		cache:      make(map[string][]string),
	}
}

type toHexResponse struct {
	DomainAsHexadecimal string `json:"domain_as_hexadecimal"`
}

type fuzzResponse struct {
	FuzzyDomains []struct {
		Domain string `json:"domain"`
	} `json:"fuzzy_domains"`
}

// Permutations returns the cached or freshly fetched set of fuzzed
// candidate domains for domain. Admission is gated by the client's
// concurrency semaphore so no more than Concurrency requests are in
// flight process-wide (§4.3, §5 C4).
func (c *Client) Permutations(ctx context.Context, domain string) ([]string, error) {
	c.cacheMu.RLock()
	if cached, ok := c.cache[domain]; ok {
		c.cacheMu.RUnlock()
		return cached, nil
	}
	c.cacheMu.RUnlock()

	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.sem.Release(1)

	// Re-check after acquiring: another goroutine may have populated the
	// cache while this one waited on the semaphore.
	c.cacheMu.RLock()
	if cached, ok := c.cache[domain]; ok {
		c.cacheMu.RUnlock()
		return cached, nil
	}
	c.cacheMu.RUnlock()

	domainHex, err := c.fetchHex(ctx, domain)
	if err != nil {
		return nil, sentryerr.New(sentryerr.Transient, "permutation.to_hex", fmt.Errorf("%s: %w", domain, err))
	}

	candidates, err := c.fetchFuzz(ctx, domainHex)
	if err != nil {
		return nil, sentryerr.New(sentryerr.Transient, "permutation.fuzz", fmt.Errorf("%s: %w", domain, err))
	}

	c.cacheMu.Lock()
	c.cache[domain] = candidates
	c.cacheMu.Unlock()

	return candidates, nil
}

func (c *Client) fetchHex(ctx context.Context, domain string) (string, error) {
	url := fmt.Sprintf("%s/to_hex/%s", c.baseURL, domain)
	var out toHexResponse
	if err := c.getJSONWithRetry(ctx, url, &out); err != nil {
		return "", err
	}
	if out.DomainAsHexadecimal == "" {
		return "", fmt.Errorf("empty domain_as_hexadecimal for %s", domain)
	}
	if _, err := hex.DecodeString(out.DomainAsHexadecimal); err != nil {
		return "", fmt.Errorf("invalid hex response: %w", err)
	}
	return out.DomainAsHexadecimal, nil
}

func (c *Client) fetchFuzz(ctx context.Context, domainHex string) ([]string, error) {
	url := fmt.Sprintf("%s/fuzz/%s", c.baseURL, domainHex)
	var out fuzzResponse
	if err := c.getJSONWithRetry(ctx, url, &out); err != nil {
		return nil, err
	}

	candidates := make([]string, 0, len(out.FuzzyDomains))
	for _, m := range out.FuzzyDomains {
		if m.Domain != "" {
			candidates = append(candidates, m.Domain)
		}
	}
	return candidates, nil
}

// getJSONWithRetry mirrors dns_twister.py's retry loop: up to c.retries
// attempts, sleeping backoff^attempt seconds (base 2) between failures.
func (c *Client) getJSONWithRetry(ctx context.Context, url string, out interface{}) error {
	var lastErr error
	for attempt := 0; attempt < c.retries; attempt++ {
		if attempt > 0 {
			sleep := time.Duration(1<<uint(attempt-1)) * time.Second
			select {
			case <-time.After(sleep):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = c.getJSON(ctx, url, out)
		if lastErr == nil {
			return nil
		}
	}
	return lastErr
}

func (c *Client) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
