// Package whoisclient resolves domain registration age by shelling out to
// the system `whois` binary, grounded on original_source's
// domain_registration_age (analysis/phishing_detect.py) for field
// semantics. The subprocess-with-timeout pattern and the LRU
// cache-with-order-slice follow jbouey-msp-flake's sshexec/executor.go
// (distroCache/connOrder).
package whoisclient

import (
	"bytes"
	"context"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// UnknownAge is the sentinel returned when registration age cannot be
// determined (no creation date, lookup failure, or timeout), per
// SPEC_FULL.md §D.4 (unified unknown representation, contributes 0 points
// to scoring).
const UnknownAge = -1

var creationDatePattern = regexp.MustCompile(`(?im)^\s*(?:Creation Date|created|Registered on)\s*:\s*(.+)$`)

var dateLayouts = []string{
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02-Jan-2006",
	"20060102",
}

type cacheEntry struct {
	days      int
	expiresAt time.Time
}

// Client looks up and caches domain registration ages.
type Client struct {
	sem     *semaphore.Weighted
	timeout time.Duration
	ttl     time.Duration

	mu         sync.Mutex
	cache      map[string]cacheEntry
	cacheOrder []string
	cacheCap   int

	// memo holds raw subprocess output keyed by domain, independent of TTL
	// expiry, so a repeated lookup after cache eviction doesn't necessarily
	// re-shell out if the raw text is still memoized.
	memo      map[string]string
	memoOrder []string
	memoCap   int

	now func() time.Time
}

// Config configures a Client.
type Config struct {
	Concurrency  int64
	Timeout      time.Duration
	CacheTTL     time.Duration
	CacheCap     int
	MemoCap      int
}

// New builds a Client, defaulting zero values to spec.md's constants.
func New(cfg Config) *Client {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 10
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 3600 * time.Second
	}
	if cfg.CacheCap <= 0 {
		cfg.CacheCap = 3000
	}
	if cfg.MemoCap <= 0 {
		cfg.MemoCap = 10000
	}
	return &Client{
		sem:      semaphore.NewWeighted(cfg.Concurrency),
		timeout:  cfg.Timeout,
		ttl:      cfg.CacheTTL,
		cache:    make(map[string]cacheEntry),
		cacheCap: cfg.CacheCap,
		memo:     make(map[string]string),
		memoCap:  cfg.MemoCap,
		now:      time.Now,
	}
}

// RegistrationAgeDays returns the domain's age in days since creation, or
// UnknownAge if it cannot be determined. Lookups are admission-controlled
// by the client's concurrency semaphore (§4.3, §5 C5).
func (c *Client) RegistrationAgeDays(ctx context.Context, domain string) int {
	if days, ok := c.cachedDays(domain); ok {
		return days
	}

	if err := c.sem.Acquire(ctx, 1); err != nil {
		return UnknownAge
	}
	defer c.sem.Release(1)

	if days, ok := c.cachedDays(domain); ok {
		return days
	}

	raw := c.memoized(domain)
	if raw == "" {
		raw = c.lookup(ctx, domain)
		c.storeMemo(domain, raw)
	}

	days := parseAgeDays(raw, c.now())
	c.storeCache(domain, days)
	return days
}

func (c *Client) cachedDays(domain string) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.cache[domain]
	if !ok {
		return 0, false
	}
	// Unlink domain from the eviction order: a live entry goes back at the
	// most-recently-used end, an expired one is dropped.
	for i, d := range c.cacheOrder {
		if d == domain {
			c.cacheOrder = append(c.cacheOrder[:i], c.cacheOrder[i+1:]...)
			break
		}
	}
	if c.now().After(entry.expiresAt) {
		delete(c.cache, domain)
		return 0, false
	}
	c.cacheOrder = append(c.cacheOrder, domain)
	return entry.days, true
}

func (c *Client) memoized(domain string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.memo[domain]
}

func (c *Client) storeCache(domain string, days int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.cache[domain]; !exists {
		if len(c.cacheOrder) >= c.cacheCap {
			oldest := c.cacheOrder[0]
			c.cacheOrder = c.cacheOrder[1:]
			delete(c.cache, oldest)
		}
		c.cacheOrder = append(c.cacheOrder, domain)
	}
	c.cache[domain] = cacheEntry{days: days, expiresAt: c.now().Add(c.ttl)}
}

func (c *Client) storeMemo(domain, raw string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.memo[domain]; !exists {
		if len(c.memoOrder) >= c.memoCap {
			oldest := c.memoOrder[0]
			c.memoOrder = c.memoOrder[1:]
			delete(c.memo, oldest)
		}
		c.memoOrder = append(c.memoOrder, domain)
	}
	c.memo[domain] = raw
}

// lookup shells out to `whois domain`, bounded by the client's timeout.
// TERM=dumb and PAGER=cat suppress pager/color escape codes some whois
// servers' referral text triggers on interactive terminals.
func (c *Client) lookup(ctx context.Context, domain string) string {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "whois", domain)
	cmd.Env = append(cmd.Env, "TERM=dumb", "PAGER=cat")

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = nil

	if err := cmd.Run(); err != nil {
		return ""
	}
	return out.String()
}

// parseAgeDays extracts a creation date line from raw whois text and
// returns the number of whole days between that date and now, or
// UnknownAge if no date line parses.
func parseAgeDays(raw string, now time.Time) int {
	if raw == "" {
		return UnknownAge
	}
	match := creationDatePattern.FindStringSubmatch(raw)
	if match == nil {
		return UnknownAge
	}
	value := strings.TrimSpace(match[1])

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			days := int(now.Sub(t).Hours() / 24)
			if days < 0 {
				return UnknownAge
			}
			return days
		}
	}
	return UnknownAge
}
