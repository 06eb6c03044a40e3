// Package feature extracts the lexical, certificate, and registration
// signals in spec.md §4.4 and computes the phishing score (§4.4.5).
// Entropy/classification style is grounded on
// leanlp-BTC-coinjoin/internal/heuristics/entropy_analysis.go; the
// underlying feature definitions are grounded on original_source's
// analysis/phishing_detect.py.
package feature

import (
	"math"
	"strings"
)

// SuspiciousKeywords is the configured set of case-insensitive substrings
// that flag HasKeyword (§4.4.3).
var SuspiciousKeywords = []string{
	"login", "verify", "secure", "update", "account", "signin",
	"password", "auth", "bank", "pay", "confirm", "reset", "validate",
	"webmail", "support", "unlock", "user", "invoice",
}

// ContainsSuspiciousKeyword reports whether any configured keyword is a
// substring of domain's lowercased form.
func ContainsSuspiciousKeyword(domain string) bool {
	lower := strings.ToLower(domain)
	for _, kw := range SuspiciousKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// TLD returns the label after the last '.' in domain.
func TLD(domain string) string {
	idx := strings.LastIndexByte(domain, '.')
	if idx < 0 || idx == len(domain)-1 {
		return domain
	}
	return domain[idx+1:]
}

// IsSuspiciousTLD reports whether tld belongs to the configured suspicious
// set. Per SPEC_FULL.md §D.1, the members are the separate tokens (the
// comma-adjacency bug in the Python source is fixed, not preserved).
func IsSuspiciousTLD(tld string, suspicious map[string]struct{}) bool {
	_, ok := suspicious[strings.ToLower(tld)]
	return ok
}

// DefaultSuspiciousTLDs is the configured suspicious-TLD set (§4.4.3).
func DefaultSuspiciousTLDs() map[string]struct{} {
	tlds := []string{
		"xyz", "top", "buzz", "shop", "online", "click", "link", "support",
		"help", "fit", "club", "live", "life", "host", "press", "work",
		"today", "site", "website", "space", "rest", "fail", "gdn", "uno",
		"trade",
	}
	set := make(map[string]struct{}, len(tlds))
	for _, t := range tlds {
		set[t] = struct{}{}
	}
	return set
}

// Entropy computes the Shannon entropy (base 2) of s's character
// frequency distribution, rounded to 2 decimals (§3, §4.4.3).
func Entropy(s string) float64 {
	if len(s) == 0 {
		return 0
	}
	counts := make(map[rune]int)
	total := 0
	for _, r := range s {
		counts[r]++
		total++
	}
	h := 0.0
	n := float64(total)
	for _, count := range counts {
		p := float64(count) / n
		h -= p * math.Log2(p)
	}
	return math.Round(h*100) / 100
}

// BrandInSubdomain reports whether any brand (case-insensitive) appears as
// a substring of the part of domain before its eTLD+1, per §4.4.3: split
// on '.'; with >= 3 labels, concatenate all but the last two and check for
// a brand substring; otherwise false.
func BrandInSubdomain(domain string, brands []string) bool {
	labels := strings.Split(domain, ".")
	if len(labels) < 3 {
		return false
	}
	prefix := strings.ToLower(strings.Join(labels[:len(labels)-2], "."))
	for _, b := range brands {
		if strings.Contains(prefix, strings.ToLower(b)) {
			return true
		}
	}
	return false
}
