// Package brand implements brand-similarity screening (spec.md §4.4.1) and
// the false-positive filter (§4.4.2), grounded on the canonical
// is_similar/is_known_false_positive pair in original_source's
// analysis/phishing_detect.py.
package brand

import (
	"bufio"
	"os"
	"strings"
)

// List is the ordered, read-only brand domain list loaded once at startup.
// Order matters: IsSimilar returns the first qualifying brand, so tie-break
// is deterministic over load order (§4.4.1).
type List struct {
	brands []string
}

// New builds a List directly from an in-memory, ordered slice of brand
// domains, for callers that already have the list (tests, or a future
// non-file brand source) rather than a path to load from.
func New(brands []string) *List {
	return &List{brands: brands}
}

// Load reads one brand domain per line from path, skipping blank lines, per
// spec.md §3 "Brand list: ordered sequence ... loaded once from a text
// file (one per line, blanks skipped)".
func Load(path string) (*List, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var brands []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		brands = append(brands, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	return New(brands), nil
}

// Brands returns the loaded list in load order.
func (l *List) Brands() []string {
	return l.brands
}

// FalsePositivePatterns lists substrings of known-legitimate hosting/CDN
// domains (§4.4.2). AWS's regional S3 endpoints are enumerated explicitly
// because "s3.amazonaws.com" alone doesn't cover region-qualified hosts
// like "s3.eu-west-1.amazonaws.com".
var FalsePositivePatterns = buildFalsePositivePatterns()

func buildFalsePositivePatterns() []string {
	base := []string{
		"s3.amazonaws.com", "cloudfront.net", "github.io", "gitlab.io",
		"firebaseapp.com", "azurewebsites.net", "fastly.net",
		"herokuapp.com", "vercel.app", "netlify.app", "pages.dev",
		"wordpress.com", "blogspot.com", "automattic.com",
	}

	regions := []string{
		"us-east-1", "us-east-2", "us-west-1", "us-west-2",
		"af-south-1", "ap-east-1", "ap-south-1", "ap-northeast-1",
		"ap-northeast-2", "ap-northeast-3", "ap-southeast-1", "ap-southeast-2",
		"ca-central-1", "eu-central-1", "eu-west-1", "eu-west-2", "eu-west-3",
		"eu-north-1", "eu-south-1", "me-south-1", "sa-east-1",
	}
	for _, r := range regions {
		base = append(base, "s3."+r+".amazonaws.com", "s3-"+r+".amazonaws.com")
	}

	return base
}

// IsKnownFalsePositive reports whether domain is a known false positive:
// any configured pattern is a substring of its lowercased form (§4.4.2).
func IsKnownFalsePositive(domain string) bool {
	lower := strings.ToLower(domain)
	for _, pattern := range FalsePositivePatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

// Result is the outcome of a brand-similarity screen.
type Result struct {
	Suspicious bool
	Brand      string
	Similarity float64
}

// IsSimilar iterates brands in list order and returns the first brand whose
// normalized edit-similarity to domain is >= threshold, the strings differ,
// and domain is not a known false positive (§4.4.1). Tie-break is the
// first qualifying brand in list order.
func (l *List) IsSimilar(domain string, threshold float64) Result {
	lowerDomain := strings.ToLower(domain)
	for _, b := range l.brands {
		lowerBrand := strings.ToLower(b)
		if lowerDomain == lowerBrand {
			continue
		}
		sim := Similarity(lowerDomain, lowerBrand)
		if sim < threshold {
			continue
		}
		if IsKnownFalsePositive(domain) {
			return Result{}
		}
		return Result{Suspicious: true, Brand: b, Similarity: sim}
	}
	return Result{}
}

// Similarity returns the normalized Levenshtein similarity of a and b in
// [0, 1]: 1 - editDistance/max(len(a), len(b)). Identical strings yield
// 1.0; entirely distinct strings approach 0 (§4.4.1). No fuzzy-matching
// library appears anywhere in the retrieval pack, so this implements the
// spec's "equivalent forms are acceptable" algorithm directly.
func Similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	maxLen := len([]rune(a))
	if bl := len([]rune(b)); bl > maxLen {
		maxLen = bl
	}
	if maxLen == 0 {
		return 1.0
	}
	dist := levenshteinDistance(a, b)
	return 1.0 - float64(dist)/float64(maxLen)
}

// levenshteinDistance computes classic edit distance with a two-row DP,
// operating on runes to stay correct for non-ASCII domains (IDNA labels).
func levenshteinDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost
			curr[j] = min3(del, ins, sub)
		}
		prev, curr = curr, prev
	}

	return prev[len(rb)]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
