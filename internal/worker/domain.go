package worker

import (
	"net"
	"strings"

	"golang.org/x/net/idna"
)

// validation is the outcome of validateDomain: ok reports whether domain
// is usable at all, and isIPLiteral reports whether it parsed as an IP
// literal, in which case permutation fetch must be skipped and the domain
// itself is the sole candidate (§4.3 step 1).
type validation struct {
	domain      string
	isIPLiteral bool
	ok          bool
}

// validateDomain normalizes and rejects candidates unsuitable for scoring
// (§4.3 step 1): total length > 120, any label length > 63, label count >
// 10, or any label containing a character outside [A-Za-z0-9-]. An IP
// literal is not rejected — it is flagged so the caller can treat it as
// its own sole candidate and skip permutation. Grounded on
// benithors-dothuntcli/internal/domain/domain.go's Normalize/
// isValidDomainASCII pair, narrowed to this pipeline's needs (no URL/port
// stripping — candidates already arrive as bare domain strings).
func validateDomain(raw string) validation {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.TrimSuffix(s, ".")
	if s == "" {
		return validation{}
	}

	if net.ParseIP(s) != nil {
		return validation{domain: s, isIPLiteral: true, ok: true}
	}

	ascii, err := idna.Lookup.ToASCII(s)
	if err != nil {
		return validation{}
	}

	if !strings.Contains(ascii, ".") {
		return validation{}
	}
	if !isValidDomainASCII(ascii) {
		return validation{}
	}
	return validation{domain: ascii, ok: true}
}

// isValidDomainASCII enforces §4.3 step 1's constraints: total length,
// per-label length, label count, and charset.
func isValidDomainASCII(s string) bool {
	if len(s) < 1 || len(s) > 120 {
		return false
	}
	if strings.HasPrefix(s, ".") || strings.HasSuffix(s, ".") {
		return false
	}
	labels := strings.Split(s, ".")
	if len(labels) < 2 || len(labels) > 10 {
		return false
	}
	for _, label := range labels {
		if len(label) < 1 || len(label) > 63 {
			return false
		}
		if label[0] == '-' || label[len(label)-1] == '-' {
			return false
		}
		for i := 0; i < len(label); i++ {
			c := label[i]
			if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '-' {
				continue
			}
			return false
		}
	}
	return true
}
