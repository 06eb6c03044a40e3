package feature

import (
	"strconv"
	"strings"
	"time"

	"github.com/rawblock/phishsentry/pkg/types"
)

// Normalize collapses a weakly typed leaf_cert map into the tagged view
// feature extractors consume, absorbing the schema drift spec.md §9 calls
// out: SAN sometimes a comma-separated string, sometimes a list; dates
// sometimes ISO-8601, sometimes UNIX epoch.
func Normalize(leafCert map[string]interface{}) types.NormalizedLeafCert {
	var n types.NormalizedLeafCert

	if subject, ok := leafCert["subject"].(map[string]interface{}); ok {
		if cn, ok := subject["CN"].(string); ok {
			n.SubjectCN = strings.TrimSpace(cn)
		}
	}

	n.SANDNSNames = extractSANs(leafCert)
	n.AIAHasOCSP = extractAIAHasOCSP(leafCert)
	n.HasCRLDP = extractHasCRLDP(leafCert)

	if nb, ok := parseCertTime(leafCert["not_before"]); ok {
		n.NotBefore = nb
	}
	if na, ok := parseCertTime(leafCert["not_after"]); ok {
		n.NotAfter = na
		n.HasNotAfter = true
	}

	return n
}

func extractSANs(leafCert map[string]interface{}) []string {
	var raw []interface{}

	if ext, ok := leafCert["extensions"].(map[string]interface{}); ok {
		switch v := ext["subjectAltName"].(type) {
		case string:
			for _, part := range strings.Split(v, ",") {
				raw = append(raw, part)
			}
		case []interface{}:
			raw = append(raw, v...)
		}
	}

	if len(raw) == 0 {
		if all, ok := leafCert["all_domains"].([]interface{}); ok {
			raw = append(raw, all...)
		} else if allStrs, ok := leafCert["all_domains"].([]string); ok {
			for _, s := range allStrs {
				raw = append(raw, s)
			}
		}
	}

	sans := make([]string, 0, len(raw))
	for _, item := range raw {
		s, ok := item.(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		s = strings.TrimPrefix(s, "DNS:")
		s = normalizeDomainForCompare(s)
		if s != "" {
			sans = append(sans, s)
		}
	}
	return sans
}

func extractAIAHasOCSP(leafCert map[string]interface{}) bool {
	var entries []interface{}
	if ext, ok := leafCert["extensions"].(map[string]interface{}); ok {
		switch v := ext["authorityInfoAccess"].(type) {
		case string:
			entries = append(entries, v)
		case []interface{}:
			entries = append(entries, v...)
		}
	}
	if urls, ok := leafCert["ocsp_urls"].([]interface{}); ok {
		entries = append(entries, urls...)
	}

	for _, e := range entries {
		s, ok := e.(string)
		if !ok {
			continue
		}
		if strings.Contains(strings.ToLower(s), "ocsp") {
			return true
		}
	}
	return false
}

func extractHasCRLDP(leafCert map[string]interface{}) bool {
	if ext, ok := leafCert["extensions"].(map[string]interface{}); ok {
		switch v := ext["crlDistributionPoints"].(type) {
		case string:
			return strings.TrimSpace(v) != ""
		case []interface{}:
			return len(v) > 0
		}
	}
	if v, ok := leafCert["crl_distribution_points"].([]interface{}); ok {
		return len(v) > 0
	}
	return false
}

// parseCertTime parses either an ISO-8601 "YYYY-MM-DDTHH:MM:SS" string or a
// UNIX epoch (int, float64, or numeric string) per spec.md §4.4.4.
func parseCertTime(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case string:
		if t == "" {
			return time.Time{}, false
		}
		if parsed, err := time.Parse("2006-01-02T15:04:05", t); err == nil {
			return parsed, true
		}
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			return parsed, true
		}
		if epoch, err := strconv.ParseInt(t, 10, 64); err == nil {
			return time.Unix(epoch, 0).UTC(), true
		}
		return time.Time{}, false
	case float64:
		return time.Unix(int64(t), 0).UTC(), true
	case int64:
		return time.Unix(t, 0).UTC(), true
	case int:
		return time.Unix(int64(t), 0).UTC(), true
	default:
		return time.Time{}, false
	}
}

// normalizeDomainForCompare lowercases and strips a leading wildcard label,
// the shared normalization §4.4.4 requires for CN/SAN comparison.
func normalizeDomainForCompare(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.TrimPrefix(s, "*.")
}

// CNMismatch reports whether the leaf's CN is non-empty and no SAN entry
// matches it under wildcard-aware normalization (§4.4.4). CN is false
// (no mismatch) when CN is empty.
func CNMismatch(n types.NormalizedLeafCert) bool {
	if n.SubjectCN == "" {
		return false
	}
	cn := normalizeDomainForCompare(n.SubjectCN)

	for _, rawSAN := range n.SANDNSNames {
		if rawSAN == cn {
			return false
		}
		// Wildcard SAN "*.X" covers CN if CN ends with X (the original
		// wildcard prefix was already stripped during normalization).
		if strings.HasSuffix(cn, rawSAN) && rawSAN != "" {
			// Normalization drops the "*." marker, so any SAN that ends CN
			// on a dot boundary counts as a cover here, whether or not it
			// came from a wildcard entry; a bare suffix match without the
			// dot boundary (e.g. "pal.com" for "paypal.com") does not.
			if cn == rawSAN || strings.HasSuffix(cn, "."+rawSAN) {
				return false
			}
		}
	}
	return true
}

// OCSPMissing reports whether neither an AIA OCSP responder nor a CRL
// distribution point is discoverable (§4.4.4).
func OCSPMissing(n types.NormalizedLeafCert) bool {
	return !n.AIAHasOCSP && !n.HasCRLDP
}

// ShortLived reports whether the leaf's remaining validity from now is
// <= 30 days (§3, §4.4.4, SPEC_FULL.md §D.2). Malformed/absent dates
// yield false.
func ShortLived(n types.NormalizedLeafCert, now time.Time) bool {
	if !n.HasNotAfter {
		return false
	}
	remaining := n.NotAfter.Sub(now)
	return remaining <= 30*24*time.Hour
}
