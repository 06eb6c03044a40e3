// Package types holds the data model shared across the ingest, worker, and
// writer components: work items on the bounded queue, the normalized leaf
// certificate view, and the alert record written to the CSV sink.
package types

import "time"

// WorkItem is a single (domain, cert) unit handed to the worker pool,
// fanned out one-per-domain from a certificate_update envelope.
type WorkItem struct {
	Domain    string
	IssuerOrg string
	SeenAt    string
	LeafCert  map[string]interface{}
}

// AlertRecord is one emitted row, in the exact column order of the CSV
// header contract.
type AlertRecord struct {
	SeenAt           string
	Domain           string
	BrandMatch       string
	SimilarityScore  float64
	IssuerOrg        string
	TLD              string
	TLDSuspicious    bool
	HasKeyword       bool
	Entropy          float64
	RegistrationDays int
	CNMismatch       bool
	OCSPMissing      bool
	ShortLived       bool
	BrandInSubdomain bool
	Score            float64
}

// NormalizedLeafCert is the tagged view produced by normalizing the weakly
// typed leaf_cert map, per spec.md §9 "Dynamic certificate schema": SAN
// entries, AIA/CRL pointers, and validity dates collapse to one shape
// regardless of whether the wire payload used a string or a list, an ISO
// date or a UNIX epoch.
type NormalizedLeafCert struct {
	SubjectCN   string
	SANDNSNames []string
	AIAHasOCSP  bool
	HasCRLDP    bool
	NotBefore   time.Time
	NotAfter    time.Time
	HasNotAfter bool
}
