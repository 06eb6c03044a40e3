package worker

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/rawblock/phishsentry/internal/brand"
	"github.com/rawblock/phishsentry/internal/dedup"
	"github.com/rawblock/phishsentry/internal/feature"
	"github.com/rawblock/phishsentry/internal/queue"
	"github.com/rawblock/phishsentry/pkg/types"
)

type fakePermClient struct {
	candidates []string
	err        error
}

func (f fakePermClient) Permutations(ctx context.Context, domain string) ([]string, error) {
	return f.candidates, f.err
}

type fakeWHOIS struct{ days int }

func (f fakeWHOIS) RegistrationAgeDays(ctx context.Context, domain string) int { return f.days }

type recordingWriter struct {
	records []types.AlertRecord
}

func (w *recordingWriter) Write(rec types.AlertRecord) error {
	w.records = append(w.records, rec)
	return nil
}

func newTestPool(t *testing.T, candidates []string, brandList []string, days int) (*Pool, *recordingWriter) {
	t.Helper()
	q := queue.New[types.WorkItem](10)
	brands := brand.New(brandList)
	writer := &recordingWriter{}
	pool := New(Config{}, q, brands, fakePermClient{candidates: candidates}, fakeWHOIS{days: days}, dedup.New(100), writer, feature.DefaultSuspiciousTLDs(), zerolog.Nop())
	return pool, writer
}

func TestProcess_TypoSquatCandidateProducesAlert(t *testing.T) {
	pool, writer := newTestPool(t, []string{"paypa1.com"}, []string{"paypal.com"}, 5)

	item := types.WorkItem{
		Domain:    "real-cert-domain.com",
		IssuerOrg: "Let's Encrypt",
		SeenAt:    "2026-07-30T00:00:00Z",
		LeafCert:  map[string]interface{}{},
	}

	pool.process(context.Background(), item)

	if len(writer.records) != 1 {
		t.Fatalf("expected 1 alert record, got %d", len(writer.records))
	}
	rec := writer.records[0]
	if rec.Domain != "paypa1.com" {
		t.Fatalf("expected alert domain paypa1.com, got %q", rec.Domain)
	}
	if rec.BrandMatch != "paypal.com" {
		t.Fatalf("expected brand match paypal.com, got %q", rec.BrandMatch)
	}
}

func TestProcess_DedupSuppressesRepeatAlert(t *testing.T) {
	pool, writer := newTestPool(t, []string{"paypa1.com"}, []string{"paypal.com"}, 5)

	item := types.WorkItem{Domain: "real-cert-domain.com", IssuerOrg: "DigiCert", SeenAt: "t", LeafCert: map[string]interface{}{}}
	pool.process(context.Background(), item)
	pool.process(context.Background(), item)

	if len(writer.records) != 1 {
		t.Fatalf("expected dedup to suppress the second identical alert, got %d records", len(writer.records))
	}
}

func TestProcess_NoCandidatesProducesNoAlerts(t *testing.T) {
	pool, writer := newTestPool(t, nil, []string{"paypal.com"}, 5)

	item := types.WorkItem{Domain: "real-cert-domain.com", LeafCert: map[string]interface{}{}}
	pool.process(context.Background(), item)

	if len(writer.records) != 0 {
		t.Fatalf("expected no alerts when permutation client returns no candidates, got %d", len(writer.records))
	}
}

func TestProcess_ObservedDomainItselfIsScreened(t *testing.T) {
	// No permutations returned at all; the observed domain is still its
	// own candidate and must be screened against the brand list (§4.3).
	pool, writer := newTestPool(t, nil, []string{"google.com"}, 5)

	item := types.WorkItem{Domain: "gooogle.com", IssuerOrg: "DigiCert", SeenAt: "t", LeafCert: map[string]interface{}{}}
	pool.process(context.Background(), item)

	if len(writer.records) != 1 {
		t.Fatalf("expected the observed domain to alert on its own typo-squat match, got %d records", len(writer.records))
	}
	if writer.records[0].Domain != "gooogle.com" {
		t.Fatalf("expected alert domain gooogle.com, got %q", writer.records[0].Domain)
	}
}

func TestProcess_InvalidDomainSkipsProcessing(t *testing.T) {
	pool, writer := newTestPool(t, []string{"paypa1.com"}, []string{"paypal.com"}, 5)

	item := types.WorkItem{Domain: "not a domain", LeafCert: map[string]interface{}{}}
	pool.process(context.Background(), item)

	if len(writer.records) != 0 {
		t.Fatalf("expected invalid root domain to short-circuit processing, got %d alerts", len(writer.records))
	}
}
