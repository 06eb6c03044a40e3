// Package worker implements the fixed-size processing pool (spec.md §5
// C3): for each CT-observed domain, expand into typo-squat candidates
// (C4), screen each against the brand list, extract lexical/certificate/
// registration features, score, dedup, and enqueue surviving alerts to the
// CSV writer (C6). Pool shape (fixed goroutine count draining a shared
// queue) follows the teacher's worker-pool convention in
// internal/heuristics (heuristics run per mempool transaction); dedup and
// scoring wiring are grounded on original_source's certstream/listener.py
// on_message loop.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rawblock/phishsentry/internal/brand"
	"github.com/rawblock/phishsentry/internal/dedup"
	"github.com/rawblock/phishsentry/internal/feature"
	"github.com/rawblock/phishsentry/internal/queue"
	"github.com/rawblock/phishsentry/pkg/types"
)

// PermutationClient fetches typo-squat candidates for a domain (C4).
type PermutationClient interface {
	Permutations(ctx context.Context, domain string) ([]string, error)
}

// WHOISClient resolves a domain's registration age in days (C5).
type WHOISClient interface {
	RegistrationAgeDays(ctx context.Context, domain string) int
}

// AlertWriter persists a surviving alert (C6).
type AlertWriter interface {
	Write(rec types.AlertRecord) error
}

// Config tunes the pool's behavior; zero values default to spec.md's
// constants.
type Config struct {
	WorkerCount          int
	CandidateCap         int
	ProcessedPerItemCap  int
	SimilarityThreshold  float64
}

// Pool is a fixed-size set of goroutines draining a shared work queue.
type Pool struct {
	cfg Config

	queue  *queue.Queue[types.WorkItem]
	brands *brand.List
	perm   PermutationClient
	whois  WHOISClient
	seen   *dedup.Seen
	writer AlertWriter
	tlds   map[string]struct{}

	log zerolog.Logger
}

// New builds a Pool. Zero-value Config fields default to spec.md's
// constants (10 workers, 30 candidate cap, 20 processed-per-item cap, 0.8
// similarity threshold).
func New(cfg Config, q *queue.Queue[types.WorkItem], brands *brand.List, perm PermutationClient, whois WHOISClient, seen *dedup.Seen, writer AlertWriter, tlds map[string]struct{}, log zerolog.Logger) *Pool {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 10
	}
	if cfg.CandidateCap <= 0 {
		cfg.CandidateCap = 30
	}
	if cfg.ProcessedPerItemCap <= 0 {
		cfg.ProcessedPerItemCap = 20
	}
	if cfg.SimilarityThreshold <= 0 {
		cfg.SimilarityThreshold = 0.8
	}
	return &Pool{
		cfg:    cfg,
		queue:  q,
		brands: brands,
		perm:   perm,
		whois:  whois,
		seen:   seen,
		writer: writer,
		tlds:   tlds,
		log:    log,
	}
}

// Run starts cfg.WorkerCount goroutines draining the queue until it closes
// or ctx is cancelled, and blocks until they all exit.
func (p *Pool) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < p.cfg.WorkerCount; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.loop(ctx, id)
		}(i)
	}
	wg.Wait()
}

func (p *Pool) loop(ctx context.Context, id int) {
	for {
		item, ok := p.queue.Pop(ctx)
		if !ok {
			return
		}
		p.process(ctx, item)
	}
}

// process implements the per-item pipeline for one CT-observed domain:
// validate, expand into candidates (capped), screen each against the
// brand list, extract features, score, dedup, and write surviving alerts.
func (p *Pool) process(ctx context.Context, item types.WorkItem) {
	p.log.Debug().Str("domain", item.Domain).Str("issuer", item.IssuerOrg).Msg("work item dequeued")

	v := validateDomain(item.Domain)
	if !v.ok {
		p.log.Info().Str("domain", item.Domain).Msg("invalid domain, item skipped")
		return
	}
	domain := v.domain

	// An IP literal skips permutation entirely and is its own sole
	// candidate (§4.3 step 1) — dnstwister-style fuzzing has no meaning
	// for a bare address.
	var candidates []string
	if v.isIPLiteral {
		candidates = []string{domain}
	} else {
		permutations, err := p.perm.Permutations(ctx, domain)
		if err != nil {
			p.log.Warn().Err(err).Str("domain", domain).Msg("permutation fetch failed")
			return
		}

		// candidates = {domain} ∪ permutations (§4.3 step 2): the observed
		// name itself must be screened, not just its fuzzed variants.
		candidates = append([]string{domain}, permutations...)
	}
	if len(candidates) > p.cfg.CandidateCap {
		candidates = candidates[:p.cfg.CandidateCap]
	}

	normalized := feature.Normalize(item.LeafCert)
	now := time.Now()

	processed := 0
	alerts := 0
	for _, candidate := range candidates {
		if processed >= p.cfg.ProcessedPerItemCap {
			break
		}
		processed++

		cv := validateDomain(candidate)
		if !cv.ok {
			continue
		}
		candDomain := cv.domain

		result := p.brands.IsSimilar(candDomain, p.cfg.SimilarityThreshold)
		if !result.Suspicious {
			continue
		}

		if !p.seen.MarkSeen(candDomain, result.Brand) {
			continue
		}

		p.scoreAndWrite(ctx, item, candDomain, result, normalized, now)
		alerts++
	}

	if alerts == 0 {
		p.log.Info().Str("domain", domain).Msg("item clean, no new alerts")
	} else {
		p.log.Info().Str("domain", domain).Int("alerts", alerts).Msg("item logged")
	}
}

func (p *Pool) scoreAndWrite(ctx context.Context, item types.WorkItem, candDomain string, result brand.Result, normalized types.NormalizedLeafCert, now time.Time) {
	tld := feature.TLD(candDomain)

	regDays := p.whois.RegistrationAgeDays(ctx, candDomain)

	fv := feature.FeatureVector{
		TLD:              tld,
		TLDSuspicious:    feature.IsSuspiciousTLD(tld, p.tlds),
		HasKeyword:       feature.ContainsSuspiciousKeyword(candDomain),
		Entropy:          feature.Entropy(candDomain),
		CNMismatch:       feature.CNMismatch(normalized),
		OCSPMissing:      feature.OCSPMissing(normalized),
		ShortLived:       feature.ShortLived(normalized, now),
		BrandInSubdomain: feature.BrandInSubdomain(candDomain, p.brands.Brands()),
		SimilarityScore:  result.Similarity,
		RegistrationDays: regDays,
	}

	score := feature.Score(fv, item.IssuerOrg)

	rec := types.AlertRecord{
		SeenAt:           item.SeenAt,
		Domain:           candDomain,
		BrandMatch:       result.Brand,
		SimilarityScore:  result.Similarity,
		IssuerOrg:        item.IssuerOrg,
		TLD:              tld,
		TLDSuspicious:    fv.TLDSuspicious,
		HasKeyword:       fv.HasKeyword,
		Entropy:          fv.Entropy,
		RegistrationDays: regDays,
		CNMismatch:       fv.CNMismatch,
		OCSPMissing:      fv.OCSPMissing,
		ShortLived:       fv.ShortLived,
		BrandInSubdomain: fv.BrandInSubdomain,
		Score:            score,
	}

	if err := p.writer.Write(rec); err != nil {
		p.log.Error().Err(err).Str("domain", candDomain).Msg("alert write failed")
	}
}
