package feature

import "testing"

func TestScore_ClampedToTen(t *testing.T) {
	fv := FeatureVector{
		Entropy:          4.5,
		HasKeyword:       true,
		TLDSuspicious:    true,
		CNMismatch:       true,
		OCSPMissing:      true,
		ShortLived:       true,
		BrandInSubdomain: true,
		RegistrationDays: 1,
		SimilarityScore:  1.0,
	}
	score := Score(fv, "Let's Encrypt")
	if score != 10 {
		t.Fatalf("expected score clamped to 10, got %v", score)
	}
}

func TestScore_NoSignalsIsZero(t *testing.T) {
	fv := FeatureVector{RegistrationDays: -1, SimilarityScore: 0}
	score := Score(fv, "DigiCert Inc")
	if score != 0 {
		t.Fatalf("expected score 0 with no signals, got %v", score)
	}
}

func TestScore_FreeIssuerAddsOnePoint(t *testing.T) {
	fv := FeatureVector{RegistrationDays: -1}
	withFree := Score(fv, "ZeroSSL")
	withPaid := Score(fv, "DigiCert Inc")
	if withFree-withPaid != 1.0 {
		t.Fatalf("expected free-issuer bonus of 1.0, got delta=%v", withFree-withPaid)
	}
}

func TestScore_RegistrationAgeBands(t *testing.T) {
	fresh := Score(FeatureVector{RegistrationDays: 3}, "DigiCert Inc")
	young := Score(FeatureVector{RegistrationDays: 20}, "DigiCert Inc")
	established := Score(FeatureVector{RegistrationDays: 200}, "DigiCert Inc")

	if fresh <= young || young <= established {
		t.Fatalf("expected score to decrease with registration age: fresh=%v young=%v established=%v", fresh, young, established)
	}
}

func TestScore_RegistrationAgeBandBoundaries(t *testing.T) {
	if got := Score(FeatureVector{RegistrationDays: 10}, "DigiCert Inc"); got != 3 {
		t.Fatalf("expected reg_days=10 (<14) to score 3, got %v", got)
	}
	if got := Score(FeatureVector{RegistrationDays: 100}, "DigiCert Inc"); got != 1 {
		t.Fatalf("expected reg_days=100 (<180) to score 1, got %v", got)
	}
}

func TestScore_EntropyBandBoundaries(t *testing.T) {
	if got := Score(FeatureVector{Entropy: 3.8, RegistrationDays: -1}, "DigiCert Inc"); got != 3 {
		t.Fatalf("expected entropy=3.8 (>=3.7) to score 3, got %v", got)
	}
	if got := Score(FeatureVector{Entropy: 3.45, RegistrationDays: -1}, "DigiCert Inc"); got != 2 {
		t.Fatalf("expected entropy=3.45 (>=3.4) to score 2, got %v", got)
	}
}

func TestScore_SimilarityTopBandMatchesGooogleScenario(t *testing.T) {
	// gooogle.com vs google.com normalized similarity is 1 - 1/11 (S2).
	got := Score(FeatureVector{SimilarityScore: 1 - 1.0/11.0, RegistrationDays: -1}, "DigiCert Inc")
	if got != 1.0 {
		t.Fatalf("expected similarity ~0.909 (>=0.90) to score 1.0, got %v", got)
	}
}

func TestScore_ActalisFullNameGetsFreeIssuerBonus(t *testing.T) {
	fv := FeatureVector{RegistrationDays: -1}
	withActalis := Score(fv, "Actalis S.p.A.")
	withPaid := Score(fv, "DigiCert Inc")
	if withActalis-withPaid != 1.0 {
		t.Fatalf("expected Actalis S.p.A. to get the free-issuer bonus, delta=%v", withActalis-withPaid)
	}
}
