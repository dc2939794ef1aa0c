package usecase

import (
	"sort"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"

	"github.com/scentmatch/backend/internal/domain"
)

// Deduplicator runs the missing-products pass: a one-directional set
// difference that finds competitor items with no adequately similar merchant
// counterpart. Intentionally simpler than full matching; it only needs a
// yes/no existence answer, not a best match.
type Deduplicator struct {
	normalizer      *Normalizer
	extractor       *Extractor
	lev             *metrics.Levenshtein
	existsThreshold float64
}

// NewDeduplicator creates the missing-products pass. The existence cutoff is
// deliberately looser than the match-acceptance threshold.
func NewDeduplicator(normalizer *Normalizer, extractor *Extractor, existsThreshold float64) *Deduplicator {
	if existsThreshold <= 0 {
		existsThreshold = 70
	}
	return &Deduplicator{
		normalizer:      normalizer,
		extractor:       extractor,
		lev:             metrics.NewLevenshtein(),
		existsThreshold: existsThreshold,
	}
}

// FindMissing returns every competitor record (samples excluded) whose
// normalized name reaches no merchant name at the existence cutoff,
// deduplicated by normalized name across all competitor catalogs combined.
// First occurrence wins; later duplicates are dropped silently.
func (d *Deduplicator) FindMissing(merchant Catalog, competitors []Catalog) []domain.MissingRecord {
	var merchantNorms []string
	for _, rec := range merchant.Records {
		normalized := d.normalizer.Normalize(rec.Name)
		if normalized == "" || d.extractor.IsSample(normalized) {
			continue
		}
		merchantNorms = append(merchantNorms, normalized)
	}

	var missing []domain.MissingRecord
	seen := make(map[string]bool)
	for _, c := range competitors {
		for _, rec := range c.Records {
			normalized := d.normalizer.Normalize(rec.Name)
			if normalized == "" || d.extractor.IsSample(normalized) {
				continue
			}
			if m, ok := d.check(normalized, merchantNorms, seen, rec, c.Name); ok {
				missing = append(missing, m)
			}
		}
	}
	return missing
}

// missingFromIndices is the variant used inside an analysis run, reusing the
// already-built competitor indices and pre-normalized merchant names.
func (d *Deduplicator) missingFromIndices(merchantNorms []string, indices []*CandidateIndex) []domain.MissingRecord {
	var missing []domain.MissingRecord
	seen := make(map[string]bool)
	for _, idx := range indices {
		idx.Entries(func(rec domain.ProductRecord, normalized string, attrs domain.Attributes) {
			if m, ok := d.checkPrecomputed(normalized, attrs, merchantNorms, seen, rec, idx.Competitor()); ok {
				missing = append(missing, m)
			}
		})
	}
	return missing
}

func (d *Deduplicator) check(
	normalized string,
	merchantNorms []string,
	seen map[string]bool,
	rec domain.ProductRecord,
	competitor string,
) (domain.MissingRecord, bool) {
	return d.checkPrecomputed(normalized, d.extractor.Extract(normalized), merchantNorms, seen, rec, competitor)
}

func (d *Deduplicator) checkPrecomputed(
	normalized string,
	attrs domain.Attributes,
	merchantNorms []string,
	seen map[string]bool,
	rec domain.ProductRecord,
	competitor string,
) (domain.MissingRecord, bool) {
	if seen[normalized] {
		return domain.MissingRecord{}, false
	}
	if d.existsAtMerchant(normalized, merchantNorms) {
		return domain.MissingRecord{}, false
	}
	seen[normalized] = true
	return domain.MissingRecord{
		Product:    rec,
		Attributes: attrs,
		Competitor: competitor,
	}, true
}

// existsAtMerchant is a negative guarantee: a record emitted as missing has
// similarity below the cutoff against every merchant name.
func (d *Deduplicator) existsAtMerchant(normalized string, merchantNorms []string) bool {
	sorted := sortedTokens(normalized)
	for _, m := range merchantNorms {
		if strutil.Similarity(sorted, sortedTokens(m), d.lev)*100 >= d.existsThreshold {
			return true
		}
	}
	return false
}

// sortCandidates orders matches by score descending; stable sort keeps
// catalog order for equal scores.
func sortCandidates(matches []domain.CandidateMatch) {
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
}
