package usecase

import (
	"math"
	"sort"

	"github.com/scentmatch/backend/internal/domain"
)

// IndexConfig holds retrieval thresholds for one competitor index
type IndexConfig struct {
	LooseThreshold  float64 // pre-filter cutoff, well below AcceptThreshold
	AcceptThreshold float64 // minimum composite score to keep a candidate
	SizeCutoffML    float64 // hard rejection when both sizes known and further apart
}

// indexEntry is one competitor record with its precomputed derivations
type indexEntry struct {
	record     domain.ProductRecord
	normalized string
	attrs      domain.Attributes
}

// CandidateIndex precomputes normalized names and attributes for one
// competitor catalog so every merchant query pays only the comparison cost,
// not the normalization cost. Sample listings are dropped at build time.
type CandidateIndex struct {
	competitor string
	entries    []indexEntry
	scorer     *Scorer
	extractor  *Extractor
	config     IndexConfig
}

// BuildIndex constructs the index for one competitor catalog. An empty
// catalog builds an empty index; searching it returns no candidates.
func BuildIndex(
	competitor string,
	records []domain.ProductRecord,
	norm *Normalizer,
	extractor *Extractor,
	scorer *Scorer,
	config IndexConfig,
) *CandidateIndex {
	if config.LooseThreshold <= 0 {
		config.LooseThreshold = 45
	}
	if config.AcceptThreshold <= 0 {
		config.AcceptThreshold = 60
	}
	if config.SizeCutoffML <= 0 {
		config.SizeCutoffML = 30
	}

	idx := &CandidateIndex{
		competitor: competitor,
		scorer:     scorer,
		extractor:  extractor,
		config:     config,
	}

	for _, rec := range records {
		normalized := norm.Normalize(rec.Name)
		if normalized == "" || extractor.IsSample(normalized) {
			continue
		}
		idx.entries = append(idx.entries, indexEntry{
			record:     rec,
			normalized: normalized,
			attrs:      extractor.Extract(normalized),
		})
	}

	return idx
}

// Competitor returns the catalog label this index was built over
func (idx *CandidateIndex) Competitor() string { return idx.competitor }

// Len returns the number of searchable entries
func (idx *CandidateIndex) Len() int { return len(idx.entries) }

// Entries iterates the precomputed records; used by the missing-products pass
func (idx *CandidateIndex) Entries(fn func(record domain.ProductRecord, normalized string, attrs domain.Attributes)) {
	for _, e := range idx.entries {
		fn(e.record, e.normalized, e.attrs)
	}
}

// Search returns up to topN candidates for a pre-normalized query, ranked by
// composite score descending, ties broken by catalog order.
//
// Retrieval applies two hard rejections before scoring: a known-brand
// conflict, and a size gap beyond the coarse cutoff. These bound the
// candidate set; they are not scoring penalties.
func (idx *CandidateIndex) Search(queryNorm string, queryAttrs domain.Attributes, topN int) []domain.CandidateMatch {
	if queryNorm == "" || len(idx.entries) == 0 || topN <= 0 {
		return nil
	}

	var matches []domain.CandidateMatch
	for _, e := range idx.entries {
		// Cheap pre-filter: the full composite can add attribute bonuses, so
		// the loose pass must sit well below the acceptance threshold to
		// avoid false negatives.
		if idx.scorer.tokenSetSimilarity(queryNorm, e.normalized)*100 < idx.config.LooseThreshold {
			continue
		}

		if queryAttrs.Brand != "" && e.attrs.Brand != "" &&
			!idx.extractor.BrandsEqual(queryAttrs.Brand, e.attrs.Brand) {
			continue
		}

		if queryAttrs.SizeML > 0 && e.attrs.SizeML > 0 &&
			math.Abs(queryAttrs.SizeML-e.attrs.SizeML) > idx.config.SizeCutoffML {
			continue
		}

		score := idx.scorer.Score(queryNorm, e.normalized, queryAttrs, e.attrs)
		if score < idx.config.AcceptThreshold {
			continue
		}

		matches = append(matches, domain.CandidateMatch{
			Record:     e.record,
			Score:      score,
			Competitor: idx.competitor,
		})
	}

	// SliceStable keeps catalog order for equal scores
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if len(matches) > topN {
		matches = matches[:topN]
	}
	return matches
}
