package usecase

import (
	"math"
	"sort"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"

	"github.com/scentmatch/backend/internal/domain"
)

// Blend weights for the three string-similarity components.
// Each component is monotonic in the composite.
const (
	weightTokenSort = 0.35 // order-invariant similarity over sorted tokens
	weightTokenSet  = 0.35 // set-overlap similarity, robust to extra words
	weightPartial   = 0.30 // substring/local-alignment similarity
)

// Attribute adjustments, applied additively after the base blend.
// String similarity alone conflates "same fragrance, different bottle size"
// with "different fragrance"; these encode the domain knowledge cheaply.
const (
	brandMatchBonus       = 6.0
	brandMismatchPenalty  = 20.0
	sizeMatchBonus        = 5.0
	sizeGapPenaltyBase    = 5.0  // applied once the gap exceeds the tolerance
	sizeGapPenaltyPerML   = 0.5  // additional penalty per ml beyond tolerance
	sizeGapPenaltyMax     = 15.0
	typeMismatchPenalty   = 8.0
	genderMismatchPenalty = 18.0
)

// ScorerConfig holds the tunable knobs of the composite scorer
type ScorerConfig struct {
	SizeToleranceML float64 // size gaps up to this many ml are not penalized
}

// Scorer computes the composite similarity between a merchant item and a
// candidate, both pre-normalized, with attribute-based bonuses and penalties.
type Scorer struct {
	extractor       *Extractor
	lev             *metrics.Levenshtein
	swg             *metrics.SmithWatermanGotoh
	sizeToleranceML float64
}

// NewScorer creates a scorer sharing the extractor's brand folding rules
func NewScorer(extractor *Extractor, config ScorerConfig) *Scorer {
	tolerance := config.SizeToleranceML
	if tolerance <= 0 {
		tolerance = 5
	}

	return &Scorer{
		extractor:       extractor,
		lev:             metrics.NewLevenshtein(),
		swg:             metrics.NewSmithWatermanGotoh(),
		sizeToleranceML: tolerance,
	}
}

// Score returns the composite similarity in [0,100] between two normalized
// names with their derived attributes. Pure and deterministic.
func (s *Scorer) Score(ourNorm, candNorm string, ourAttrs, candAttrs domain.Attributes) float64 {
	if ourNorm == "" || candNorm == "" {
		return 0
	}

	base := (weightTokenSort*s.tokenSortSimilarity(ourNorm, candNorm) +
		weightTokenSet*s.tokenSetSimilarity(ourNorm, candNorm) +
		weightPartial*s.partialSimilarity(ourNorm, candNorm)) * 100

	score := base + s.attributeAdjustment(ourAttrs, candAttrs)

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return math.Round(score*10) / 10
}

// tokenSortSimilarity compares the two names with their tokens sorted, so
// word order never matters.
func (s *Scorer) tokenSortSimilarity(a, b string) float64 {
	return strutil.Similarity(sortedTokens(a), sortedTokens(b), s.lev)
}

// tokenSetSimilarity splits both names into the shared token core and the
// per-side remainders and takes the best pairwise similarity. A name that is
// a strict subset of the other scores very high here.
func (s *Scorer) tokenSetSimilarity(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)

	var common, onlyA, onlyB []string
	for tok := range setA {
		if setB[tok] {
			common = append(common, tok)
		} else {
			onlyA = append(onlyA, tok)
		}
	}
	for tok := range setB {
		if !setA[tok] {
			onlyB = append(onlyB, tok)
		}
	}
	sort.Strings(common)
	sort.Strings(onlyA)
	sort.Strings(onlyB)

	core := strings.Join(common, " ")
	full1 := strings.TrimSpace(core + " " + strings.Join(onlyA, " "))
	full2 := strings.TrimSpace(core + " " + strings.Join(onlyB, " "))

	if core == "" {
		return strutil.Similarity(full1, full2, s.lev)
	}

	sim := strutil.Similarity(core, full1, s.lev)
	if v := strutil.Similarity(core, full2, s.lev); v > sim {
		sim = v
	}
	if v := strutil.Similarity(full1, full2, s.lev); v > sim {
		sim = v
	}
	return sim
}

// partialSimilarity rewards one name appearing inside the other
func (s *Scorer) partialSimilarity(a, b string) float64 {
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return 1
	}
	return strutil.Similarity(a, b, s.swg)
}

// attributeAdjustment folds the brand/size/type/gender signals into one
// additive correction. Unknown on either side contributes nothing.
func (s *Scorer) attributeAdjustment(our, cand domain.Attributes) float64 {
	adj := 0.0

	if our.Brand != "" && cand.Brand != "" {
		if s.extractor.BrandsEqual(our.Brand, cand.Brand) {
			adj += brandMatchBonus
		} else {
			adj -= brandMismatchPenalty
		}
	}

	if our.SizeML > 0 && cand.SizeML > 0 {
		gap := math.Abs(our.SizeML - cand.SizeML)
		switch {
		case gap == 0:
			adj += sizeMatchBonus
		case gap <= s.sizeToleranceML:
			// close enough, neither bonus nor penalty
		default:
			penalty := sizeGapPenaltyBase + (gap-s.sizeToleranceML)*sizeGapPenaltyPerML
			adj -= math.Min(penalty, sizeGapPenaltyMax)
		}
	}

	if our.Type != domain.ConcentrationUnknown && cand.Type != domain.ConcentrationUnknown && our.Type != cand.Type {
		adj -= typeMismatchPenalty
	}

	if our.Gender != domain.GenderUnknown && cand.Gender != domain.GenderUnknown && our.Gender != cand.Gender {
		adj -= genderMismatchPenalty
	}

	return adj
}

func sortedTokens(s string) string {
	toks := tokens(s)
	sort.Strings(toks)
	return strings.Join(toks, " ")
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range tokens(s) {
		set[tok] = true
	}
	return set
}
