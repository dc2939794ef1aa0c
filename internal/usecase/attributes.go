package usecase

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/scentmatch/backend/internal/domain"
)

// sizePattern matches a size immediately followed by the canonical unit token.
// Unit spellings are already folded to "ml" by the normalizer.
var sizePattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*ml\b`)

// concentrationVocab lists keyword sets in fixed priority order: a name
// mentioning both "extrait" and "parfum" is an extrait.
var concentrationVocab = []struct {
	ctype    domain.ConcentrationType
	keywords []string
}{
	{domain.ConcentrationExtrait, []string{"extrait", "elixir"}},
	{domain.ConcentrationEDP, []string{"edp", "parfum"}},
	{domain.ConcentrationEDT, []string{"edt", "toilette"}},
	{domain.ConcentrationEDC, []string{"edc", "cologne"}},
}

// Lexicon is the domain vocabulary the extractor is built from.
type Lexicon struct {
	Brands         []string
	Synonyms       map[string]string
	SampleKeywords []string
	TesterKeywords []string
	SetKeywords    []string
	MaleKeywords   []string
	FemaleKeywords []string
}

type brandEntry struct {
	display string // canonical spelling, as configured
	key     string // normalized form used for matching
}

// Extractor derives brand, size, concentration type and gender from
// normalized product names, and applies the sample/tester/set exclusion rules.
// All methods are pure; everything is precomputed at construction.
type Extractor struct {
	norm         *Normalizer
	brands       []brandEntry
	sampleKeys   []string
	testerKeys   []string
	setKeys      []string
	maleTokens   map[string]bool
	femaleTokens map[string]bool
}

// NewExtractor builds an extractor over the given lexicon. Brand keys and
// exclusion keywords pass through the same normalizer as product names, so
// Arabic spellings land on the same folded form on both sides.
func NewExtractor(norm *Normalizer, lex Lexicon) *Extractor {
	e := &Extractor{
		norm:         norm,
		maleTokens:   make(map[string]bool),
		femaleTokens: make(map[string]bool),
	}

	for _, b := range lex.Brands {
		key := norm.Normalize(b)
		if key == "" {
			continue
		}
		e.brands = append(e.brands, brandEntry{display: b, key: key})
	}

	e.sampleKeys = normalizeKeywords(norm, lex.SampleKeywords)
	e.testerKeys = normalizeKeywords(norm, lex.TesterKeywords)
	e.setKeys = normalizeKeywords(norm, lex.SetKeywords)

	for _, k := range lex.MaleKeywords {
		if t := norm.Normalize(k); t != "" {
			e.maleTokens[t] = true
		}
	}
	for _, k := range lex.FemaleKeywords {
		if t := norm.Normalize(k); t != "" {
			e.femaleTokens[t] = true
		}
	}

	return e
}

func normalizeKeywords(norm *Normalizer, keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if t := norm.Normalize(k); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Extract derives the full attribute tuple from a normalized name
func (e *Extractor) Extract(normalized string) domain.Attributes {
	return domain.Attributes{
		Brand:  e.ExtractBrand(normalized),
		SizeML: e.ExtractSize(normalized),
		Type:   e.ExtractType(normalized),
		Gender: e.ExtractGender(normalized),
	}
}

// ExtractBrand returns the first configured brand whose normalized form is a
// substring of the name. First match wins by list order; this is deliberately
// not a best-match search, just a cheap deterministic rule.
func (e *Extractor) ExtractBrand(normalized string) string {
	for _, b := range e.brands {
		if strings.Contains(normalized, b.key) {
			return b.display
		}
	}
	return ""
}

// BrandsEqual compares two extracted brands case- and script-insensitively
func (e *Extractor) BrandsEqual(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return e.norm.Normalize(a) == e.norm.Normalize(b)
}

// ExtractSize returns the volume in ml, or 0 when no size is present.
// The first occurrence wins.
func (e *Extractor) ExtractSize(normalized string) float64 {
	m := sizePattern.FindStringSubmatch(normalized)
	if m == nil {
		return 0
	}
	size, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	return size
}

// ExtractType returns the concentration category, checked in fixed priority
// order (extrait > edp > edt > edc), or unknown when no vocabulary matches.
func (e *Extractor) ExtractType(normalized string) domain.ConcentrationType {
	for _, v := range concentrationVocab {
		for _, kw := range v.keywords {
			if strings.Contains(normalized, kw) {
				return v.ctype
			}
		}
	}
	return domain.ConcentrationUnknown
}

// ExtractGender tests whole tokens against the male-only and female-only
// vocabularies. A name hitting both or neither stays unknown; never a guess.
func (e *Extractor) ExtractGender(normalized string) domain.Gender {
	var male, female bool
	for _, tok := range tokens(normalized) {
		if e.maleTokens[tok] {
			male = true
		}
		if e.femaleTokens[tok] {
			female = true
		}
	}
	if male == female {
		return domain.GenderUnknown
	}
	if male {
		return domain.GenderMale
	}
	return domain.GenderFemale
}

// IsSample reports whether a name is a sample, decant or split listing
func (e *Extractor) IsSample(normalized string) bool {
	return containsAny(normalized, e.sampleKeys)
}

// IsTester reports whether a name is tester packaging
func (e *Extractor) IsTester(normalized string) bool {
	return containsAny(normalized, e.testerKeys)
}

// IsSet reports whether a name is a gift set or coffret
func (e *Extractor) IsSet(normalized string) bool {
	return containsAny(normalized, e.setKeys)
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
