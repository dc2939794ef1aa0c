package usecase

import (
	"regexp"
	"sort"
	"strings"

	"github.com/mozillazg/go-unidecode"
)

// Package-level compiled regex patterns for performance
var (
	// Keeps word characters, whitespace and dots (dots matter for sizes like 2.5)
	punctuationPattern = regexp.MustCompile(`[^\w\s.]`)

	// Multiple spaces cleanup
	multiSpacePattern = regexp.MustCompile(`\s+`)
)

// Normalizer canonicalizes free-text product names: lower-casing, bilingual
// synonym substitution, script folding and punctuation stripping.
// Normalize is total, pure and idempotent.
type Normalizer struct {
	replacer *strings.Replacer
}

// NewNormalizer builds a normalizer from a synonym table mapping domain
// phrases (concentration spellings, brand transliterations, unit words) to
// canonical tokens.
func NewNormalizer(synonyms map[string]string) *Normalizer {
	// strings.Replacer tries old strings in argument order, so longer phrases
	// must come first or "مل" would clobber "ملي" mid-word.
	keys := make([]string, 0, len(synonyms))
	for k := range synonyms {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})

	pairs := make([]string, 0, len(synonyms)*2)
	for _, k := range keys {
		pairs = append(pairs, strings.ToLower(k), strings.ToLower(synonyms[k]))
	}

	return &Normalizer{replacer: strings.NewReplacer(pairs...)}
}

// Normalize canonicalizes a product name. Empty or whitespace-only input
// yields the empty string; the function never fails.
func (n *Normalizer) Normalize(text string) string {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return ""
	}

	// Substitute bilingual domain phrases before folding, while the original
	// script is still intact.
	t = n.replacer.Replace(t)

	// Fold remaining non-Latin script to ASCII approximations.
	t = unidecode.Unidecode(t)
	t = strings.ToLower(t)

	// Strip punctuation except digits/dots, collapse whitespace.
	t = punctuationPattern.ReplaceAllString(t, " ")
	t = multiSpacePattern.ReplaceAllString(t, " ")
	return strings.TrimSpace(t)
}

// tokens splits normalized text into whitespace-separated tokens
func tokens(s string) []string {
	return strings.Fields(s)
}
