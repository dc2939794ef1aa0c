package usecase

import (
	"context"
	"fmt"
	"log"

	"github.com/scentmatch/backend/internal/domain"
)

// Risk tier cutoffs on the price delta of a matched row
const (
	riskHighDelta   = 20.0
	riskMediumDelta = 5.0
)

// Catalog is one named dataset of product rows. Competitor catalogs are
// passed as an ordered slice so runs are deterministic.
type Catalog struct {
	Name    string
	Records []domain.ProductRecord
}

// ProgressFunc receives the fraction of merchant rows classified so far.
// Panics inside the callback are recovered and never abort the run.
type ProgressFunc func(fraction float64)

// AnalysisConfig holds every knob the orchestrator needs. Constructed once
// from the application config; nothing is read from globals at scoring time.
type AnalysisConfig struct {
	AcceptThreshold    float64
	HighConfidence     float64
	ReviewThreshold    float64
	LooseThreshold     float64
	ExistsThreshold    float64
	PriceTolerance     float64
	ShortlistSize      int
	SizeCutoffML       float64
	SizeToleranceML    float64
	OracleBatchSize    int
	OracleFallback     string // "top_candidate" or "needs_review"
	EnableDebugLogging bool
}

func (c *AnalysisConfig) applyDefaults() {
	if c.AcceptThreshold <= 0 {
		c.AcceptThreshold = 60
	}
	if c.HighConfidence <= 0 {
		c.HighConfidence = 95
	}
	if c.ReviewThreshold <= 0 {
		c.ReviewThreshold = 85
	}
	if c.LooseThreshold <= 0 {
		c.LooseThreshold = 45
	}
	if c.ExistsThreshold <= 0 {
		c.ExistsThreshold = 70
	}
	if c.PriceTolerance <= 0 {
		c.PriceTolerance = 5
	}
	if c.ShortlistSize <= 0 {
		c.ShortlistSize = 5
	}
	if c.OracleBatchSize <= 0 {
		c.OracleBatchSize = 10
	}
	if c.OracleFallback == "" {
		c.OracleFallback = "top_candidate"
	}
}

// AnalysisService drives one full catalog-vs-catalog run: retrieval, scoring,
// arbitration batching, decision assignment and progress reporting.
//
// A service instance holds no per-run mutable state, but callers running two
// analyses concurrently should use separate oracle caches or serialize them.
type AnalysisService struct {
	normalizer *Normalizer
	extractor  *Extractor
	scorer     *Scorer
	dedup      *Deduplicator
	oracle     domain.ArbitrationOracle // nil disables arbitration entirely
	config     AnalysisConfig
}

// NewAnalysisService wires the engine. A nil oracle is valid: ambiguous
// matches then take the configured fallback path.
func NewAnalysisService(
	normalizer *Normalizer,
	extractor *Extractor,
	oracle domain.ArbitrationOracle,
	config AnalysisConfig,
) *AnalysisService {
	config.applyDefaults()

	return &AnalysisService{
		normalizer: normalizer,
		extractor:  extractor,
		scorer:     NewScorer(extractor, ScorerConfig{SizeToleranceML: config.SizeToleranceML}),
		dedup:      NewDeduplicator(normalizer, extractor, config.ExistsThreshold),
		oracle:     oracle,
		config:     config,
	}
}

// pendingItem is a merchant row parked in the current arbitration batch
type pendingItem struct {
	rowIndex int // index into the result rows
	query    domain.ArbitrationQuery
}

// Run analyzes the merchant catalog against every competitor catalog.
// Every non-excluded merchant row appears exactly once in the result, in
// input order. Sample listings and empty names are excluded entirely.
func (s *AnalysisService) Run(
	ctx context.Context,
	merchant Catalog,
	competitors []Catalog,
	progress ProgressFunc,
) (*domain.AnalysisResult, error) {
	if len(merchant.Records) == 0 {
		return nil, domain.ErrEmptyCatalog
	}

	indices := s.buildIndices(competitors)

	result := &domain.AnalysisResult{}
	total := len(merchant.Records)
	done := 0

	var pending []pendingItem
	var merchantNorms []string

	for _, rec := range merchant.Records {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		normalized := s.normalizer.Normalize(rec.Name)
		if normalized == "" || s.extractor.IsSample(normalized) {
			done++
			s.reportProgress(progress, done, total)
			continue
		}
		merchantNorms = append(merchantNorms, normalized)

		attrs := s.extractor.Extract(normalized)
		shortlist := s.collectCandidates(indices, normalized, attrs)

		row := domain.ClassifiedRow{
			Product:    rec,
			Attributes: attrs,
			Shortlist:  shortlist,
		}

		switch {
		case len(shortlist) == 0:
			s.classifyUnmatched(&row)
			result.Rows = append(result.Rows, row)
			done++
			s.reportProgress(progress, done, total)

		case shortlist[0].Score >= s.config.HighConfidence:
			// Unambiguous match: never pays oracle latency
			s.classifyMatched(&row, shortlist[0], domain.MatchSourceAuto)
			result.Rows = append(result.Rows, row)
			done++
			s.reportProgress(progress, done, total)

		default:
			result.Rows = append(result.Rows, row)
			pending = append(pending, pendingItem{
				rowIndex: len(result.Rows) - 1,
				query:    domain.ArbitrationQuery{Product: rec, Shortlist: shortlist},
			})
			if len(pending) == s.config.OracleBatchSize {
				done += s.flushArbitration(ctx, result.Rows, pending)
				s.reportBatch(progress, done, total, len(pending))
				pending = pending[:0]
			}
		}
	}

	if len(pending) > 0 {
		done += s.flushArbitration(ctx, result.Rows, pending)
		s.reportBatch(progress, done, total, len(pending))
	}

	result.Missing = s.dedup.missingFromIndices(merchantNorms, indices)

	return result, nil
}

// buildIndices precomputes one candidate index per competitor catalog
func (s *AnalysisService) buildIndices(competitors []Catalog) []*CandidateIndex {
	indices := make([]*CandidateIndex, 0, len(competitors))
	for _, c := range competitors {
		idx := BuildIndex(c.Name, c.Records, s.normalizer, s.extractor, s.scorer, IndexConfig{
			LooseThreshold:  s.config.LooseThreshold,
			AcceptThreshold: s.config.AcceptThreshold,
			SizeCutoffML:    s.config.SizeCutoffML,
		})
		if s.config.EnableDebugLogging {
			log.Printf("[ANALYZE] index %q: %d searchable entries", c.Name, idx.Len())
		}
		indices = append(indices, idx)
	}
	return indices
}

// collectCandidates merges per-competitor shortlists into one, ranked by
// score descending, competitor order breaking ties.
func (s *AnalysisService) collectCandidates(
	indices []*CandidateIndex,
	normalized string,
	attrs domain.Attributes,
) []domain.CandidateMatch {
	var merged []domain.CandidateMatch
	for _, idx := range indices {
		merged = append(merged, idx.Search(normalized, attrs, s.config.ShortlistSize)...)
	}
	sortCandidates(merged)

	if len(merged) > s.config.ShortlistSize {
		merged = merged[:s.config.ShortlistSize]
	}
	return merged
}

// classifyMatched fills a row for which a match has been selected.
// A row resolved by auto-accept or arbitration gets a price decision; an
// unresolved fallback row stays needs-review no matter the delta, because
// ambiguity always wins over price comparison.
func (s *AnalysisService) classifyMatched(row *domain.ClassifiedRow, best domain.CandidateMatch, source domain.MatchSource) {
	row.CompetitorName = best.Record.Name
	row.CompetitorID = best.Record.ExternalID
	row.CompetitorPrice = best.Record.Price
	row.Competitor = best.Competitor
	row.MatchScore = best.Score
	row.Source = source

	if row.Product.Price > 0 && best.Record.Price > 0 {
		row.PriceDelta = row.Product.Price - best.Record.Price
	}

	resolved := source == domain.MatchSourceAuto || source == domain.MatchSourceArbitrated
	switch {
	case !resolved:
		row.Decision = domain.DecisionNeedsReview
	case row.PriceDelta > s.config.PriceTolerance:
		row.Decision = domain.DecisionPriceHigher
	case row.PriceDelta < -s.config.PriceTolerance:
		row.Decision = domain.DecisionPriceLower
	default:
		row.Decision = domain.DecisionApproved
	}

	switch {
	case row.PriceDelta > riskHighDelta:
		row.Risk = domain.RiskHigh
	case row.PriceDelta > riskMediumDelta:
		row.Risk = domain.RiskMedium
	default:
		row.Risk = domain.RiskLow
	}

	row.Rationale = fmt.Sprintf("%.1f%% match with %s | delta %+.2f", best.Score, best.Record.Name, row.PriceDelta)
	if !resolved {
		row.Rationale += " | arbitration unavailable, best candidate kept for review"
	}
}

// classifyUnmatched fills a row with no surviving candidates
func (s *AnalysisService) classifyUnmatched(row *domain.ClassifiedRow) {
	row.Decision = domain.DecisionMissing
	row.Source = domain.MatchSourceNone
	row.Risk = domain.RiskNone
	row.Rationale = "no competitor match found"
}

// classifyRejected fills a row whose shortlist the oracle explicitly rejected
func (s *AnalysisService) classifyRejected(row *domain.ClassifiedRow, reason string) {
	row.Decision = domain.DecisionMissing
	row.Source = domain.MatchSourceArbitrated
	row.Risk = domain.RiskNone
	row.Rationale = "arbitration rejected all candidates"
	if reason != "" {
		row.Rationale += ": " + reason
	}
}

// flushArbitration sends one batch to the oracle and classifies its rows.
// Oracle failure degrades per configuration and never fails the run.
// Returns the number of rows classified (always the full batch).
func (s *AnalysisService) flushArbitration(ctx context.Context, rows []domain.ClassifiedRow, batch []pendingItem) int {
	queries := make([]domain.ArbitrationQuery, len(batch))
	for i, item := range batch {
		queries[i] = item.query
	}

	var verdicts []domain.ArbitrationVerdict
	var err error
	if s.oracle != nil {
		verdicts, err = s.oracle.Arbitrate(ctx, queries)
	} else {
		err = domain.ErrOracleUnavailable
	}

	if err != nil || len(verdicts) != len(batch) {
		if err == nil {
			err = fmt.Errorf("%w: got %d verdicts for %d queries", domain.ErrOracleUnavailable, len(verdicts), len(batch))
		}
		log.Printf("[ANALYZE] arbitration failed, degrading %d rows (%s): %v", len(batch), s.config.OracleFallback, err)
		for _, item := range batch {
			s.classifyFallback(&rows[item.rowIndex], item.query.Shortlist)
		}
		return len(batch)
	}

	for i, item := range batch {
		row := &rows[item.rowIndex]
		verdict := verdicts[i]
		shortlist := item.query.Shortlist

		switch {
		case verdict.SelectedIndex == domain.NoSelection:
			s.classifyRejected(row, verdict.Reason)
		case verdict.SelectedIndex >= 0 && verdict.SelectedIndex < len(shortlist):
			s.classifyMatched(row, shortlist[verdict.SelectedIndex], domain.MatchSourceArbitrated)
		default:
			// Out-of-range verdict: take the top candidate as the safe default
			s.classifyMatched(row, shortlist[0], domain.MatchSourceArbitrated)
		}
	}
	return len(batch)
}

// classifyFallback handles a row whose arbitration never happened
func (s *AnalysisService) classifyFallback(row *domain.ClassifiedRow, shortlist []domain.CandidateMatch) {
	if s.config.OracleFallback == "top_candidate" && len(shortlist) > 0 {
		s.classifyMatched(row, shortlist[0], domain.MatchSourceFallback)
		return
	}
	row.Decision = domain.DecisionNeedsReview
	row.Source = domain.MatchSourceFallback
	row.Risk = domain.RiskNone
	row.Rationale = "arbitration unavailable, match unresolved"
}

// reportProgress invokes the caller's callback, swallowing panics
func (s *AnalysisService) reportProgress(progress ProgressFunc, done, total int) {
	if progress == nil || total == 0 {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[ANALYZE] progress callback panicked: %v", r)
		}
	}()
	progress(float64(done) / float64(total))
}

// reportBatch reports progress once per row resolved in a flushed batch
func (s *AnalysisService) reportBatch(progress ProgressFunc, done, total, batchSize int) {
	for i := batchSize - 1; i >= 0; i-- {
		s.reportProgress(progress, done-i, total)
	}
}
