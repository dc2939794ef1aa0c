package domain

// Decision is the price-positioning label assigned to a classified merchant row
type Decision string

const (
	DecisionApproved    Decision = "approved"
	DecisionPriceHigher Decision = "price_higher"
	DecisionPriceLower  Decision = "price_lower"
	DecisionNeedsReview Decision = "needs_review"
	DecisionMissing     Decision = "missing"
)

// MatchSource records how the best match was selected, so a reviewer can
// audit which rows received full confidence versus fallback handling.
type MatchSource string

const (
	MatchSourceAuto       MatchSource = "auto"       // score at or above the high-confidence cutoff
	MatchSourceArbitrated MatchSource = "arbitrated" // resolved by the arbitration oracle
	MatchSourceFallback   MatchSource = "fallback"   // oracle unavailable, top candidate kept
	MatchSourceNone       MatchSource = "none"       // no candidate survived retrieval
)

// RiskLevel grades how urgent a price gap is
type RiskLevel string

const (
	RiskHigh   RiskLevel = "high"
	RiskMedium RiskLevel = "medium"
	RiskLow    RiskLevel = "low"
	RiskNone   RiskLevel = ""
)

// ClassifiedRow is the engine's output unit: one per merchant record.
type ClassifiedRow struct {
	Product        ProductRecord `json:"product"`
	Attributes     Attributes    `json:"attributes"`
	CompetitorName string        `json:"competitorName,omitempty"`
	CompetitorID   string        `json:"competitorId,omitempty"`
	CompetitorPrice float64      `json:"competitorPrice,omitempty"`
	Competitor     string        `json:"competitor,omitempty"` // catalog label of the best match
	PriceDelta     float64       `json:"priceDelta"`
	MatchScore     float64       `json:"matchScore"`
	Decision       Decision      `json:"decision"`
	Risk           RiskLevel     `json:"risk,omitempty"`
	Source         MatchSource   `json:"matchSource"`
	Shortlist      []CandidateMatch `json:"shortlist,omitempty"` // top candidates considered
	Rationale      string        `json:"rationale"`
}

// MissingRecord is a competitor item with no adequate merchant counterpart.
type MissingRecord struct {
	Product    ProductRecord `json:"product"`
	Attributes Attributes    `json:"attributes"`
	Competitor string        `json:"competitor"`
}

// AnalysisResult bundles one full catalog-vs-catalog run.
type AnalysisResult struct {
	Rows    []ClassifiedRow `json:"rows"`
	Missing []MissingRecord `json:"missing"`
}

// Summary aggregates run counters for history and dashboards.
func (r *AnalysisResult) Summary() AnalysisSummary {
	s := AnalysisSummary{Total: len(r.Rows), MissingAtMerchant: len(r.Missing)}
	for _, row := range r.Rows {
		switch row.Decision {
		case DecisionApproved:
			s.Approved++
		case DecisionPriceHigher:
			s.PriceHigher++
		case DecisionPriceLower:
			s.PriceLower++
		case DecisionNeedsReview:
			s.NeedsReview++
		case DecisionMissing:
			s.MissingAtCompetitor++
		}
	}
	return s
}

// AnalysisSummary is the per-run counter set persisted to history.
type AnalysisSummary struct {
	Total               int `json:"total"`
	Approved            int `json:"approved"`
	PriceHigher         int `json:"priceHigher"`
	PriceLower          int `json:"priceLower"`
	NeedsReview         int `json:"needsReview"`
	MissingAtCompetitor int `json:"missingAtCompetitor"`
	MissingAtMerchant   int `json:"missingAtMerchant"`
}
