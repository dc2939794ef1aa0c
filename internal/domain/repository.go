package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) (interface{}, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// ArbitrationQuery is one ambiguous merchant item plus its candidate shortlist.
type ArbitrationQuery struct {
	Product   ProductRecord
	Shortlist []CandidateMatch
}

// NoSelection marks an oracle verdict of "none of the shortlist matches".
const NoSelection = -1

// ArbitrationVerdict is the oracle's pick for one query: an index into the
// shortlist, or NoSelection.
type ArbitrationVerdict struct {
	SelectedIndex int
	Reason        string
}

// ArbitrationOracle disambiguates shortlists for ambiguous merchant items.
// Implementations must return one verdict per query, in query order.
type ArbitrationOracle interface {
	Arbitrate(ctx context.Context, batch []ArbitrationQuery) ([]ArbitrationVerdict, error)
}

// RunRecord is one persisted analysis run summary.
type RunRecord struct {
	ID           string          `json:"id"`
	Timestamp    time.Time       `json:"timestamp"`
	MerchantFile string          `json:"merchantFile"`
	Competitors  []string        `json:"competitors"`
	Summary      AnalysisSummary `json:"summary"`
}

// DecisionRecord is one audited status change for a product.
type DecisionRecord struct {
	Timestamp   time.Time `json:"timestamp"`
	ProductName string    `json:"productName"`
	OldStatus   string    `json:"oldStatus"`
	NewStatus   string    `json:"newStatus"`
	Reason      string    `json:"reason"`
	DecidedBy   string    `json:"decidedBy"`
}

// EventRecord is one audit-log entry.
type EventRecord struct {
	Timestamp   time.Time `json:"timestamp"`
	Page        string    `json:"page"`
	EventType   string    `json:"eventType"`
	Details     string    `json:"details"`
	ProductName string    `json:"productName"`
}

// HistoryRepository persists run summaries, decisions and audit events.
// Writes are best effort: a store failure must never fail an analysis run.
type HistoryRepository interface {
	SaveRun(ctx context.Context, run RunRecord) error
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)
	LogDecision(ctx context.Context, d DecisionRecord) error
	ListDecisions(ctx context.Context, productName string, limit int) ([]DecisionRecord, error)
	LogEvent(ctx context.Context, e EventRecord) error
	ListEvents(ctx context.Context, page string, limit int) ([]EventRecord, error)
}

// Notifier delivers final record lists to an external automation endpoint.
// Fully decoupled from matching: it receives plain structured records.
type Notifier interface {
	SendPriceUpdates(ctx context.Context, rows []ClassifiedRow) error
	SendMissingProducts(ctx context.Context, missing []MissingRecord) error
}
