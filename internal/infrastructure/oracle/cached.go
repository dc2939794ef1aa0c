package oracle

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/scentmatch/backend/internal/domain"
)

// Cached wraps an oracle with a verdict cache so repeated runs do not pay for
// the same disambiguation twice. Only cache misses reach the inner oracle.
type Cached struct {
	inner domain.ArbitrationOracle
	cache domain.CacheRepository
	ttl   time.Duration
}

// NewCached wraps inner with the given cache. A zero ttl means entries never
// expire as far as this wrapper is concerned.
func NewCached(inner domain.ArbitrationOracle, cache domain.CacheRepository, ttl time.Duration) *Cached {
	return &Cached{inner: inner, cache: cache, ttl: ttl}
}

// Arbitrate answers cached queries from the cache and forwards the rest to
// the inner oracle as one batch, preserving input order in the result.
func (c *Cached) Arbitrate(ctx context.Context, batch []domain.ArbitrationQuery) ([]domain.ArbitrationVerdict, error) {
	verdicts := make([]domain.ArbitrationVerdict, len(batch))
	keys := make([]string, len(batch))

	var pending []domain.ArbitrationQuery
	var pendingIdx []int

	for i, q := range batch {
		keys[i] = queryKey(q)
		if v, ok := c.lookup(ctx, keys[i]); ok {
			verdicts[i] = v
			continue
		}
		pending = append(pending, q)
		pendingIdx = append(pendingIdx, i)
	}

	if len(pending) == 0 {
		return verdicts, nil
	}

	fresh, err := c.inner.Arbitrate(ctx, pending)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(pending) {
		return nil, fmt.Errorf("oracle returned %d verdicts for %d queries", len(fresh), len(pending))
	}

	for j, v := range fresh {
		i := pendingIdx[j]
		verdicts[i] = v
		_ = c.cache.Set(ctx, keys[i], encodeVerdict(v), c.ttl)
	}

	return verdicts, nil
}

func (c *Cached) lookup(ctx context.Context, key string) (domain.ArbitrationVerdict, bool) {
	raw, err := c.cache.Get(ctx, key)
	if err != nil {
		return domain.ArbitrationVerdict{}, false
	}
	encoded, ok := raw.(string)
	if !ok {
		return domain.ArbitrationVerdict{}, false
	}
	return decodeVerdict(encoded)
}

// queryKey derives a deterministic key from the product and the identity of
// every shortlist candidate, so a changed shortlist is a different key.
func queryKey(q domain.ArbitrationQuery) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%.2f", q.Product.Name, q.Product.Price)
	for _, cand := range q.Shortlist {
		fmt.Fprintf(h, "|%s|%s|%s", cand.Competitor, cand.Record.Name, cand.Record.ExternalID)
	}
	return "arbitration:" + hex.EncodeToString(h.Sum(nil))
}

func encodeVerdict(v domain.ArbitrationVerdict) string {
	return fmt.Sprintf("%d|%s", v.SelectedIndex, v.Reason)
}

func decodeVerdict(s string) (domain.ArbitrationVerdict, bool) {
	idx := strings.Index(s, "|")
	if idx == -1 {
		return domain.ArbitrationVerdict{}, false
	}
	var selected int
	if _, err := fmt.Sscanf(s[:idx], "%d", &selected); err != nil {
		return domain.ArbitrationVerdict{}, false
	}
	return domain.ArbitrationVerdict{SelectedIndex: selected, Reason: s[idx+1:]}, true
}
