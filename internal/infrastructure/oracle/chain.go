package oracle

import (
	"context"
	"errors"
	"log"

	"github.com/scentmatch/backend/internal/domain"
)

// Chain tries a list of oracles in order, falling through on error. The first
// oracle that answers wins.
type Chain struct {
	oracles []domain.ArbitrationOracle
}

// NewChain creates a fallback chain from the given oracles, in priority order.
func NewChain(oracles ...domain.ArbitrationOracle) *Chain {
	return &Chain{oracles: oracles}
}

// Len returns the number of oracles in the chain.
func (c *Chain) Len() int {
	return len(c.oracles)
}

// Arbitrate forwards the batch to each oracle in turn until one succeeds.
func (c *Chain) Arbitrate(ctx context.Context, batch []domain.ArbitrationQuery) ([]domain.ArbitrationVerdict, error) {
	if len(c.oracles) == 0 {
		return nil, domain.ErrOracleUnavailable
	}

	var lastErr error
	for i, o := range c.oracles {
		verdicts, err := o.Arbitrate(ctx, batch)
		if err == nil {
			return verdicts, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, err
		}
		if i < len(c.oracles)-1 {
			log.Printf("[ORACLE] provider %d failed, trying next: %v", i+1, err)
		}
	}

	if errors.Is(lastErr, domain.ErrOracleUnavailable) {
		return nil, lastErr
	}
	return nil, errors.Join(domain.ErrOracleUnavailable, lastErr)
}
