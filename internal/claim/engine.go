package claim

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/flashdealz/flash-deal-engine/internal/deals"
	"github.com/flashdealz/flash-deal-engine/internal/metrics"
)

// Reserver adjudicates claim races in the fast-path store.
type Reserver interface {
	TryReserve(ctx context.Context, dealID, userID string) (ReserveOutcome, error)
	Release(ctx context.Context, dealID, userID string) error
}

// Ledger is the durable side of the protocol.
type Ledger interface {
	CommitClaim(ctx context.Context, dealID, userID, voucherCode string) (*deals.Claim, error)
}

// Engine drives one claim attempt through
// START -> FAST_RESERVED -> {DURABLE_COMMITTED | COMPENSATED}.
type Engine struct {
	Reserver Reserver
	Ledger   Ledger

	// CommitTimeout bounds the durable transaction; past it the attempt is
	// a system error and compensation still runs.
	CommitTimeout time.Duration
}

const defaultCommitTimeout = 5 * time.Second

// Claim grants at most one voucher of the deal to the user. Rejections come
// back as the deals sentinel errors; anything else is a system error.
func (e *Engine) Claim(ctx context.Context, dealID, userID string) (c *deals.Claim, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordClaim(outcomeLabel(err), time.Since(start).Seconds())
	}()

	outcome, err := e.Reserver.TryReserve(ctx, dealID, userID)
	if err != nil {
		if isRejection(err) {
			return nil, err
		}
		return nil, fmt.Errorf("fast-path reserve: %w", err)
	}
	switch outcome {
	case AlreadyReserved:
		return nil, deals.ErrAlreadyClaimed
	case SoldOut:
		return nil, deals.ErrSoldOut
	}

	// FAST_RESERVED. From here the attempt must reach a terminal outcome
	// even if the caller abandons the request, so the commit runs on a
	// detached, bounded context.
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.commitTimeout())
	defer cancel()

	c, err = e.Ledger.CommitClaim(cctx, dealID, userID, NewVoucherCode(dealID))
	if errors.Is(err, deals.ErrVoucherTaken) {
		// One retry with a fresh code, then give up loudly.
		c, err = e.Ledger.CommitClaim(cctx, dealID, userID, NewVoucherCode(dealID))
	}
	if err != nil {
		e.compensate(dealID, userID)
		if isRejection(err) {
			return nil, err
		}
		return nil, fmt.Errorf("durable commit: %w", err)
	}
	return c, nil
}

// compensate undoes the fast-path reservation after a commit that did not
// succeed. Skipping it would leak a voucher slot forever, so it runs on its
// own context regardless of what happened to the caller's.
func (e *Engine) compensate(dealID, userID string) {
	rctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := e.Reserver.Release(rctx, dealID, userID); err != nil {
		log.Printf("claim: compensation for deal=%s user=%s failed: %v", dealID, userID, err)
		return
	}
	metrics.Compensations.Inc()
}

func (e *Engine) commitTimeout() time.Duration {
	if e.CommitTimeout > 0 {
		return e.CommitTimeout
	}
	return defaultCommitTimeout
}

func isRejection(err error) bool {
	return errors.Is(err, deals.ErrNotFound) ||
		errors.Is(err, deals.ErrSoldOut) ||
		errors.Is(err, deals.ErrAlreadyClaimed) ||
		errors.Is(err, deals.ErrDealExpired)
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "committed"
	case errors.Is(err, deals.ErrSoldOut):
		return "sold_out"
	case errors.Is(err, deals.ErrAlreadyClaimed):
		return "already_claimed"
	case errors.Is(err, deals.ErrDealExpired):
		return "expired"
	case errors.Is(err, deals.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
