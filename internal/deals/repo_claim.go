package deals

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ClaimRepo struct{ DB *pgxpool.Pool }

// CommitClaim turns a cache-granted reservation into durable truth inside a
// single transaction: lock the deal row, re-verify every claim precondition
// against the durable record, then decrement inventory + record the claimant
// + insert the claim. Re-verification is mandatory even though the fast path
// already checked the same conditions: cache and ledger are independent stores.
func (r *ClaimRepo) CommitClaim(ctx context.Context, dealID, userID, voucherCode string) (*Claim, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var (
		merchantID string
		remaining  int
		validUntil time.Time
	)
	err = tx.QueryRow(ctx, `
		SELECT merchant_id, inventory_remaining, valid_until
		FROM deals WHERE id=$1 FOR UPDATE`, dealID,
	).Scan(&merchantID, &remaining, &validUntil)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if !now.Before(validUntil) {
		return nil, ErrDealExpired
	}
	if remaining <= 0 {
		return nil, ErrSoldOut
	}
	var claimed bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM deal_claimants WHERE deal_id=$1 AND user_id=$2)`,
		dealID, userID).Scan(&claimed); err != nil {
		return nil, err
	}
	if claimed {
		return nil, ErrAlreadyClaimed
	}

	// Conditional decrement: the WHERE clause keeps the counter from ever
	// going negative even if the row lock assumption is violated.
	ct, err := tx.Exec(ctx, `
		UPDATE deals SET inventory_remaining = inventory_remaining - 1, updated_at = now()
		WHERE id=$1 AND inventory_remaining > 0`, dealID)
	if err != nil {
		return nil, err
	}
	if ct.RowsAffected() != 1 {
		return nil, ErrSoldOut
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO deal_claimants(deal_id, user_id) VALUES ($1,$2)`,
		dealID, userID); err != nil {
		return nil, mapClaimConflict(err)
	}

	c := &Claim{
		ID:          uuid.NewString(),
		DealID:      dealID,
		UserID:      userID,
		MerchantID:  merchantID,
		VoucherCode: voucherCode,
		Status:      ClaimActive,
		ExpiresAt:   validUntil,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO claims(id, deal_id, user_id, merchant_id, voucher_code, status, expires_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING claimed_at`,
		c.ID, c.DealID, c.UserID, c.MerchantID, c.VoucherCode, c.Status, c.ExpiresAt,
	).Scan(&c.ClaimedAt)
	if err != nil {
		return nil, mapClaimConflict(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// mapClaimConflict translates unique-violation errors into the domain
// rejections the coordinator understands.
func mapClaimConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		if strings.Contains(pgErr.ConstraintName, "voucher_code") {
			return ErrVoucherTaken
		}
		return ErrAlreadyClaimed
	}
	return err
}

func (r *ClaimRepo) GetClaimByVoucher(ctx context.Context, voucherCode string) (*Claim, error) {
	var c Claim
	err := r.DB.QueryRow(ctx, `
		SELECT id, deal_id, user_id, merchant_id, voucher_code, status, claimed_at, redeemed_at, expires_at
		FROM claims WHERE voucher_code=$1`, voucherCode,
	).Scan(&c.ID, &c.DealID, &c.UserID, &c.MerchantID, &c.VoucherCode, &c.Status,
		&c.ClaimedAt, &c.RedeemedAt, &c.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrClaimNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// RedeemClaim moves a claim active -> redeemed. Expiry is re-evaluated
// against the clock inside the transaction, so an overdue claim is rejected
// no matter what status the row still stores.
func (r *ClaimRepo) RedeemClaim(ctx context.Context, voucherCode string) (*Claim, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var c Claim
	err = tx.QueryRow(ctx, `
		SELECT id, deal_id, user_id, merchant_id, voucher_code, status, claimed_at, redeemed_at, expires_at
		FROM claims WHERE voucher_code=$1 FOR UPDATE`, voucherCode,
	).Scan(&c.ID, &c.DealID, &c.UserID, &c.MerchantID, &c.VoucherCode, &c.Status,
		&c.ClaimedAt, &c.RedeemedAt, &c.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrClaimNotFound
	}
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	switch c.EffectiveStatus(now) {
	case ClaimRedeemed:
		return nil, ErrAlreadyRedeemed
	case ClaimExpired:
		return nil, ErrClaimExpired
	}

	err = tx.QueryRow(ctx, `
		UPDATE claims SET status='redeemed', redeemed_at=now()
		WHERE id=$1 AND status='active' AND expires_at > now()
		RETURNING redeemed_at`, c.ID,
	).Scan(&c.RedeemedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrClaimExpired
	}
	if err != nil {
		return nil, err
	}
	c.Status = ClaimRedeemed

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &c, nil
}
