package deals

import "errors"

// Rejections: business-rule failures surfaced to the caller with a specific
// reason. They are never retried and never skip compensation.
var (
	ErrNotFound       = errors.New("deal not found")
	ErrSoldOut        = errors.New("deal sold out")
	ErrAlreadyClaimed = errors.New("user already claimed this deal")
	ErrDealExpired    = errors.New("deal has expired")

	ErrClaimNotFound   = errors.New("claim not found")
	ErrAlreadyRedeemed = errors.New("voucher already redeemed")
	ErrClaimExpired    = errors.New("voucher has expired")

	// ErrVoucherTaken means the voucher_code uniqueness constraint fired.
	// The caller retries the whole attempt exactly once with a fresh code.
	ErrVoucherTaken = errors.New("voucher code already taken")
)
