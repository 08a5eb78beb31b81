package ports

import "context"

// ProcessingClaim defines the interface for the short-lived per-order
// mutual exclusion scope held around the idempotency-check-then-write
// sequence of the issuance pipeline. Claim returns false when another
// delivery for the same order already holds the claim.
type ProcessingClaim interface {
	Claim(ctx context.Context, shop string, orderID int64) (bool, error)
	Release(ctx context.Context, shop string, orderID int64) error
}
