package domain

import (
	"time"

	"github.com/google/uuid"
)

// UsageCounter is the per-identity, per-action-kind audit ledger. It is
// distinct from the coarse free-usage gate counter: the surrounding layer
// records here after a metered action completes, while only the quota gate
// touches Entitlement.FreeUsed.
//
// Invariant: RequestCount is monotonically non-decreasing for a given
// (identity, action kind) pair.
type UsageCounter struct {
	IdentityID    uuid.UUID
	ActionKind    string
	RequestCount  int64
	LastRequestAt time.Time
}

// DefaultActionKind is used when the caller does not name the metered action.
const DefaultActionKind = "stylist_request"
