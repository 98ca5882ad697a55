package domain

import (
	"context"

	"github.com/google/uuid"
)

// EntitlementStore is durable, transactionally consistent storage for
// entitlements and usage counters. Every check-and-mutate method executes as
// a single atomic operation against the store: no caller reads a counter and
// writes it back in two steps.
type EntitlementStore interface {
	// Ensure returns the entitlement for identityID, creating a default
	// free-tier record if none exists. Idempotent and safe under concurrent
	// first contact: a unique-key conflict resolves to "do nothing, then read".
	Ensure(ctx context.Context, identityID uuid.UUID) (*Entitlement, error)

	// Get returns the entitlement, or an ENOTFOUND error if Ensure was never
	// called for identityID.
	Get(ctx context.Context, identityID uuid.UUID) (*Entitlement, error)

	// ConsumeFreeUse atomically performs the free-tier check-then-increment:
	// the returned entitlement reflects post-operation state, and admitted
	// reports whether FreeUsed was incremented. Premium/pro rows and rows at
	// their cap are never mutated. Two racing calls at FreeLimit-1 admit
	// exactly one.
	ConsumeFreeUse(ctx context.Context, identityID uuid.UUID) (ent *Entitlement, admitted bool, err error)

	// SetPlanTier writes an externally triggered tier transition.
	SetPlanTier(ctx context.Context, identityID uuid.UUID, tier PlanTier) error

	// RecordUsage atomically increments the (identity, actionKind) audit
	// counter, creating it on first use, and returns the updated counter.
	RecordUsage(ctx context.Context, identityID uuid.UUID, actionKind string) (*UsageCounter, error)

	// ListUsage returns all audit counters for an identity.
	ListUsage(ctx context.Context, identityID uuid.UUID) ([]UsageCounter, error)
}

// CodeStore is durable storage for redemption codes.
type CodeStore interface {
	// GetByCode looks up a code by its normalized string.
	// Returns an ENOTFOUND error if absent.
	GetByCode(ctx context.Context, code string) (*RedemptionCode, error)

	// Create inserts a new code. Returns an ECONFLICT error if the code
	// string is already taken.
	Create(ctx context.Context, params CreateCodeParams) (*RedemptionCode, error)

	// Deactivate flips the kill switch. Codes are never physically deleted
	// while an entitlement may reference them.
	Deactivate(ctx context.Context, code string) error

	// Redeem executes the full check-and-consume as one atomic unit: code
	// lookup, usability checks, the already-redeemed guard on the identity,
	// the CurrentUses increment, and the entitlement effect. When capacity or
	// the identity guard denies the attempt, no row is mutated. Two racing
	// redemptions of a code with one use left yield exactly one success and
	// one ReasonCodeExhausted.
	//
	// The identity's entitlement row must exist (callers Ensure first).
	Redeem(ctx context.Context, identityID uuid.UUID, code string) (*RedemptionResult, error)
}
