// Package domain contains core business types and interfaces.
//
// This file defines the Entitlement domain type: the durable record of an
// identity's plan tier and free-usage counters. Identities themselves are
// owned by an external auth system; this core only attaches entitlement data
// to their ids.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// PlanTier represents the pricing tier of an identity.
type PlanTier string

const (
	PlanTierFree    PlanTier = "free"
	PlanTierPremium PlanTier = "premium"
	PlanTierPro     PlanTier = "pro"
)

// ValidPlanTier reports whether t is a known tier.
func ValidPlanTier(t PlanTier) bool {
	switch t {
	case PlanTierFree, PlanTierPremium, PlanTierPro:
		return true
	}
	return false
}

// DefaultFreeLimit is the number of free requests granted to a
// newly-seen identity. Overridable via config at store construction.
const DefaultFreeLimit = 4

// UnlimitedRemaining is the sentinel reported as "remaining" for tiers that
// are not subject to the free-usage cap.
const UnlimitedRemaining = -1

// Entitlement is the stored record of an identity's plan tier and usage
// counters.
//
// Invariants (also enforced as check constraints in the store):
//   - FreeUsed <= FreeLimit
//   - FreeUsed never decreases except by administrative reset
//   - RedeemedCode is set at most once (first successful redemption wins)
type Entitlement struct {
	IdentityID   uuid.UUID
	PlanTier     PlanTier
	FreeUsed     int
	FreeLimit    int
	RedeemedCode *string // normalized code string, nil until first redemption
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Unlimited reports whether the identity is exempt from the free-usage cap.
func (e *Entitlement) Unlimited() bool {
	return e.PlanTier == PlanTierPremium || e.PlanTier == PlanTierPro
}

// Remaining returns the number of free requests left, or UnlimitedRemaining
// for premium/pro identities.
func (e *Entitlement) Remaining() int {
	if e.Unlimited() {
		return UnlimitedRemaining
	}
	if r := e.FreeLimit - e.FreeUsed; r > 0 {
		return r
	}
	return 0
}

// HasRedeemed reports whether the identity has already consumed a code.
func (e *Entitlement) HasRedeemed() bool {
	return e.RedeemedCode != nil
}

// Status is the reporting view of an entitlement surfaced to callers.
type Status struct {
	IdentityID      uuid.UUID `json:"identity_id"`
	PlanTier        PlanTier  `json:"plan_tier"`
	FreeUsed        int       `json:"free_used"`
	FreeLimit       int       `json:"free_limit"`
	Remaining       int       `json:"remaining"`
	CanRequest      bool      `json:"can_request"`
	UpgradeRequired bool      `json:"upgrade_required"`
	RedeemedCode    *string   `json:"redeemed_code,omitempty"`
}

// Decision is the outcome of an admission check.
//
// Remaining reflects the counter state after the check: on an admitted free
// request it already accounts for the debit. UnlimitedRemaining means the
// identity is not metered.
type Decision struct {
	Admitted  bool `json:"admitted"`
	Remaining int  `json:"remaining"`
}
