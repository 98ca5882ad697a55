// Package domain contains core business types and interfaces.
//
// This file defines the RedemptionCode type and the reason taxonomy for
// redemption outcomes. Denials are ordinary values, never errors: the caller
// needs the precise reason to show a useful message.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var codeCaser = cases.Upper(language.Und)

// NormalizeCode canonicalizes a redemption code for lookup and storage.
// Codes are matched case-insensitively with surrounding whitespace ignored.
func NormalizeCode(code string) string {
	return codeCaser.String(strings.TrimSpace(code))
}

// RedemptionCode is a capacity-limited token that grants an entitlement
// upgrade when consumed.
//
// Invariant: CurrentUses <= MaxUses at all times, including under concurrent
// redemption attempts. A code referenced by any entitlement's RedeemedCode is
// never physically deleted; IsActive=false is the only supported retraction.
type RedemptionCode struct {
	ID          uuid.UUID
	Code        string // normalized, unique
	Description string
	MaxUses     int
	CurrentUses int
	IsActive    bool
	ExpiresAt   *time.Time

	// Entitlement effect granted on redemption. Configuration carried by the
	// code row, not hard-coded: either or both may be set.
	GrantTier     *PlanTier // bump plan tier to this value
	GrantFreeUses int       // raise FreeLimit by this many requests
	CreatedBy     *uuid.UUID
	CreatedAt     time.Time
}

// RemainingUses returns how many redemptions the code has left.
func (c *RedemptionCode) RemainingUses() int {
	if r := c.MaxUses - c.CurrentUses; r > 0 {
		return r
	}
	return 0
}

// RedemptionReason identifies why a redemption attempt was denied.
type RedemptionReason string

const (
	ReasonCodeNotFound    RedemptionReason = "code_not_found"
	ReasonCodeInactive    RedemptionReason = "code_inactive"
	ReasonCodeExpired     RedemptionReason = "code_expired"
	ReasonCodeExhausted   RedemptionReason = "code_exhausted"
	ReasonAlreadyRedeemed RedemptionReason = "already_redeemed"
)

// Usability evaluates the code checks in their fixed order: active, then
// expiry, then capacity. The first failing check wins. An empty reason means
// the code is consumable.
//
// Both the SQL store (inside its row-locked transaction) and the validation
// endpoint go through this single implementation so the check order cannot
// drift.
func (c *RedemptionCode) Usability(now time.Time) RedemptionReason {
	if !c.IsActive {
		return ReasonCodeInactive
	}
	if c.ExpiresAt != nil && !c.ExpiresAt.After(now) {
		return ReasonCodeExpired
	}
	if c.CurrentUses >= c.MaxUses {
		return ReasonCodeExhausted
	}
	return ""
}

// RedemptionResult is the outcome of a redemption attempt. Redeemed=false
// with a Reason is an ordinary negative result, not an error.
type RedemptionResult struct {
	Redeemed      bool             `json:"redeemed"`
	Reason        RedemptionReason `json:"reason,omitempty"`
	RemainingUses int              `json:"remaining_uses"`
}

// CodeValidation is the outcome of a non-consuming code check. It mirrors
// RedemptionResult's reason taxonomy without touching any counter.
type CodeValidation struct {
	Valid         bool             `json:"valid"`
	Reason        RedemptionReason `json:"reason,omitempty"`
	RemainingUses int              `json:"remaining_uses"`
}

// CreateCodeParams contains validated parameters for administrative code
// creation.
type CreateCodeParams struct {
	Code          string // normalized; empty means auto-generate
	Description   string
	MaxUses       int
	ExpiresAt     *time.Time
	GrantTier     *PlanTier
	GrantFreeUses int
	CreatedBy     *uuid.UUID
}
