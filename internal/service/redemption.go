// Package service contains the business logic layer.
//
// This file implements the redemption gate: exactly-once-per-capacity
// consumption of redemption codes and application of their entitlement effect.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/DukeRupert/gatehouse/internal/domain"
	"github.com/DukeRupert/gatehouse/internal/metrics"
)

// =============================================================================
// Interface Definition
// =============================================================================

// RedemptionService validates and consumes redemption codes.
type RedemptionService interface {
	// Redeem consumes one use of the code for identityID and applies the
	// code's entitlement effect. Denials (unknown, inactive, expired,
	// exhausted, already redeemed) come back as RedemptionResult values;
	// errors are reserved for store failures. Retrying after a success
	// returns ReasonAlreadyRedeemed and never double-applies the effect.
	Redeem(ctx context.Context, identityID uuid.UUID, code string) (*domain.RedemptionResult, error)

	// Validate checks a code without consuming it, returning the same reason
	// taxonomy plus remaining uses.
	Validate(ctx context.Context, code string) (*domain.CodeValidation, error)
}

// =============================================================================
// Implementation
// =============================================================================

type redemptionService struct {
	codes        domain.CodeStore
	entitlements domain.EntitlementStore
	logger       *slog.Logger
}

// NewRedemptionService creates a new RedemptionService.
func NewRedemptionService(codes domain.CodeStore, entitlements domain.EntitlementStore, logger *slog.Logger) RedemptionService {
	return &redemptionService{
		codes:        codes,
		entitlements: entitlements,
		logger:       logger,
	}
}

// Redeem normalizes the code, makes sure the identity's entitlement row
// exists, then delegates the check-and-consume to the store, which runs it as
// one atomic unit.
func (s *redemptionService) Redeem(ctx context.Context, identityID uuid.UUID, code string) (*domain.RedemptionResult, error) {
	const op = "redemption.redeem"

	normalized := domain.NormalizeCode(code)
	if normalized == "" {
		return nil, domain.Invalid(op, "Code is required")
	}

	if _, err := s.entitlements.Ensure(ctx, identityID); err != nil {
		return nil, err
	}

	result, err := s.codes.Redeem(ctx, identityID, normalized)
	if err != nil {
		return nil, err
	}

	if result.Redeemed {
		metrics.Redemptions.WithLabelValues("redeemed").Inc()
		s.logger.Info("code redeemed",
			"op", op,
			"identity_id", identityID,
			"code", normalized,
			"remaining_uses", result.RemainingUses,
		)
	} else {
		metrics.Redemptions.WithLabelValues(string(result.Reason)).Inc()
		s.logger.Info("redemption denied",
			"op", op,
			"identity_id", identityID,
			"code", normalized,
			"reason", result.Reason,
		)
	}

	return result, nil
}

// Validate checks the code read-only. The result can go stale immediately
// under concurrent redemptions; only Redeem is authoritative.
func (s *redemptionService) Validate(ctx context.Context, code string) (*domain.CodeValidation, error) {
	const op = "redemption.validate"

	normalized := domain.NormalizeCode(code)
	if normalized == "" {
		return nil, domain.Invalid(op, "Code is required")
	}

	c, err := s.codes.GetByCode(ctx, normalized)
	if err != nil {
		if domain.ErrorCode(err) == domain.ENOTFOUND {
			return &domain.CodeValidation{Reason: domain.ReasonCodeNotFound}, nil
		}
		return nil, err
	}

	if reason := c.Usability(time.Now()); reason != "" {
		return &domain.CodeValidation{Reason: reason, RemainingUses: c.RemainingUses()}, nil
	}

	return &domain.CodeValidation{Valid: true, RemainingUses: c.RemainingUses()}, nil
}
