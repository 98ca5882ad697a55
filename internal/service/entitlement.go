// Package service contains the business logic layer.
//
// This file implements entitlement lifecycle and the per-action audit trail.
package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/DukeRupert/gatehouse/internal/domain"
	"github.com/DukeRupert/gatehouse/internal/metrics"
)

// =============================================================================
// Interface Definition
// =============================================================================

// EntitlementService manages entitlement records and the usage audit trail.
type EntitlementService interface {
	// Ensure idempotently provisions the entitlement for identityID.
	Ensure(ctx context.Context, identityID uuid.UUID) (*domain.Entitlement, error)

	// Status returns the reporting view of an identity's entitlement.
	// Returns domain.ENOTFOUND if the identity was never seen.
	Status(ctx context.Context, identityID uuid.UUID) (*domain.Status, error)

	// SetPlanTier writes an externally triggered tier transition (e.g. the
	// billing system confirming an upgrade). Returns domain.EINVALID for
	// unknown tiers.
	SetPlanTier(ctx context.Context, identityID uuid.UUID, tier domain.PlanTier) error

	// RecordUsage appends to the per-action audit counter. This is separate
	// from the gating counter: it never affects admission decisions.
	RecordUsage(ctx context.Context, identityID uuid.UUID, actionKind string) (*domain.UsageCounter, error)

	// Usage returns all audit counters for an identity.
	Usage(ctx context.Context, identityID uuid.UUID) ([]domain.UsageCounter, error)
}

// =============================================================================
// Implementation
// =============================================================================

type entitlementService struct {
	store  domain.EntitlementStore
	logger *slog.Logger
}

// NewEntitlementService creates a new EntitlementService.
func NewEntitlementService(store domain.EntitlementStore, logger *slog.Logger) EntitlementService {
	return &entitlementService{
		store:  store,
		logger: logger,
	}
}

func (s *entitlementService) Ensure(ctx context.Context, identityID uuid.UUID) (*domain.Entitlement, error) {
	return s.store.Ensure(ctx, identityID)
}

func (s *entitlementService) Status(ctx context.Context, identityID uuid.UUID) (*domain.Status, error) {
	ent, err := s.store.Get(ctx, identityID)
	if err != nil {
		return nil, err
	}

	remaining := ent.Remaining()
	canRequest := ent.Unlimited() || remaining > 0
	return &domain.Status{
		IdentityID:      ent.IdentityID,
		PlanTier:        ent.PlanTier,
		FreeUsed:        ent.FreeUsed,
		FreeLimit:       ent.FreeLimit,
		Remaining:       remaining,
		CanRequest:      canRequest,
		UpgradeRequired: !canRequest && ent.PlanTier == domain.PlanTierFree,
		RedeemedCode:    ent.RedeemedCode,
	}, nil
}

func (s *entitlementService) SetPlanTier(ctx context.Context, identityID uuid.UUID, tier domain.PlanTier) error {
	const op = "entitlement.set_plan_tier"

	if !domain.ValidPlanTier(tier) {
		return domain.Invalid(op, "Unknown plan tier")
	}

	if err := s.store.SetPlanTier(ctx, identityID, tier); err != nil {
		return err
	}

	s.logger.Info("plan tier updated", "op", op, "identity_id", identityID, "tier", tier)
	return nil
}

func (s *entitlementService) RecordUsage(ctx context.Context, identityID uuid.UUID, actionKind string) (*domain.UsageCounter, error) {
	if actionKind == "" {
		actionKind = domain.DefaultActionKind
	}

	// The counter row references the entitlement row.
	if _, err := s.store.Ensure(ctx, identityID); err != nil {
		return nil, err
	}

	counter, err := s.store.RecordUsage(ctx, identityID, actionKind)
	if err != nil {
		return nil, err
	}

	metrics.UsageEventsRecorded.WithLabelValues(actionKind).Inc()
	return counter, nil
}

func (s *entitlementService) Usage(ctx context.Context, identityID uuid.UUID) ([]domain.UsageCounter, error) {
	return s.store.ListUsage(ctx, identityID)
}
