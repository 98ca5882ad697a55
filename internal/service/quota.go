// Package service contains the business logic layer.
//
// This file implements the quota gate: the single admission decision plus the
// atomic debit of the free-usage counter.
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

// QuotaService decides whether a metered action may proceed and debits the
// free-usage counter on admission.
type QuotaService interface {
	// CheckAndConsume returns the admission decision for identityID.
	// Premium/pro identities are always admitted with an unlimited sentinel
	// and no counter mutation. Free identities are admitted iff they are
	// below their cap; the check and the increment execute as one atomic
	// store operation, so concurrent requests can never overdraw the cap.
	// A denial is an ordinary Decision{Admitted: false}, not an error.
	CheckAndConsume(ctx context.Context, identityID uuid.UUID) (*domain.Decision, error)
}

// =============================================================================
// Implementation
// =============================================================================

type quotaService struct {
	store  domain.EntitlementStore
	logger *slog.Logger
}

// NewQuotaService creates a new QuotaService.
func NewQuotaService(store domain.EntitlementStore, logger *slog.Logger) QuotaService {
	return &quotaService{
		store:  store,
		logger: logger,
	}
}

// CheckAndConsume performs the read-check-increment for one request.
func (s *quotaService) CheckAndConsume(ctx context.Context, identityID uuid.UUID) (*domain.Decision, error) {
	const op = "quota.check_and_consume"

	// Lazily provision the entitlement on first contact.
	ent, err := s.store.Ensure(ctx, identityID)
	if err != nil {
		return nil, err
	}

	// Unlimited tiers never touch the counter.
	if ent.Unlimited() {
		metrics.AdmissionDecisions.WithLabelValues("admitted").Inc()
		return &domain.Decision{Admitted: true, Remaining: domain.UnlimitedRemaining}, nil
	}

	ent, admitted, err := s.store.ConsumeFreeUse(ctx, identityID)
	if err != nil {
		return nil, err
	}
	if !admitted && ent.Unlimited() {
		// Tier changed between the ensure and the debit; honor the upgrade.
		metrics.AdmissionDecisions.WithLabelValues("admitted").Inc()
		return &domain.Decision{Admitted: true, Remaining: domain.UnlimitedRemaining}, nil
	}

	if admitted {
		metrics.AdmissionDecisions.WithLabelValues("admitted").Inc()
	} else {
		metrics.AdmissionDecisions.WithLabelValues("denied").Inc()
		s.logger.Info("free request limit reached",
			"op", op,
			"identity_id", identityID,
			"used", ent.FreeUsed,
			"limit", ent.FreeLimit,
		)
	}

	return &domain.Decision{Admitted: admitted, Remaining: ent.Remaining()}, nil
}
