// Package service contains the business logic layer.
//
// This file implements the admission facade: the one call surface external
// callers use. It carries no logic of its own; it exists so callers get a
// stable contract insulated from how the gates compose internally.
package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/DukeRupert/gatehouse/internal/domain"
)

// =============================================================================
// Interface Definition
// =============================================================================

// AdmissionService is the single entry point for admission decisions.
type AdmissionService interface {
	// RequestAdmission decides whether one metered action may proceed,
	// debiting the free-usage counter on admission.
	RequestAdmission(ctx context.Context, identityID uuid.UUID) (*domain.Decision, error)

	// ApplyInviteCode consumes a redemption code for the identity. After a
	// successful redemption the caller retries RequestAdmission.
	ApplyInviteCode(ctx context.Context, identityID uuid.UUID, code string) (*domain.RedemptionResult, error)
}

// =============================================================================
// Implementation
// =============================================================================

type admissionService struct {
	quota      QuotaService
	redemption RedemptionService
}

// NewAdmissionService creates a new AdmissionService composing the two gates.
func NewAdmissionService(quota QuotaService, redemption RedemptionService) AdmissionService {
	return &admissionService{
		quota:      quota,
		redemption: redemption,
	}
}

func (s *admissionService) RequestAdmission(ctx context.Context, identityID uuid.UUID) (*domain.Decision, error) {
	return s.quota.CheckAndConsume(ctx, identityID)
}

func (s *admissionService) ApplyInviteCode(ctx context.Context, identityID uuid.UUID, code string) (*domain.RedemptionResult, error) {
	return s.redemption.Redeem(ctx, identityID, code)
}
