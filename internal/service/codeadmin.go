// Package service contains the business logic layer.
//
// This file implements the administrative lifecycle of redemption codes:
// creation and deactivation. Codes are never deleted; an entitlement may
// reference a code forever.
package service

import (
	"context"
	"crypto/rand"
	"log/slog"
	"time"

	"github.com/DukeRupert/gatehouse/internal/domain"
	"github.com/DukeRupert/gatehouse/internal/metrics"
)

// codeAlphabet excludes ambiguous characters (0/O, 1/I/L) so generated codes
// survive being read aloud or retyped.
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// GeneratedCodeLength is the length of auto-generated code strings.
const GeneratedCodeLength = 10

// =============================================================================
// Interface Definition
// =============================================================================

// CodeAdminService manages redemption codes on behalf of administrators.
type CodeAdminService interface {
	// CreateCode registers a new code. An empty params.Code auto-generates
	// one. Returns domain.ECONFLICT if the code string is taken and
	// domain.EINVALID for bad parameters.
	CreateCode(ctx context.Context, params domain.CreateCodeParams) (*domain.RedemptionCode, error)

	// DeactivateCode flips the code's kill switch. Idempotent in effect:
	// deactivating an inactive code succeeds.
	DeactivateCode(ctx context.Context, code string) error
}

// =============================================================================
// Implementation
// =============================================================================

type codeAdminService struct {
	codes  domain.CodeStore
	logger *slog.Logger
}

// NewCodeAdminService creates a new CodeAdminService.
func NewCodeAdminService(codes domain.CodeStore, logger *slog.Logger) CodeAdminService {
	return &codeAdminService{
		codes:  codes,
		logger: logger,
	}
}

func (s *codeAdminService) CreateCode(ctx context.Context, params domain.CreateCodeParams) (*domain.RedemptionCode, error) {
	const op = "codeadmin.create"

	if params.MaxUses < 1 {
		return nil, domain.Invalid(op, "Max uses must be at least 1")
	}
	if params.GrantFreeUses < 0 {
		return nil, domain.Invalid(op, "Grant free uses must be non-negative")
	}
	if params.GrantTier != nil {
		if *params.GrantTier == domain.PlanTierFree || !domain.ValidPlanTier(*params.GrantTier) {
			return nil, domain.Invalid(op, "Grant tier must be premium or pro")
		}
	}
	if params.ExpiresAt != nil && !params.ExpiresAt.After(time.Now()) {
		return nil, domain.Invalid(op, "Expiry must be in the future")
	}

	params.Code = domain.NormalizeCode(params.Code)
	if params.Code == "" {
		code, err := generateCode()
		if err != nil {
			return nil, domain.Internal(err, op, "Failed to generate code")
		}
		params.Code = code
	}

	c, err := s.codes.Create(ctx, params)
	if err != nil {
		return nil, err
	}

	metrics.CodesCreated.Inc()
	s.logger.Info("code created",
		"op", op,
		"code", c.Code,
		"max_uses", c.MaxUses,
		"expires_at", c.ExpiresAt,
	)
	return c, nil
}

func (s *codeAdminService) DeactivateCode(ctx context.Context, code string) error {
	const op = "codeadmin.deactivate"

	normalized := domain.NormalizeCode(code)
	if normalized == "" {
		return domain.Invalid(op, "Code is required")
	}

	if err := s.codes.Deactivate(ctx, normalized); err != nil {
		return err
	}

	s.logger.Info("code deactivated", "op", op, "code", normalized)
	return nil
}

// generateCode returns a random code drawn from the unambiguous alphabet.
func generateCode() (string, error) {
	buf := make([]byte, GeneratedCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}
