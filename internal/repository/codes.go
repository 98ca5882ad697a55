package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/DukeRupert/gatehouse/internal/domain"
)

const codeColumns = `id, code, description, max_uses, current_uses, is_active, expires_at, grant_tier, grant_free_uses, created_by, created_at`

// GetByCode looks up a code by its normalized string.
func (s *Store) GetByCode(ctx context.Context, code string) (*domain.RedemptionCode, error) {
	const op = "store.code_get"

	row := s.pool.QueryRow(ctx, `
SELECT `+codeColumns+`
FROM redemption_codes
WHERE code = $1`, code)

	c, err := scanCode(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NotFound(op, "redemption code", code)
		}
		return nil, storeErr(err, op)
	}
	return c, nil
}

// Create inserts a new redemption code.
func (s *Store) Create(ctx context.Context, params domain.CreateCodeParams) (*domain.RedemptionCode, error) {
	const op = "store.code_create"

	row := s.pool.QueryRow(ctx, `
INSERT INTO redemption_codes (code, description, max_uses, expires_at, grant_tier, grant_free_uses, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING `+codeColumns,
		params.Code,
		params.Description,
		params.MaxUses,
		params.ExpiresAt,
		params.GrantTier,
		params.GrantFreeUses,
		params.CreatedBy,
	)

	c, err := scanCode(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.Conflict(op, "Code already exists")
		}
		return nil, storeErr(err, op)
	}
	return c, nil
}

// Deactivate flips the code's kill switch. Deactivation is the only supported
// retraction: a code referenced by an entitlement is never deleted.
func (s *Store) Deactivate(ctx context.Context, code string) error {
	const op = "store.code_deactivate"

	tag, err := s.pool.Exec(ctx, `
UPDATE redemption_codes
SET is_active = false
WHERE code = $1`, code)
	if err != nil {
		return storeErr(err, op)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound(op, "redemption code", code)
	}
	return nil
}

// Redeem runs the whole check-and-consume inside one transaction. The code
// row is locked first, then the entitlement row; all redemptions acquire
// locks in that order, so concurrent attempts serialize per code without
// deadlocking. A denial at any check commits with no mutation.
func (s *Store) Redeem(ctx context.Context, identityID uuid.UUID, code string) (*domain.RedemptionResult, error) {
	const op = "store.code_redeem"

	var result domain.RedemptionResult

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
SELECT `+codeColumns+`
FROM redemption_codes
WHERE code = $1
FOR UPDATE`, code)

		c, err := scanCode(row)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				result = domain.RedemptionResult{Reason: domain.ReasonCodeNotFound}
				return nil
			}
			return err
		}

		if reason := c.Usability(time.Now()); reason != "" {
			result = domain.RedemptionResult{Reason: reason, RemainingUses: c.RemainingUses()}
			return nil
		}

		var redeemedCode *string
		err = tx.QueryRow(ctx, `
SELECT redeemed_code
FROM entitlements
WHERE identity_id = $1
FOR UPDATE`, identityID).Scan(&redeemedCode)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.NotFound(op, "entitlement", identityID.String())
			}
			return err
		}
		if redeemedCode != nil {
			// First write wins: retrying after a prior success never
			// double-applies the entitlement effect.
			result = domain.RedemptionResult{
				Reason:        domain.ReasonAlreadyRedeemed,
				RemainingUses: c.RemainingUses(),
			}
			return nil
		}

		var currentUses int
		err = tx.QueryRow(ctx, `
UPDATE redemption_codes
SET current_uses = current_uses + 1
WHERE id = $1
RETURNING current_uses`, c.ID).Scan(&currentUses)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
UPDATE entitlements
SET redeemed_code = $2,
    plan_tier = COALESCE($3, plan_tier),
    free_limit = free_limit + $4,
    updated_at = now()
WHERE identity_id = $1`, identityID, c.Code, c.GrantTier, c.GrantFreeUses)
		if err != nil {
			return err
		}

		result = domain.RedemptionResult{
			Redeemed:      true,
			RemainingUses: c.MaxUses - currentUses,
		}
		return nil
	})
	if err != nil {
		var derr *domain.Error
		if errors.As(err, &derr) {
			return nil, derr
		}
		return nil, storeErr(err, op)
	}

	return &result, nil
}

func scanCode(row pgx.Row) (*domain.RedemptionCode, error) {
	var c domain.RedemptionCode
	err := row.Scan(
		&c.ID,
		&c.Code,
		&c.Description,
		&c.MaxUses,
		&c.CurrentUses,
		&c.IsActive,
		&c.ExpiresAt,
		&c.GrantTier,
		&c.GrantFreeUses,
		&c.CreatedBy,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
