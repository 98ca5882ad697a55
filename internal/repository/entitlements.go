package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/DukeRupert/gatehouse/internal/domain"
)

const entitlementColumns = `identity_id, plan_tier, free_used, free_limit, redeemed_code, created_at, updated_at`

// Ensure returns the entitlement for identityID, creating a free-tier record
// with the default allowance if none exists. The insert uses ON CONFLICT DO
// NOTHING so concurrent first contact for the same identity cannot create
// duplicates: the loser of the race simply reads the winner's row.
func (s *Store) Ensure(ctx context.Context, identityID uuid.UUID) (*domain.Entitlement, error) {
	const op = "store.entitlement_ensure"

	_, err := s.pool.Exec(ctx, `
INSERT INTO entitlements (identity_id, free_limit)
VALUES ($1, $2)
ON CONFLICT (identity_id) DO NOTHING`, identityID, s.freeLimit)
	if err != nil {
		return nil, storeErr(err, op)
	}

	return s.get(ctx, op, identityID)
}

// Get returns the entitlement for identityID, or ENOTFOUND if Ensure was
// never called for it.
func (s *Store) Get(ctx context.Context, identityID uuid.UUID) (*domain.Entitlement, error) {
	return s.get(ctx, "store.entitlement_get", identityID)
}

func (s *Store) get(ctx context.Context, op string, identityID uuid.UUID) (*domain.Entitlement, error) {
	row := s.pool.QueryRow(ctx, `
SELECT `+entitlementColumns+`
FROM entitlements
WHERE identity_id = $1`, identityID)

	ent, err := scanEntitlement(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NotFound(op, "entitlement", identityID.String())
		}
		return nil, storeErr(err, op)
	}
	return ent, nil
}

// ConsumeFreeUse performs the free-tier check-then-increment as one UPDATE:
// the WHERE clause admits only rows below their cap, so two concurrent calls
// observing free_used = free_limit-1 can never both match. When the guarded
// update hits no row the current state is re-read to report post-operation
// counters without mutating anything.
func (s *Store) ConsumeFreeUse(ctx context.Context, identityID uuid.UUID) (*domain.Entitlement, bool, error) {
	const op = "store.entitlement_consume"

	row := s.pool.QueryRow(ctx, `
UPDATE entitlements
SET free_used = free_used + 1, updated_at = now()
WHERE identity_id = $1
  AND plan_tier = 'free'
  AND free_used < free_limit
RETURNING `+entitlementColumns, identityID)

	ent, err := scanEntitlement(row)
	if err == nil {
		return ent, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, storeErr(err, op)
	}

	// Not admitted: cap reached, tier changed mid-flight, or unknown identity.
	ent, err = s.get(ctx, op, identityID)
	if err != nil {
		return nil, false, err
	}
	return ent, false, nil
}

// SetPlanTier writes an externally triggered tier transition. Counters are
// untouched: a downgrade back to free resumes against the identity's existing
// free_used.
func (s *Store) SetPlanTier(ctx context.Context, identityID uuid.UUID, tier domain.PlanTier) error {
	const op = "store.entitlement_set_tier"

	tag, err := s.pool.Exec(ctx, `
UPDATE entitlements
SET plan_tier = $2, updated_at = now()
WHERE identity_id = $1`, identityID, tier)
	if err != nil {
		return storeErr(err, op)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound(op, "entitlement", identityID.String())
	}
	return nil
}

func scanEntitlement(row pgx.Row) (*domain.Entitlement, error) {
	var e domain.Entitlement
	err := row.Scan(
		&e.IdentityID,
		&e.PlanTier,
		&e.FreeUsed,
		&e.FreeLimit,
		&e.RedeemedCode,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
