package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/DukeRupert/gatehouse/internal/domain"
)

// RecordUsage increments the (identity, action kind) audit counter as a
// single upsert, creating the row on first use. The counter only ever grows.
func (s *Store) RecordUsage(ctx context.Context, identityID uuid.UUID, actionKind string) (*domain.UsageCounter, error) {
	const op = "store.usage_record"

	row := s.pool.QueryRow(ctx, `
INSERT INTO usage_counters (identity_id, action_kind, request_count, last_request_at)
VALUES ($1, $2, 1, now())
ON CONFLICT (identity_id, action_kind) DO UPDATE
SET request_count = usage_counters.request_count + 1,
    last_request_at = now()
RETURNING identity_id, action_kind, request_count, last_request_at`, identityID, actionKind)

	var c domain.UsageCounter
	if err := row.Scan(&c.IdentityID, &c.ActionKind, &c.RequestCount, &c.LastRequestAt); err != nil {
		return nil, storeErr(err, op)
	}
	return &c, nil
}

// ListUsage returns all audit counters for an identity, most recent first.
func (s *Store) ListUsage(ctx context.Context, identityID uuid.UUID) ([]domain.UsageCounter, error) {
	const op = "store.usage_list"

	rows, err := s.pool.Query(ctx, `
SELECT identity_id, action_kind, request_count, last_request_at
FROM usage_counters
WHERE identity_id = $1
ORDER BY last_request_at DESC`, identityID)
	if err != nil {
		return nil, storeErr(err, op)
	}
	defer rows.Close()

	var counters []domain.UsageCounter
	for rows.Next() {
		var c domain.UsageCounter
		if err := rows.Scan(&c.IdentityID, &c.ActionKind, &c.RequestCount, &c.LastRequestAt); err != nil {
			return nil, storeErr(err, op)
		}
		counters = append(counters, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(err, op)
	}
	return counters, nil
}
