// Package repository implements the durable store on PostgreSQL via pgx.
//
// Every check-and-mutate operation here is a single SQL statement or a single
// transaction with explicit row locks, so the invariants hold under
// concurrent callers without any in-process coordination. Operations on
// different identities or different codes touch different rows and do not
// contend.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/DukeRupert/gatehouse/internal/domain"
)

// pgUniqueViolation is the Postgres error code for unique constraint failures.
const pgUniqueViolation = "23505"

// Store provides PostgreSQL-backed implementations of domain.EntitlementStore
// and domain.CodeStore.
type Store struct {
	pool      *pgxpool.Pool
	freeLimit int // free_limit assigned to newly created entitlements
}

// NewStore creates a Store. defaultFreeLimit is the free-request allowance
// written into lazily created entitlements; zero falls back to
// domain.DefaultFreeLimit.
func NewStore(pool *pgxpool.Pool, defaultFreeLimit int) *Store {
	if defaultFreeLimit <= 0 {
		defaultFreeLimit = domain.DefaultFreeLimit
	}
	return &Store{
		pool:      pool,
		freeLimit: defaultFreeLimit,
	}
}

// NewPool initializes a pgx connection pool for the given database URL.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 1
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	return pool, nil
}

// storeErr translates a driver error into a domain error. Connectivity
// failures, timeouts, and serialization aborts become EUNAVAILABLE so callers
// know the whole operation is safe to retry; everything else is EINTERNAL.
func storeErr(err error, op string) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return domain.Unavailable(err, op)
	}
	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return domain.Unavailable(err, op)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "40001", pgErr.Code == "40P01": // serialization failure, deadlock
			return domain.Unavailable(err, op)
		case len(pgErr.Code) >= 2 && pgErr.Code[:2] == "08": // connection exception
			return domain.Unavailable(err, op)
		}
	}
	return domain.Internal(err, op, "store operation failed")
}

// isUniqueViolation reports whether err is a unique constraint failure.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
