package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/DukeRupert/gatehouse/internal/domain"
)

// memStore is an in-memory implementation of domain.EntitlementStore and
// domain.CodeStore for tests. Each check-and-mutate method holds the lock for
// its whole duration, giving the same linearizability the SQL store provides
// with row locks, so the concurrency tests exercise real interleavings.
type memStore struct {
	mu        sync.Mutex
	freeLimit int
	now       func() time.Time

	ents  map[uuid.UUID]*domain.Entitlement
	codes map[string]*domain.RedemptionCode
	usage map[uuid.UUID]map[string]*domain.UsageCounter
}

var (
	_ domain.EntitlementStore = (*memStore)(nil)
	_ domain.CodeStore        = (*memStore)(nil)
)

func newMemStore(freeLimit int) *memStore {
	return &memStore{
		freeLimit: freeLimit,
		now:       time.Now,
		ents:      make(map[uuid.UUID]*domain.Entitlement),
		codes:     make(map[string]*domain.RedemptionCode),
		usage:     make(map[uuid.UUID]map[string]*domain.UsageCounter),
	}
}

func (m *memStore) Ensure(_ context.Context, identityID uuid.UUID) (*domain.Entitlement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ent, ok := m.ents[identityID]
	if !ok {
		now := m.now()
		ent = &domain.Entitlement{
			IdentityID: identityID,
			PlanTier:   domain.PlanTierFree,
			FreeLimit:  m.freeLimit,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		m.ents[identityID] = ent
	}
	cp := *ent
	return &cp, nil
}

func (m *memStore) Get(_ context.Context, identityID uuid.UUID) (*domain.Entitlement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ent, ok := m.ents[identityID]
	if !ok {
		return nil, domain.NotFound("memstore.get", "entitlement", identityID.String())
	}
	cp := *ent
	return &cp, nil
}

func (m *memStore) ConsumeFreeUse(_ context.Context, identityID uuid.UUID) (*domain.Entitlement, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ent, ok := m.ents[identityID]
	if !ok {
		return nil, false, domain.NotFound("memstore.consume", "entitlement", identityID.String())
	}

	admitted := ent.PlanTier == domain.PlanTierFree && ent.FreeUsed < ent.FreeLimit
	if admitted {
		ent.FreeUsed++
		ent.UpdatedAt = m.now()
	}
	cp := *ent
	return &cp, admitted, nil
}

func (m *memStore) SetPlanTier(_ context.Context, identityID uuid.UUID, tier domain.PlanTier) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ent, ok := m.ents[identityID]
	if !ok {
		return domain.NotFound("memstore.set_tier", "entitlement", identityID.String())
	}
	ent.PlanTier = tier
	ent.UpdatedAt = m.now()
	return nil
}

func (m *memStore) RecordUsage(_ context.Context, identityID uuid.UUID, actionKind string) (*domain.UsageCounter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	byKind, ok := m.usage[identityID]
	if !ok {
		byKind = make(map[string]*domain.UsageCounter)
		m.usage[identityID] = byKind
	}
	counter, ok := byKind[actionKind]
	if !ok {
		counter = &domain.UsageCounter{IdentityID: identityID, ActionKind: actionKind}
		byKind[actionKind] = counter
	}
	counter.RequestCount++
	counter.LastRequestAt = m.now()
	cp := *counter
	return &cp, nil
}

func (m *memStore) ListUsage(_ context.Context, identityID uuid.UUID) ([]domain.UsageCounter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var counters []domain.UsageCounter
	for _, c := range m.usage[identityID] {
		counters = append(counters, *c)
	}
	return counters, nil
}

func (m *memStore) GetByCode(_ context.Context, code string) (*domain.RedemptionCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.codes[code]
	if !ok {
		return nil, domain.NotFound("memstore.code_get", "redemption code", code)
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) Create(_ context.Context, params domain.CreateCodeParams) (*domain.RedemptionCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.codes[params.Code]; exists {
		return nil, domain.Conflict("memstore.code_create", "Code already exists")
	}
	c := &domain.RedemptionCode{
		ID:            uuid.New(),
		Code:          params.Code,
		Description:   params.Description,
		MaxUses:       params.MaxUses,
		IsActive:      true,
		ExpiresAt:     params.ExpiresAt,
		GrantTier:     params.GrantTier,
		GrantFreeUses: params.GrantFreeUses,
		CreatedBy:     params.CreatedBy,
		CreatedAt:     m.now(),
	}
	m.codes[params.Code] = c
	cp := *c
	return &cp, nil
}

func (m *memStore) Deactivate(_ context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.codes[code]
	if !ok {
		return domain.NotFound("memstore.code_deactivate", "redemption code", code)
	}
	c.IsActive = false
	return nil
}

func (m *memStore) Redeem(_ context.Context, identityID uuid.UUID, code string) (*domain.RedemptionResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.codes[code]
	if !ok {
		return &domain.RedemptionResult{Reason: domain.ReasonCodeNotFound}, nil
	}
	if reason := c.Usability(m.now()); reason != "" {
		return &domain.RedemptionResult{Reason: reason, RemainingUses: c.RemainingUses()}, nil
	}

	ent, ok := m.ents[identityID]
	if !ok {
		return nil, domain.NotFound("memstore.redeem", "entitlement", identityID.String())
	}
	if ent.RedeemedCode != nil {
		return &domain.RedemptionResult{
			Reason:        domain.ReasonAlreadyRedeemed,
			RemainingUses: c.RemainingUses(),
		}, nil
	}

	c.CurrentUses++
	redeemed := c.Code
	ent.RedeemedCode = &redeemed
	if c.GrantTier != nil {
		ent.PlanTier = *c.GrantTier
	}
	ent.FreeLimit += c.GrantFreeUses
	ent.UpdatedAt = m.now()

	return &domain.RedemptionResult{
		Redeemed:      true,
		RemainingUses: c.RemainingUses(),
	}, nil
}
