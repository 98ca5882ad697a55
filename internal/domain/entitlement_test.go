package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEntitlementRemaining(t *testing.T) {
	tests := []struct {
		name string
		ent  Entitlement
		want int
	}{
		{"fresh free identity", Entitlement{PlanTier: PlanTierFree, FreeUsed: 0, FreeLimit: 4}, 4},
		{"partially used", Entitlement{PlanTier: PlanTierFree, FreeUsed: 3, FreeLimit: 4}, 1},
		{"at the cap", Entitlement{PlanTier: PlanTierFree, FreeUsed: 4, FreeLimit: 4}, 0},
		{"premium is unlimited", Entitlement{PlanTier: PlanTierPremium, FreeUsed: 4, FreeLimit: 4}, UnlimitedRemaining},
		{"pro is unlimited", Entitlement{PlanTier: PlanTierPro}, UnlimitedRemaining},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.ent.Remaining())
		})
	}
}

func TestEntitlementUnlimited(t *testing.T) {
	assert.False(t, (&Entitlement{PlanTier: PlanTierFree}).Unlimited())
	assert.True(t, (&Entitlement{PlanTier: PlanTierPremium}).Unlimited())
	assert.True(t, (&Entitlement{PlanTier: PlanTierPro}).Unlimited())
}

func TestValidPlanTier(t *testing.T) {
	assert.True(t, ValidPlanTier(PlanTierFree))
	assert.True(t, ValidPlanTier(PlanTierPremium))
	assert.True(t, ValidPlanTier(PlanTierPro))
	assert.False(t, ValidPlanTier(PlanTier("gold")))
	assert.False(t, ValidPlanTier(PlanTier("")))
}

func TestHasRedeemed(t *testing.T) {
	code := "WELCOME"
	assert.False(t, (&Entitlement{}).HasRedeemed())
	assert.True(t, (&Entitlement{RedeemedCode: &code}).HasRedeemed())
}
