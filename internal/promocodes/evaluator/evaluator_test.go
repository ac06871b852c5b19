package evaluator

import (
	"testing"
	"time"

	"cardetail/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func livePromo() *model.PromoCode {
	return &model.PromoCode{
		Code:            "SAVE20",
		Type:            model.PromoTypePercentage,
		Value:           20,
		IsActive:        true,
		MaxUsagePerUser: 1,
		ValidFrom:       now.Add(-24 * time.Hour),
		ValidUntil:      now.Add(24 * time.Hour),
	}
}

func TestValidate_CheckOrder(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(p *model.PromoCode)
		user       string
		amount     int64
		services   []string
		wantValid  bool
		wantReason string
	}{
		{
			name:      "eligible",
			user:      "u1",
			amount:    10000,
			wantValid: true,
		},
		{
			name:       "inactive",
			mutate:     func(p *model.PromoCode) { p.IsActive = false },
			user:       "u1",
			amount:     10000,
			wantReason: ReasonNotActive,
		},
		{
			name:       "expired",
			mutate:     func(p *model.PromoCode) { p.ValidUntil = now.Add(-time.Minute) },
			user:       "u1",
			amount:     10000,
			wantReason: ReasonNotActive,
		},
		{
			name:       "not yet valid",
			mutate:     func(p *model.PromoCode) { p.ValidFrom = now.Add(time.Minute) },
			user:       "u1",
			amount:     10000,
			wantReason: ReasonNotActive,
		},
		{
			name: "global cap reached",
			mutate: func(p *model.PromoCode) {
				p.MaxUsage = ptr(2)
				p.CurrentUsage = 2
			},
			user:       "u1",
			amount:     10000,
			wantReason: ReasonUsageLimitReached,
		},
		{
			name:       "below minimum",
			mutate:     func(p *model.PromoCode) { p.MinimumOrderAmount = 5000 },
			user:       "u1",
			amount:     4999,
			wantReason: "Minimum order amount of $50.00 required",
		},
		{
			name:       "services not applicable",
			mutate:     func(p *model.PromoCode) { p.ApplicableServices = []string{"ceramic"} },
			user:       "u1",
			amount:     10000,
			services:   []string{"wash", "wax"},
			wantReason: ReasonNotApplicable,
		},
		{
			name:      "one applicable service is enough",
			mutate:    func(p *model.PromoCode) { p.ApplicableServices = []string{"ceramic"} },
			user:      "u1",
			amount:    10000,
			services:  []string{"wash", "ceramic"},
			wantValid: true,
		},
		{
			name:       "excluded user",
			mutate:     func(p *model.PromoCode) { p.ExcludedUsers = []string{"u1"} },
			user:       "u1",
			amount:     10000,
			wantReason: ReasonUserNotEligible,
		},
		{
			name:       "not in allow list",
			mutate:     func(p *model.PromoCode) { p.ApplicableUsers = []string{"u2"} },
			user:       "u1",
			amount:     10000,
			wantReason: ReasonUserNotEligible,
		},
		{
			name: "per-user limit reached",
			mutate: func(p *model.PromoCode) {
				p.UsageHistory = []model.PromoUsage{{UserID: "u1", BookingID: "b0"}}
				p.CurrentUsage = 1
			},
			user:       "u1",
			amount:     10000,
			wantReason: ReasonUserLimitReached,
		},
		{
			name: "inactive wins over every later check",
			mutate: func(p *model.PromoCode) {
				p.IsActive = false
				p.MinimumOrderAmount = 999999
				p.ExcludedUsers = []string{"u1"}
			},
			user:       "u1",
			amount:     1,
			wantReason: ReasonNotActive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := livePromo()
			if tt.mutate != nil {
				tt.mutate(p)
			}

			res := Validate(p, tt.user, tt.amount, tt.services, now)

			assert.Equal(t, tt.wantValid, res.Valid)
			assert.Equal(t, tt.wantReason, res.Reason)
		})
	}
}

func TestCalculateDiscount(t *testing.T) {
	tests := []struct {
		name   string
		promo  model.PromoCode
		amount int64
		want   int64
	}{
		{
			name:   "percentage",
			promo:  model.PromoCode{Type: model.PromoTypePercentage, Value: 20},
			amount: 10000,
			want:   2000,
		},
		{
			name:   "percentage rounds to nearest minor unit",
			promo:  model.PromoCode{Type: model.PromoTypePercentage, Value: 15},
			amount: 999,
			want:   150,
		},
		{
			name:   "fixed capped by maximum",
			promo:  model.PromoCode{Type: model.PromoTypeFixed, Value: 500, MaximumDiscountAmount: ptr(int64(300))},
			amount: 10000,
			want:   300,
		},
		{
			name:   "fixed never exceeds order",
			promo:  model.PromoCode{Type: model.PromoTypeFixed, Value: 5000},
			amount: 1200,
			want:   1200,
		},
		{
			name:   "full percentage equals order",
			promo:  model.PromoCode{Type: model.PromoTypePercentage, Value: 100},
			amount: 4321,
			want:   4321,
		},
		{
			name:   "zero order",
			promo:  model.PromoCode{Type: model.PromoTypeFixed, Value: 500},
			amount: 0,
			want:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateDiscount(&tt.promo, tt.amount)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, got, max(tt.amount, 0))
			assert.GreaterOrEqual(t, got, int64(0))
		})
	}
}

func TestApply_SAVE20Scenario(t *testing.T) {
	p := livePromo()
	p.MinimumOrderAmount = 5000

	first := Validate(p, "U", 10000, nil, now)
	require.True(t, first.Valid)

	discount := CalculateDiscount(p, 10000)
	require.Equal(t, int64(2000), discount)

	applied := Apply(p, "U", "booking-1", 10000, discount, nil, now)
	require.True(t, applied.Valid)
	assert.Equal(t, 1, p.CurrentUsage)
	require.Len(t, p.UsageHistory, 1)
	assert.Equal(t, model.PromoUsage{
		UserID: "U", BookingID: "booking-1", DiscountAmount: 2000, OrderAmount: 10000, UsedAt: now,
	}, p.UsageHistory[0])

	second := Validate(p, "U", 10000, nil, now)
	assert.False(t, second.Valid)
	assert.Equal(t, ReasonUserLimitReached, second.Reason)
}

func TestApply_RevalidatesAndKeepsUsageInLockstep(t *testing.T) {
	p := livePromo()
	p.MaxUsage = ptr(2)
	p.MaxUsagePerUser = 5

	assert.True(t, Apply(p, "a", "b1", 10000, 2000, nil, now).Valid)
	assert.True(t, Apply(p, "b", "b2", 10000, 2000, nil, now).Valid)

	res := Apply(p, "c", "b3", 10000, 2000, nil, now)
	assert.False(t, res.Valid)
	assert.Equal(t, ReasonUsageLimitReached, res.Reason)

	assert.Equal(t, 2, p.CurrentUsage)
	assert.Len(t, p.UsageHistory, p.CurrentUsage)
}

func TestApply_SameBookingOnce(t *testing.T) {
	p := livePromo()
	p.MaxUsagePerUser = 3

	require.True(t, Apply(p, "u1", "b1", 10000, 2000, nil, now).Valid)
	res := Apply(p, "u1", "b1", 10000, 2000, nil, now)

	assert.False(t, res.Valid)
	assert.Equal(t, ReasonAlreadyAppliedToID, res.Reason)
	assert.Equal(t, 1, p.CurrentUsage)
}

func TestMaxPerUser_DefaultsToOne(t *testing.T) {
	p := livePromo()
	p.MaxUsagePerUser = 0

	require.True(t, Apply(p, "u1", "b1", 10000, 2000, nil, now).Valid)
	assert.Equal(t, ReasonUserLimitReached, Validate(p, "u1", 10000, nil, now).Reason)
}
