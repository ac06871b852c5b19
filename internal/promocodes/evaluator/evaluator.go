// Package evaluator holds the promo code eligibility rules and discount math.
// Every function is pure; persistence is the caller's concern.
package evaluator

import (
	"fmt"
	"math"
	"slices"
	"time"

	"cardetail/pkg/model"
)

const (
	ReasonNotActive          = "Promo code not active or expired"
	ReasonUsageLimitReached  = "Promo code usage limit reached"
	ReasonNotApplicable      = "Promo code not applicable to selected services"
	ReasonUserNotEligible    = "Promo code not available for this user"
	ReasonUserLimitReached   = "Promo code maximum times already used"
	ReasonAlreadyAppliedToID = "Promo code already applied to this booking"
)

type Result struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

func valid() Result { return Result{Valid: true} }

func invalid(reason string) Result { return Result{Reason: reason} }

// Validate runs the eligibility checks in order and stops at the first failure.
func Validate(p *model.PromoCode, userID string, orderAmount int64, serviceIDs []string, now time.Time) Result {
	if !p.IsLive(now) {
		return invalid(ReasonNotActive)
	}
	if p.MaxUsage != nil && p.CurrentUsage >= *p.MaxUsage {
		return invalid(ReasonUsageLimitReached)
	}
	if orderAmount < p.MinimumOrderAmount {
		return invalid(MinimumOrderReason(p.MinimumOrderAmount))
	}
	if len(p.ApplicableServices) > 0 && !containsAny(p.ApplicableServices, serviceIDs) {
		return invalid(ReasonNotApplicable)
	}
	if slices.Contains(p.ExcludedUsers, userID) {
		return invalid(ReasonUserNotEligible)
	}
	if len(p.ApplicableUsers) > 0 && !slices.Contains(p.ApplicableUsers, userID) {
		return invalid(ReasonUserNotEligible)
	}
	if p.UsageCountFor(userID) >= maxPerUser(p) {
		return invalid(ReasonUserLimitReached)
	}
	return valid()
}

// MinimumOrderReason formats the minimum in major units, e.g. "$50.00".
func MinimumOrderReason(minimum int64) string {
	return fmt.Sprintf("Minimum order amount of $%.2f required", float64(minimum)/100)
}

// CalculateDiscount returns the discount in minor units for orderAmount.
// The result is never negative and never exceeds orderAmount.
func CalculateDiscount(p *model.PromoCode, orderAmount int64) int64 {
	if orderAmount <= 0 {
		return 0
	}

	var discount int64
	switch p.Type {
	case model.PromoTypePercentage:
		discount = int64(math.Round(float64(orderAmount) * float64(p.Value) / 100))
	case model.PromoTypeFixed:
		discount = p.Value
	}

	if p.MaximumDiscountAmount != nil && discount > *p.MaximumDiscountAmount {
		discount = *p.MaximumDiscountAmount
	}
	if discount > orderAmount {
		discount = orderAmount
	}
	return max(0, discount)
}

// Apply re-validates and, when eligible, records one usage on p.
// A booking can consume a code at most once.
func Apply(p *model.PromoCode, userID, bookingID string, orderAmount, discountAmount int64, serviceIDs []string, now time.Time) Result {
	if bookingID != "" && p.UsedByBooking(bookingID) {
		return invalid(ReasonAlreadyAppliedToID)
	}
	if res := Validate(p, userID, orderAmount, serviceIDs, now); !res.Valid {
		return res
	}

	p.CurrentUsage++
	p.UsageHistory = append(p.UsageHistory, model.PromoUsage{
		UserID:         userID,
		BookingID:      bookingID,
		DiscountAmount: discountAmount,
		OrderAmount:    orderAmount,
		UsedAt:         now,
	})
	return valid()
}

func maxPerUser(p *model.PromoCode) int {
	if p.MaxUsagePerUser <= 0 {
		return model.DefaultMaxUsagePerUser
	}
	return p.MaxUsagePerUser
}

func containsAny(allowed, requested []string) bool {
	for _, id := range requested {
		if slices.Contains(allowed, id) {
			return true
		}
	}
	return false
}
