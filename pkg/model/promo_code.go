package model

import "time"

const (
	PromoTypePercentage = "percentage"
	PromoTypeFixed      = "fixed"
)

const DefaultMaxUsagePerUser = 1

type PromoCode struct {
	ID                    string       `json:"id" bson:"_id" validate:"omitempty,mongodb"`
	Code                  string       `json:"code" bson:"code" validate:"required,promo_code"`
	Name                  string       `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Description           string       `json:"description,omitempty" bson:"description,omitempty" validate:"max=500"`
	Type                  string       `json:"type" bson:"type" validate:"required,oneof=percentage fixed"`
	Value                 int64        `json:"value" bson:"value" validate:"min=0"`
	MinimumOrderAmount    int64        `json:"minimum_order_amount" bson:"minimum_order_amount" validate:"min=0"`
	MaximumDiscountAmount *int64       `json:"maximum_discount_amount,omitempty" bson:"maximum_discount_amount,omitempty" validate:"omitempty,min=0"`
	MaxUsage              *int         `json:"max_usage,omitempty" bson:"max_usage,omitempty" validate:"omitempty,min=1"`
	MaxUsagePerUser       int          `json:"max_usage_per_user" bson:"max_usage_per_user" validate:"min=1"`
	CurrentUsage          int          `json:"current_usage" bson:"current_usage" validate:"min=0"`
	IsActive              bool         `json:"is_active" bson:"is_active"`
	ValidFrom             time.Time    `json:"valid_from" bson:"valid_from" validate:"required"`
	ValidUntil            time.Time    `json:"valid_until" bson:"valid_until" validate:"required,gtfield=ValidFrom"`
	ApplicableServices    []string     `json:"applicable_services,omitempty" bson:"applicable_services,omitempty" validate:"omitempty,max=100,dive,required"`
	ApplicableUsers       []string     `json:"applicable_users,omitempty" bson:"applicable_users,omitempty" validate:"omitempty,max=1000,dive,required"`
	ExcludedUsers         []string     `json:"excluded_users,omitempty" bson:"excluded_users,omitempty" validate:"omitempty,max=1000,dive,required"`
	UsageHistory          []PromoUsage `json:"usage_history" bson:"usage_history"`
	CreatedBy             string       `json:"created_by,omitempty" bson:"created_by,omitempty"`
	CreatedAt             time.Time    `json:"created_at" bson:"created_at"`
	UpdatedAt             time.Time    `json:"updated_at" bson:"updated_at"`
}

type PromoUsage struct {
	UserID         string    `json:"user_id" bson:"user_id"`
	BookingID      string    `json:"booking_id" bson:"booking_id"`
	DiscountAmount int64     `json:"discount_amount" bson:"discount_amount"`
	OrderAmount    int64     `json:"order_amount" bson:"order_amount"`
	UsedAt         time.Time `json:"used_at" bson:"used_at"`
}

// IsLive reports isActive and now within [validFrom, validUntil].
func (p *PromoCode) IsLive(now time.Time) bool {
	return p.IsActive && !now.Before(p.ValidFrom) && !now.After(p.ValidUntil)
}

func (p *PromoCode) UsageCountFor(userID string) int {
	count := 0
	for _, u := range p.UsageHistory {
		if u.UserID == userID {
			count++
		}
	}
	return count
}

func (p *PromoCode) UsedByBooking(bookingID string) bool {
	for _, u := range p.UsageHistory {
		if u.BookingID == bookingID {
			return true
		}
	}
	return false
}

type PromoCodeUpdate struct {
	Name                  string     `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Description           *string    `json:"description,omitempty" validate:"omitempty,max=500"`
	Type                  string     `json:"type,omitempty" validate:"omitempty,oneof=percentage fixed"`
	Value                 *int64     `json:"value,omitempty" validate:"omitempty,min=0"`
	MinimumOrderAmount    *int64     `json:"minimum_order_amount,omitempty" validate:"omitempty,min=0"`
	MaximumDiscountAmount *int64     `json:"maximum_discount_amount,omitempty" validate:"omitempty,min=0"`
	MaxUsage              *int       `json:"max_usage,omitempty" validate:"omitempty,min=1"`
	MaxUsagePerUser       *int       `json:"max_usage_per_user,omitempty" validate:"omitempty,min=1"`
	IsActive              *bool      `json:"is_active,omitempty"`
	ValidFrom             *time.Time `json:"valid_from,omitempty"`
	ValidUntil            *time.Time `json:"valid_until,omitempty"`
	ApplicableServices    *[]string  `json:"applicable_services,omitempty" validate:"omitempty,max=100,dive,required"`
	ApplicableUsers       *[]string  `json:"applicable_users,omitempty" validate:"omitempty,max=1000,dive,required"`
	ExcludedUsers         *[]string  `json:"excluded_users,omitempty" validate:"omitempty,max=1000,dive,required"`
}

type ValidatePromoRequest struct {
	Code        string   `json:"code" validate:"required,promo_code"`
	UserID      string   `json:"user_id" validate:"required,max=64"`
	OrderAmount int64    `json:"order_amount" validate:"min=0"`
	ServiceIDs  []string `json:"service_ids" validate:"omitempty,max=20,dive,required"`
}

type ValidatePromoResponse struct {
	Valid          bool   `json:"valid"`
	Reason         string `json:"reason,omitempty"`
	DiscountAmount int64  `json:"discount_amount"`
}
