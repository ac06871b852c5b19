package model

import (
	"math"
	"slices"
	"time"
)

const (
	CategoryExterior   = "exterior"
	CategoryInterior   = "interior"
	CategoryFullDetail = "full-detail"
	CategoryProtection = "protection"
	CategoryAddOn      = "add-on"
)

// Service is a detailing offering from the catalog. Prices are in minor units.
type Service struct {
	ID                  string               `json:"id" bson:"_id" validate:"omitempty,mongodb"`
	Name                string               `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Slug                string               `json:"slug" bson:"slug"`
	Description         string               `json:"description,omitempty" bson:"description,omitempty" validate:"max=1000"`
	Category            string               `json:"category" bson:"category" validate:"required,oneof=exterior interior full-detail protection add-on"`
	BasePrice           int64                `json:"base_price" bson:"base_price" validate:"min=0"`
	VehiclePrices       map[string]int64     `json:"vehicle_prices,omitempty" bson:"vehicle_prices,omitempty" validate:"omitempty,dive,keys,oneof=sedan suv truck luxury other,endkeys,min=0"`
	SeasonalAdjustments []SeasonalAdjustment `json:"seasonal_adjustments,omitempty" bson:"seasonal_adjustments,omitempty" validate:"omitempty,max=12,dive"`
	Duration            int                  `json:"duration" bson:"duration" validate:"required,min=5,max=720"`
	IsActive            bool                 `json:"is_active" bson:"is_active"`
	CreatedAt           time.Time            `json:"created_at" bson:"created_at"`
	UpdatedAt           time.Time            `json:"updated_at" bson:"updated_at"`
}

// SeasonalAdjustment changes the price by Percent during the listed months.
type SeasonalAdjustment struct {
	Months  []int `json:"months" bson:"months" validate:"required,min=1,max=12,dive,min=1,max=12"`
	Percent int   `json:"percent" bson:"percent" validate:"min=-90,max=200"`
}

// Price returns the unit price for a vehicle type on the given day.
// A vehicle-specific price overrides the base price; the first matching
// seasonal adjustment is then applied and rounded to the nearest minor unit.
func (s *Service) Price(vehicleType string, on time.Time) int64 {
	price := s.BasePrice
	if p, ok := s.VehiclePrices[vehicleType]; ok {
		price = p
	}
	for _, adj := range s.SeasonalAdjustments {
		if slices.Contains(adj.Months, int(on.Month())) {
			adjusted := float64(price) * float64(100+adj.Percent) / 100
			return max(0, int64(math.Round(adjusted)))
		}
	}
	return price
}

type ServiceUpdate struct {
	Name                string                `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Description         *string               `json:"description,omitempty" validate:"omitempty,max=1000"`
	Category            string                `json:"category,omitempty" validate:"omitempty,oneof=exterior interior full-detail protection add-on"`
	BasePrice           *int64                `json:"base_price,omitempty" validate:"omitempty,min=0"`
	VehiclePrices       map[string]int64      `json:"vehicle_prices,omitempty" validate:"omitempty,dive,keys,oneof=sedan suv truck luxury other,endkeys,min=0"`
	SeasonalAdjustments *[]SeasonalAdjustment `json:"seasonal_adjustments,omitempty" validate:"omitempty,max=12,dive"`
	Duration            *int                  `json:"duration,omitempty" validate:"omitempty,min=5,max=720"`
	IsActive            *bool                 `json:"is_active,omitempty"`
}
