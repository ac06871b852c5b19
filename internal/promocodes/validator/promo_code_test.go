package validator

import (
	"testing"
	"time"

	"cardetail/pkg/logger"
	"cardetail/pkg/model"
	"cardetail/pkg/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validPromo() *model.PromoCode {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return &model.PromoCode{
		Code:            "SAVE20",
		Name:            "Spring sale",
		Type:            model.PromoTypePercentage,
		Value:           20,
		MaxUsagePerUser: 1,
		IsActive:        true,
		ValidFrom:       from,
		ValidUntil:      from.AddDate(0, 3, 0),
	}
}

func TestPromoCodeValidator_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(p *model.PromoCode)
		wantField string
	}{
		{name: "valid", mutate: func(p *model.PromoCode) {}},
		{name: "lowercase code", mutate: func(p *model.PromoCode) { p.Code = "save20" }, wantField: "Code"},
		{name: "code too long", mutate: func(p *model.PromoCode) { p.Code = "ABCDEFGHIJKLMNOPQRSTU" }, wantField: "Code"},
		{name: "unknown type", mutate: func(p *model.PromoCode) { p.Type = "bogo" }, wantField: "Type"},
		{name: "percentage over 100", mutate: func(p *model.PromoCode) { p.Value = 101 }, wantField: "Value"},
		{name: "fixed over 100 allowed", mutate: func(p *model.PromoCode) { p.Type = model.PromoTypeFixed; p.Value = 2500 }},
		{name: "per-user zero", mutate: func(p *model.PromoCode) { p.MaxUsagePerUser = 0 }, wantField: "MaxUsagePerUser"},
		{name: "window inverted", mutate: func(p *model.PromoCode) { p.ValidUntil = p.ValidFrom.Add(-time.Hour) }, wantField: "ValidUntil"},
		{name: "window empty", mutate: func(p *model.PromoCode) { p.ValidUntil = p.ValidFrom }, wantField: "ValidUntil"},
	}

	v := NewPromoCodeValidator(logger.Discard())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPromo()
			tt.mutate(p)

			err := v.Validate(p)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var verrs validation.ValidationErrors
			require.ErrorAs(t, err, &verrs)
			assert.Equal(t, tt.wantField, verrs[0].Field)
		})
	}
}

func TestPromoCodeValidator_ValidateRequest(t *testing.T) {
	v := NewPromoCodeValidator(logger.Discard())

	assert.NoError(t, v.ValidateRequest(&model.ValidatePromoRequest{Code: "SAVE20", UserID: "u1", OrderAmount: 100}))
	assert.Error(t, v.ValidateRequest(&model.ValidatePromoRequest{Code: "SAVE20", OrderAmount: 100}))
	assert.Error(t, v.ValidateRequest(&model.ValidatePromoRequest{Code: "SAVE20", UserID: "u1", OrderAmount: -1}))
}
