package validator

import (
	"fmt"

	"cardetail/pkg/logger"
	"cardetail/pkg/model"
	"cardetail/pkg/validation"
)

const MaxPercentage = 100

type PromoCodeValidator struct {
	validate *validation.Validator
	logger   *logger.Logger
}

func NewPromoCodeValidator(log *logger.Logger) *PromoCodeValidator {
	v := validation.New(log)
	log.Info("Promo code validator initialized successfully")
	return &PromoCodeValidator{
		validate: v,
		logger:   log,
	}
}

func (v *PromoCodeValidator) Validate(promo *model.PromoCode) error {
	if err := v.validate.Struct(promo); err != nil {
		return err
	}

	if promo.Type == model.PromoTypePercentage && promo.Value > MaxPercentage {
		return validation.Field("Value", fmt.Sprintf("Value must be at most %d for percentage codes", MaxPercentage))
	}

	if !promo.ValidFrom.Before(promo.ValidUntil) {
		return validation.Field("ValidUntil", "ValidUntil must be after ValidFrom")
	}

	return nil
}

func (v *PromoCodeValidator) ValidateUpdate(update *model.PromoCodeUpdate) error {
	return v.validate.Struct(update)
}

func (v *PromoCodeValidator) ValidateRequest(req *model.ValidatePromoRequest) error {
	return v.validate.Struct(req)
}
