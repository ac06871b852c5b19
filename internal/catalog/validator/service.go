package validator

import (
	"cardetail/pkg/logger"
	"cardetail/pkg/model"
	"cardetail/pkg/validation"
)

type ServiceValidator struct {
	validate *validation.Validator
	logger   *logger.Logger
}

func NewServiceValidator(log *logger.Logger) *ServiceValidator {
	return &ServiceValidator{
		validate: validation.New(log),
		logger:   log,
	}
}

func (v *ServiceValidator) Validate(svc *model.Service) error {
	if err := v.validate.Struct(svc); err != nil {
		return err
	}
	if svc.BasePrice == 0 && len(svc.VehiclePrices) == 0 && svc.Category != model.CategoryAddOn {
		return validation.Field("BasePrice", "BasePrice is required unless vehicle prices are set")
	}
	return nil
}

func (v *ServiceValidator) ValidateUpdate(update *model.ServiceUpdate) error {
	return v.validate.Struct(update)
}
