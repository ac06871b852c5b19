package validator

import (
	"cardetail/pkg/logger"
	"cardetail/pkg/model"
	"cardetail/pkg/validation"
)

type BookingValidator struct {
	validate *validation.Validator
	logger   *logger.Logger
}

func NewBookingValidator(log *logger.Logger) *BookingValidator {
	v := validation.New(log)
	log.Info("Booking validator initialized successfully")
	return &BookingValidator{
		validate: v,
		logger:   log,
	}
}

func (v *BookingValidator) Validate(booking *model.Booking) error {
	if err := v.validate.Struct(booking); err != nil {
		return err
	}
	if booking.DiscountAmount > booking.Subtotal() {
		return validation.Field("DiscountAmount", "DiscountAmount cannot exceed the services subtotal")
	}
	if booking.TotalAmount != booking.Subtotal()-booking.DiscountAmount {
		return validation.Field("TotalAmount", "TotalAmount must equal the services subtotal minus the discount")
	}
	return nil
}

func (v *BookingValidator) ValidateCreate(req *model.CreateBookingRequest) error {
	return v.validate.Struct(req)
}

func (v *BookingValidator) ValidateUpdate(update *model.BookingUpdate) error {
	return v.validate.Struct(update)
}

// ValidateRequest covers the single-purpose transition payloads.
func (v *BookingValidator) ValidateRequest(req any) error {
	return v.validate.Struct(req)
}
