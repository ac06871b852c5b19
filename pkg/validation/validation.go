// Package validation wraps go-playground/validator with the domain rules
// shared by bookings, promo codes and the service catalog.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	apperrors "cardetail/pkg/errors"
	"cardetail/pkg/logger"
	"cardetail/pkg/model"

	"github.com/go-playground/validator/v10"
)

const (
	TagClock       = "hhmm"
	TagDate        = "date_ymd"
	TagVehicleYear = "vehicle_year"
	TagPromoCode   = "promo_code"

	MinVehicleYear = 1900
)

var promoCodeRegex = regexp.MustCompile(`^[A-Z0-9]{3,20}$`)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

// AppError converts the failures into a 422 with per-field details.
func (v ValidationErrors) AppError() *apperrors.AppError {
	fields := make(map[string]any, len(v))
	for _, e := range v {
		fields[e.Field] = e.Message
	}
	msg := "Validation failed"
	if len(v) == 1 {
		msg = v[0].Message
	}
	return apperrors.Validation(msg, fields)
}

func Field(field, message string) ValidationErrors {
	return ValidationErrors{{Field: field, Message: message}}
}

type Validator struct {
	validate *validator.Validate
	now      func() time.Time
}

// New builds a validator with the domain rules registered. A registration
// failure is a programming error and stops the process.
func New(log *logger.Logger) *Validator {
	v := &Validator{validate: validator.New(), now: time.Now}

	rules := map[string]validator.Func{
		TagClock:       validateClock,
		TagDate:        validateDate,
		TagVehicleYear: v.validateVehicleYear,
		TagPromoCode:   validatePromoCode,
	}
	for tag, fn := range rules {
		if err := v.validate.RegisterValidation(tag, fn); err != nil {
			log.Fatal("Failed to register validator", "tag", tag, "error", err)
		}
	}
	return v
}

// Struct validates s and returns ValidationErrors on rule failures.
func (v *Validator) Struct(s any) error {
	if err := v.validate.Struct(s); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return translate(validationErrs)
		}
		return err
	}
	return nil
}

// Var validates a single value against a tag expression.
func (v *Validator) Var(field string, value any, tag string) error {
	if err := v.validate.Var(value, tag); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			errs := translate(validationErrs)
			for i := range errs {
				errs[i].Field = field
				errs[i].Message = strings.Replace(errs[i].Message, validationErrs[i].Field(), field, 1)
			}
			return errs
		}
		return err
	}
	return nil
}

func validateClock(fl validator.FieldLevel) bool {
	_, err := model.ParseClock(fl.Field().String())
	return err == nil
}

func validateDate(fl validator.FieldLevel) bool {
	_, err := time.Parse(model.DateLayout, fl.Field().String())
	return err == nil
}

func (v *Validator) validateVehicleYear(fl validator.FieldLevel) bool {
	year := fl.Field().Int()
	return year >= MinVehicleYear && year <= int64(v.now().Year()+1)
}

func validatePromoCode(fl validator.FieldLevel) bool {
	return promoCodeRegex.MatchString(fl.Field().String())
}

func translate(errs validator.ValidationErrors) ValidationErrors {
	var out ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required", "required_without":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "len":
			message = fmt.Sprintf("%s must be exactly %s characters", err.Field(), err.Param())
		case "mongodb":
			message = fmt.Sprintf("%s must be a valid MongoDB ObjectID", err.Field())
		case "e164":
			message = fmt.Sprintf("%s must be in E.164 format (e.g., +12025550123)", err.Field())
		case "email":
			message = fmt.Sprintf("%s must be a valid email address", err.Field())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		case "gtfield":
			message = fmt.Sprintf("%s must be after %s", err.Field(), err.Param())
		case "alphanum":
			message = fmt.Sprintf("%s must contain only letters and digits", err.Field())
		case TagClock:
			message = fmt.Sprintf("%s must be a 24h time in HH:MM format", err.Field())
		case TagDate:
			message = fmt.Sprintf("%s must be a date in YYYY-MM-DD format", err.Field())
		case TagVehicleYear:
			message = fmt.Sprintf("%s must be between %d and next year", err.Field(), MinVehicleYear)
		case TagPromoCode:
			message = fmt.Sprintf("%s must be 3-20 uppercase letters or digits", err.Field())
		}

		out = append(out, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return out
}

// AsAppError maps validation failures to a 422 and passes other errors through.
func AsAppError(err error) error {
	if err == nil {
		return nil
	}
	var verrs ValidationErrors
	if errors.As(err, &verrs) {
		return verrs.AppError()
	}
	return apperrors.Internal("Validation could not be performed", err)
}
