package errors

import "errors"

var (
	ErrNotFound = errors.New("promo code not found")

	ErrDuplicateCode = errors.New("promo code already exists")

	ErrUsageRejected = errors.New("promo code usage rejected by concurrent update")
)
