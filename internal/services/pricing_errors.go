package services

import "errors"

var (
	// ErrPricingInvalidInput signals request data the engine cannot price,
	// such as quantities or prices that would overflow int64 arithmetic.
	ErrPricingInvalidInput = errors.New("pricing: invalid input")
	// ErrPricingEngineMissing is returned by constructors when the pricing
	// engine dependency was not provided.
	ErrPricingEngineMissing = errors.New("pricing: engine is required")
	// ErrBundleServiceMissing is returned by constructors when the bundle
	// service dependency was not provided.
	ErrBundleServiceMissing = errors.New("pricing: bundle service is required")
)
