package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrDuplicateSKU      = errors.New("duplicate sku")
	ErrDuplicateSlug     = errors.New("duplicate slug")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrCartEmpty         = errors.New("cart empty")
)
