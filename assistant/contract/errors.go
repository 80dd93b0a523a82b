package contract

import "errors"

var (
	// ErrNotFound is the generic absent-record sentinel. More specific
	// sentinels below wrap richer context at the call site.
	ErrNotFound      = errors.New("not found")
	ErrItemNotFound  = errors.New("item not found")
	ErrEventNotFound = errors.New("event not found")
	ErrCartNotFound  = errors.New("cart not found")
	ErrItemNotInCart = errors.New("item not in cart")

	ErrValidation = errors.New("validation failed")
	ErrUpstream   = errors.New("upstream unavailable")
)
