package domain

import "errors"

var (
	// ErrNotFound is returned when the requested resource does not exist.
	// Keeping this sentinel in domain allows adapters to map it consistently to 404.
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidInput covers request shapes that violate constraints,
	// e.g. both force_balance and force_payment set on a buy call.
	ErrInvalidInput = errors.New("invalid input")
	// ErrForbidden signals the caller is not the owner and lacks a staff role.
	ErrForbidden = errors.New("forbidden")
	ErrConflict  = errors.New("conflict")

	// ErrStockExceeded is returned when a basket add would exceed the total
	// quantity available across all vendor stocks for the product.
	ErrStockExceeded = errors.New("stock exceeded")
	// ErrInactiveProduct covers products whose own flag, brand or category is inactive.
	ErrInactiveProduct = errors.New("inactive product")
	// ErrNotEnoughMoney is returned by the balance purchase path; no state changes.
	ErrNotEnoughMoney = errors.New("not enough money")
	// ErrPromoCodeInvalid covers expired, spent or user-mismatched promocodes.
	ErrPromoCodeInvalid = errors.New("promo code invalid")
	// ErrDisabledCommerce is the global kill-switch response for every buy operation.
	ErrDisabledCommerce = errors.New("commerce is disabled")

	// ErrUpstream marks gateway or rates provider failures and timeouts.
	// Local state is rolled back to its pre-call snapshot before this surfaces.
	ErrUpstream = errors.New("upstream failure")
	// ErrUnknownGateway is returned for callbacks addressed to an unregistered
	// gateway name and surfaces as a 500 by contract.
	ErrUnknownGateway = errors.New("unknown gateway")
	// ErrRatesMissing means the rates provider has no entry for the currency.
	ErrRatesMissing = errors.New("no rate for currency")

	// ErrOrderNotMutable rejects basket mutations on orders outside PENDING/MOMENTAL.
	ErrOrderNotMutable = errors.New("order is not mutable")
)
