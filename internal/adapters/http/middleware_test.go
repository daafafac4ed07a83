package http

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/evibes/commerce/internal/domain"
)

func TestMapDomainError(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err    error
		status int
		code   string
	}{
		{domain.ErrInvalidInput, http.StatusBadRequest, "VALIDATION_ERROR"},
		{domain.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
		{domain.ErrConflict, http.StatusConflict, "CONFLICT"},
		{domain.ErrStockExceeded, http.StatusConflict, "STOCK_EXCEEDED"},
		{domain.ErrInactiveProduct, http.StatusConflict, "INACTIVE_PRODUCT"},
		{domain.ErrNotEnoughMoney, http.StatusPaymentRequired, "NOT_ENOUGH_MONEY"},
		{domain.ErrPromoCodeInvalid, http.StatusBadRequest, "PROMOCODE_INVALID"},
		{domain.ErrDisabledCommerce, http.StatusServiceUnavailable, "COMMERCE_DISABLED"},
		{domain.ErrOrderNotMutable, http.StatusConflict, "ORDER_NOT_MUTABLE"},
		{domain.ErrRatesMissing, http.StatusBadGateway, "RATES_MISSING"},
		{domain.ErrUnknownGateway, http.StatusInternalServerError, "UNKNOWN_GATEWAY"},
		{domain.ErrUpstream, http.StatusBadGateway, "UPSTREAM_ERROR"},
		{domain.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tc := range cases {
		status, code, _ := mapDomainError(tc.err)
		if status != tc.status || code != tc.code {
			t.Fatalf("mapDomainError(%v) = %d %s, want %d %s", tc.err, status, code, tc.status, tc.code)
		}
	}
}

func TestMapDomainErrorUnwrapsContext(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("%w: order is empty", domain.ErrInvalidInput)
	status, code, message := mapDomainError(wrapped)
	if status != http.StatusBadRequest || code != "VALIDATION_ERROR" {
		t.Fatalf("wrapped error mapped to %d %s", status, code)
	}
	if message != wrapped.Error() {
		t.Fatalf("validation errors should keep their context, got %q", message)
	}
}
