package services

import (
	"errors"
	"fmt"
)

// Error kinds. Controllers map these onto HTTP status codes.
var (
	ErrValidation      = errors.New("validation error")
	ErrConflict        = errors.New("conflict")
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrUpstream        = errors.New("payment gateway error")
)

var (
	ErrEmptyCart          = fmt.Errorf("%w: cart is empty", ErrConflict)
	ErrProductInactive    = fmt.Errorf("%w: product is not available", ErrConflict)
	ErrInsufficientStock  = fmt.Errorf("%w: insufficient stock", ErrConflict)
	ErrOrderAlreadyPaid   = fmt.Errorf("%w: order already paid", ErrConflict)
	ErrOrderCancelled     = fmt.Errorf("%w: order is cancelled", ErrConflict)
	ErrOrderNotCancelable = fmt.Errorf("%w: only orders awaiting payment can be cancelled", ErrConflict)
	ErrInsufficientCash   = fmt.Errorf("%w: amount tendered is less than order total", ErrConflict)
	ErrNotCashless        = fmt.Errorf("%w: order was not placed as cashless", ErrConflict)

	ErrOrderNotFound   = fmt.Errorf("%w: order not found", ErrNotFound)
	ErrProductNotFound = fmt.Errorf("%w: product not found", ErrNotFound)
	ErrCartItemMissing = fmt.Errorf("%w: item is not in the cart", ErrNotFound)

	ErrAdminOnly        = fmt.Errorf("%w: admin access required", ErrForbidden)
	ErrGatewayRefDiffer = fmt.Errorf("%w: gateway order id does not belong to this order", ErrValidation)
)

// StockConflictError is returned when a stock change would leave a negative count.
type StockConflictError struct {
	ProductID    string
	CurrentStock int
	Attempted    int
}

func (e *StockConflictError) Error() string {
	return fmt.Sprintf("stock for product %s would become negative (current %d, attempted %d)", e.ProductID, e.CurrentStock, e.Attempted)
}

func (e *StockConflictError) Unwrap() error { return ErrInsufficientStock }

func validationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
