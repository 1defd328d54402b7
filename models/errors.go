package models

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCart           = errors.New("order must contain at least one item")
	ErrOrderNotFound       = errors.New("order not found")
	ErrDeliveryNotFound    = errors.New("delivery record not found")
	ErrIllegalTransition   = errors.New("illegal order status transition")
	ErrInvalidDeliveryCode = errors.New("invalid delivery verification code")
	ErrOrderBusy           = errors.New("another update for this order is in progress")
	ErrDuplicateRequest    = errors.New("duplicate request")
)

type ProductNotFoundError struct {
	ProductID int
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %d not found", e.ProductID)
}

type InsufficientStockError struct {
	ProductID int
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}
