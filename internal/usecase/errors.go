package usecase

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindUnauthenticated      ErrorKind = "unauthenticated"
	KindNotFound             ErrorKind = "not_found"
	KindValidation           ErrorKind = "validation_error"
	KindEmptyCart            ErrorKind = "empty_cart"
	KindInactiveProduct      ErrorKind = "inactive_product"
	KindInsufficientStock    ErrorKind = "insufficient_stock"
	KindTransitionNotAllowed ErrorKind = "transition_not_allowed"
	KindInvalidOperation     ErrorKind = "invalid_operation"
)

// Error is an expected, user facing failure. Anything else returned by a
// usecase is an infrastructure error.
type Error struct {
	Kind      ErrorKind
	Message   string
	ProductID int64  // inactive_product, insufficient_stock
	From      string // transition_not_allowed
	To        string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func ErrUnauthenticated() error {
	return &Error{Kind: KindUnauthenticated, Message: "unauthenticated"}
}

func ErrNotFound(what string) error {
	return &Error{Kind: KindNotFound, Message: what + " not found"}
}

func ErrValidation(msg string) error {
	return &Error{Kind: KindValidation, Message: msg}
}

func ErrEmptyCart() error {
	return &Error{Kind: KindEmptyCart, Message: "cart is empty"}
}

func ErrInactiveProduct(productID int64) error {
	return &Error{
		Kind:      KindInactiveProduct,
		Message:   fmt.Sprintf("product %d is not available", productID),
		ProductID: productID,
	}
}

func ErrInsufficientStock(productID int64) error {
	return &Error{
		Kind:      KindInsufficientStock,
		Message:   fmt.Sprintf("insufficient stock for product %d", productID),
		ProductID: productID,
	}
}

func ErrTransitionNotAllowed(from, to string) error {
	return &Error{
		Kind:    KindTransitionNotAllowed,
		Message: fmt.Sprintf("cannot transition from %s to %s", from, to),
		From:    from,
		To:      to,
	}
}

func ErrInvalidOperation(msg string) error {
	return &Error{Kind: KindInvalidOperation, Message: msg}
}

func AsError(err error) (*Error, bool) {
	var ue *Error
	ok := errors.As(err, &ue)
	return ue, ok
}

// IsKind reports whether err is a usecase error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	ue, ok := AsError(err)
	return ok && ue.Kind == kind
}
