package service

import "errors"

// Kind classifies service errors for the transport layer.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthenticated
	KindForbidden
	KindNotFound
)

// Error is a client-facing failure. Msg is safe to return to callers.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}

func validationError(msg string) *Error {
	return &Error{Kind: KindValidation, Msg: msg}
}

// KindOf returns the kind of err, or KindInternal when err is not a
// service error.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

var (
	ErrUnauthenticated      = &Error{Kind: KindUnauthenticated, Msg: "authentication required"}
	ErrUserNotFound         = &Error{Kind: KindUnauthenticated, Msg: "user not found"}
	ErrInvalidCredentials   = &Error{Kind: KindUnauthenticated, Msg: "invalid email or password"}
	ErrUserExists           = &Error{Kind: KindValidation, Msg: "user already exists"}
	ErrForbidden            = &Error{Kind: KindForbidden, Msg: "you do not have access to this resource"}
	ErrInvalidCartOperation = &Error{Kind: KindValidation, Msg: "listing cannot be added to the cart"}
	ErrInvalidQuantity      = &Error{Kind: KindValidation, Msg: "quantity must be between 1 and 99"}
	ErrEmptyCheckout        = &Error{Kind: KindValidation, Msg: "no valid cart items to check out"}
	ErrListingUnavailable   = &Error{Kind: KindValidation, Msg: "one or more listings are no longer available"}
	ErrListingNotFound      = &Error{Kind: KindNotFound, Msg: "product not found"}
	ErrCategoryNotFound     = &Error{Kind: KindValidation, Msg: "unknown category"}
	ErrOrderNotFound        = &Error{Kind: KindNotFound, Msg: "order not found"}
	ErrInvalidTransition    = &Error{Kind: KindValidation, Msg: "invalid order status transition"}
	ErrNotificationNotFound = &Error{Kind: KindNotFound, Msg: "notification not found"}
)
