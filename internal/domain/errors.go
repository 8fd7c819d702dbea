package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the core wraps exactly one of these,
// so transports can classify failures with errors.Is.
var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidTransition = errors.New("invalid order status transition")
	ErrUnpurchased       = errors.New("product was not purchased in a delivered order")
	ErrDuplicateReview   = errors.New("product already reviewed by this user")
	ErrStockAdjustment   = errors.New("stock adjustment failed")
	ErrInsufficientStock = errors.New("insufficient stock")
)

var (
	ErrInvalidQuantity   = fmt.Errorf("%w: quantity must be a positive integer", ErrValidation)
	ErrInvalidProductID  = fmt.Errorf("%w: invalid product id", ErrValidation)
	ErrInvalidUserID     = fmt.Errorf("%w: user id is required", ErrValidation)
	ErrInvalidRating     = fmt.Errorf("%w: rating must be an integer between 1 and 5", ErrValidation)
	ErrInvalidPrice      = fmt.Errorf("%w: price must not be negative", ErrValidation)
	ErrEmptyOrder        = fmt.Errorf("%w: order must contain at least one item", ErrValidation)
	ErrMissingTotal      = fmt.Errorf("%w: total price is required", ErrValidation)
	ErrTotalMismatch     = fmt.Errorf("%w: total price does not match the sum of item prices", ErrValidation)
	ErrOrderOwner        = fmt.Errorf("%w: order must have exactly one of user or guest info", ErrValidation)
	ErrIncompleteGuest   = fmt.Errorf("%w: guest info requires first name, last name, email and phone", ErrValidation)
	ErrMissingAddress    = fmt.Errorf("%w: shipping address is required", ErrValidation)
	ErrUnknownStatus     = fmt.Errorf("%w: unknown order status", ErrValidation)
	ErrItemNotFound      = fmt.Errorf("%w: item not found in cart", ErrNotFound)
	ErrProductNotFound   = fmt.Errorf("%w: product not found", ErrNotFound)
	ErrOrderNotFound     = fmt.Errorf("%w: order not found", ErrNotFound)
	ErrReviewNotFound    = fmt.Errorf("%w: review not found", ErrNotFound)
	ErrAddressNotFound   = fmt.Errorf("%w: address not found", ErrNotFound)
	ErrNotReviewAuthor   = fmt.Errorf("%w: only the author or an admin may change a review", ErrForbidden)
	ErrNotOrderOwner     = fmt.Errorf("%w: only the owner or an admin may view this order", ErrForbidden)
	ErrAdminOnly         = fmt.Errorf("%w: admin role required", ErrForbidden)
)
