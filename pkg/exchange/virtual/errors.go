package virtual

import "errors"

var (
	ErrUnknownOrder         = errors.New("unknown order id")
	ErrNotOpen              = errors.New("order is not an open position")
	ErrInsufficientOpenSize = errors.New("insufficient open size")
	ErrInvalidSize          = errors.New("invalid size")
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrOutOfOrderBar        = errors.New("bar is older than the last processed bar")
	ErrInstrumentMismatch   = errors.New("instrument does not match the position")
)

const (
	ReasonInvalidOrder       = "Invalid order request"
	ReasonInsufficientMargin = "Insufficient margin"
)
