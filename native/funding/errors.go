package funding

import "errors"

var (
	ErrNotInitialised        = errors.New("funding: state not initialised")
	ErrAlreadyInitialised    = errors.New("funding: state already initialised")
	ErrUnauthorized          = errors.New("funding: unauthorized")
	ErrLimitInvalid          = errors.New("funding: discount limit invalid")
	ErrDiscountBelowMinimum  = errors.New("funding: discount below minimum")
	ErrDiscountAboveMaximum  = errors.New("funding: discount above maximum")
	ErrZeroAmount            = errors.New("funding: amount must be positive")
	ErrPriceInvalid          = errors.New("funding: price must be positive")
	ErrPriceDeviation        = errors.New("funding: price deviation too large")
	ErrSlippageExceeded      = errors.New("funding: amount out below minimum")
	ErrInsufficientLiquidity = errors.New("funding: insufficient citadel liquidity")
	ErrDepositBelowMinimum   = errors.New("funding: deposit below per-tx minimum")
	ErrDepositAboveMaximum   = errors.New("funding: deposit above per-tx maximum")
	ErrDailyCapExceeded      = errors.New("funding: daily deposit cap exceeded")
)
