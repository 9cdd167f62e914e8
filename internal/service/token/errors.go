package token

import "errors"

var (
	ErrTokenNotFound        = errors.New("token not found")
	ErrTokenExpired         = errors.New("token expired")
	ErrTokenAlreadyConsumed = errors.New("token already consumed")
	ErrOrderNotFound        = errors.New("order not found")
	ErrOrderNotSendable     = errors.New("order is not pending")
	ErrInvalidTTL           = errors.New("token ttl must be positive")
)
