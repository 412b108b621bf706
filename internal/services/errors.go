package services

import "errors"

var (
	ErrUserIDMissing     = errors.New("identifier missing")
	ErrUserAlreadyExists = errors.New("identifier already exists")
	ErrUserNotFound      = errors.New("user not found")
	ErrInvalidPayKey     = errors.New("invalid pay key")
	ErrInvalidPayment    = errors.New("invalid payment request")
	ErrGateway           = errors.New("payment gateway error")
)
