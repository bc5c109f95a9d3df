package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrStatementNotFound = errors.New("statement not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrSelfTransfer      = errors.New("cannot transfer to yourself")
	ErrInvalidAmount     = errors.New("amount must be greater than zero")
	ErrEmailTaken        = errors.New("email already in use")
	ErrInvalidRequest    = errors.New("invalid request")
)
