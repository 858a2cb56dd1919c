package domain

import "errors"

var (
	ErrAuctionNotFound = errors.New("auction not found")
	ErrPartyNotFound   = errors.New("party not found")
	ErrWalletNotFound  = errors.New("wallet not found")

	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidTransition = errors.New("invalid transition")

	ErrRegistrationClosed = errors.New("party registration closed")
	ErrPositionTaken      = errors.New("position already taken")
	ErrWalletExists       = errors.New("wallet already exists")
)
