package service

import "errors"

// Typed failures returned by the engine services. The bot layer matches
// these with errors.Is to pick the denial message; anything else is a
// persistence fault and renders as a generic failure.
var (
	ErrInvalidAmount          = errors.New("amount must be positive")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrGameAlreadyActive      = errors.New("a blackjack hand is already in progress")
	ErrNoActiveGame           = errors.New("no blackjack hand in progress")
	ErrGameFinished           = errors.New("blackjack hand already resolved")
	ErrAlreadyPeeked          = errors.New("count already purchased this hand")
	ErrExistingDebt           = errors.New("an outstanding loan already exists")
	ErrInsufficientCollateral = errors.New("balance below required collateral")
	ErrNoDebt                 = errors.New("no outstanding loans")
)
