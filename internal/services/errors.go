package services

import "errors"

var (
	ErrMarketNotFound      = errors.New("market not found")
	ErrAlreadyResolved     = errors.New("market already resolved")
	ErrInvalidSelection    = errors.New("selection is not an option of this market")
	ErrSettlementFailed    = errors.New("settlement failed")
	ErrUserNotFound        = errors.New("user not found")
	ErrBetNotFound         = errors.New("bet not found")
	ErrBetNotPending       = errors.New("bet is not pending")
	ErrMarketClosed        = errors.New("market is closed for betting")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrDuplicatePendingBet = errors.New("a pending bet already exists for this market")
	ErrOddsChanged         = errors.New("odds changed since the bet was quoted")
	ErrInvalidMarket       = errors.New("invalid market")
)
