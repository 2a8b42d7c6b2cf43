package usecase

import "errors"

var (
	// ErrWatchlistNotFound is returned when the watchlist does not exist or belongs to another user.
	ErrWatchlistNotFound = errors.New("watchlist not found")
	// ErrItemNotFound is returned when the symbol is not on the watchlist.
	ErrItemNotFound = errors.New("symbol not in watchlist")
	// ErrDuplicateName is returned when the user already has a watchlist with the same name.
	ErrDuplicateName = errors.New("watchlist name already exists")
	// ErrDuplicateSymbol is returned when the symbol is already on the watchlist.
	ErrDuplicateSymbol = errors.New("symbol already in watchlist")
	// ErrInvalidName is returned for a blank or overlong watchlist name.
	ErrInvalidName = errors.New("invalid watchlist name")
	// ErrInvalidSymbol is returned for a malformed ticker.
	ErrInvalidSymbol = errors.New("invalid symbol")
	// ErrInvalidTargetPrice is returned for a negative target price.
	ErrInvalidTargetPrice = errors.New("target price must not be negative")
)
