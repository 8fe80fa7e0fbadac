package domain

import "github.com/pkg/errors"

var (
	// ErrDataUnavailable indicates no bar exists at or before the requested date.
	ErrDataUnavailable = errors.New("no market data available")
	// ErrUnknownTicker indicates a ticker outside the tracked universe.
	ErrUnknownTicker = errors.New("ticker is not in the tracked universe")
	// ErrInsufficientFunds indicates a buy exceeding available cash.
	ErrInsufficientFunds = errors.New("insufficient cash")
	// ErrInsufficientPosition indicates a sell exceeding the held quantity.
	ErrInsufficientPosition = errors.New("insufficient position")
	// ErrFutureData indicates a request for data at or beyond the
	// simulation cutoff date.
	ErrFutureData = errors.New("requested date is beyond the view cutoff")
)
