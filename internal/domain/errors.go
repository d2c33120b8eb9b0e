package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrRateDataUnavailable = errors.New("rate data unavailable")
	ErrNoMarketData        = errors.New("no market data")
	ErrUnauthorized        = errors.New("unauthorized")
)
