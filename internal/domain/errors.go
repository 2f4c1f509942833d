package domain

import "errors"

var (
	ErrLedgerNotFound         = errors.New("rating ledger not found")
	ErrSeasonNotFound         = errors.New("season not found")
	ErrMatchNotFound          = errors.New("match not found")
	ErrMatchmakingExhausted   = errors.New("no eligible opponent found")
	ErrConcurrencyConflict    = errors.New("ledger was modified concurrently")
	ErrRewardAlreadyClaimed   = errors.New("season reward already claimed")
	ErrStatsUnavailable       = errors.New("combat stats unavailable")
	ErrTemporarilyUnavailable = errors.New("temporarily unavailable")
)
