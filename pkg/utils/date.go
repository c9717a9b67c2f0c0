package utils

import (
	"log"
	"time"
)

// TimeNowWIB returns the current time in the exchange timezone (Asia/Jakarta).
func TimeNowWIB() time.Time {
	loc, err := time.LoadLocation("Asia/Jakarta")
	if err != nil {
		log.Fatal("Failed to load location", err)
	}
	return time.Now().In(loc)
}

// TradeDate truncates a timestamp to its calendar date in the exchange
// timezone. Predictions are keyed on this value, so every timestamp within
// the same trading day maps to the same date.
func TradeDate(t time.Time) time.Time {
	loc, err := time.LoadLocation("Asia/Jakarta")
	if err != nil {
		log.Fatal("Failed to load location", err)
	}
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}
