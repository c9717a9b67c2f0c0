package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// Predictions are keyed on the exchange-local calendar date, so every
// timestamp inside one Jakarta trading day must collapse to the same key.
func TestTradeDate_SameExchangeDaySharesOneKey(t *testing.T) {
	// 02:00 UTC = 09:00 WIB and 16:59 UTC = 23:59 WIB, same Jakarta day.
	morning := time.Date(2026, 8, 20, 2, 0, 0, 0, time.UTC)
	lateEvening := time.Date(2026, 8, 20, 16, 59, 0, 0, time.UTC)

	want := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, want, TradeDate(morning))
	assert.Equal(t, want, TradeDate(lateEvening))
}

func TestTradeDate_RollsOverAtExchangeMidnight(t *testing.T) {
	// 17:00 UTC is already 00:00 WIB of the next day.
	beforeMidnight := time.Date(2026, 8, 20, 16, 59, 59, 0, time.UTC)
	afterMidnight := time.Date(2026, 8, 20, 17, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC), TradeDate(beforeMidnight))
	assert.Equal(t, time.Date(2026, 8, 21, 0, 0, 0, 0, time.UTC), TradeDate(afterMidnight))
}
