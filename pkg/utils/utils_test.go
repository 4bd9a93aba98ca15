package utils

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestExtractPhone(t *testing.T) {
	tests := []struct {
		name      string
		narration string
		want      string
		found     bool
	}{
		{"local format", "Paid by JOHN KAMAU 0712345678 ref ABC", "254712345678", true},
		{"international with plus", "+254712345678 loan repayment", "254712345678", true},
		{"international without plus", "254712345678", "254712345678", true},
		{"embedded mid-sentence", "repayment from 0798765432 thanks", "254798765432", true},
		{"no phone", "Loan repayment ref ABC123", "", false},
		{"empty", "", "", false},
		{"too short", "07123", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := ExtractPhone(tt.narration)
			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "254712345678", NormalizePhone("0712345678"))
	assert.Equal(t, "254712345678", NormalizePhone("+254712345678"))
	assert.Equal(t, "254712345678", NormalizePhone("254712345678"))
}

func TestAdvanceDueDate(t *testing.T) {
	due := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), AdvanceDueDate(due, 1))
	assert.Equal(t, time.Date(2026, 3, 17, 0, 0, 0, 0, time.UTC), AdvanceDueDate(due, 7))

	// Month boundary
	endOfMonth := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), AdvanceDueDate(endOfMonth, 1))
}

func TestSameOrEarlierDay(t *testing.T) {
	ref := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	assert.True(t, SameOrEarlierDay(time.Date(2026, 3, 10, 23, 59, 0, 0, time.UTC), ref), "later hour same day")
	assert.True(t, SameOrEarlierDay(time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), ref), "previous day")
	assert.False(t, SameOrEarlierDay(time.Date(2026, 3, 11, 0, 0, 1, 0, time.UTC), ref), "next day")
}

func TestRoundMoney(t *testing.T) {
	third := decimal.NewFromInt(11000).Div(decimal.NewFromInt(30))
	assert.Equal(t, "366.67", RoundMoney(third).String())

	assert.Equal(t, "2750", RoundMoney(decimal.NewFromInt(11000).Div(decimal.NewFromInt(4))).String())
}
