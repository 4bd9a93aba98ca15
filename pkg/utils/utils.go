package utils

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Kenyan MSISDN embedded in free-form narration text, e.g.
// "Paid by JOHN 0712345678 ref QWE12RTY45" or "+254712345678".
var phonePattern = regexp.MustCompile(`(?:\+?254|0)7\d{8}`)

// AdvanceDueDate steps a due date forward by the installment interval.
// The step starts from the current due date, not from today, so a lapsed
// loan's schedule walks forward from where it stopped.
func AdvanceDueDate(from time.Time, stepDays int) time.Time {
	return from.AddDate(0, 0, stepDays)
}

// CompletionHorizon returns the fixed-term expected completion date.
func CompletionHorizon(from time.Time, termDays int) time.Time {
	return from.AddDate(0, 0, termDays)
}

// ExtractPhone pulls the first phone number out of a narration string.
func ExtractPhone(narration string) (string, bool) {
	match := phonePattern.FindString(narration)
	if match == "" {
		return "", false
	}
	return NormalizePhone(match), true
}

// NormalizePhone canonicalizes an MSISDN to the 2547XXXXXXXX form.
func NormalizePhone(phone string) string {
	phone = strings.TrimPrefix(phone, "+")
	if strings.HasPrefix(phone, "0") {
		return "254" + phone[1:]
	}
	return phone
}

// SameOrEarlierDay reports whether a falls on the same calendar day as b
// or any day before it, ignoring the time of day.
func SameOrEarlierDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	aDay := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	bDay := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return !aDay.After(bDay)
}

// RoundMoney rounds to 2 decimal places for currency
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// DecimalFromString converts string to decimal.Decimal
func DecimalFromString(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}
