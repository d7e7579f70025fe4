package money

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.Indonesian)

// Format renders whole rupiah the way receipts and the dashboard show them,
// e.g. 130000 -> "Rp 130.000". No decimal places are ever printed.
func Format(amount int64) string {
	if amount < 0 {
		// uint64 holds the magnitude of math.MinInt64; -amount would not.
		return printer.Sprintf("-Rp %d", uint64(-(amount+1))+1)
	}
	return printer.Sprintf("Rp %d", amount)
}

// Number formats an amount with Indonesian digit grouping and no symbol.
func Number(amount int64) string {
	return printer.Sprintf("%d", amount)
}
