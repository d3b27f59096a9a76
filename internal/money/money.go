// Package money formats rupee amounts for display.
package money

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Format renders amount as ₹1,234 or ₹1,234.50.
func Format(amount float64) string {
	printer := message.NewPrinter(language.English)
	if amount == math.Trunc(amount) {
		return printer.Sprintf("₹%d", int64(amount))
	}
	return printer.Sprintf("₹%.2f", amount)
}
