package domain

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

func formatInt(n int) string {
	return printer.Sprintf("%d", n)
}

// FormatPrice renders a whole-dollar price as "$450,000".
func FormatPrice(price int) string {
	return "$" + formatInt(price)
}

// FormatSqft renders living area as "1,800 sq ft".
func FormatSqft(sqft int) string {
	return formatInt(sqft) + " sq ft"
}
