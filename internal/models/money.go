package models

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MoneyPlaces is the number of decimal places of the currency unit.
const MoneyPlaces = 2

func init() {
	// The UI reads amounts as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// RoundMoney rounds an amount to the currency unit.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// FoldName lowercases s, strips diacritics and collapses whitespace so that
// "JOÃO  da Silva" and "joao da silva" compare equal.
func FoldName(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	return cases.Fold().String(strings.Join(strings.Fields(stripped), " "))
}
