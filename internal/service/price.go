package service

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// --- Regular Expressions (Business Logic/Transformation) ---
var (
	// Matches the numeric core of Swedish price text: "24,90", "25:-", "22.00".
	// Group 1 is the whole part, group 2 the optional decimal part.
	priceDigitsRegex = regexp.MustCompile(`(\d+)[,.:]?(\d*)`)

	// Matches 'X för Y'. Captures quantity (Group 1) and total price (Group 2).
	multibuyRegex = regexp.MustCompile(`(?i)(\d+)\s*för\s*([\d\s:,\.]+)`)

	// Quantity tokens stripped from names before dedup comparison.
	quantityTokenRegex = regexp.MustCompile(`(?i)\b\d+(?:[,.]\d+)?\s*(?:x\s*\d+\s*)?(g|kg|ml|cl|l|st|pack|p)\b`)
)

// ParsePrice converts currency text into a two-decimal fixed point value.
// A decimal part of exactly zero collapses to the whole number ("22,00" and
// "22" parse identically). Returns nil when no positive numeric value can be
// read; a guessed value is never produced.
func ParsePrice(text string) *decimal.Decimal {
	match := priceDigitsRegex.FindStringSubmatch(text)
	if match == nil {
		return nil
	}

	raw := match[1]
	if frac := strings.TrimRight(match[2], "0"); frac != "" {
		raw = match[1] + "." + match[2]
	}

	value, err := decimal.NewFromString(raw)
	if err != nil || value.IsNegative() {
		return nil
	}
	value = value.Round(2)
	return &value
}

// ParseMultibuy reads a combined "N för M" offer out of free text. ok is
// false when the text holds no such offer or the parts do not parse.
func ParseMultibuy(text string) (quantity int64, total decimal.Decimal, ok bool) {
	match := multibuyRegex.FindStringSubmatch(text)
	if match == nil {
		return 0, decimal.Zero, false
	}

	qty, err := decimal.NewFromString(match[1])
	if err != nil || !qty.IsPositive() {
		return 0, decimal.Zero, false
	}

	parsedTotal := ParsePrice(match[2])
	if parsedTotal == nil || !parsedTotal.IsPositive() {
		return 0, decimal.Zero, false
	}

	return qty.IntPart(), *parsedTotal, true
}

// EffectiveUnitPrice converts a multibuy total into a per-unit price,
// rounded to two decimals ("3 för 22,00" becomes 7.33).
func EffectiveUnitPrice(quantity int64, total decimal.Decimal) decimal.Decimal {
	return total.DivRound(decimal.NewFromInt(quantity), 2)
}

// DedupKey canonicalizes a product name for duplicate detection: lower-cased,
// whitespace-collapsed, quantity tokens stripped.
func DedupKey(name string) string {
	key := strings.ToLower(name)
	key = quantityTokenRegex.ReplaceAllString(key, " ")
	return strings.Join(strings.Fields(key), " ")
}
