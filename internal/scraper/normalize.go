package scraper

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"printerpricewatch/config"
	"printerpricewatch/internal/currency"
	perrors "printerpricewatch/pkg/errors"
)

var nonPriceChars = regexp.MustCompile(`[^0-9.,]`)

// NormalizePrice parses raw extracted text into a positive decimal price.
// It strips currency symbols and whitespace and resolves thousands versus
// decimal separators: "1,245.50", "1.245,50" and "1,245" all parse.
// Normalizing an already-normalized value yields the same value.
func NormalizePrice(text string) (float64, error) {
	cleaned := nonPriceChars.ReplaceAllString(text, "")
	if cleaned == "" {
		return 0, fmt.Errorf("no digits in %q", text)
	}

	hasComma := strings.Contains(cleaned, ",")
	hasDot := strings.Contains(cleaned, ".")

	switch {
	case hasComma && hasDot:
		if strings.LastIndex(cleaned, ",") < strings.LastIndex(cleaned, ".") {
			// Comma is a thousands separator
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		} else {
			// European style: dot thousands, comma decimal
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.Replace(cleaned, ",", ".", 1)
		}
	case hasComma:
		parts := strings.Split(cleaned, ",")
		if len(parts) == 2 && len(parts[1]) <= 2 {
			// Decimal comma
			cleaned = parts[0] + "." + parts[1]
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	}

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("cannot parse %q as a price: %w", text, err)
	}
	if value <= 0 {
		return 0, fmt.Errorf("non-positive price %v in %q", value, text)
	}

	return value, nil
}

// ConvertToAUD converts an amount in the given currency to AUD, rounded
// half-up to two decimal places. AUD amounts pass through the same
// rounding and no conversion.
func ConvertToAUD(amount float64, currencyCode string, rate currency.ExchangeRate) (float64, error) {
	switch currencyCode {
	case config.CurrencyAUD:
		return roundCents(amount), nil
	case config.CurrencyUSD:
		return roundCents(amount * rate.Rate), nil
	default:
		return 0, perrors.NewParse("", "", fmt.Sprintf("unsupported currency %q", currencyCode), nil)
	}
}

// roundCents rounds half away from zero to 2 decimal places
func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
