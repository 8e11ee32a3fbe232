package service

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/SilverStorm2/currency-exchange-app/internal/entities"
)

// FallbackRates covers the supported set when no live snapshot exists.
// The values are not kept in sync with the market: their job is graceful
// degradation, not accuracy.
var FallbackRates = entities.RateTable{
	"EUR": 1,
	"USD": 1,
	"PLN": 3.5,
	"GBP": 0.8,
	"CHF": 0.9,
	"JPY": 150,
}

// Convert computes the formatted result of a conversion request against
// the given rate table, falling back to the built-in table when none is
// usable. The amount always travels through the pivot: amount / rate[from]
// into pivot units, then * rate[to]. Direct cross-rate division would work
// for one pair but breaks the single source of truth that pivot-relative
// tables give, so it is deliberately not used.
//
// When neither table resolves both currencies the input amount is returned
// reformatted in its source currency rather than blocking the caller.
func Convert(req entities.ConversionRequest, rates entities.RateTable) (string, error) {
	if req.Amount < 0 {
		return "", entities.ErrNegativeAmount
	}

	if rates != nil && rates[req.From] != 0 && rates[req.To] != 0 {
		amountInPivot := req.Amount / rates[req.From]
		return FormatAmount(amountInPivot*rates[req.To], req.To), nil
	}

	if FallbackRates[req.From] == 0 || FallbackRates[req.To] == 0 {
		return FormatAmount(req.Amount, req.From), nil
	}

	amountInPivot := req.Amount / FallbackRates[req.From]

	return FormatAmount(amountInPivot*FallbackRates[req.To], req.To), nil
}

// FormatAmount renders an amount in a currency's display convention:
// two decimal places, thousands separators, dollar sign for USD and an
// ISO code prefix for everything else.
func FormatAmount(amount float64, currency string) string {
	fixed := decimal.NewFromFloat(amount).StringFixed(2)

	negative := strings.HasPrefix(fixed, "-")
	fixed = strings.TrimPrefix(fixed, "-")

	parts := strings.SplitN(fixed, ".", 2)
	grouped := groupThousands(parts[0]) + "." + parts[1]

	if negative {
		grouped = "-" + grouped
	}

	if currency == "USD" {
		return "$" + grouped
	}

	return currency + " " + grouped
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}

	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}

	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}

	return b.String()
}
