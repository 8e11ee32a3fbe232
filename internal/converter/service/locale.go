package service

import "strings"

const defaultLocalCurrency = "USD"

var regionCurrencies = map[string]string{
	"US": "USD",
	"PL": "PLN",
	"GB": "GBP",
	"CH": "CHF",
	"JP": "JPY",
	"DE": "EUR",
	"FR": "EUR",
	"IT": "EUR",
	"ES": "EUR",
	"NL": "EUR",
	"BE": "EUR",
	"AT": "EUR",
	"PT": "EUR",
	"IE": "EUR",
	"FI": "EUR",
	"LT": "EUR",
	"LV": "EUR",
	"EE": "EUR",
	"SK": "EUR",
	"SI": "EUR",
	"GR": "EUR",
	"CY": "EUR",
	"MT": "EUR",
}

// DetectLocalCurrency guesses a currency from a BCP 47 locale tag such as
// "pl-PL" or the first entry of an Accept-Language header. Unknown regions
// and currencies outside the supported set fall back to USD.
func DetectLocalCurrency(locale string, supported []string) string {
	if idx := strings.IndexAny(locale, ",;"); idx >= 0 {
		locale = locale[:idx]
	}
	locale = strings.TrimSpace(locale)

	candidate := defaultLocalCurrency
	if idx := strings.LastIndex(locale, "-"); idx >= 0 {
		region := strings.ToUpper(locale[idx+1:])
		if detected, ok := regionCurrencies[region]; ok {
			candidate = detected
		}
	}

	if len(supported) == 0 {
		return candidate
	}

	for _, code := range supported {
		if code == candidate {
			return candidate
		}
	}

	return defaultLocalCurrency
}
