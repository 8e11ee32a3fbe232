package service

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDetectLocalCurrency(t *testing.T) {
	t.Parallel()

	supported := []string{"EUR", "USD", "PLN", "GBP", "CHF", "JPY"}

	cases := []struct {
		name   string
		locale string
		want   string
	}{
		{name: "polish locale", locale: "pl-PL", want: "PLN"},
		{name: "british locale", locale: "en-GB", want: "GBP"},
		{name: "swiss locale", locale: "de-CH", want: "CHF"},
		{name: "japanese locale", locale: "ja-JP", want: "JPY"},
		{name: "euro-zone locale", locale: "de-DE", want: "EUR"},
		{name: "lowercase region", locale: "pl-pl", want: "PLN"},
		{name: "accept-language header", locale: "pl-PL,pl;q=0.9,en;q=0.8", want: "PLN"},
		{name: "quality value on first entry", locale: "fr-FR;q=0.9", want: "EUR"},
		{name: "no region", locale: "en", want: "USD"},
		{name: "unknown region", locale: "en-AU", want: "USD"},
		{name: "empty", locale: "", want: "USD"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			require.Equal(t, tc.want, DetectLocalCurrency(tc.locale, supported))
		})
	}

	t.Run("detected currency outside the supported set falls back", func(t *testing.T) {
		t.Parallel()

		require.Equal(t, "USD", DetectLocalCurrency("pl-PL", []string{"EUR", "USD"}))
	})
}
