package entities

// Pivot is the currency all reference rates are expressed against.
// ECB publishes every series as units of currency per one euro, so the
// pivot always carries an implicit rate of 1 and is never fetched.
const Pivot = "EUR"

// DefaultCurrencies is the closed set of supported currency codes.
var DefaultCurrencies = []string{"EUR", "USD", "PLN", "GBP", "CHF", "JPY"}

// ConversionRequest describes one conversion between two supported
// currencies. A negative amount is an invalid request.
type ConversionRequest struct {
	Amount float64 `json:"amount"`
	From   string  `json:"from"`
	To     string  `json:"to"`
}

// Pair is an ordered currency pair. Ordering matters: PLN->USD and
// USD->PLN are distinct pairs.
type Pair struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// HistoryEntry is one recorded conversion, already formatted for display.
type HistoryEntry struct {
	ID         string `json:"id"`
	AmountText string `json:"amountText"`
	ResultText string `json:"resultText"`
	Timestamp  string `json:"timestamp"`
}
