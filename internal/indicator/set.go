package indicator

// Set holds the derived series one (timeframe, symbol) group shares between
// all bots scanning that group within a tick. It is computed once per group
// per tick and read-only afterward.
type Set struct {
	EMA20  []float64
	EMA50  []float64
	EMA200 []float64

	MACD      []float64
	Signal    []float64
	Histogram []float64
}

// Compute derives the full indicator set from a group's closing prices.
func Compute(closes []float64) *Set {
	s := &Set{
		EMA20:  EMASeries(closes, 20),
		EMA50:  EMASeries(closes, 50),
		EMA200: EMASeries(closes, 200),
	}
	s.MACD, s.Signal, s.Histogram = MACDSeries(closes)
	return s
}
