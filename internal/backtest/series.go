package backtest

// seriesSet holds the derived per-period series the analyzer consumes.
// Every slice has exactly the input length.
type seriesSet struct {
	// targets[t] is 1 when MACD is strictly above its signal line at t.
	// Ties count as flat.
	targets []int

	// positions[t] is targets[t-1]: the position actually held at t.
	// The one-period lag models deciding on a close and acting on the next;
	// positions[0] is always 0.
	positions []int

	// returns[t] is the simple period return of the close price;
	// returns[0] is 0.
	returns []float64

	// changes[t] is |positions[t] - positions[t-1]|, the commission trigger.
	// The first period has no prior position and counts as no change.
	changes []float64

	// netReturns[t] is positions[t]*returns[t] minus commission charged on
	// each position change.
	netReturns []float64
}

// buildSeries translates the indicator comparison into lagged positions and
// per-period strategy returns net of transaction cost.
func buildSeries(in Input, commission float64) (seriesSet, error) {
	if err := in.Validate(); err != nil {
		return seriesSet{}, err
	}

	n := len(in.Closes)
	s := seriesSet{
		targets:    make([]int, n),
		positions:  make([]int, n),
		returns:    make([]float64, n),
		changes:    make([]float64, n),
		netReturns: make([]float64, n),
	}

	for t := 0; t < n; t++ {
		if in.MACD[t] > in.MACDSignal[t] {
			s.targets[t] = 1
		}
	}

	for t := 1; t < n; t++ {
		s.positions[t] = s.targets[t-1]
		s.returns[t] = in.Closes[t]/in.Closes[t-1] - 1
	}

	for t := 0; t < n; t++ {
		if t > 0 {
			diff := s.positions[t] - s.positions[t-1]
			if diff < 0 {
				diff = -diff
			}
			s.changes[t] = float64(diff)
		}
		s.netReturns[t] = float64(s.positions[t])*s.returns[t] - s.changes[t]*commission
	}

	return s, nil
}
