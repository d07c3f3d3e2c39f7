package calculator

import "FallScope/internal/model"

// CandleStats summarizes the candle colours of a window of bars.
type CandleStats struct {
	Red          int
	Green        int
	MaxRedStreak int
}

// CountCandles counts red and green candles and the longest run of
// consecutive red ones. Doji bars (close == open) are neither colour and
// break a red streak.
func CountCandles(bars []model.PriceBar) CandleStats {
	var stats CandleStats
	red := make([]bool, len(bars))
	for i, b := range bars {
		switch {
		case b.IsRed():
			stats.Red++
			red[i] = true
		case b.IsGreen():
			stats.Green++
		}
	}
	stats.MaxRedStreak = LongestRun(red)
	return stats
}
