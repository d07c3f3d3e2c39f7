package model

import "time"

// DrawdownRecord describes the largest peak-to-trough window of a series.
// MaxFallPct is anchored on the open of the peak session, not its close.
type DrawdownRecord struct {
	Symbol       string
	MaxFallPct   float64
	PeakOpen     float64
	StartIndex   int
	StartDate    time.Time
	StartPrice   float64
	EndIndex     int
	EndDate      time.Time
	EndPrice     float64
	RedCandles   int
	GreenCandles int
	MaxRedStreak int
}

// WindowLen is the number of bars in [StartIndex, EndIndex].
func (r DrawdownRecord) WindowLen() int { return r.EndIndex - r.StartIndex + 1 }
