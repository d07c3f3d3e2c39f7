package model

import (
	"time"

	"github.com/guregu/null/v6"
)

// FallEvent is a single session whose close dropped at least the threshold
// versus the prior close.
type FallEvent struct {
	Symbol      string
	Index       int
	Date        time.Time
	CloseOnFall float64
	FallPct     float64
}

// HorizonReturn is the close Days sessions after a fall and its change
// versus the fall close. Both are null when the horizon runs past the end
// of the series.
type HorizonReturn struct {
	Days  int
	Price null.Float
	Pct   null.Float
}

// FallRecord is a FallEvent plus its aftermath statistics.
type FallRecord struct {
	FallEvent
	MaxDaysBelowFall int
	PercentBelowFall float64
	Forward          []HorizonReturn
}

// ContinuousFallDays is kept for the original output shape; it is the same
// longest run as MaxDaysBelowFall.
func (r FallRecord) ContinuousFallDays() int { return r.MaxDaysBelowFall }

// After returns the forward value for the given horizon, if it was computed.
func (r FallRecord) After(days int) (HorizonReturn, bool) {
	for _, h := range r.Forward {
		if h.Days == days {
			return h, true
		}
	}
	return HorizonReturn{}, false
}
