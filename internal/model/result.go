package model

import "time"

// AnalysisParams are the tunables of one batch run.
type AnalysisParams struct {
	FallThresholdPct   float64
	ForwardHorizonDays int
}

// FallTable holds every FallRecord of a run, sorted by symbol then date.
type FallTable struct {
	Records []FallRecord
}

// Empty reports whether no fall was found.
func (t FallTable) Empty() bool { return len(t.Records) == 0 }

// Frequency counts fall records per symbol.
func (t FallTable) Frequency() map[string]int {
	out := make(map[string]int)
	for _, r := range t.Records {
		out[r.Symbol]++
	}
	return out
}

// EventDates lists the fall dates of each symbol in ascending order.
func (t FallTable) EventDates() map[string][]time.Time {
	out := make(map[string][]time.Time)
	for _, r := range t.Records {
		out[r.Symbol] = append(out[r.Symbol], r.Date)
	}
	return out
}

// ForSymbol returns the records of one symbol.
func (t FallTable) ForSymbol(symbol string) []FallRecord {
	var out []FallRecord
	for _, r := range t.Records {
		if r.Symbol == symbol {
			out = append(out, r)
		}
	}
	return out
}

// DrawdownTable holds at most one DrawdownRecord per symbol, sorted by symbol.
type DrawdownTable struct {
	Records []DrawdownRecord
}

// Empty reports whether no symbol could be analyzed.
func (t DrawdownTable) Empty() bool { return len(t.Records) == 0 }

// EventDates returns the (peak, trough) date pair of each symbol.
func (t DrawdownTable) EventDates() map[string][2]time.Time {
	out := make(map[string][2]time.Time, len(t.Records))
	for _, r := range t.Records {
		out[r.Symbol] = [2]time.Time{r.StartDate, r.EndDate}
	}
	return out
}

// Get returns the record of one symbol.
func (t DrawdownTable) Get(symbol string) (DrawdownRecord, bool) {
	for _, r := range t.Records {
		if r.Symbol == symbol {
			return r, true
		}
	}
	return DrawdownRecord{}, false
}

// BatchResult is everything one analysis run produced.
type BatchResult struct {
	RunID      string
	Params     AnalysisParams
	Falls      FallTable
	Drawdowns  DrawdownTable
	Warnings   []Warning
	StartedAt  time.Time
	FinishedAt time.Time
}

// WarningsFor returns the warnings raised for one symbol.
func (r *BatchResult) WarningsFor(symbol string) []Warning {
	var out []Warning
	for _, w := range r.Warnings {
		if w.Symbol == symbol {
			out = append(out, w)
		}
	}
	return out
}
