// Package report renders batch results for people: terminal tables, CSV
// files, Telegram summaries and PNG charts.
package report

import (
	"fmt"
	"math"
	"strconv"

	"github.com/guregu/null/v6"
	"github.com/shopspring/decimal"

	"FallScope/internal/fall"
	"FallScope/internal/model"
)

// NoFallsMessage replaces an empty fall table.
const NoFallsMessage = "No significant falls were found in the data."

// NoDrawdownsMessage replaces an empty drawdown table.
const NoDrawdownsMessage = "No symbol could be analyzed for drawdowns."

var drawdownHeaders = []string{
	"Symbol", "Max Fall %", "Peak Open", "Start Date", "Start Price",
	"End Date", "End Price", "Red Candles", "Green Candles", "Max Red Streak",
}

type horizonColumn struct {
	days  int
	label string
}

// horizonColumns lists the forward columns for a run. The caller horizon is
// always labelled in the plural; a label equal to a fixed one is dropped
// since it carries the same values.
func horizonColumns(horizonDays int) []horizonColumn {
	var cols []horizonColumn
	seen := map[string]bool{}
	for i, h := range fall.Horizons(horizonDays) {
		label := fmt.Sprintf("After %d Days", h)
		if h == 1 && i < len(fall.FixedHorizons) {
			label = "After 1 Day"
		}
		if seen[label] {
			continue
		}
		seen[label] = true
		cols = append(cols, horizonColumn{days: h, label: label})
	}
	return cols
}

// FallHeaders returns the fall table column names for a horizon.
func FallHeaders(horizonDays int) []string {
	headers := []string{
		"Symbol", "Date", "Close on Fall", "Fall%",
		"Continuous Fall Days", "Max Days Below Fall", "Percent Below Fall",
	}
	for _, c := range horizonColumns(horizonDays) {
		headers = append(headers, c.label, c.label+" % Change")
	}
	return headers
}

// DrawdownHeaders returns the drawdown table column names.
func DrawdownHeaders() []string {
	return append([]string(nil), drawdownHeaders...)
}

func fallCells(r model.FallRecord, horizonDays int) []string {
	cells := []string{
		r.Symbol,
		r.Date.Format(model.DateLayout),
		num(r.CloseOnFall),
		num(r.FallPct),
		strconv.Itoa(r.ContinuousFallDays()),
		strconv.Itoa(r.MaxDaysBelowFall),
		num(r.PercentBelowFall),
	}
	for _, c := range horizonColumns(horizonDays) {
		hr, _ := r.After(c.days)
		cells = append(cells, nullNum(hr.Price), nullNum(hr.Pct))
	}
	return cells
}

func drawdownCells(r model.DrawdownRecord) []string {
	return []string{
		r.Symbol,
		num(r.MaxFallPct),
		num(r.PeakOpen),
		r.StartDate.Format(model.DateLayout),
		num(r.StartPrice),
		r.EndDate.Format(model.DateLayout),
		num(r.EndPrice),
		strconv.Itoa(r.RedCandles),
		strconv.Itoa(r.GreenCandles),
		strconv.Itoa(r.MaxRedStreak),
	}
}

// num rounds to two decimals; non-finite values render empty.
func num(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return decimal.NewFromFloat(v).StringFixed(2)
}

func nullNum(v null.Float) string {
	if !v.Valid {
		return ""
	}
	return num(v.Float64)
}
