package report

import (
	"fmt"
	"html"
	"sort"
	"strings"

	"FallScope/internal/model"
)

// DeepestFalls returns up to n fall records ordered by FallPct, steepest
// first. Ties keep table order.
func DeepestFalls(t model.FallTable, n int) []model.FallRecord {
	recs := append([]model.FallRecord(nil), t.Records...)
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].FallPct < recs[j].FallPct })
	if n >= 0 && len(recs) > n {
		recs = recs[:n]
	}
	return recs
}

// FormatSummary formats a batch result into a Telegram HTML message.
func FormatSummary(res *model.BatchResult, topN int) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📉 <b>FallScope</b> | %s\n", res.FinishedAt.Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("Threshold %.1f%% · horizon %d days\n\n", res.Params.FallThresholdPct, res.Params.ForwardHorizonDays))

	if res.Falls.Empty() {
		b.WriteString(html.EscapeString(NoFallsMessage) + "\n")
	} else {
		b.WriteString(fmt.Sprintf("<b>Falls:</b> %d\n", len(res.Falls.Records)))
		freq := res.Falls.Frequency()
		symbols := make([]string, 0, len(freq))
		for s := range freq {
			symbols = append(symbols, s)
		}
		sort.Strings(symbols)
		for _, s := range symbols {
			b.WriteString(fmt.Sprintf("  %s: %d\n", html.EscapeString(s), freq[s]))
		}
		b.WriteString("\n")
		b.WriteString(FormatFalls(res, topN))
	}

	if !res.Drawdowns.Empty() {
		b.WriteString("\n")
		b.WriteString(FormatDrawdowns(res))
	}

	if len(res.Warnings) > 0 {
		b.WriteString(fmt.Sprintf("\n⚠️ <b>Skipped:</b> %d\n", len(res.Warnings)))
		for _, w := range res.Warnings {
			b.WriteString(fmt.Sprintf("  %s (%s)\n", html.EscapeString(w.Symbol), w.Kind))
		}
	}
	return b.String()
}

// FormatFalls lists the n steepest falls with their aftermath.
func FormatFalls(res *model.BatchResult, n int) string {
	if res == nil || res.Falls.Empty() {
		return html.EscapeString(NoFallsMessage)
	}
	var b strings.Builder
	b.WriteString("🔻 <b>Steepest falls</b>\n")
	h := res.Params.ForwardHorizonDays
	for _, r := range DeepestFalls(res.Falls, n) {
		b.WriteString(fmt.Sprintf("  %s %s: %.2f%% @ %.2f\n",
			html.EscapeString(r.Symbol), r.Date.Format(model.DateLayout), r.FallPct, r.CloseOnFall))
		after := "n/a"
		if hr, ok := r.After(h); ok && hr.Pct.Valid {
			after = fmt.Sprintf("%+.2f%%", hr.Pct.Float64)
		}
		b.WriteString(fmt.Sprintf("    below for %d days, low %.2f%%, after %dd %s\n",
			r.MaxDaysBelowFall, r.PercentBelowFall, h, after))
	}
	return b.String()
}

// FormatDrawdowns lists every symbol's largest drawdown, deepest first.
func FormatDrawdowns(res *model.BatchResult) string {
	if res == nil || res.Drawdowns.Empty() {
		return html.EscapeString(NoDrawdownsMessage)
	}
	recs := append([]model.DrawdownRecord(nil), res.Drawdowns.Records...)
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].MaxFallPct < recs[j].MaxFallPct })

	var b strings.Builder
	b.WriteString("📊 <b>Max drawdown</b>\n")
	for _, r := range recs {
		b.WriteString(fmt.Sprintf("  %s: %.2f%% %s → %s (red %d, green %d, streak %d)\n",
			html.EscapeString(r.Symbol), r.MaxFallPct,
			r.StartDate.Format(model.DateLayout), r.EndDate.Format(model.DateLayout),
			r.RedCandles, r.GreenCandles, r.MaxRedStreak))
	}
	return b.String()
}
