package report

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"FallScope/internal/model"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#3B82F6")).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	borderStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	noticeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
)

func render(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...)
	return t.String()
}

// RenderFallTable renders one row per fall, or NoFallsMessage.
func RenderFallTable(t model.FallTable, horizonDays int) string {
	if t.Empty() {
		return noticeStyle.Render(NoFallsMessage)
	}
	rows := make([][]string, 0, len(t.Records))
	for _, r := range t.Records {
		rows = append(rows, fallCells(r, horizonDays))
	}
	return render(FallHeaders(horizonDays), rows)
}

// RenderDrawdownTable renders one row per symbol.
func RenderDrawdownTable(t model.DrawdownTable) string {
	if t.Empty() {
		return noticeStyle.Render(NoDrawdownsMessage)
	}
	rows := make([][]string, 0, len(t.Records))
	for _, r := range t.Records {
		rows = append(rows, drawdownCells(r))
	}
	return render(DrawdownHeaders(), rows)
}

// RenderFrequency renders the number of falls per symbol, most first.
func RenderFrequency(t model.FallTable) string {
	if t.Empty() {
		return noticeStyle.Render(NoFallsMessage)
	}
	freq := t.Frequency()
	symbols := make([]string, 0, len(freq))
	for s := range freq {
		symbols = append(symbols, s)
	}
	sort.Slice(symbols, func(i, j int) bool {
		if freq[symbols[i]] != freq[symbols[j]] {
			return freq[symbols[i]] > freq[symbols[j]]
		}
		return symbols[i] < symbols[j]
	})
	rows := make([][]string, 0, len(symbols))
	for _, s := range symbols {
		rows = append(rows, []string{s, strconv.Itoa(freq[s])})
	}
	return render([]string{"Symbol", "Falls"}, rows)
}

// RenderWarnings lists skipped symbols, one per line. Empty when there are none.
func RenderWarnings(warnings []model.Warning) string {
	if len(warnings) == 0 {
		return ""
	}
	var b strings.Builder
	for _, w := range warnings {
		b.WriteString(warningStyle.Render(fmt.Sprintf("! %s", w.Error())))
		b.WriteString("\n")
	}
	return b.String()
}
