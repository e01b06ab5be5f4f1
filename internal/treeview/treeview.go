// Package treeview renders a internal/puct.Search's root statistics as a
// bordered table, for interactive inspection of a running or finished search.
// Grounded on internal/ui/cli/cli.go's lipgloss usage (PrintWinner's bordered,
// padded, colored block) and its centerString/printCentered helpers.
package treeview

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/janpfeifer/ggpfgo/internal/puct"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("13")).
			Padding(0, 1)

	bestRowStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")).
			Padding(0, 1)

	rowStyle = lipgloss.NewStyle().Padding(0, 1)

	tableStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)
)

type row struct {
	move   string
	prior  float32
	visits float32
	q      float32
	reward float32
}

// Render formats search's root edges into a table sorted by visit count
// (descending, matching BestMove's own criterion), highlighting the move that
// criterion would pick.
func Render[S any, M comparable](search *puct.Search[S, M]) string {
	stats := search.Root().Stats()
	rows := make([]row, 0, len(stats))
	for m, e := range stats {
		rows = append(rows, row{
			move:   fmt.Sprintf("%v", m),
			prior:  e.Prior,
			visits: e.Visits,
			q:      e.Q,
			reward: e.Reward,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].visits > rows[j].visits })

	widths := columnWidths(rows)
	var lines []string
	lines = append(lines, headerStyle.Render(formatRow(row{move: "move", prior: -1, visits: -1, q: -1, reward: -1}, widths, true)))
	for i, r := range rows {
		style := rowStyle
		if i == 0 {
			style = bestRowStyle
		}
		lines = append(lines, style.Render(formatRow(r, widths, false)))
	}
	return tableStyle.Render(strings.Join(lines, "\n"))
}

func columnWidths(rows []row) [5]int {
	widths := [5]int{len("move"), len("prior"), len("visits"), len("Q"), len("reward")}
	for _, r := range rows {
		widths[0] = maxInt(widths[0], len(r.move))
	}
	return widths
}

func formatRow(r row, widths [5]int, header bool) string {
	if header {
		return fmt.Sprintf("%-*s  %7s  %7s  %7s  %7s", widths[0], r.move, "prior", "visits", "Q", "reward")
	}
	return fmt.Sprintf("%-*s  %7.4f  %7.1f  %7.4f  %7.4f", widths[0], r.move, r.prior, r.visits, r.q, r.reward)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
