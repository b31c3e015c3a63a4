package tui

import (
	"fmt"
	"strings"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/hydroscan/hydroscan/internal/report"
)

var (
	colorText    = lipgloss.Color("#CDD6F4")
	colorSubtext = lipgloss.Color("#A6ADC8")
	colorDim     = lipgloss.Color("#585B70")
	colorAccent  = lipgloss.Color("#CBA6F7")
	colorBlue    = lipgloss.Color("#89B4FA")
	colorGreen   = lipgloss.Color("#A6E3A1")
	colorRed     = lipgloss.Color("#F38BA8")

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)

	tileStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorDim).
			Padding(0, 1)

	tileTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorBlue)
	rowLabelStyle  = lipgloss.NewStyle().Foreground(colorSubtext).Width(20)
	rowValueStyle  = lipgloss.NewStyle().Foreground(colorText)
	helpStyle      = lipgloss.NewStyle().Foreground(colorDim)
	errStyle       = lipgloss.NewStyle().Foreground(colorRed)
	barStyle       = lipgloss.NewStyle().Foreground(colorGreen)
)

func (m Model) View() string {
	width := m.width
	if width <= 0 {
		width = 80
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render("hydroscan") + "  " +
		helpStyle.Render("account "+m.rep.Account) + "\n\n")

	if len(m.rep.Contracts) == 0 {
		b.WriteString(helpStyle.Render("No contracts loaded. Press r to refresh.") + "\n")
	} else {
		contract := m.rep.Contracts[m.cursor]
		b.WriteString(m.contractTile(contract, width) + "\n")
		b.WriteString(m.historyChart(contract.ContractID, width) + "\n")
	}

	if m.lastErr != nil {
		b.WriteString(errStyle.Render(ansi.Truncate("error: "+m.lastErr.Error(), width-1, "…")) + "\n")
	}

	status := fmt.Sprintf("contract %d/%d", m.cursor+1, len(m.rep.Contracts))
	if m.refreshing {
		status += "  refreshing…"
	}
	b.WriteString("\n" + helpStyle.Render(status+"   ←/→ switch · r refresh · q quit"))

	return b.String()
}

func (m Model) contractTile(contract report.Contract, width int) string {
	innerW := width - 4
	if innerW < 30 {
		innerW = 30
	}

	var rows []string
	rows = append(rows, tileTitleStyle.Render("Contract "+contract.ContractID))
	rows = append(rows, tileRow("Balance", fmt.Sprintf("%.2f $", contract.Balance)))

	if p := contract.CurrentPeriod; len(p) > 0 {
		rows = append(rows,
			tileRow("Days elapsed", intCell(p["period_length"])),
			tileRow("Total bill", amountCell(p["period_total_bill"], "$")),
			tileRow("Projected bill", amountCell(p["period_projection"], "$")),
			tileRow("Total consumption", amountCell(p["period_total_consumption"], "kWh")),
			tileRow("Mean daily", amountCell(p["period_mean_daily_consumption"], "kWh")),
		)
	} else {
		rows = append(rows, helpStyle.Render("no period data fetched"))
	}

	for i, row := range rows {
		rows[i] = ansi.Truncate(row, innerW, "…")
	}
	return tileStyle.Width(innerW + 2).Render(strings.Join(rows, "\n"))
}

// historyChart draws the stored daily totals as a bar chart. An empty history
// renders a hint instead of an empty axis.
func (m Model) historyChart(contractID string, width int) string {
	rows := m.history[contractID]
	if len(rows) == 0 {
		return helpStyle.Render("no stored daily history yet (run the daemon or fetch)")
	}

	chartW := width - 2
	if chartW < 30 {
		chartW = 30
	}
	chart := barchart.New(chartW, 10)
	for _, row := range rows {
		total := 0.0
		if row.TotalKWh != nil {
			total = *row.TotalKWh
		}
		chart.Push(barchart.BarData{
			Label: shortDate(row.Date),
			Values: []barchart.BarValue{
				{Name: row.Date, Value: total, Style: barStyle},
			},
		})
	}
	chart.Draw()

	title := tileTitleStyle.Render(fmt.Sprintf("Daily consumption, last %d days (kWh)", len(rows)))
	return title + "\n" + chart.View()
}

func tileRow(label, value string) string {
	return rowLabelStyle.Render(label) + " " + rowValueStyle.Render(value)
}

// shortDate keeps the month-day tail of an ISO date so bar labels stay narrow.
func shortDate(date string) string {
	if len(date) == len("2006-01-02") {
		return date[5:]
	}
	return date
}

func amountCell(v any, unit string) string {
	f, ok := v.(float64)
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%.2f %s", f, unit)
}

func intCell(v any) string {
	f, ok := v.(float64)
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%d", int(f))
}
