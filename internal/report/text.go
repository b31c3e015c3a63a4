package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/hydroscan/hydroscan/internal/portal"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#B4BEFE"))

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#89B4FA"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A6ADC8")).
			Width(26)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#CDD6F4"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#585B70"))
)

// RenderText formats a report for terminal reading. Sections whose data was
// never fetched, or came back empty, are skipped rather than printed blank.
func RenderText(r Report, showHourly bool) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Hydro-Québec account "+r.Account) + "\n")

	for _, contract := range r.Contracts {
		b.WriteString("\n" + dimStyle.Render(strings.Repeat("─", 48)) + "\n\n")
		b.WriteString(sectionStyle.Render("Contract "+contract.ContractID) + "\n")
		writeRow(&b, "Balance", fmt.Sprintf("%.2f $", contract.Balance))

		writeCurrentPeriod(&b, contract.CurrentPeriod)
		writeAnnual(&b, contract.CurrentAnnual)
		writeYesterday(&b, contract.CurrentDaily)
		if showHourly {
			writeHourly(&b, contract.Hourly)
		}
	}

	return b.String()
}

func writeRow(b *strings.Builder, label, value string) {
	b.WriteString(labelStyle.Render(label) + " " + valueStyle.Render(value) + "\n")
}

func writeCurrentPeriod(b *strings.Builder, period map[string]any) {
	if len(period) == 0 {
		return
	}
	b.WriteString("\n" + sectionStyle.Render("Current period") + "\n")
	writeRow(b, "Days elapsed", formatInt(period["period_length"]))
	writeRow(b, "Days total", formatInt(period["period_total_days"]))
	writeRow(b, "Total bill", formatAmount(period["period_total_bill"], "$"))
	writeRow(b, "Projected bill", formatAmount(period["period_projection"], "$"))
	writeRow(b, "Mean daily bill", formatAmount(period["period_mean_daily_bill"], "$"))
	writeRow(b, "Lower price", formatAmount(period["period_lower_price_consumption"], "kWh"))
	writeRow(b, "Higher price", formatAmount(period["period_higher_price_consumption"], "kWh"))
	writeRow(b, "Total consumption", formatAmount(period["period_total_consumption"], "kWh"))
	writeRow(b, "Mean daily", formatAmount(period["period_mean_daily_consumption"], "kWh"))
	if period["period_average_temperature"] != nil {
		writeRow(b, "Temperature", formatInt(period["period_average_temperature"])+" °C")
	}
}

func writeAnnual(b *strings.Builder, annual map[string]any) {
	if len(annual) == 0 {
		return
	}
	b.WriteString("\n" + sectionStyle.Render("Annual total") + "\n")
	writeRow(b, "Start date", formatString(annual["annual_date_start"]))
	writeRow(b, "End date", formatString(annual["annual_date_end"]))
	writeRow(b, "Total bill", formatAmount(annual["annual_total_bill"], "$"))
	writeRow(b, "Mean daily bill", formatAmount(annual["annual_mean_daily_bill"], "$"))
	writeRow(b, "Total consumption", formatAmount(annual["annual_total_consumption"], "kWh"))
	writeRow(b, "Mean daily", formatAmount(annual["annual_mean_daily_consumption"], "kWh"))
	writeRow(b, "kWh price", formatAmount(annual["annual_kwh_price_cent"], "¢"))
}

func writeYesterday(b *strings.Builder, daily map[string]map[string]any) {
	date, ok := latestKey(daily)
	if !ok {
		return
	}
	day := daily[date]
	b.WriteString("\n" + sectionStyle.Render("Daily consumption "+date) + "\n")
	if day["average_temperature"] != nil {
		writeRow(b, "Temperature", formatInt(day["average_temperature"])+" °C")
	}
	writeRow(b, "Lower price", formatAmount(day["lower_price_consumption"], "kWh"))
	writeRow(b, "Higher price", formatAmount(day["higher_price_consumption"], "kWh"))
	writeRow(b, "Total", formatAmount(day["total_consumption"], "kWh"))
}

func writeHourly(b *strings.Builder, hourly map[string]*portal.HourlyDay) {
	date, ok := latestKey(hourly)
	if !ok {
		return
	}
	day := hourly[date]
	b.WriteString("\n" + sectionStyle.Render("Hourly consumption "+date) + "\n")
	b.WriteString(dimStyle.Render("  hour   temp      lower     higher      total") + "\n")
	for hour := 0; hour < 24; hour++ {
		values := day.Hours[hour]
		if values == nil {
			continue
		}
		line := fmt.Sprintf("  %02d:00 %6s %10s %10s %10s",
			hour,
			formatTempCell(values["average_temperature"]),
			formatCell(values["lower_price_consumption"]),
			formatCell(values["higher_price_consumption"]),
			formatCell(values["total_consumption"]),
		)
		b.WriteString(valueStyle.Render(line) + "\n")
	}
}

func formatAmount(v any, unit string) string {
	f, ok := v.(float64)
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%.2f %s", f, unit)
}

func formatCell(v any) string {
	f, ok := v.(float64)
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%.2f", f)
}

func formatTempCell(v any) string {
	f, ok := v.(float64)
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%d°", int(f))
}

func formatInt(v any) string {
	switch n := v.(type) {
	case float64:
		return fmt.Sprintf("%d", int(n))
	case int:
		return fmt.Sprintf("%d", n)
	}
	return "-"
}

func formatString(v any) string {
	s, ok := v.(string)
	if !ok || s == "" {
		return "-"
	}
	return s
}
