package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hydroscan/hydroscan/internal/report"
	"github.com/hydroscan/hydroscan/internal/store"
)

func sampleModel() Model {
	rep := report.Report{
		Account: "jane",
		Contracts: []report.Contract{
			{
				ContractID: "111",
				Balance:    10.0,
				CurrentPeriod: map[string]any{
					"period_length":                 5.0,
					"period_total_bill":             20.0,
					"period_projection":             45.0,
					"period_total_consumption":      150.0,
					"period_mean_daily_consumption": 30.0,
				},
			},
			{ContractID: "222", Balance: 55.5},
		},
	}
	return NewModel(rep, nil, nil)
}

func TestViewShowsSelectedContract(t *testing.T) {
	m := sampleModel()
	m.width = 80
	m.height = 30

	out := m.View()
	if !strings.Contains(out, "Contract 111") {
		t.Fatalf("view missing first contract:\n%s", out)
	}
	if !strings.Contains(out, "20.00 $") {
		t.Fatalf("view missing total bill:\n%s", out)
	}
	if !strings.Contains(out, "contract 1/2") {
		t.Fatalf("view missing position indicator:\n%s", out)
	}
	if strings.Contains(out, "Contract 222") {
		t.Fatalf("view must show one contract at a time:\n%s", out)
	}
}

func TestUpdateSwitchesContracts(t *testing.T) {
	m := sampleModel()

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRight})
	m = next.(Model)
	if m.cursor != 1 {
		t.Fatalf("cursor = %d, want 1", m.cursor)
	}

	// Right edge clamps.
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRight})
	m = next.(Model)
	if m.cursor != 1 {
		t.Fatalf("cursor = %d, want 1 at edge", m.cursor)
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyLeft})
	m = next.(Model)
	if m.cursor != 0 {
		t.Fatalf("cursor = %d, want 0", m.cursor)
	}
}

func TestUpdateQuits(t *testing.T) {
	m := sampleModel()
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("q must produce a command")
	}
	if msg := cmd(); msg == nil {
		t.Fatal("q must quit")
	} else if _, ok := msg.(tea.QuitMsg); !ok {
		t.Fatalf("q produced %T, want tea.QuitMsg", msg)
	}
}

func TestHistoryChartEmpty(t *testing.T) {
	m := sampleModel()
	out := m.historyChart("111", 80)
	if !strings.Contains(out, "no stored daily history") {
		t.Fatalf("empty history must render a hint, got:\n%s", out)
	}
}

func TestHistoryChartWithRows(t *testing.T) {
	m := sampleModel()
	total := 30.5
	m.history = map[string][]store.DailyRow{
		"111": {
			{Date: "2025-08-29", TotalKWh: &total},
			{Date: "2025-08-30", TotalKWh: nil},
		},
	}
	out := m.historyChart("111", 80)
	if !strings.Contains(out, "Daily consumption, last 2 days") {
		t.Fatalf("chart missing title:\n%s", out)
	}
	if len(strings.Split(out, "\n")) < 3 {
		t.Fatalf("chart body missing:\n%s", out)
	}
}

func TestShortDate(t *testing.T) {
	if got := shortDate("2025-08-29"); got != "08-29" {
		t.Fatalf("shortDate = %q, want 08-29", got)
	}
	if got := shortDate("bogus"); got != "bogus" {
		t.Fatalf("shortDate = %q, want passthrough", got)
	}
}
