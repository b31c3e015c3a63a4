package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hydroscan/hydroscan/internal/report"
	"github.com/hydroscan/hydroscan/internal/store"
)

const historyDays = 14

// RefreshFunc produces a fresh report, typically by logging in and fetching
// every contract again.
type RefreshFunc func(ctx context.Context) (report.Report, error)

type reportMsg report.Report

type historyMsg map[string][]store.DailyRow

type errMsg struct{ err error }

// Model is the dashboard: one contract visible at a time, with balance and
// period figures beside a bar chart of the stored daily history.
type Model struct {
	rep     report.Report
	history map[string][]store.DailyRow

	st      *store.Store
	refresh RefreshFunc

	cursor     int
	width      int
	height     int
	refreshing bool
	lastErr    error
}

func NewModel(rep report.Report, st *store.Store, refresh RefreshFunc) Model {
	return Model{
		rep:     rep,
		history: map[string][]store.DailyRow{},
		st:      st,
		refresh: refresh,
	}
}

func (m Model) Init() tea.Cmd {
	return m.loadHistoryCmd()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "left", "h":
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil
		case "right", "l", "tab":
			if m.cursor < len(m.rep.Contracts)-1 {
				m.cursor++
			}
			return m, nil
		case "r":
			if m.refreshing || m.refresh == nil {
				return m, nil
			}
			m.refreshing = true
			return m, m.refreshCmd()
		}
		return m, nil

	case reportMsg:
		m.rep = report.Report(msg)
		m.refreshing = false
		m.lastErr = nil
		if m.cursor >= len(m.rep.Contracts) {
			m.cursor = 0
		}
		return m, m.loadHistoryCmd()

	case historyMsg:
		m.history = msg
		return m, nil

	case errMsg:
		m.refreshing = false
		m.lastErr = msg.err
		return m, nil
	}

	return m, nil
}

func (m Model) refreshCmd() tea.Cmd {
	refresh := m.refresh
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		rep, err := refresh(ctx)
		if err != nil {
			return errMsg{err}
		}
		return reportMsg(rep)
	}
}

func (m Model) loadHistoryCmd() tea.Cmd {
	if m.st == nil {
		return nil
	}
	st := m.st
	contracts := m.rep.Contracts
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		out := make(map[string][]store.DailyRow, len(contracts))
		for _, contract := range contracts {
			rows, err := st.RecentDaily(ctx, contract.ContractID, historyDays)
			if err != nil {
				return errMsg{err}
			}
			out[contract.ContractID] = rows
		}
		return historyMsg(out)
	}
}
