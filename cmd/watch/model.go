package main

import (
	"context"
	"time"

	"stockfolio/internal/models"
	"stockfolio/internal/scheduler"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type keyMap struct {
	Refresh key.Binding
	Pause   key.Binding
	Quit    key.Binding
}

var keys = keyMap{
	Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Pause:   key.NewBinding(key.WithKeys("p", " "), key.WithHelp("p", "pause/resume")),
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// Messages sent by the scheduler callbacks.

type viewMsg models.PortfolioView

type errMsg struct{ err error }

type tickMsg int

type cycleDoneMsg struct{ err error }

type model struct {
	ctx   context.Context
	sched *scheduler.Scheduler

	view   *models.PortfolioView
	st     status
	width  int
	height int
}

func newModel(ctx context.Context, sched *scheduler.Scheduler) model {
	return model{ctx: ctx, sched: sched, st: statusOf(sched)}
}

// schedulerConfig routes the scheduler callbacks into send, normally
// (*tea.Program).Send.
func schedulerConfig(interval time.Duration, send func(tea.Msg)) scheduler.Config {
	return scheduler.Config{
		Interval: interval,
		OnUpdate: func(v models.PortfolioView) { send(viewMsg(v)) },
		OnError:  func(err error) { send(errMsg{err}) },
		OnTick:   func(left int) { send(tickMsg(left)) },
	}
}

func (m model) Init() tea.Cmd {
	return m.runCycle()
}

func (m model) runCycle() tea.Cmd {
	ctx, sched := m.ctx, m.sched
	return func() tea.Msg {
		return cycleDoneMsg{sched.RunCycle(ctx)}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Refresh):
			cmd = m.runCycle()
		case key.Matches(msg, keys.Pause):
			m.sched.Toggle()
		}

	case viewMsg:
		v := models.PortfolioView(msg)
		m.view = &v
	}

	m.st = statusOf(m.sched)
	return m, cmd
}

func (m model) View() string {
	var out string
	if m.view == nil {
		out = titleStyle.Render("STOCKFOLIO") + "\n" + renderStatus(m.st) + "\n"
	} else {
		out = renderDashboard(*m.view, m.st)
	}
	if m.width > 0 {
		out = lipgloss.NewStyle().MaxWidth(m.width).MaxHeight(m.height).Render(out)
	}
	return out
}

func statusOf(s *scheduler.Scheduler) status {
	return status{
		State:        s.State(),
		AutoRefresh:  s.IsAutoRefreshing(),
		NextUpdateIn: s.NextUpdateIn(),
		Err:          s.LastError(),
	}
}
