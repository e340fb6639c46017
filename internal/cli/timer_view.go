package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alexanderramin/studyclock/internal/cli/formatter"
	"github.com/alexanderramin/studyclock/internal/domain"
	"github.com/alexanderramin/studyclock/internal/stopwatch"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// timerController is the part of stopwatch.Loop the view drives.
type timerController interface {
	Toggle(ctx context.Context) (domain.TimerState, error)
	Reset(ctx context.Context) (domain.TimerState, error)
	Updates() <-chan domain.TimerState
}

// ── keys ─────────────────────────────────────────────────────────────────────

type timerKeyMap struct {
	Toggle key.Binding
	Reset  key.Binding
	Quit   key.Binding
}

func newTimerKeyMap() timerKeyMap {
	return timerKeyMap{
		Toggle: key.NewBinding(key.WithKeys("s", " "), key.WithHelp("s/space", "start/stop")),
		Reset:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reset")),
		Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k timerKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Reset, k.Quit}
}

func (k timerKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

// ── messages ─────────────────────────────────────────────────────────────────

// timerStateMsg carries a state published by the loop.
type timerStateMsg domain.TimerState

// timerCommandMsg is the loop's answer to a start, stop or reset.
type timerCommandMsg struct {
	state domain.TimerState
	err   error
}

// ── model ────────────────────────────────────────────────────────────────────

// timerModel is the full-screen stopwatch. It never touches the timer
// directly: every change goes through the loop, and ticks arrive as
// published states.
type timerModel struct {
	ctx    context.Context
	loop   timerController
	state  domain.TimerState
	notice string
	err    error

	keys     timerKeyMap
	help     help.Model
	width    int
	quitting bool
}

func newTimerModel(ctx context.Context, loop timerController, loaded stopwatch.LoadResult) timerModel {
	return timerModel{
		ctx:    ctx,
		loop:   loop,
		state:  domain.TimerState{ElapsedSeconds: loaded.RestoredSeconds},
		notice: formatter.FormatLoadResult(loaded),
		keys:   newTimerKeyMap(),
		help:   help.New(),
	}
}

func (m timerModel) Init() tea.Cmd {
	return waitForState(m.loop.Updates())
}

func waitForState(ch <-chan domain.TimerState) tea.Cmd {
	return func() tea.Msg {
		return timerStateMsg(<-ch)
	}
}

func (m timerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case timerStateMsg:
		m.state = domain.TimerState(msg)
		return m, waitForState(m.loop.Updates())

	case timerCommandMsg:
		if errors.Is(msg.err, stopwatch.ErrLoopClosed) {
			m.quitting = true
			return m, tea.Quit
		}
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.state = msg.state
		return m, nil

	case tea.KeyMsg:
		if m.quitting {
			return m, nil
		}
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Toggle):
			m.notice = ""
			return m, m.command(m.loop.Toggle)
		case key.Matches(msg, m.keys.Reset):
			m.notice = ""
			return m, m.command(m.loop.Reset)
		}
	}
	return m, nil
}

func (m timerModel) command(fn func(context.Context) (domain.TimerState, error)) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		state, err := fn(ctx)
		return timerCommandMsg{state: state, err: err}
	}
}

func (m timerModel) View() string {
	if m.quitting {
		return formatter.Dim("Saving study time…") + "\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n", formatter.ClockFace(m.state), formatter.PhaseIndicator(m.state.Phase()))
	if unsaved := m.state.Unsaved(); unsaved > 0 {
		b.WriteString(formatter.Dim("Unsaved: "+formatter.FormatSeconds(unsaved)) + "\n")
	}
	if m.notice != "" {
		b.WriteString("\n" + m.notice + "\n")
	}
	if m.err != nil {
		b.WriteString("\n" + formatter.StyleRed.Render("Error: "+m.err.Error()) + "\n")
	}

	return formatter.RenderBox("Study timer", b.String()) + "\n" + m.help.View(m.keys) + "\n"
}
