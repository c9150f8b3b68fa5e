package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/kasuganosora/scenarioplayer/game/player"
	"github.com/muesli/reflow/wordwrap"
)

const helpText = "enter next · space finish line · 1-9 choose · a auto · s skip · pgup/pgdn scroll · q quit"

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	speakerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	choiceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	stageStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)
)

// frameMsg drives Session.Tick at the configured frame interval.
type frameMsg time.Time

// playerModel is the bubbletea model of the terminal player.
type playerModel struct {
	sess  *player.Session
	frame time.Duration
	last  time.Time

	vp     viewport.Model
	ready  bool
	width  int
	height int

	status string
	err    error
}

func newPlayerModel(sess *player.Session, frame time.Duration) playerModel {
	if frame <= 0 {
		frame = 16 * time.Millisecond
	}
	return playerModel{
		sess:  sess,
		frame: frame,
		vp:    viewport.New(60, 12),
	}
}

func (m playerModel) tick() tea.Cmd {
	return tea.Tick(m.frame, func(t time.Time) tea.Msg { return frameMsg(t) })
}

func (m playerModel) Init() tea.Cmd {
	return m.tick()
}

func (m playerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.vp.Width = max(msg.Width-4, 10)
		m.vp.Height = max(msg.Height-10, 3)
		m.ready = true
		m.refresh()
		return m, nil

	case frameMsg:
		now := time.Time(msg)
		elapsed := m.frame
		if !m.last.IsZero() {
			elapsed = now.Sub(m.last)
		}
		m.last = now
		m.sess.Tick(int(elapsed / time.Millisecond))
		m.refresh()
		return m, m.tick()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.vp, cmd = m.vp.Update(msg)
	return m, cmd
}

func (m playerModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.err = nil
	switch key := msg.String(); key {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "enter":
		if !m.sess.Advance() && !m.sess.IsTextComplete() {
			m.sess.SkipReveal()
		}
	case " ":
		m.sess.SkipReveal()
	case "a":
		snap := m.sess.Snapshot()
		m.sess.SetAutoMode(!snap.Auto)
		m.status = onOff("auto", !snap.Auto)
	case "s":
		snap := m.sess.Snapshot()
		m.sess.SetSkipMode(!snap.Skip)
		m.status = onOff("skip", !snap.Skip)
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		n, _ := strconv.Atoi(key)
		if err := m.sess.SelectChoice(n - 1); err != nil {
			m.err = err
		} else {
			m.status = fmt.Sprintf("chose %d", n)
		}
	default:
		var cmd tea.Cmd
		m.vp, cmd = m.vp.Update(msg)
		return m, cmd
	}
	m.refresh()
	return m, nil
}

// refresh rebuilds the transcript and keeps it pinned to the newest line.
func (m *playerModel) refresh() {
	m.vp.SetContent(m.transcript())
	m.vp.GotoBottom()
}

func (m playerModel) transcript() string {
	var b strings.Builder
	for _, l := range m.sess.VisibleTranscriptLines() {
		if l.Label != "" {
			b.WriteString(speakerStyle.Render(l.Label))
			b.WriteString("\n")
		}
		b.WriteString(wordwrap.String(l.Text, max(m.vp.Width, 10)))
		b.WriteString("\n")
	}
	return b.String()
}

func (m playerModel) View() string {
	snap := m.sess.Snapshot()

	var b strings.Builder
	title := "SCENARIO"
	if snap.Script != "" {
		title += " · " + snap.Script
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString(stageStyle.Render(fmt.Sprintf("  step %d/%d  %s", snap.Step+1, snap.Steps, snap.State)))
	b.WriteString("\n")

	if m.ready {
		b.WriteString(panelStyle.Width(max(m.width-2, 10)).Render(m.vp.View()))
	} else {
		b.WriteString(m.vp.View())
	}
	b.WriteString("\n")

	for i, opt := range snap.Choice {
		b.WriteString(choiceStyle.Render(fmt.Sprintf("  %d. %s", i+1, opt)))
		b.WriteString("\n")
	}
	if snap.Finished {
		b.WriteString(statusStyle.Render("[end: " + snap.FinishReason + "]"))
		b.WriteString("\n")
	}

	if snap.Stage != nil {
		b.WriteString(stageStyle.Render(stageLine(snap.Stage)))
		b.WriteString("\n")
	}
	switch {
	case m.err != nil:
		b.WriteString(errorStyle.Render(m.err.Error()))
	case m.status != "":
		b.WriteString(statusStyle.Render(m.status))
	}
	b.WriteString("\n")
	b.WriteString(stageStyle.Render(helpText))
	return b.String()
}

func stageLine(st *player.StageState) string {
	parts := []string{"bg: " + orDash(st.Background)}
	names := make([]string, 0, len(st.Characters))
	for _, c := range st.Characters {
		names = append(names, c.Name)
	}
	parts = append(parts, "chara: "+orDash(strings.Join(names, ",")))
	bgm := orDash(st.Bgm)
	if st.BgmPaused {
		bgm += " (paused)"
	}
	parts = append(parts, "bgm: "+bgm)
	if st.Fade != "" {
		parts = append(parts, "fade: "+st.Fade)
	}
	return strings.Join(parts, "  ")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func onOff(name string, on bool) string {
	if on {
		return name + " on"
	}
	return name + " off"
}
