package relax

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gigurra/lull/cmd/common/catalog"
	"github.com/gigurra/lull/cmd/common/mixer"
	"github.com/gigurra/lull/cmd/common/termui"
)

const (
	refreshInterval = 500 * time.Millisecond
	statusTTL       = 4 * time.Second
	volumeStep      = 0.05
	barWidth        = 10
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("117"))
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("250"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Background(lipgloss.Color("238"))
	activeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("114"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	sleepStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("183"))
)

// Controller is the part of the mixer the TUI drives.
type Controller interface {
	SelectBase(id string) error
	ToggleBasePlayback() error
	ResetAll() error
	ToggleOverlay(id string) (bool, error)
	SetVolume(id string, v float64) (float64, error)
	Snapshot() (mixer.Snapshot, error)
	StartSleepTimer(d time.Duration) error
	CancelSleepTimer() error
}

type tickMsg time.Time

// errMsg carries a failure reported by the mixer outside of a key press.
type errMsg struct{ err error }

type row struct {
	id      string
	title   string
	overlay bool
	color   string
}

type model struct {
	ctl     Controller
	rows    []row
	cursor  int
	snap    mixer.Snapshot
	presets []time.Duration
	// sleepIdx is the preset currently running, -1 for none.
	sleepIdx int
	errs     <-chan error

	width      int
	status     string
	statusErr  bool
	statusTime time.Time
	now        func() time.Time
}

func newModel(ctl Controller, cat *catalog.Catalog, presets []time.Duration, errs <-chan error) model {
	var rows []row
	for _, b := range cat.Bases() {
		rows = append(rows, row{id: b.ID, title: b.Title, color: b.Color})
	}
	for _, o := range cat.Overlays() {
		rows = append(rows, row{id: o.ID, title: o.Title, overlay: true, color: o.Color})
	}
	m := model{
		ctl:      ctl,
		rows:     rows,
		presets:  presets,
		sleepIdx: -1,
		errs:     errs,
		width:    termui.DefaultTerminalWidth,
		now:      time.Now,
	}
	m.refresh()
	return m
}

// withStartError shows a failure from before the UI started in the status line.
func (m model) withStartError(err error) model {
	if err != nil {
		m.setStatus(err)
	}
	return m
}

func (m model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), waitForError(m.errs))
}

func tickCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waitForError blocks on the mixer's error channel and hands the next error to Update.
func waitForError(errs <-chan error) tea.Cmd {
	if errs == nil {
		return nil
	}
	return func() tea.Msg {
		err, ok := <-errs
		if !ok {
			return nil
		}
		return errMsg{err: err}
	}
}

func (m *model) refresh() {
	snap, err := m.ctl.Snapshot()
	if err != nil {
		m.setStatus(err)
		return
	}
	if m.sleepIdx >= 0 && m.snap.SleepRemaining > 0 && snap.SleepRemaining == 0 {
		m.sleepIdx = -1
		m.setStatus("Sleep timer ended, good night")
	}
	m.snap = snap
}

func (m *model) setStatus(v any) {
	switch v := v.(type) {
	case error:
		m.status, m.statusErr = v.Error(), true
	default:
		m.status, m.statusErr = fmt.Sprint(v), false
	}
	m.statusTime = m.now()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.rows)-1 {
				m.cursor++
			}
		case "enter", " ":
			m.activate()
		case "p":
			if err := m.ctl.ToggleBasePlayback(); err != nil {
				m.setStatus(err)
			}
		case "x":
			m.sleepIdx = -1
			if err := m.ctl.ResetAll(); err != nil {
				m.setStatus(err)
			} else {
				m.setStatus("Everything stopped")
			}
		case "+", "=", "right", "l":
			m.nudgeVolume(volumeStep)
		case "-", "left", "h":
			m.nudgeVolume(-volumeStep)
		case "t":
			m.cycleSleep()
		}
		m.refresh()

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tickMsg:
		m.refresh()
		if m.status != "" && m.now().Sub(m.statusTime) > statusTTL {
			m.status = ""
		}
		return m, tickCmd()

	case errMsg:
		m.setStatus(msg.err)
		return m, waitForError(m.errs)
	}

	return m, nil
}

func (m *model) activate() {
	if len(m.rows) == 0 {
		return
	}
	r := m.rows[m.cursor]
	if r.overlay {
		if _, err := m.ctl.ToggleOverlay(r.id); err != nil {
			m.setStatus(err)
		}
		return
	}
	var err error
	if m.snap.ActiveBaseID == r.id {
		err = m.ctl.ToggleBasePlayback()
	} else {
		err = m.ctl.SelectBase(r.id)
	}
	if err != nil {
		m.setStatus(err)
	}
}

func (m *model) nudgeVolume(delta float64) {
	if len(m.rows) == 0 {
		return
	}
	id := m.rows[m.cursor].id
	v := math.Round((m.snap.Volumes[id]+delta)*100) / 100
	if _, err := m.ctl.SetVolume(id, v); err != nil {
		m.setStatus(err)
	}
}

// cycleSleep steps through off -> preset 1 -> ... -> preset n -> off.
func (m *model) cycleSleep() {
	if len(m.presets) == 0 {
		return
	}
	m.sleepIdx++
	if m.sleepIdx >= len(m.presets) {
		m.sleepIdx = -1
		if err := m.ctl.CancelSleepTimer(); err != nil {
			m.setStatus(err)
			return
		}
		m.setStatus("Sleep timer off")
		return
	}
	d := m.presets[m.sleepIdx]
	if err := m.ctl.StartSleepTimer(d); err != nil {
		m.sleepIdx = -1
		m.setStatus(err)
		return
	}
	m.setStatus(fmt.Sprintf("Stopping in %d minutes", int(d.Minutes())))
}

func (m model) View() string {
	var b strings.Builder
	width := max(m.width, 40)
	titleWidth := max(width-barWidth-24, 10)

	b.WriteString("\n  ")
	b.WriteString(titleStyle.Render("lull"))
	b.WriteString(dimStyle.Render("  ·  "))
	b.WriteString(m.nowPlaying())
	if m.snap.SleepRemaining > 0 {
		b.WriteString(dimStyle.Render("  ·  "))
		b.WriteString(sleepStyle.Render("sleep " + formatRemaining(m.snap.SleepRemaining)))
	}
	b.WriteString("\n\n")

	for i, r := range m.rows {
		if i == 0 {
			b.WriteString("  " + headerStyle.Render("BASE TRACKS") + "\n")
		} else if r.overlay && !m.rows[i-1].overlay {
			b.WriteString("\n  " + headerStyle.Render("OVERLAYS") + "\n")
		}
		b.WriteString(m.renderRow(i, r, titleWidth))
		b.WriteString("\n")
	}

	b.WriteString("\n  ")
	if m.status != "" {
		if m.statusErr {
			b.WriteString(errorStyle.Render(termui.Truncate(m.status, width-4)))
		} else {
			b.WriteString(activeStyle.Render(termui.Truncate(m.status, width-4)))
		}
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("  enter play/toggle • p pause • +/- volume • t sleep • x stop all • q quit"))
	b.WriteString("\n")
	return b.String()
}

func (m model) nowPlaying() string {
	if m.snap.ActiveBaseID == "" {
		return dimStyle.Render("nothing playing")
	}
	title := m.snap.ActiveBaseID
	for _, r := range m.rows {
		if r.id == m.snap.ActiveBaseID {
			title = r.title
		}
	}
	if m.snap.BasePlaying {
		return activeStyle.Render("▶ " + title)
	}
	return dimStyle.Render("⏸ " + title)
}

func (m model) renderRow(i int, r row, titleWidth int) string {
	marker, state := " ", ""
	if r.overlay {
		marker = "○"
		if m.snap.OverlayEnabled(r.id) {
			marker = "●"
			state = string(m.snap.Phase(r.id))
		}
	} else if r.id == m.snap.ActiveBaseID {
		marker = "▶"
		state = "playing"
		if !m.snap.BasePlaying {
			marker, state = "⏸", "paused"
		}
	}

	line := fmt.Sprintf("  %s %s %s %s %3.0f%%",
		marker,
		termui.Pad(r.title, titleWidth),
		termui.Pad(state, 8),
		termui.Bar(m.snap.Volumes[r.id], barWidth),
		m.snap.Volumes[r.id]*100,
	)

	style := lipgloss.NewStyle()
	if r.color != "" {
		style = style.Foreground(lipgloss.Color(r.color))
	}
	if i == m.cursor {
		return selectedStyle.Inherit(style).Render(line)
	}
	return style.Render(line)
}

func formatRemaining(d time.Duration) string {
	d = d.Round(time.Second)
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}
