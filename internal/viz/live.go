package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/conservation/internal/ecology"
)

const (
	canvasWidth     = 40
	canvasHeight    = 12
	historyCapacity = 600
	defaultInterval = 150 * time.Millisecond
	minInterval     = 10 * time.Millisecond
)

const (
	statusRunning   = "RUNNING"
	statusPaused    = "PAUSED"
	statusReplay    = "REPLAY"
	statusDone      = "DONE"
	statusCollapsed = "COLLAPSED"
	statusError     = "ERROR"
)

// Snapshot is one simulated year as shown on screen.
type Snapshot struct {
	Year       int
	Population float64
	Action     float64
	Reward     float64
	Drift      float64
}

type TickMsg time.Time

// Model steps an environment with a policy on every tick and keeps the
// recent history for plotting and replay.
type Model struct {
	env       ecology.Env
	policy    ecology.Policy
	title     string
	obs       ecology.Observation
	episode   int
	total     float64
	done      bool
	collapsed bool
	err       error
	running   bool
	history   []Snapshot
	playHead  int
	canvas    *Canvas
	theme     Theme
	interval  time.Duration
	showHelp  bool
}

func NewModel(e ecology.Env, p ecology.Policy, title string) Model {
	m := Model{
		env:      e,
		policy:   p,
		title:    title,
		running:  true,
		history:  make([]Snapshot, 0, historyCapacity),
		playHead: -1,
		canvas:   NewCanvas(canvasWidth, canvasHeight),
		theme:    ThemeForest,
		interval: defaultInterval,
	}
	m.reset()
	return m
}

// SetTheme selects a theme by name.
func (m *Model) SetTheme(name string) { m.theme = GetTheme(name) }

func (m Model) History() []Snapshot { return m.history }
func (m Model) Done() bool          { return m.done }
func (m Model) Err() error          { return m.err }
func (m Model) Total() float64      { return m.total }
func (m Model) Episode() int        { return m.episode }

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd { return m.tick() }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ", "space":
			m.running = !m.running
			m.playHead = -1
		case "n":
			m.running = false
			m.step()
		case "r":
			m.reset()
		case "[":
			m.scrub(-1)
		case "]":
			m.scrub(1)
		case "+", "=":
			m.interval = max(minInterval, m.interval/2)
		case "-", "_":
			m.interval *= 2
		case "t":
			m.theme = m.theme.Next()
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		if m.running && m.playHead == -1 {
			m.step()
		}
		return m, m.tick()
	}
	return m, nil
}

// step advances the environment by one year.
func (m *Model) step() {
	if m.done || m.err != nil {
		return
	}

	a, _, err := m.policy.Predict(m.obs, true)
	if err != nil {
		m.fail(err)
		return
	}
	u := m.env.UnscaleAction(a)

	obs, reward, done, info, err := m.env.Step(a)
	if err != nil {
		m.fail(err)
		return
	}

	snap := Snapshot{
		Year:       len(m.history) + 1,
		Population: mean(m.env.UnscaleState(obs)),
		Reward:     reward,
		Drift:      info.Drift,
	}
	if len(u) > 0 {
		snap.Action = u[0]
	}
	m.history = append(m.history, snap)
	if len(m.history) > historyCapacity {
		m.history = m.history[1:]
	}

	m.obs = obs
	m.total += reward
	if done {
		m.done = true
		m.collapsed = snap.Population <= 0
		m.running = false
	}
}

func (m *Model) fail(err error) {
	m.err = err
	m.running = false
}

// reset starts a new episode.
func (m *Model) reset() {
	m.obs = m.env.Reset()
	if r, ok := m.policy.(ecology.Resetter); ok {
		r.Reset()
	}
	m.episode++
	m.total = 0
	m.done, m.collapsed, m.err = false, false, nil
	m.history = m.history[:0]
	m.playHead = -1
	m.running = true
}

// scrub moves the replay cursor through the recorded history.
func (m *Model) scrub(dir int) {
	if len(m.history) == 0 {
		return
	}
	if m.playHead == -1 {
		m.playHead = len(m.history) - 1
		m.running = false
	}
	m.playHead += dir
	if m.playHead < 0 {
		m.playHead = 0
	}
	if m.playHead >= len(m.history) {
		m.playHead = -1
	}
}

// visible is the history up to the replay cursor.
func (m Model) visible() []Snapshot {
	if m.playHead >= 0 && m.playHead < len(m.history) {
		return m.history[:m.playHead+1]
	}
	return m.history
}

func (m Model) status() string {
	switch {
	case m.err != nil:
		return statusError
	case m.playHead != -1:
		return statusReplay
	case m.collapsed:
		return statusCollapsed
	case m.done:
		return statusDone
	case !m.running:
		return statusPaused
	}
	return statusRunning
}

func (m Model) View() string {
	hist := m.visible()
	k := m.env.Params().K

	pops := make([]float64, len(hist))
	rewards := make([]float64, len(hist))
	actions := make([]float64, len(hist))
	for i, s := range hist {
		pops[i], rewards[i], actions[i] = s.Population, s.Reward, s.Action
	}

	m.canvas.Clear()
	m.canvas.HLine(k, 0, 2*k)
	m.canvas.PlotSeries(pops, 0, 2*k)
	plot := panelStyle.BorderForeground(m.theme.Muted).Render(
		m.theme.graph().Render(m.canvas.String()) + "\n" +
			lipgloss.NewStyle().Foreground(m.theme.Muted).Render(fmt.Sprintf("population  0 .. %.2f  (dots at K)", 2*k)))

	var cur Snapshot
	if len(hist) > 0 {
		cur = hist[len(hist)-1]
	}
	label, value := m.theme.label(), m.theme.value()

	var s strings.Builder
	s.WriteString(m.theme.title().Render(strings.ToUpper(m.title)) + "\n")
	s.WriteString(m.theme.status(m.status()) + fmt.Sprintf("  episode %d\n\n", m.episode))
	s.WriteString(label.Render("Year") + value.Render(fmt.Sprintf("%d / %d", cur.Year, m.env.Horizon()+1)) + "\n")
	s.WriteString(label.Render("Population") + value.Render(fmt.Sprintf("%.4f", cur.Population)) + "\n")
	s.WriteString(label.Render("Action") + value.Render(fmt.Sprintf("%.4f", cur.Action)) + "\n")
	s.WriteString(label.Render("Reward") + value.Render(fmt.Sprintf("%.4f", cur.Reward)) + "\n")
	s.WriteString(label.Render("Total") + value.Render(fmt.Sprintf("%.4f", m.total)) + "\n")
	s.WriteString(label.Render("Drift") + value.Render(fmt.Sprintf("%.4f", cur.Drift)) + "\n")
	s.WriteString(label.Render("Progress") + ProgressBar(float64(cur.Year)/float64(m.env.Horizon()+1), 20) + "\n")
	if m.err != nil {
		s.WriteString(lipgloss.NewStyle().Foreground(m.theme.Error).Render(m.err.Error()) + "\n")
	}

	if len(rewards) > 1 {
		chart := asciigraph.Plot(rewards, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Reward"))
		s.WriteString("\n" + m.theme.graph().Render(chart) + "\n")
	}
	s.WriteString("\n" + label.Render("Actions") + Sparkline(actions, 28) + "\n")
	s.WriteString(helpStyle.Render(Separator(28) + "\nSP:Pause N:Step R:Reset Q:Quit\n[ ]:Replay +/-:Speed T:Theme ?:Help"))

	mainView := lipgloss.JoinHorizontal(lipgloss.Top, plot, statsStyle.Render(s.String()))
	if m.showHelp {
		return helpText + "\n" + mainView
	}
	return mainView
}

const helpText = `
  Space  pause or resume
  N      advance one year
  R      start a new episode
  [ ]    replay recorded years
  + -    faster or slower
  T      cycle themes
  Q      quit
`

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	s := 0.0
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}

// Run starts the live view on the terminal.
func Run(e ecology.Env, p ecology.Policy, title, theme string) error {
	m := NewModel(e, p, title)
	m.SetTheme(theme)
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
