package viz

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/conservation/internal/env"
	"github.com/san-kum/conservation/internal/experiment"
)

var envInfo = map[string]string{
	"conservation-v0":               "ricker, additive control",
	"conservation-v1":               "allee effect",
	"conservation-v2":               "may tipping point",
	"conservation-v3":               "drifting predation",
	"conservation-v4":               "drift, threshold reward",
	"conservation-v5":               "drift, push back on a",
	"conservation-v6":               "unknown growth model",
	"conservation-v7":               "dual control",
	"conservation-v8":               "replicate ensemble",
	"conservation-harvest-v0":       "discrete harvest quota",
	"conservation-nonstationary-v0": "declining growth rate",
	"beverton-holt-v0":              "beverton-holt",
	"myers-v0":                      "myers depensation",
}

const (
	stateEnvMenu = iota
	statePolicyMenu
	stateSim
)

var (
	cursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ffff")).Bold(true)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffffff")).Bold(true)
	infoStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff88ff"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#555566"))
	keyStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#00aaaa")).Bold(true)
)

// App picks an environment and a policy from a registry, then runs the
// live view on the choice.
type App struct {
	registry *experiment.Registry
	opts     []env.Option
	state    int
	cursor   int
	envs     []string
	policies []string
	selected string
	current  *env.Environment
	live     Model
	err      error
}

// NewApp lists every environment and every non-interactive policy.
func NewApp(r *experiment.Registry, opts ...env.Option) *App {
	var policies []string
	for _, p := range r.ListPolicies() {
		if p != "user" {
			policies = append(policies, p)
		}
	}
	return &App{
		registry: r,
		opts:     opts,
		envs:     r.ListEnvs(),
		policies: policies,
	}
}

func (a *App) Init() tea.Cmd { return nil }

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if a.state == stateSim {
		if k, ok := msg.(tea.KeyMsg); ok && k.String() == "esc" {
			a.closeCurrent()
			a.state, a.cursor = stateEnvMenu, 0
			return a, nil
		}
		next, cmd := a.live.Update(msg)
		a.live = next.(Model)
		return a, cmd
	}

	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return a, nil
	}
	items := a.items()
	switch k.String() {
	case "q", "ctrl+c":
		a.closeCurrent()
		return a, tea.Quit
	case "up", "k":
		if a.cursor > 0 {
			a.cursor--
		}
	case "down", "j":
		if a.cursor < len(items)-1 {
			a.cursor++
		}
	case "esc":
		a.state, a.cursor = stateEnvMenu, 0
	case "enter", " ":
		if a.state == stateEnvMenu {
			a.selected = items[a.cursor]
			a.state, a.cursor = statePolicyMenu, 0
			return a, nil
		}
		return a, a.start(items[a.cursor])
	}
	return a, nil
}

func (a *App) items() []string {
	if a.state == statePolicyMenu {
		return a.policies
	}
	return a.envs
}

func (a *App) start(policyName string) tea.Cmd {
	e, err := a.registry.NewEnv(a.selected, nil, a.opts...)
	if err != nil {
		a.err = err
		return nil
	}
	p, err := a.registry.GetPolicy(policyName, e, nil)
	if err != nil {
		e.Close()
		a.err = err
		return nil
	}
	a.err = nil
	a.current = e
	a.live = NewModel(e, p, a.selected+" / "+policyName)
	a.state = stateSim
	return a.live.Init()
}

func (a *App) closeCurrent() {
	if a.current != nil {
		a.current.Close()
		a.current = nil
	}
}

func (a *App) View() string {
	if a.state == stateSim {
		return a.live.View() + "\n" + dimStyle.Render("esc: back to menu")
	}

	var b strings.Builder
	h := lipgloss.NewStyle().Foreground(lipgloss.Color("#00cccc")).Bold(true)
	title, sub := "CONSERVATION", "pick an environment"
	if a.state == statePolicyMenu {
		title, sub = strings.ToUpper(a.selected), "pick a policy"
	}
	b.WriteString("\n\n    " + h.Render(title) + "\n    " + dimStyle.Render(sub) + "\n\n")

	for i, name := range a.items() {
		desc := envInfo[name]
		if a.state == statePolicyMenu {
			desc = ""
		}
		if i == a.cursor {
			b.WriteString(fmt.Sprintf("    %s %s  %s\n", cursorStyle.Render("▸"),
				selectedStyle.Render(fmt.Sprintf("%-30s", name)), infoStyle.Render(desc)))
		} else {
			b.WriteString(fmt.Sprintf("      %s  %s\n", dimStyle.Render(fmt.Sprintf("%-30s", name)), dimStyle.Render(desc)))
		}
	}
	if a.err != nil {
		b.WriteString("\n    " + lipgloss.NewStyle().Foreground(lipgloss.Color("#ff4444")).Render(a.err.Error()) + "\n")
	}

	b.WriteString("\n    " + keyStyle.Render("j/k") + dimStyle.Render(" navigate  ") +
		keyStyle.Render("enter") + dimStyle.Render(" select  ") +
		keyStyle.Render("esc") + dimStyle.Render(" back  ") +
		keyStyle.Render("q") + dimStyle.Render(" quit") + "\n")
	return b.String()
}

// RunInteractive opens the picker on the terminal.
func RunInteractive(r *experiment.Registry, opts ...env.Option) error {
	_, err := tea.NewProgram(NewApp(r, opts...), tea.WithAltScreen()).Run()
	return err
}
