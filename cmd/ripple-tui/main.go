package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/econlab/ripple/pkg/scenario"
)

const (
	viewportHeight = 20
	barWidth       = 32
)

// Styles
var (
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	statusStyle = lipgloss.NewStyle().Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			Width(100)

	paneStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1).
			Width(100)

	selectedTabStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	tabStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	positiveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	negativeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	periodStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Width(8)
)

type resultMsg struct {
	result *scenario.Result
	err    error
}

type model struct {
	scenarioPath string
	spinner      spinner.Model
	viewport     viewport.Model
	result       *scenario.Result
	variables    []string
	selected     int
	err          error
	ready        bool
}

func initialModel(scenarioPath string) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	vp := viewport.New(100, viewportHeight)
	vp.Style = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		PaddingRight(2)

	return model{
		scenarioPath: scenarioPath,
		spinner:      s,
		viewport:     vp,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		runScenario(m.scenarioPath),
	)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "tab", "right", "l":
			if len(m.variables) > 0 {
				m.selected = (m.selected + 1) % len(m.variables)
				m.updateViewportContent()
			}
			return m, nil
		case "shift+tab", "left", "h":
			if len(m.variables) > 0 {
				m.selected = (m.selected + len(m.variables) - 1) % len(m.variables)
				m.updateViewportContent()
			}
			return m, nil
		}
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
		return m, tea.Batch(cmds...)

	case spinner.TickMsg:
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case resultMsg:
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.result = msg.result
			m.variables = msg.result.Results.Variables()
			m.updateViewportContent()
		}
		m.ready = true

	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width
		m.viewport.Height = viewportHeight
	}

	return m, tea.Batch(cmds...)
}

func (m *model) updateViewportContent() {
	if m.result == nil || len(m.variables) == 0 {
		return
	}
	name := m.variables[m.selected]
	series := m.result.Results.TimeSeries[name]
	unc := m.result.Results.UncertaintySeries[name]

	baseline := series[0]
	maxDev := 0.0
	for _, v := range series {
		if d := math.Abs(v - baseline); d > maxDev {
			maxDev = d
		}
	}

	var sb strings.Builder
	for t, v := range series {
		dev := v - baseline
		bar := renderBar(dev, maxDev)
		u := 0.0
		if t < len(unc) {
			u = unc[t]
		}
		sb.WriteString(fmt.Sprintf("%s %12.4f  ±%-8.4f %s\n",
			periodStyle.Render(fmt.Sprintf("t=%d", t)), v, u, bar))
	}

	m.viewport.SetContent(sb.String())
}

// renderBar draws a signed deviation bar centered on the baseline.
func renderBar(dev, maxDev float64) string {
	if maxDev == 0 {
		return subtleStyle.Render("·")
	}
	n := int(math.Round(math.Abs(dev) / maxDev * barWidth))
	if n == 0 {
		return subtleStyle.Render("·")
	}
	bar := strings.Repeat("█", n)
	if dev < 0 {
		return negativeStyle.Render(bar)
	}
	return positiveStyle.Render(bar)
}

func (m model) View() string {
	if !m.ready {
		return fmt.Sprintf("\n%s Propagating shock...", m.spinner.View())
	}
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("\nError: %v\n", m.err)) +
			subtleStyle.Render("\nPress q to quit\n")
	}

	res := m.result.Results

	// Tabs: one per variable.
	var tabs []string
	for i, name := range m.variables {
		if i == m.selected {
			tabs = append(tabs, selectedTabStyle.Render("["+name+"]"))
		} else {
			tabs = append(tabs, tabStyle.Render(name))
		}
	}
	topPane := paneStyle.Render(strings.Join(tabs, "  "))

	header := headerStyle.Render(fmt.Sprintf("%s %s — %s", m.spinner.View(), m.result.ScenarioName, res.Shock.String()))

	// Status footer with outcome and invariants.
	outcome := okStyle.Render(fmt.Sprintf("%s after %d periods", res.Outcome(), res.Meta.PeriodsRun))
	if !res.Converged {
		outcome = statusStyle.Render(fmt.Sprintf("%s after %d periods", res.Outcome(), res.Meta.PeriodsRun))
	}
	var invariants string
	if len(m.result.Invariants) > 0 {
		passed := 0
		for _, inv := range m.result.Invariants {
			if inv.Passed {
				passed++
			}
		}
		if passed == len(m.result.Invariants) {
			invariants = okStyle.Render(fmt.Sprintf(" • %d/%d invariants pass", passed, len(m.result.Invariants)))
		} else {
			invariants = failStyle.Render(fmt.Sprintf(" • %d/%d invariants pass", passed, len(m.result.Invariants)))
		}
	}
	footer := subtleStyle.Render(fmt.Sprintf("\n%s%s\ntab/←→ switch variable • q quit", outcome, invariants))

	return lipgloss.JoinVertical(lipgloss.Left, topPane, header, m.viewport.View(), footer)
}

// Commands

func runScenario(path string) tea.Cmd {
	return func() tea.Msg {
		sc, err := scenario.Load(path)
		if err != nil {
			return resultMsg{err: err}
		}
		res, err := sc.Run(context.Background())
		if err != nil {
			return resultMsg{err: err}
		}
		return resultMsg{result: res}
	}
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: ripple-tui <scenario.yaml>")
		os.Exit(1)
	}

	p := tea.NewProgram(initialModel(os.Args[1]), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Alas, there's been an error: %v", err)
		os.Exit(1)
	}
}
