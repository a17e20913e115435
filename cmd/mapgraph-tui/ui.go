package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rmax-ai/mapgraph/pkg/editor"
	"github.com/rmax-ai/mapgraph/pkg/graph"
)

const (
	maxStatuses    = 8
	viewportHeight = 16
	defaultWidth   = 100
)

// Styles
var (
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	carStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("99"))
	placeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true)

	paneStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)
)

type model struct {
	ctx      context.Context
	ctrl     *editor.Controller
	title    string
	input    textinput.Model
	viewport viewport.Model
	width    int

	snapshot graph.Snapshot
	statuses []editor.Status
	prompt   *editor.PlacePrompt
	quitting bool
}

func initialModel(ctx context.Context, ctrl *editor.Controller, title string) model {
	ti := textinput.New()
	ti.Placeholder = "click 120 80 | click 120 80 right | mode place | undo | help"
	ti.Prompt = "> "
	ti.Focus()

	vp := viewport.New(defaultWidth, viewportHeight)

	m := model{
		ctx:      ctx,
		ctrl:     ctrl,
		title:    title,
		input:    ti,
		viewport: vp,
		width:    defaultWidth,
		snapshot: ctrl.Model().Snapshot(),
	}
	m.updateViewportContent()
	return m
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "ctrl+z":
			m.apply(m.ctrl.OnUndoRequested(m.ctx))
			return m, nil
		case "ctrl+s":
			m.apply(m.ctrl.OnSaveRequested(m.ctx))
			return m, nil
		case "esc":
			m.prompt = nil
			m.apply(m.ctrl.OnCancelSelection())
			return m, nil
		case "enter":
			line := m.input.Value()
			m.input.SetValue("")
			if m.run(line) {
				m.quitting = true
				return m, tea.Quit
			}
			return m, nil
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.viewport.Width = msg.Width
		m.viewport.Height = viewportHeight
		m.updateViewportContent()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// run executes one command line and reports whether the program should exit.
func (m *model) run(line string) bool {
	if strings.TrimSpace(line) == "" {
		return false
	}
	c, err := parseCommand(line)
	if err != nil {
		m.addStatus(editor.Status{Level: editor.StatusWarn, Message: err.Error()})
		return false
	}

	switch c.kind {
	case cmdQuit:
		return true
	case cmdHelp:
		m.addStatus(editor.Status{Level: editor.StatusInfo, Message: usage})
	case cmdClick:
		m.apply(m.ctrl.OnClickAt(m.ctx, c.pos, c.button, c.mods))
	case cmdName:
		if m.prompt == nil {
			m.addStatus(editor.Status{Level: editor.StatusWarn, Message: "no special place waiting for a name"})
			return false
		}
		prompt := *m.prompt
		m.prompt = nil
		m.apply(m.ctrl.OnPlaceNamed(m.ctx, prompt, c.name))
	case cmdMode:
		m.apply(m.ctrl.OnModeToggle(m.ctx, c.mode))
	case cmdUndo:
		m.apply(m.ctrl.OnUndoRequested(m.ctx))
	case cmdSave:
		m.apply(m.ctrl.OnSaveRequested(m.ctx))
	case cmdCancel:
		m.prompt = nil
		m.apply(m.ctrl.OnCancelSelection())
	}
	return false
}

func (m *model) apply(u editor.Update) {
	m.snapshot = u.Snapshot
	if u.Prompt != nil {
		m.prompt = u.Prompt
	}
	for _, s := range u.Statuses {
		m.addStatus(s)
	}
	m.updateViewportContent()
}

func (m *model) addStatus(s editor.Status) {
	m.statuses = append(m.statuses, s)
	if len(m.statuses) > maxStatuses {
		m.statuses = m.statuses[len(m.statuses)-maxStatuses:]
	}
}

func (m *model) updateViewportContent() {
	m.viewport.SetContent(renderGraph(m.snapshot))
}

func renderGraph(s graph.Snapshot) string {
	var sb strings.Builder

	sb.WriteString(lipgloss.NewStyle().Bold(true).Underline(true).Render("Nodes") + "\n")
	if len(s.Nodes) == 0 {
		sb.WriteString(subtleStyle.Render("none") + "\n")
	}
	for _, n := range s.Nodes {
		marker := " "
		for _, sel := range s.Selection {
			if sel == n.ID {
				marker = "*"
			}
		}
		sb.WriteString(fmt.Sprintf("%s %-10s (%g, %g)\n", marker, n.ID, n.Pos.X, n.Pos.Y))
	}

	sb.WriteString("\n" + lipgloss.NewStyle().Bold(true).Underline(true).Render("Edges") + "\n")
	if len(s.Edges) == 0 {
		sb.WriteString(subtleStyle.Render("none") + "\n")
	}
	for _, e := range s.Edges {
		line := fmt.Sprintf("  %s -> %s  %g", e.From, e.To, e.Weight)
		if e.Kind == graph.EdgeCar {
			line = carStyle.Render(line + "  car")
		}
		sb.WriteString(line + "\n")
	}

	sb.WriteString("\n" + lipgloss.NewStyle().Bold(true).Underline(true).Render("Special places") + "\n")
	if len(s.Places) == 0 {
		sb.WriteString(subtleStyle.Render("none") + "\n")
	}
	for _, p := range s.Places {
		sb.WriteString(placeStyle.Render(fmt.Sprintf("  %s %q (%g, %g)", p.ID, p.Name, p.Pos.X, p.Pos.Y)) + "\n")
	}
	return sb.String()
}

func renderStatus(s editor.Status) string {
	switch s.Level {
	case editor.StatusError:
		return errorStyle.Render("error: " + s.Message)
	case editor.StatusWarn:
		return warnStyle.Render("warn: " + s.Message)
	default:
		return okStyle.Render(s.Message)
	}
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	modes := []string{}
	if m.snapshot.SpecialPlaceMode {
		modes = append(modes, placeStyle.Render("special place mode"))
	}
	if m.snapshot.CarMode {
		modes = append(modes, carStyle.Render("car mode"))
	}
	if len(modes) == 0 {
		modes = append(modes, subtleStyle.Render("normal mode"))
	}

	header := headerStyle.Width(m.width).Render(fmt.Sprintf("%s • %s • %d nodes • %d edges • %d places • undo %d",
		m.title, strings.Join(modes, " "), len(m.snapshot.Nodes), len(m.snapshot.Edges), len(m.snapshot.Places), m.snapshot.UndoDepth))

	var status strings.Builder
	for _, s := range m.statuses {
		status.WriteString(renderStatus(s) + "\n")
	}
	if m.prompt != nil {
		status.WriteString(warnStyle.Render(fmt.Sprintf("special place at (%g, %g): type name NAME", m.prompt.Pos.X, m.prompt.Pos.Y)) + "\n")
	}

	footer := subtleStyle.Render("enter run • ctrl+z undo • ctrl+s save • esc cancel • ctrl+c quit")

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.viewport.View(),
		paneStyle.Width(m.width-2).Render(strings.TrimRight(status.String(), "\n")),
		m.input.View(),
		footer,
	)
}
