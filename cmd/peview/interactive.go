package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/pefile/pe"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	regionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	stateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type viewerState int

const (
	stateSelectRegion viewerState = iota
	stateShowRegion
)

type regionItem struct {
	name   string
	status string
	render func(*pe.File, int) string
}

type viewerModel struct {
	err      error
	file     *pe.File
	filename string
	items    []regionItem
	selected int
	state    viewerState
	viewport viewport.Model
	width    int
	height   int
}

type loadedMsg struct {
	err  error
	file *pe.File
}

func newViewerModel(filename string) *viewerModel {
	return &viewerModel{
		filename: filename,
		state:    stateSelectRegion,
		width:    80,
		height:   24,
	}
}

func (m *viewerModel) Init() tea.Cmd {
	return m.loadFile
}

func (m *viewerModel) loadFile() tea.Msg {
	data, err := os.ReadFile(m.filename)
	if err != nil {
		return loadedMsg{err: err}
	}
	f, err := pe.Parse(data)
	if err != nil {
		return loadedMsg{err: err}
	}
	return loadedMsg{file: f}
}

func (m *viewerModel) buildItems() {
	f := m.file
	state := func(name string) string {
		for _, r := range f.Regions {
			if r.Name == name {
				return r.State.String()
			}
		}
		return ""
	}
	capture := func(dump func(*strings.Builder)) func(*pe.File, int) string {
		return func(*pe.File, int) string {
			var b strings.Builder
			dump(&b)
			return b.String()
		}
	}

	m.items = []regionItem{
		{"headers", bitness(f), capture(func(b *strings.Builder) { dumpHeaders(b, f) })},
		{"sections", fmt.Sprintf("%d", len(f.Sections)), capture(func(b *strings.Builder) { dumpSections(b, f) })},
		{"rich header", richStatus(f), capture(func(b *strings.Builder) { dumpRich(b, f) })},
		{"imports", state("import"), func(f *pe.File, w int) string {
			var b strings.Builder
			dumpImports(&b, f, w)
			return b.String()
		}},
		{"exports", state("export"), func(f *pe.File, w int) string {
			var b strings.Builder
			dumpExports(&b, f, w)
			return b.String()
		}},
		{"tls", state("tls"), capture(func(b *strings.Builder) { dumpTLS(b, f) })},
		{"load config", state("load config"), capture(func(b *strings.Builder) { dumpLoadConfig(b, f) })},
		{"relocations", state("relocation"), capture(func(b *strings.Builder) { dumpRelocations(b, f) })},
		{"debug", state("debug"), func(f *pe.File, w int) string {
			var b strings.Builder
			dumpDebug(&b, f, w)
			return b.String()
		}},
		{"certificates", state("certificate"), capture(func(b *strings.Builder) { dumpCertificates(b, f) })},
		{"resources", state("resource"), capture(func(b *strings.Builder) { dumpResources(b, f) })},
		{"diagnostics", fmt.Sprintf("%d", len(f.Diagnostics())), func(f *pe.File, w int) string {
			var b strings.Builder
			dumpDiagnostics(&b, f, w)
			return b.String()
		}},
		{"verify", "", func(f *pe.File, w int) string {
			var b strings.Builder
			dumpVerify(&b, f, w)
			return b.String()
		}},
	}
}

func richStatus(f *pe.File) string {
	if f.Rich == nil {
		return "absent"
	}
	return fmt.Sprintf("%d records", len(f.Rich.Records))
}

func (m *viewerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "up", "k":
			if m.state == stateSelectRegion && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectRegion && m.selected < len(m.items)-1 {
				m.selected++
			}

		case "enter":
			if m.state == stateSelectRegion && m.file != nil {
				m.openRegion()
			}

		case "esc":
			if m.state == stateShowRegion {
				m.state = stateSelectRegion
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = msg.Height - 4

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.file = msg.file
		m.buildItems()
	}

	if m.state == stateShowRegion {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *viewerModel) openRegion() {
	item := m.items[m.selected]
	m.viewport = viewport.New(m.width, m.height-4)
	m.viewport.SetContent(item.render(m.file, m.width))
	m.state = stateShowRegion
}

func (m *viewerModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}
	if m.file == nil {
		return "Loading image..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("PE Viewer"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectRegion:
		for i, item := range m.items {
			line := regionStyle.Render(item.name)
			if item.status != "" {
				line += " " + stateStyle.Render("("+item.status+")")
			}
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + item.name))
				if item.status != "" {
					b.WriteString(" " + stateStyle.Render("("+item.status+")"))
				}
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter open • q quit"))

	case stateShowRegion:
		b.WriteString(regionStyle.Render(m.items[m.selected].name))
		b.WriteString("\n")
		b.WriteString(m.viewport.View())
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ scroll • esc back • q quit"))
	}

	return b.String()
}

func runInteractive(filename string) error {
	p := tea.NewProgram(newViewerModel(filename), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
