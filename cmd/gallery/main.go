package main

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/blacktop/termimage"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// fileItem represents a file in the list
type fileItem struct {
	name string
	info fs.DirEntry
}

func (f fileItem) FilterValue() string { return f.name }
func (f fileItem) Title() string       { return f.name }
func (f fileItem) Description() string {
	if isImage(f.name) {
		return "Image file"
	}
	return "File"
}

// gridMsg carries a rendered contact sheet of every image in the directory
type gridMsg struct {
	view string
	err  error
}

type model struct {
	list        list.Model
	widget      *termimage.Widget
	widgetCache map[string]*termimage.Widget
	viewport    viewport.Model
	width       int
	height      int
	selected    string
	imageError  error

	gridView bool
	grid     string
}

var (
	// Color palette
	primaryColor   = lipgloss.Color("#7D56F4")
	secondaryColor = lipgloss.Color("#F25D94")
	accentColor    = lipgloss.Color("#04B575")
	textColor      = lipgloss.Color("#FAFAFA")
	mutedColor     = lipgloss.Color("#626262")
	errorColor     = lipgloss.Color("#FF5F87")

	// Title bar style
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(textColor).
			Background(primaryColor).
			PaddingLeft(2).
			PaddingRight(2).
			MarginBottom(1)

	// Panel border styles
	panelBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(primaryColor).
				Padding(1)

	// File list styles
	itemStyle = lipgloss.NewStyle().
			PaddingLeft(1).
			Foreground(textColor)

	selectedItemStyle = lipgloss.NewStyle().
				PaddingLeft(1).
				Foreground(textColor).
				Background(primaryColor).
				Bold(true)

	// Legend styles
	legendStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Background(lipgloss.Color("#1A1A1A")).
			PaddingLeft(1).
			PaddingRight(1).
			MarginTop(1)

	legendKeyStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true)

	// Error style
	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor).
			Bold(true)

	// Info style for non-image files
	infoStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true)
)

func initialModel() model {
	files, err := os.ReadDir(".")
	if err != nil {
		log.Fatal(err)
	}

	var items []list.Item
	for _, file := range files {
		if file.IsDir() || file.Name() == ".DS_Store" {
			continue
		}
		items = append(items, fileItem{name: file.Name(), info: file})
	}

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = selectedItemStyle
	delegate.Styles.SelectedDesc = selectedItemStyle.Foreground(mutedColor)
	delegate.Styles.NormalTitle = itemStyle
	delegate.Styles.NormalDesc = itemStyle.Foreground(mutedColor)

	l := list.New(items, delegate, 0, 0)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetShowPagination(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)

	return model{
		list:        l,
		widgetCache: make(map[string]*termimage.Widget),
		viewport:    viewport.New(0, 0),
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			for _, w := range m.widgetCache {
				w.Close()
			}
			return m, tea.Quit
		case "g":
			m.gridView = !m.gridView
			if m.gridView {
				m.grid = infoStyle.Render("Rendering...")
				cmds = append(cmds, m.renderGrid())
			}
			return m, tea.Batch(cmds...)
		default:
			var cmd tea.Cmd
			m.list, cmd = m.list.Update(msg)
			cmds = append(cmds, cmd)
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		// title, borders and legend
		availableHeight := msg.Height - 6
		m.viewport.Width = (msg.Width / 2) - 4
		m.viewport.Height = availableHeight
		m.list.SetWidth((msg.Width / 2) - 4)
		m.list.SetHeight(availableHeight - 2)
		if m.widget != nil {
			cmds = append(cmds, m.resize(m.widget))
		}
	case gridMsg:
		if msg.err != nil {
			m.grid = errorStyle.Render("Error: " + msg.err.Error())
		} else {
			m.grid = msg.view
		}
		return m, nil
	default:
		// frame and tick messages for the animated preview
		if m.widget != nil {
			_, cmd := m.widget.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	if item, ok := m.list.SelectedItem().(fileItem); ok && item.name != m.selected {
		m.selected = item.name
		cmds = append(cmds, m.selectFile(item.name))
	}

	if m.widget == nil {
		switch {
		case m.imageError != nil:
			m.viewport.SetContent(errorStyle.Render("Error: " + m.imageError.Error()))
		case m.selected != "":
			info := fmt.Sprintf("File: %s\nType: %s\n\nNot an image.", m.selected, filepath.Ext(m.selected))
			m.viewport.SetContent(infoStyle.Render(info))
		default:
			m.viewport.SetContent("No files in this directory.")
		}
	}
	return m, tea.Batch(cmds...)
}

// selectFile swaps the preview to name, reusing a cached widget when possible
func (m *model) selectFile(name string) tea.Cmd {
	m.imageError = nil
	m.widget = nil
	if !isImage(name) {
		return nil
	}
	if w, found := m.widgetCache[name]; found {
		m.widget = w
		return m.resize(w)
	}
	w, err := termimage.NewWidgetFromFile(name)
	if err != nil {
		m.imageError = err
		return nil
	}
	w.Image().Style(termimage.Block)
	m.widgetCache[name] = w
	m.widget = w
	return m.resize(w)
}

// resize fits the widget to the preview panel and restarts its animation
func (m *model) resize(w *termimage.Widget) tea.Cmd {
	if m.viewport.Width <= 0 || m.viewport.Height <= 0 {
		return nil
	}
	w.SetSize(m.viewport.Width, m.viewport.Height)
	return w.Init()
}

func (m model) renderGrid() tea.Cmd {
	var names []string
	for _, it := range m.list.Items() {
		if f, ok := it.(fileItem); ok && isImage(f.name) {
			names = append(names, f.name)
		}
	}
	width := m.width
	return func() tea.Msg {
		const cell = 20
		g := termimage.NewGallery(max(1, (width-2)/(cell+2)))
		for _, name := range names {
			img, err := termimage.Open(name)
			if err != nil {
				continue
			}
			g.Add(img.Style(termimage.Block))
		}
		g.SetImageSize(cell, cell/2)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		view, err := g.Render(ctx)
		return gridMsg{view: view, err: err}
	}
}

func (m model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var b strings.Builder

	title := fmt.Sprintf("Gallery - %d files", len(m.list.Items()))
	if m.gridView {
		title += " [GRID VIEW]"
	}
	b.WriteString(titleStyle.Width(m.width).Render(title))
	b.WriteString("\n")

	panelHeight := m.height - 6
	if m.gridView {
		b.WriteString(panelBorderStyle.Width(m.width - 2).Height(panelHeight).Render(m.grid))
	} else {
		leftPanel := panelBorderStyle.
			Width(m.width/2 - 2).
			Height(panelHeight).
			Render(m.list.View())

		preview := m.viewport.View()
		if m.widget != nil {
			preview = m.widget.View()
		}
		rightPanel := panelBorderStyle.
			Width(m.width/2 - 2).
			Height(panelHeight).
			Render(preview)

		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, leftPanel, rightPanel))
	}

	legend := []string{
		legendKeyStyle.Render("↑/k") + " up",
		legendKeyStyle.Render("↓/j") + " down",
		legendKeyStyle.Render("pgup/pgdn") + " page up/down",
		legendKeyStyle.Render("g") + " grid",
		legendKeyStyle.Render("q/esc") + " quit",
	}
	b.WriteString("\n")
	b.WriteString(legendStyle.Width(m.width).Render("Navigation: " + strings.Join(legend, " • ")))

	return b.String()
}

func main() {
	dir := "."
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}
	if err := os.Chdir(dir); err != nil {
		log.Fatal(err)
	}

	// probe before bubbletea takes over the terminal input
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	termimage.DefaultTerminal().Capabilities(ctx)
	cancel()

	p := tea.NewProgram(initialModel(), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatal(err)
	}
}

func isImage(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tiff", ".webp":
		return true
	default:
		return false
	}
}
