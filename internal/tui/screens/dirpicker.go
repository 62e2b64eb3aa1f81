package screens

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/joe/syncdeck/internal/tui/shared"
)

// DirPicker chooses a local directory for a job field.
//
// enter on a directory picks it, s picks the directory being shown, q
// cancels. Remote endpoints are typed, not picked.
type DirPicker struct {
	field  string
	picker filepicker.Model
}

// NewDirPicker opens a chooser at start, or at the home directory when start
// is not a local directory.
func NewDirPicker(field, start string, width, height int) (DirPicker, tea.Cmd) {
	fp := filepicker.New()
	fp.DirAllowed = true
	fp.FileAllowed = false
	fp.CurrentDirectory = startDir(start)

	// AutoHeight sizes the list from the window.
	fp, _ = fp.Update(tea.WindowSizeMsg{Width: width, Height: height})

	return DirPicker{field: field, picker: fp}, fp.Init()
}

// Field returns the form field the chooser fills.
func (p DirPicker) Field() string {
	return p.field
}

// Dir returns the directory being shown.
func (p DirPicker) Dir() string {
	return p.picker.CurrentDirectory
}

// Update implements tea.Model. A DirSelectedMsg is emitted when the chooser
// closes.
func (p DirPicker) Update(msg tea.Msg) (DirPicker, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "q", shared.KeyCtrlC:
			return p, emit(shared.DirSelectedMsg{Field: p.field})
		case "s":
			return p, emit(shared.DirSelectedMsg{Field: p.field, Path: p.picker.CurrentDirectory})
		}
	}

	var cmd tea.Cmd
	p.picker, cmd = p.picker.Update(msg)

	if didSelect, path := p.picker.DidSelectFile(msg); didSelect {
		return p, emit(shared.DirSelectedMsg{Field: p.field, Path: path})
	}

	return p, cmd
}

// View implements tea.Model
func (p DirPicker) View() string {
	return shared.RenderTitle("Choose "+p.field+" directory") + "\n" +
		shared.RenderDim(p.picker.CurrentDirectory) + "\n\n" +
		p.picker.View() + "\n" +
		shared.RenderDim("enter: pick  s: pick this directory  h/←: up  q: cancel")
}

func startDir(start string) string {
	start = strings.TrimSpace(start)
	if strings.HasPrefix(start, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			start = filepath.Join(home, start[1:])
		}
	}

	if info, err := os.Stat(start); err == nil && info.IsDir() {
		return start
	}

	if home, err := os.UserHomeDir(); err == nil {
		return home
	}

	return "."
}
