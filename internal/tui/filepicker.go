package tui

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	strutil "github.com/joss/scanchat/internal/strings"
)

// inputMode represents the current input mode
type inputMode int

const (
	modeChat inputMode = iota
	modeFilePicker
)

// maxPickerFiles bounds the walk so a picker opened in $HOME stays usable.
const maxPickerFiles = 5000

// fileItem implements list.Item for the file picker
type fileItem struct {
	path    string
	relPath string
	size    int64
}

func (i fileItem) Title() string {
	return "📄 " + i.relPath
}

func (i fileItem) Description() string { return strutil.HumanSize(i.size) }
func (i fileItem) FilterValue() string { return i.relPath }

// fileItems is a slice of fileItem that implements fuzzy.Source
type fileItems []fileItem

func (f fileItems) String(i int) string { return f[i].relPath }
func (f fileItems) Len() int            { return len(f) }

// FilePicker selects a file to upload. Typing narrows the list with a
// fuzzy match on the relative path.
type FilePicker struct {
	list    list.Model
	items   fileItems
	workDir string
	query   string
	width   int
	height  int
}

// NewFilePicker creates a new file picker
func NewFilePicker(workDir string, width, height int) *FilePicker {
	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = false
	delegate.SetHeight(1)

	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(lipgloss.Color("205")).
		BorderForeground(lipgloss.Color("205"))

	l := list.New([]list.Item{}, delegate, width, height)
	l.Title = "Select file to analyze (@)"
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = lipgloss.NewStyle().
		Foreground(lipgloss.Color("205")).
		Bold(true)

	return &FilePicker{
		list:    l,
		workDir: workDir,
		width:   width,
		height:  height,
	}
}

// LoadFiles scans the working directory for regular files.
func (fp *FilePicker) LoadFiles() error {
	var items fileItems

	err := filepath.Walk(fp.workDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if len(items) >= maxPickerFiles {
			return filepath.SkipAll
		}

		name := info.Name()
		if info.IsDir() {
			if path != fp.workDir && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			switch name {
			case "node_modules", "vendor", "__pycache__", "dist", "build":
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || !info.Mode().IsRegular() {
			return nil
		}

		relPath, err := filepath.Rel(fp.workDir, path)
		if err != nil {
			return nil
		}

		items = append(items, fileItem{
			path:    path,
			relPath: relPath,
			size:    info.Size(),
		})
		return nil
	})
	if err != nil {
		return err
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].relPath < items[j].relPath
	})

	fp.items = items
	fp.updateList("")
	return nil
}

// updateList updates the list with filtered items
func (fp *FilePicker) updateList(query string) {
	fp.query = query

	var listItems []list.Item
	if query == "" {
		for _, item := range fp.items {
			listItems = append(listItems, item)
		}
	} else {
		for _, match := range fuzzy.FindFrom(query, fp.items) {
			listItems = append(listItems, fp.items[match.Index])
		}
	}

	fp.list.SetItems(listItems)
	fp.list.Select(0)
}

// Query returns the current filter text.
func (fp *FilePicker) Query() string { return fp.query }

// Update handles keys while the picker is open. Printable runes and
// backspace edit the query, navigation keys go to the list.
func (fp *FilePicker) Update(msg tea.Msg) (*FilePicker, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyRunes:
			fp.updateList(fp.query + string(key.Runes))
			return fp, nil
		case tea.KeyBackspace:
			if r := []rune(fp.query); len(r) > 0 {
				fp.updateList(string(r[:len(r)-1]))
			}
			return fp, nil
		}
	}

	var cmd tea.Cmd
	fp.list, cmd = fp.list.Update(msg)
	return fp, cmd
}

// View renders the file picker
func (fp *FilePicker) View() string {
	prompt := infoStyle.Render("filter: ") + fp.query
	return fp.list.View() + "\n" + prompt
}

// SelectedItem returns the absolute path of the highlighted file.
func (fp *FilePicker) SelectedItem() (string, bool) {
	item, ok := fp.list.SelectedItem().(fileItem)
	if !ok {
		return "", false
	}
	return item.path, true
}

// Len is the number of files currently listed.
func (fp *FilePicker) Len() int {
	return len(fp.list.Items())
}

// SetSize updates the picker dimensions
func (fp *FilePicker) SetSize(width, height int) {
	fp.width = width
	fp.height = height
	fp.list.SetSize(width, height)
}
