package cmd

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/v2/list"
	"github.com/charmbracelet/bubbles/v2/spinner"
	"github.com/charmbracelet/bubbles/v2/viewport"
	tea "github.com/charmbracelet/bubbletea/v2"

	"luadump/internal/binchunk"
	"luadump/internal/listing"
	"luadump/internal/luadump/styles"
	"luadump/internal/ui/colorize"
)

type viewMode int

const (
	viewListing viewMode = iota
	viewFunctions
	viewDetails
)

type functionItem struct {
	path  string
	proto *binchunk.Prototype
}

func (i functionItem) Title() string {
	return fmt.Sprintf("%s <%s:%d,%d>", i.path, listing.SourceName(i.proto.Source),
		i.proto.LineDefined, i.proto.LastLineDefined)
}

func (i functionItem) Description() string { return "" }

func (i functionItem) FilterValue() string {
	return i.path + " " + listing.SourceName(i.proto.Source)
}

type itemDelegate struct{}

func (d itemDelegate) Height() int                               { return 1 }
func (d itemDelegate) Spacing() int                              { return 0 }
func (d itemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d itemDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	i, ok := listItem.(functionItem)
	if !ok {
		return
	}
	indicator, pathStyle := " ", styles.Dim
	if index == m.Index() {
		indicator, pathStyle = ">", styles.Selected
	}
	fmt.Fprintf(w, " %s  %s  %s",
		indicator,
		pathStyle.Render(fmt.Sprintf("%-10s", i.path)),
		colorize.Line(fmt.Sprintf("<%s:%d,%d> %d instruction%s",
			listing.SourceName(i.proto.Source), i.proto.LineDefined, i.proto.LastLineDefined,
			len(i.proto.Code), plural(len(i.proto.Code)))))
}

type model struct {
	viewport  viewport.Model
	functions list.Model
	details   viewport.Model
	spinner   spinner.Model
	mode      viewMode
	filepath  string
	cfg       *Config
	digest    string
	res       *result
	current   string // path of the function shown in the listing view
	loading   bool
	width     int
	height    int
}

type decodedMsg struct {
	res result
}

type digestCalculatedMsg struct {
	digest string
}

func decodeCmd(path string, cfg *Config) tea.Cmd {
	return func() tea.Msg {
		return decodedMsg{res: decodeFile(path, cfg)}
	}
}

func calculateDigestCmd(path string) tea.Cmd {
	return func() tea.Msg {
		f, err := os.Open(path)
		if err != nil {
			return digestCalculatedMsg{digest: fmt.Sprintf("error: %v", err)}
		}
		defer f.Close()

		h := sha256.New()
		if _, err := io.Copy(h, f); err != nil {
			return digestCalculatedMsg{digest: fmt.Sprintf("error: %v", err)}
		}
		return digestCalculatedMsg{digest: fmt.Sprintf("%x", h.Sum(nil))}
	}
}

func NewModel(path string, cfg *Config) model {
	vp := viewport.New()
	vp.SetWidth(80)
	vp.SetHeight(24)

	functions := list.New([]list.Item{}, itemDelegate{}, 80, 24)
	functions.SetShowStatusBar(false)
	functions.SetFilteringEnabled(true)
	functions.Title = "Functions"
	functions.Styles.Title = styles.ListTitle
	functions.SetShowHelp(true)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.Spinner

	dvp := viewport.New()
	dvp.SetWidth(80)
	dvp.SetHeight(24)

	m := model{
		viewport:  vp,
		functions: functions,
		details:   dvp,
		spinner:   s,
		mode:      viewListing,
		filepath:  path,
		cfg:       cfg,
		loading:   true,
		width:     80,
		height:    24,
	}
	m.updateContent()
	return m
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		decodeCmd(m.filepath, m.cfg),
		calculateDigestCmd(m.filepath),
		m.spinner.Tick,
	)
}

func (m model) decoded() bool {
	return m.res != nil && m.res.Err == nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case decodedMsg:
		m.res = &msg.res
		m.loading = false
		if m.decoded() {
			m.updateFunctionsList()
			m.current = "main"
		}
		m.updateContent()
		return m, nil

	case digestCalculatedMsg:
		m.digest = msg.digest
		m.updateContent()
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		m.spinner, cmd = m.spinner.Update(msg)
		m.updateContent()
		return m, cmd

	case tea.WindowSizeMsg:
		if msg.Width != m.width || msg.Height != m.height {
			m.width = msg.Width
			m.height = msg.Height
			m.viewport.SetWidth(msg.Width)
			m.viewport.SetHeight(msg.Height - 2)
			m.functions.SetWidth(msg.Width)
			m.functions.SetHeight(msg.Height - 2)
			m.details.SetWidth(msg.Width)
			m.details.SetHeight(msg.Height - 2)
			m.updateContent()
		}

	case tea.KeyMsg:
		// While filtering, the list gets every key except quit.
		if m.mode == viewFunctions && m.functions.FilterState() == list.Filtering {
			if msg.String() == "ctrl+c" {
				return m, tea.Quit
			}
			break
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "l":
			m.mode = viewListing
			return m, nil
		case "f":
			if m.decoded() {
				m.mode = viewFunctions
			}
			return m, nil
		case "d":
			m.mode = viewDetails
			return m, nil
		case "enter":
			if m.mode == viewFunctions {
				if item, ok := m.functions.SelectedItem().(functionItem); ok {
					m.showFunction(item.path)
				}
			}
			return m, nil
		case "tab":
			m.cycle(1)
			return m, nil
		case "shift+tab":
			m.cycle(-1)
			return m, nil
		}
	}

	switch m.mode {
	case viewFunctions:
		m.functions, cmd = m.functions.Update(msg)
	case viewDetails:
		m.details, cmd = m.details.Update(msg)
	default:
		m.viewport, cmd = m.viewport.Update(msg)
	}
	return m, cmd
}

// cycle moves through the views, skipping the function list when there
// is nothing to list.
func (m *model) cycle(step int) {
	for {
		m.mode = viewMode((int(m.mode) + step + 3) % 3)
		if m.mode != viewFunctions || m.decoded() {
			return
		}
	}
}

// showFunction switches the listing view to the function at path.
func (m *model) showFunction(path string) {
	m.current = path
	m.mode = viewListing
	m.updateContent()
	m.viewport.GotoTop()
}

func (m model) View() string {
	var content, menu string
	switch m.mode {
	case viewFunctions:
		content = m.functions.View()
		menu = " Enter: show listing • L: listing • D: details • Tab: cycle • Q: quit "
	case viewDetails:
		content = m.details.View()
		menu = " L: listing • F: functions • Tab: cycle • Q: quit "
	default:
		content = m.viewport.View()
		if m.decoded() {
			menu = " F: functions • D: details • Tab: cycle • Q: quit "
		} else {
			menu = " D: details • Q: quit "
		}
	}
	return content + "\n" + styles.MenuBar(menu, m.width)
}

func (m *model) updateFunctionsList() {
	var items []list.Item
	_ = m.res.Chunk.Main.Walk(func(path string, p *binchunk.Prototype) error {
		items = append(items, functionItem{path: path, proto: p})
		return nil
	})
	m.functions.SetItems(items)
	m.functions.Title = fmt.Sprintf("Functions (%d total)", len(items))
}

// findFunction returns the prototype at a Walk path.
func (m *model) findFunction(path string) *binchunk.Prototype {
	var found *binchunk.Prototype
	_ = m.res.Chunk.Main.Walk(func(p string, proto *binchunk.Prototype) error {
		if p == path {
			found = proto
		}
		return nil
	})
	return found
}

func (m *model) updateContent() {
	width := m.width
	if width == 0 {
		width = 80
	}

	m.details.SetContent(strings.TrimSuffix(styles.RenderMarkdown(m.summaryMarkdown(), width-2), "\n"))

	switch {
	case m.loading:
		m.viewport.SetContent(fmt.Sprintf("\n  %s Decoding %s...", m.spinner.View(), filepath.Base(m.filepath)))
	case !m.decoded():
		m.viewport.SetContent("\n  " + styles.Error.Render(m.res.Err.Error()))
	default:
		p := m.findFunction(m.current)
		if p == nil {
			p = m.res.Chunk.Main
			m.current = "main"
		}
		var buf strings.Builder
		_ = listing.WriteFunction(&buf, m.current, p, listing.Options{Full: true, Raw: m.cfg.Raw})
		text, _ := colorize.Listing(buf.String())
		m.viewport.SetContent(text)
	}
}

// summaryMarkdown describes the file and its decode result for the
// details view.
func (m *model) summaryMarkdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", filepath.Base(m.filepath))

	var lines []string
	lines = append(lines, "; "+m.filepath)
	if m.digest != "" {
		lines = append(lines, "; sha256 "+m.digest)
	}
	if m.res != nil && m.res.File != nil {
		f := m.res.File
		lines = append(lines, fmt.Sprintf("; %d bytes, %s", f.Size, f.Kind))
		if f.Decrypted {
			lines = append(lines, "; decrypted with XXTEA")
		}
		if f.Compression != "" {
			lines = append(lines, "; "+f.Compression+" compressed")
		}
	}
	fmt.Fprintf(&b, "```\n%s\n```\n", strings.Join(lines, "\n"))

	switch {
	case m.res == nil:
		b.WriteString("\nDecoding...\n")
	case m.res.Err != nil:
		b.WriteString("\n## Error\n\n")
		fmt.Fprintf(&b, "`%s`\n", m.res.Err)
		if e, ok := asChunkError(m.res.Err); ok {
			fmt.Fprintf(&b, "\n- kind: %s\n- field: %s\n- offset: %d\n", e.Kind, e.Field, e.Offset)
		}
	default:
		c := m.res.Chunk
		functions, instructions := chunkStats(c.Main)
		b.WriteString("\n## Chunk\n\n")
		fmt.Fprintf(&b, "- header layout: **%s**\n", c.Layout)
		fmt.Fprintf(&b, "- main upvalues: %d\n", c.UpvalueCount)
		fmt.Fprintf(&b, "- functions: %d\n", functions)
		fmt.Fprintf(&b, "- instructions: %d\n", instructions)
		if m.res.Trailing > 0 {
			fmt.Fprintf(&b, "- trailing bytes: %d\n", m.res.Trailing)
		}
		b.WriteString("\n## Main\n\n```luac\n")
		var head strings.Builder
		_ = listing.WriteFunction(&head, "main", c.Main, listing.Options{})
		b.WriteString(strings.Trim(head.String(), "\n"))
		b.WriteString("\n```\n")
	}
	return b.String()
}
