package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/ferrova/tidalsnap/internal/catalog"
	"github.com/ferrova/tidalsnap/internal/models"
	"github.com/ferrova/tidalsnap/internal/services"
	"github.com/ferrova/tidalsnap/internal/store"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	MixListView ViewState = iota
	ConfirmView
	DoneView
)

// Model represents the selection TUI state.
type Model struct {
	ctx     context.Context
	view    ViewState
	session services.Session
	store   *store.Store

	width  int
	height int

	mixList  list.Model
	mixes    []models.MixDescriptor
	selected map[string]bool

	err   error
	saved bool
	help  help.Model
	keys  keyMap
}

type mixesFetchedMsg struct {
	mixes    []models.MixDescriptor
	selected map[string]bool
	err      error
}

type selectionSavedMsg struct {
	err error
}

// NewModel creates the selection TUI with the provided dependencies.
func NewModel(ctx context.Context, session services.Session, st *store.Store) *Model {
	return &Model{
		ctx:     ctx,
		view:    MixListView,
		session: session,
		store:   st,
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Init fetches the mix catalog and the stored selection.
func (m *Model) Init() tea.Cmd {
	return m.fetchMixes()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.mixList.Width() == 0 {
			m.mixList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case MixListView:
			return m.handleMixListKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case DoneView:
			return m, tea.Quit
		}

	case mixesFetchedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		m.mixes = msg.mixes
		m.selected = msg.selected
		items := make([]list.Item, len(msg.mixes))
		for i, mix := range msg.mixes {
			items[i] = mixItem{mix: mix, selected: m.selected}
		}
		m.mixList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.mixList.Title = "Tidal Mixes"
		m.mixList.SetSize(m.width-4, m.height-8)
		return m, nil

	case selectionSavedMsg:
		m.err = msg.err
		m.saved = msg.err == nil
		m.view = DoneView
		return m, nil
	}

	return m.updateList(msg)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil && m.view != DoneView {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case MixListView:
		return m.renderMixList()
	case ConfirmView:
		return m.renderConfirm()
	case DoneView:
		return m.renderDone()
	default:
		return ""
	}
}

func (m *Model) handleMixListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case " ":
		if item, ok := m.mixList.SelectedItem().(mixItem); ok {
			m.selected[item.mix.ID] = !m.selected[item.mix.ID]
		}
		return m, nil
	case "a":
		for _, mix := range m.mixes {
			m.selected[mix.ID] = true
		}
		return m, nil
	case "n":
		for id := range m.selected {
			delete(m.selected, id)
		}
		return m, nil
	case "enter":
		m.view = ConfirmView
		return m, nil
	}

	var cmd tea.Cmd
	m.mixList, cmd = m.mixList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		m.view = MixListView
		return m, nil
	case "y", "enter":
		return m, m.saveSelection()
	}
	return m, nil
}

func (m *Model) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if m.view == MixListView {
		m.mixList, cmd = m.mixList.Update(msg)
	}
	return m, cmd
}

// fetchMixes resolves the catalog and seeds the selection set: the stored
// selection when one exists, otherwise every daily mix.
func (m *Model) fetchMixes() tea.Cmd {
	return func() tea.Msg {
		resolved, err := catalog.Resolve(m.ctx, m.session)
		if err != nil {
			return mixesFetchedMsg{err: err}
		}

		stored, err := m.store.Selection()
		if err != nil {
			return mixesFetchedMsg{err: err}
		}

		selected := make(map[string]bool)
		if len(stored.SelectedMixIDs) > 0 {
			for _, id := range stored.SelectedMixIDs {
				if _, ok := resolved[id]; ok {
					selected[id] = true
				}
			}
		} else {
			for id, mix := range resolved {
				if mix.IsDaily {
					selected[id] = true
				}
			}
		}

		return mixesFetchedMsg{mixes: catalog.Sorted(resolved), selected: selected}
	}
}

// saveSelection persists the selection in catalog order, keeping the stored
// retention untouched.
func (m *Model) saveSelection() tea.Cmd {
	return func() tea.Msg {
		stored, err := m.store.Selection()
		if err != nil {
			return selectionSavedMsg{err: err}
		}

		ids := []string{}
		for _, mix := range m.mixes {
			if m.selected[mix.ID] {
				ids = append(ids, mix.ID)
			}
		}
		stored.SelectedMixIDs = ids

		return selectionSavedMsg{err: m.store.SaveSelection(stored)}
	}
}

func (m *Model) renderMixList() string {
	helpView := m.help.ShortHelpView(m.keys.ShortHelp())
	return fmt.Sprintf("%s\n\n%s", m.mixList.View(), helpView)
}

func (m *Model) renderConfirm() string {
	count := 0
	for _, on := range m.selected {
		if on {
			count++
		}
	}

	title := styles.title.Render(fmt.Sprintf("Save selection of %d mix(es)?", count))
	var lines string
	for _, mix := range m.mixes {
		if m.selected[mix.ID] {
			lines += fmt.Sprintf("\n  • %s", mix.Title)
		}
	}

	return fmt.Sprintf("%s%s\n\n%s", title, lines, styles.help.Render("y/enter save • esc back • q cancel"))
}

func (m *Model) renderDone() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Failed to save selection: %v\n\nPress any key to exit", m.err))
	}
	if m.saved {
		return styles.ok.Render("✓ Selection saved") + "\n\n" + styles.help.Render("Press any key to exit")
	}
	return ""
}
