package profile

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/deemkeen/reblog/domain"
	"github.com/deemkeen/reblog/session"
	"github.com/deemkeen/reblog/ui/common"
	"github.com/deemkeen/reblog/util"
)

var (
	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(common.COLOR_GREY)).
			Width(12)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	nameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")).
			Bold(true)
)

const (
	fieldBio = iota
	fieldWebsite
	fieldLocation
	fieldCount
)

type Model struct {
	Profile domain.Profile
	Loaded  bool
	Editing bool
	Inputs  []textinput.Model
	Field   int
	Busy    bool
	Status  string
	Error   string
	Width   int

	seq     uint64
	sync    common.SyncStatus
	session *session.Manager
}

func InitialModel(s *session.Manager, width int) Model {
	inputs := make([]textinput.Model, fieldCount)
	for i := range inputs {
		in := textinput.New()
		in.Width = 50
		inputs[i] = in
	}
	inputs[fieldBio].CharLimit = 300
	inputs[fieldBio].Placeholder = "a few words about you"
	inputs[fieldWebsite].CharLimit = 200
	inputs[fieldWebsite].Placeholder = "https://"
	inputs[fieldLocation].CharLimit = 100
	inputs[fieldLocation].Placeholder = "somewhere"

	return Model{
		Profile: s.Profile(),
		Inputs:  inputs,
		Width:   width,
		session: s,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

type profileLoadedMsg struct {
	seq     uint64
	profile domain.Profile
}

type profileSavedMsg struct {
	seq    uint64
	user   *domain.User
	synced bool
	err    error
}

// Refresh reconciles the profile with the server, at most once per session.
func (m Model) Refresh() (Model, tea.Cmd) {
	m.seq++
	seq, s := m.seq, m.session
	m.Profile = s.Profile()
	return m, func() tea.Msg {
		ctx, cancel := common.Timeout()
		defer cancel()
		return profileLoadedMsg{seq: seq, profile: s.Restore(ctx)}
	}
}

// Sync reports whether the shown profile is known to match the server.
func (m Model) Sync() common.SyncStatus {
	return m.sync
}

// Leave invalidates pending results and closes the editor.
func (m Model) Leave() Model {
	m.seq++
	m.Editing = false
	m.Busy = false
	return m
}

// Reset forgets the shown profile after a logout.
func (m Model) Reset() Model {
	m = m.Leave()
	m.Loaded = false
	m.sync = common.SyncPending
	m.Status, m.Error = "", ""
	m.Profile = m.session.Profile()
	return m
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case profileLoadedMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		m.Profile = msg.profile
		m.Loaded = true
		if m.sync == common.SyncPending {
			m.sync = common.SyncOK
		}
		return m, nil

	case profileSavedMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		m.Busy = false
		if msg.err != nil {
			m.Error = msg.err.Error()
			return m, nil
		}
		m.Editing = false
		m.Profile = msg.user.Profile
		if msg.synced {
			m.sync = common.SyncOK
			m.Status = "Profile saved"
		} else {
			m.sync = common.SyncLocalOnly
			m.Status = "Saved on this device; the server could not be reached"
		}
		return m, nil

	case common.ClearStatusMsg:
		m.Status = ""
		m.Error = ""
		return m, nil

	case tea.KeyMsg:
		if m.Busy {
			return m, nil
		}
		if m.Editing {
			return m.updateEditor(msg)
		}
		switch msg.String() {
		case "e":
			return m.openEditor()
		case "L":
			return m, func() tea.Msg { return common.LogoutMsg{} }
		}
	}
	return m, nil
}

func (m Model) openEditor() (Model, tea.Cmd) {
	m.Editing = true
	m.Status, m.Error = "", ""
	m.Inputs[fieldBio].SetValue(m.Profile.Bio)
	m.Inputs[fieldWebsite].SetValue(m.Profile.Website)
	m.Inputs[fieldLocation].SetValue(m.Profile.Location)
	return m, m.focus(fieldBio)
}

func (m *Model) focus(field int) tea.Cmd {
	for i := range m.Inputs {
		m.Inputs[i].Blur()
	}
	m.Field = field
	return m.Inputs[field].Focus()
}

func (m Model) updateEditor(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.Editing = false
		return m, nil
	case tea.KeyTab, tea.KeyDown:
		return m, m.focus((m.Field + 1) % fieldCount)
	case tea.KeyUp:
		return m, m.focus((m.Field + fieldCount - 1) % fieldCount)
	case tea.KeyEnter:
		return m.save()
	}

	var cmd tea.Cmd
	m.Inputs[m.Field], cmd = m.Inputs[m.Field].Update(msg)
	return m, cmd
}

// update holds only the fields that differ from the current profile.
func (m Model) update() domain.ProfileUpdate {
	var u domain.ProfileUpdate
	changed := func(field int, current string) *string {
		v := strings.TrimSpace(m.Inputs[field].Value())
		if v == current {
			return nil
		}
		return &v
	}
	u.Bio = changed(fieldBio, m.Profile.Bio)
	u.Website = changed(fieldWebsite, m.Profile.Website)
	u.Location = changed(fieldLocation, m.Profile.Location)
	return u
}

func (m Model) save() (Model, tea.Cmd) {
	update := m.update()
	if update.Empty() {
		m.Editing = false
		return m, nil
	}
	m.Busy = true
	m.Error = ""
	seq, s := m.seq, m.session
	return m, func() tea.Msg {
		ctx, cancel := common.Timeout()
		defer cancel()
		user, synced, err := s.UpdateProfile(ctx, update)
		return profileSavedMsg{seq: seq, user: user, synced: synced, err: err}
	}
}

func (m Model) View() string {
	var s strings.Builder

	s.WriteString(common.CaptionStyle.Render("profile"))
	s.WriteString("\n\n")

	var name, email, joined string
	if u := m.session.State().User; u != nil {
		name, email = u.Name, u.Email
		joined = u.CreatedAt.Format(util.DateTimeFormat())
	}

	s.WriteString(nameStyle.Render(name) + "\n\n")
	row := func(label, value string) {
		if value == "" {
			value = common.EmptyStyle.Render("not set")
		} else {
			value = valueStyle.Render(value)
		}
		s.WriteString(labelStyle.Render(label) + value + "\n")
	}
	row("email", email)
	row("joined", joined)
	row("avatar", domain.DisplayAvatar(m.Profile.Avatar, name))
	row("theme", m.Profile.ThemeColor)

	if m.Editing {
		s.WriteString("\n")
		labels := []string{"bio", "website", "location"}
		for i, in := range m.Inputs {
			s.WriteString(labelStyle.Render(labels[i]) + in.View() + "\n")
		}
	} else {
		row("bio", m.Profile.Bio)
		row("website", m.Profile.Website)
		row("location", m.Profile.Location)
	}

	s.WriteString("\n")
	switch {
	case m.Busy:
		s.WriteString(common.StatusStyle.Render("Saving...") + "\n")
	case m.Error != "":
		s.WriteString(common.ErrorStyle.Render(m.Error) + "\n")
	case m.Status != "":
		s.WriteString(common.StatusStyle.Render(m.Status) + "\n")
	}
	if !m.Loaded {
		s.WriteString(common.EmptyStyle.Render(fmt.Sprintf("syncing with %s...", util.Name)) + "\n")
	}
	return s.String()
}
