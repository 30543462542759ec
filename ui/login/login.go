package login

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/deemkeen/reblog/session"
	"github.com/deemkeen/reblog/ui/common"
	"github.com/deemkeen/reblog/util"
)

var (
	Style = lipgloss.NewStyle().Height(25).Width(80).
		Align(lipgloss.Center, lipgloss.Center).
		BorderStyle(lipgloss.ThickBorder()).
		Margin(0, 3)
)

type Mode int

const (
	ModeLogin Mode = iota
	ModeRegister
)

const (
	fieldName = iota
	fieldEmail
	fieldPassword
)

type Model struct {
	Name     textinput.Model
	Email    textinput.Model
	Password textinput.Model
	Mode     Mode
	Field    int
	Busy     bool
	Err      string
	session  *session.Manager
}

func InitialModel(s *session.Manager) Model {
	name := textinput.New()
	name.Placeholder = "Jane Doe"
	name.CharLimit = 50
	name.Width = 40

	email := textinput.New()
	email.Placeholder = "jane@example.com"
	email.CharLimit = 120
	email.Width = 40
	email.Focus()

	password := textinput.New()
	password.Placeholder = "password"
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'
	password.CharLimit = 72
	password.Width = 40

	return Model{
		Name:     name,
		Email:    email,
		Password: password,
		Mode:     ModeLogin,
		Field:    fieldEmail,
		session:  s,
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) fields() []int {
	if m.Mode == ModeRegister {
		return []int{fieldName, fieldEmail, fieldPassword}
	}
	return []int{fieldEmail, fieldPassword}
}

func (m *Model) input(field int) *textinput.Model {
	switch field {
	case fieldName:
		return &m.Name
	case fieldEmail:
		return &m.Email
	default:
		return &m.Password
	}
}

func (m *Model) focus(field int) tea.Cmd {
	m.Name.Blur()
	m.Email.Blur()
	m.Password.Blur()
	m.Field = field
	return m.input(field).Focus()
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case common.AuthMsg:
		m.Busy = false
		if msg.Err != nil {
			m.Err = msg.Err.Error()
			m.Password.SetValue("")
			return m, m.focus(fieldPassword)
		}
		m.Err = ""
		m.Password.SetValue("")
		return m, nil

	case tea.KeyMsg:
		if m.Busy {
			return m, nil
		}
		switch msg.String() {
		case "ctrl+r":
			if m.Mode == ModeLogin {
				m.Mode = ModeRegister
				m.Err = ""
				return m, m.focus(fieldName)
			}
			m.Mode = ModeLogin
			m.Err = ""
			return m, m.focus(fieldEmail)
		case "up", "shift+tab":
			fields := m.fields()
			for i, f := range fields {
				if f == m.Field && i > 0 {
					return m, m.focus(fields[i-1])
				}
			}
			return m, nil
		case "down", "tab", "enter":
			fields := m.fields()
			for i, f := range fields {
				if f == m.Field && i < len(fields)-1 {
					return m, m.focus(fields[i+1])
				}
			}
			if msg.String() != "enter" {
				return m, nil
			}
			if err := m.validate(); err != "" {
				m.Err = err
				return m, nil
			}
			m.Busy = true
			m.Err = ""
			return m, m.submit()
		}
	}

	var cmd tea.Cmd
	in := m.input(m.Field)
	*in, cmd = in.Update(msg)
	return m, cmd
}

func (m Model) validate() string {
	if m.Mode == ModeRegister && strings.TrimSpace(m.Name.Value()) == "" {
		return "Please enter your name"
	}
	if strings.TrimSpace(m.Email.Value()) == "" {
		return "Please enter your email"
	}
	if m.Password.Value() == "" {
		return "Please enter your password"
	}
	return ""
}

func (m Model) submit() tea.Cmd {
	s := m.session
	mode := m.Mode
	name := strings.TrimSpace(m.Name.Value())
	email := strings.TrimSpace(m.Email.Value())
	password := m.Password.Value()
	return func() tea.Msg {
		ctx, cancel := common.Timeout()
		defer cancel()
		if mode == ModeRegister {
			return common.AuthMsg{Err: s.Register(ctx, name, email, password)}
		}
		return common.AuthMsg{Err: s.Login(ctx, email, password)}
	}
}

func (m Model) View() string {
	var s strings.Builder

	title := "Log in to"
	other := "ctrl+r: create an account"
	if m.Mode == ModeRegister {
		title = "Create an account on"
		other = "ctrl+r: log in instead"
	}
	s.WriteString(fmt.Sprintf("%s %s v%s\n\n", title, util.Name, util.GetVersion()))

	if m.Mode == ModeRegister {
		s.WriteString("Name\n" + m.Name.View() + "\n\n")
	}
	s.WriteString("Email\n" + m.Email.View() + "\n\n")
	s.WriteString("Password\n" + m.Password.View() + "\n\n")

	switch {
	case m.Busy:
		s.WriteString(common.StatusStyle.Render("Signing in...") + "\n\n")
	case m.Err != "":
		s.WriteString(common.ErrorStyle.Render(m.Err) + "\n\n")
	}

	s.WriteString(fmt.Sprintf("(enter: continue • %s • ctrl-c: quit)", other))
	return s.String() + "\n"
}

// ViewWithWidth renders the form centered in the terminal.
func (m Model) ViewWithWidth(termWidth, termHeight int) string {
	contentWidth := termWidth - 8
	if contentWidth < 40 {
		contentWidth = 40
	}

	bordered := Style.Width(contentWidth).Render(m.View())
	return lipgloss.Place(termWidth, termHeight, lipgloss.Center, lipgloss.Center, bordered)
}
