package localusers

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/deemkeen/reblog/domain"
	"github.com/deemkeen/reblog/ui/common"
	"github.com/google/uuid"
)

var (
	userStyle = lipgloss.NewStyle().
			PaddingLeft(2).
			MarginBottom(0)

	selectedStyle = lipgloss.NewStyle().
			PaddingLeft(2).
			MarginBottom(0).
			Foreground(lipgloss.Color(common.COLOR_GREEN)).
			Bold(true)

	bioStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(common.COLOR_GREY)).
			Faint(true)
)

type Model struct {
	Users     []domain.User
	Following map[uuid.UUID]bool
	Selected  int
	Width     int
	Height    int
	Loading   bool
	Status    string
	Error     string

	seq uint64
	api common.API
}

func InitialModel(api common.API, width, height int) Model {
	return Model{
		Users:     []domain.User{},
		Following: make(map[uuid.UUID]bool),
		Width:     width,
		Height:    height,
		api:       api,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

// Refresh reloads the user list. Older results are dropped.
func (m Model) Refresh() (Model, tea.Cmd) {
	m.seq++
	m.Loading = true
	return m, loadUsers(m.api, m.seq)
}

func (m Model) Leave() Model {
	m.seq++
	m.Loading = false
	return m
}

// usersLoadedMsg is sent when users are loaded
type usersLoadedMsg struct {
	seq       uint64
	users     []domain.User
	following map[uuid.UUID]bool
	err       error
}

type followedMsg struct {
	seq       uint64
	user      domain.User
	following []uuid.UUID
	err       error
}

func loadUsers(api common.API, seq uint64) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := common.Timeout()
		defer cancel()

		users, err := api.Users(ctx)
		if err != nil {
			return usersLoadedMsg{seq: seq, err: err}
		}
		followed, err := api.FollowingUsers(ctx)
		if err != nil {
			return usersLoadedMsg{seq: seq, err: err}
		}

		following := make(map[uuid.UUID]bool, len(followed))
		for _, u := range followed {
			following[u.Id] = true
		}
		return usersLoadedMsg{seq: seq, users: users, following: following}
	}
}

func toggleFollow(api common.API, seq uint64, user domain.User, unfollow bool) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := common.Timeout()
		defer cancel()

		var ids []uuid.UUID
		var err error
		if unfollow {
			ids, err = api.Unfollow(ctx, user.Id)
		} else {
			ids, err = api.Follow(ctx, user.Id)
		}
		return followedMsg{seq: seq, user: user, following: ids, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case usersLoadedMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		m.Loading = false
		if msg.err != nil {
			m.Error = fmt.Sprintf("Could not load users: %v", msg.err)
			return m, nil
		}
		m.Users = msg.users
		m.Following = msg.following
		if m.Selected >= len(m.Users) {
			m.Selected = max(len(m.Users)-1, 0)
		}
		return m, nil

	case followedMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		if msg.err != nil {
			m.Error = msg.err.Error()
			m.Status = ""
			return m, common.ClearStatusAfter(2 * time.Second)
		}
		m.Following = make(map[uuid.UUID]bool, len(msg.following))
		for _, id := range msg.following {
			m.Following[id] = true
		}
		if m.Following[msg.user.Id] {
			m.Status = fmt.Sprintf("Following %s", msg.user.Name)
		} else {
			m.Status = fmt.Sprintf("Unfollowed %s", msg.user.Name)
		}
		m.Error = ""
		return m, common.ClearStatusAfter(2 * time.Second)

	case common.ClearStatusMsg:
		m.Status = ""
		m.Error = ""
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if m.Selected > 0 {
				m.Selected--
			}
		case "down", "j":
			if m.Selected < len(m.Users)-1 {
				m.Selected++
			}
		case "enter", "f":
			if m.Selected < 0 || m.Selected >= len(m.Users) {
				return m, nil
			}
			user := m.Users[m.Selected]
			return m, toggleFollow(m.api, m.seq, user, m.Following[user.Id])
		case "R":
			return m.Refresh()
		}
	}
	return m, nil
}

func (m Model) View() string {
	var s strings.Builder

	s.WriteString(common.CaptionStyle.Render(fmt.Sprintf("people (%d)", len(m.Users))))
	s.WriteString("\n\n")

	switch {
	case m.Loading && len(m.Users) == 0:
		s.WriteString(common.EmptyStyle.Render("Loading..."))
	case len(m.Users) == 0:
		s.WriteString(common.EmptyStyle.Render("Nobody else is here yet."))
	default:
		for i, user := range m.Users {
			followStatus := ""
			if m.Following[user.Id] {
				followStatus = " [following]"
			}
			userText := fmt.Sprintf("%s%s", user.Name, followStatus)

			if i == m.Selected {
				s.WriteString("→ " + selectedStyle.Render(userText))
			} else {
				s.WriteString("  " + userStyle.Render(userText))
			}
			if user.Bio != "" {
				s.WriteString("  " + bioStyle.Render(user.Bio))
			}
			s.WriteString("\n")
		}
	}

	s.WriteString("\n")

	if m.Status != "" {
		s.WriteString(common.StatusStyle.Render(m.Status))
		s.WriteString("\n\n")
	}

	if m.Error != "" {
		s.WriteString(common.ErrorStyle.Render(m.Error))
		s.WriteString("\n\n")
	}

	return s.String()
}
