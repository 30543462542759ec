package ui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/deemkeen/reblog/feed"
	"github.com/deemkeen/reblog/session"
	"github.com/deemkeen/reblog/socialcache"
	"github.com/deemkeen/reblog/ui/common"
	"github.com/deemkeen/reblog/ui/header"
	"github.com/deemkeen/reblog/ui/localusers"
	"github.com/deemkeen/reblog/ui/login"
	"github.com/deemkeen/reblog/ui/profile"
	"github.com/deemkeen/reblog/ui/timeline"
	"github.com/deemkeen/reblog/ui/writenote"
)

var (
	modelStyle = lipgloss.NewStyle().
			Align(lipgloss.Top, lipgloss.Top).
			BorderStyle(lipgloss.HiddenBorder()).MarginLeft(1)
	focusedModelStyle = lipgloss.NewStyle().
				Align(lipgloss.Top, lipgloss.Top).
				BorderStyle(lipgloss.NormalBorder()).
				BorderForeground(lipgloss.Color(common.COLOR_LIGHTBLUE)).MarginLeft(1)
)

// Options wires the terminal client to its backends.
type Options struct {
	API     common.API
	Session *session.Manager
	Cache   *socialcache.Cache
	// DefaultBlog is the third-party blog mixed into untagged feeds.
	DefaultBlog     string
	ExternalTimeout time.Duration
}

type MainModel struct {
	width        int
	height       int
	state        common.SessionState
	session      *session.Manager
	headerModel  header.Model
	loginModel   login.Model
	createModel  writenote.Model
	feedModel    timeline.Model
	profileModel profile.Model
	peopleModel  localusers.Model
}

func NewModel(opts Options, width int, height int) MainModel {
	width = common.DefaultWindowWidth(width)
	height = common.DefaultWindowHeight(height)

	composer := feed.NewComposer(opts.API, opts.API, feed.Config{
		ExternalTimeout: opts.ExternalTimeout,
		DefaultBlog:     opts.DefaultBlog,
	})
	rightWidth := common.DefaultListWidth(width)

	m := MainModel{state: common.LoginView, session: opts.Session}
	m.loginModel = login.InitialModel(opts.Session)
	m.createModel = writenote.InitialNote(opts.API, width)
	m.feedModel = timeline.InitialModel(opts.API, composer, opts.Cache, opts.Session, rightWidth, height)
	m.profileModel = profile.InitialModel(opts.Session, rightWidth)
	m.peopleModel = localusers.InitialModel(opts.API, rightWidth, height)
	m.headerModel = header.Model{Width: width, User: opts.Session.State().User}
	m.width = width
	m.height = height
	if opts.Session.State().Status == session.Authenticated {
		m.state = common.FeedView
	}
	return m
}

// State is the active view.
func (m MainModel) State() common.SessionState {
	return m.state
}

func (m MainModel) Init() tea.Cmd {
	if m.state == common.LoginView {
		return m.loginModel.Init()
	}
	return func() tea.Msg {
		return enterMsg{}
	}
}

// enterMsg loads the logged-in views once the program runs.
type enterMsg struct{}

func (m MainModel) enter() (MainModel, tea.Cmd) {
	var feedCmd, profileCmd tea.Cmd
	m.state = common.FeedView
	m.headerModel.User = m.session.State().User
	m.feedModel, feedCmd = m.feedModel.Refresh()
	m.profileModel, profileCmd = m.profileModel.Refresh()
	return m, tea.Batch(feedCmd, profileCmd, m.createModel.Init())
}

// switchTo moves focus to next. The view being left drops its pending
// results; the view being entered reloads.
func (m MainModel) switchTo(next common.SessionState) (MainModel, tea.Cmd) {
	if next == m.state {
		return m, nil
	}
	switch m.state {
	case common.FeedView:
		m.feedModel = m.feedModel.Leave()
	case common.ProfileView:
		m.profileModel = m.profileModel.Leave()
	case common.PeopleView:
		m.peopleModel = m.peopleModel.Leave()
	}

	m.state = next
	var cmd tea.Cmd
	switch next {
	case common.FeedView:
		m.feedModel, cmd = m.feedModel.Refresh()
	case common.ProfileView:
		m.profileModel, cmd = m.profileModel.Refresh()
	case common.PeopleView:
		m.peopleModel, cmd = m.peopleModel.Refresh()
	}
	return m, cmd
}

func nextView(current common.SessionState) common.SessionState {
	for i, v := range common.Views {
		if v == current {
			return common.Views[(i+1)%len(common.Views)]
		}
	}
	return common.FeedView
}

func (m MainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = common.DefaultWindowWidth(msg.Width)
		m.height = common.DefaultWindowHeight(msg.Height)
		rightWidth := common.DefaultListWidth(m.width)
		m.headerModel.Width = m.width
		m.feedModel.Width, m.feedModel.Height = rightWidth, m.height
		m.profileModel.Width = rightWidth
		m.peopleModel.Width, m.peopleModel.Height = rightWidth, m.height
		return m, nil

	case enterMsg:
		return m.enter()

	case common.AuthMsg:
		m.loginModel, cmd = m.loginModel.Update(msg)
		if msg.Err != nil || m.session.State().Status != session.Authenticated {
			return m, cmd
		}
		var enterCmd tea.Cmd
		m, enterCmd = m.enter()
		return m, tea.Batch(cmd, enterCmd)

	case common.LogoutMsg:
		m.session.Logout()
		m.feedModel = m.feedModel.Leave()
		m.profileModel = m.profileModel.Reset()
		m.peopleModel = m.peopleModel.Leave()
		m.headerModel.User = nil
		m.loginModel = login.InitialModel(m.session)
		m.state = common.LoginView
		return m, m.loginModel.Init()

	case common.PostCreatedMsg:
		m, cmd = m.switchTo(common.FeedView)
		cmds = append(cmds, cmd)
		if cmd == nil {
			m.feedModel, cmd = m.feedModel.Refresh()
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "shift+tab":
			if m.state == common.LoginView {
				break
			}
			return m.switchTo(nextView(m.state))
		}
	}

	// Route non-keyboard messages to all sub-models; each drops results it
	// no longer waits for.
	if _, isKeyMsg := msg.(tea.KeyMsg); !isKeyMsg {
		m.loginModel, cmd = m.loginModel.Update(msg)
		cmds = append(cmds, cmd)
		m.createModel, cmd = m.createModel.Update(msg)
		cmds = append(cmds, cmd)
		m.feedModel, cmd = m.feedModel.Update(msg)
		cmds = append(cmds, cmd)
		m.profileModel, cmd = m.profileModel.Update(msg)
		cmds = append(cmds, cmd)
		m.peopleModel, cmd = m.peopleModel.Update(msg)
		cmds = append(cmds, cmd)
		return m, tea.Batch(cmds...)
	}

	// Route keyboard input only to the active model
	switch m.state {
	case common.LoginView:
		m.loginModel, cmd = m.loginModel.Update(msg)
	case common.ComposeView:
		m.createModel, cmd = m.createModel.Update(msg)
	case common.FeedView:
		m.feedModel, cmd = m.feedModel.Update(msg)
	case common.ProfileView:
		m.profileModel, cmd = m.profileModel.Update(msg)
	case common.PeopleView:
		m.peopleModel, cmd = m.peopleModel.Update(msg)
	}
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m MainModel) View() string {
	if m.state == common.LoginView {
		return m.loginModel.ViewWithWidth(m.width+10, m.height+10)
	}

	var s string

	availableHeight := m.height - 10
	leftPanelWidth := m.width / 3
	rightPanelWidth := m.width - leftPanelWidth - 6

	createStyleStr := lipgloss.NewStyle().
		MaxHeight(availableHeight).
		Height(availableHeight).
		Width(leftPanelWidth).
		MaxWidth(leftPanelWidth).
		Render(m.createModel.View())

	var right string
	switch m.state {
	case common.ProfileView:
		right = m.profileModel.View()
	case common.PeopleView:
		right = m.peopleModel.View()
	default:
		right = m.feedModel.View()
	}
	rightStyleStr := lipgloss.NewStyle().
		MaxHeight(availableHeight).
		Height(availableHeight).
		Width(rightPanelWidth).
		MaxWidth(rightPanelWidth).
		Margin(1).
		Render(right)

	hdr := m.headerModel
	hdr.Active = m.state
	hdr.Sync = m.profileModel.Sync()
	s += hdr.View() + "\n"

	if m.state == common.ComposeView {
		s += lipgloss.JoinHorizontal(lipgloss.Top,
			focusedModelStyle.Render(createStyleStr),
			modelStyle.Render(rightStyleStr))
	} else {
		s += lipgloss.JoinHorizontal(lipgloss.Top,
			modelStyle.Render(createStyleStr),
			focusedModelStyle.Render(rightStyleStr))
	}

	var viewCommands string
	switch m.state {
	case common.FeedView:
		if m.feedModel.Editing() {
			viewCommands = "enter: submit • esc: cancel"
		} else {
			viewCommands = "↑/↓: select • tab: all/following/tag • t: tag • l: like • r: repost • c: comment • R: reload"
		}
	case common.ComposeView:
		viewCommands = "tab: next field • ctrl+s: publish"
	case common.ProfileView:
		viewCommands = "e: edit • L: log out"
	case common.PeopleView:
		viewCommands = "↑/↓: select • enter: toggle follow"
	}

	s += common.HelpStyle.Render(fmt.Sprintf(
		"focused > %s\t\tkeys > shift+tab: next view • %s • ctrl-c: exit",
		m.state, viewCommands))
	return lipgloss.NewStyle().Render(s)
}
