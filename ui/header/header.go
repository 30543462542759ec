// Package header renders the bar above the panels: the app, who is
// logged in, the views and whether the profile is in sync.
package header

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/deemkeen/reblog/domain"
	"github.com/deemkeen/reblog/ui/common"
	"github.com/deemkeen/reblog/util"
)

var (
	barStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, true, false).
			BorderForeground(lipgloss.Color(common.COLOR_MAGENTA))

	brandStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("231")).
			Background(lipgloss.Color(common.COLOR_PURPLE)).
			Padding(0, 1)

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(common.COLOR_MAGENTA)).
			Padding(0, 1)

	tabStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(common.COLOR_GREY)).
			Padding(0, 1)

	activeTabStyle = tabStyle.
			Foreground(lipgloss.Color(common.COLOR_LIGHTBLUE)).
			Underline(true)

	syncStyles = map[common.SyncStatus]lipgloss.Style{
		common.SyncPending:   lipgloss.NewStyle().Foreground(lipgloss.Color(common.COLOR_GREY)),
		common.SyncOK:        lipgloss.NewStyle().Foreground(lipgloss.Color(common.COLOR_GREEN)),
		common.SyncLocalOnly: lipgloss.NewStyle().Foreground(lipgloss.Color(common.COLOR_RED)),
	}
)

type Model struct {
	Width  int
	User   *domain.User
	Active common.SessionState
	Sync   common.SyncStatus
}

func (m Model) View() string {
	who := "guest"
	if m.User != nil {
		who = "@" + util.Truncate(m.User.Name, 24)
	}

	tabs := make([]string, 0, len(common.Views))
	for _, v := range common.Views {
		if v == m.Active {
			tabs = append(tabs, activeTabStyle.Render(v.String()))
		} else {
			tabs = append(tabs, tabStyle.Render(v.String()))
		}
	}

	left := lipgloss.JoinHorizontal(lipgloss.Top,
		brandStyle.Render(util.GetNameAndVersion()),
		userStyle.Render(who),
		strings.Join(tabs, ""))

	var right string
	if m.User != nil {
		right = syncStyles[m.Sync].Render("profile " + m.Sync.String())
	}

	gap := max(m.Width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return barStyle.Render(left + strings.Repeat(" ", gap) + right)
}
