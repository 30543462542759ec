// Package timeline is the feed view: local and third-party posts merged
// newest first, with like, repost and comment actions on the selected item.
//
// Actions on local posts go to the server. Actions on third-party posts are
// applied to the local social cache first and mirrored to the server best
// effort.
package timeline

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/deemkeen/reblog/client"
	"github.com/deemkeen/reblog/domain"
	"github.com/deemkeen/reblog/feed"
	"github.com/deemkeen/reblog/session"
	"github.com/deemkeen/reblog/socialcache"
	"github.com/deemkeen/reblog/ui/common"
	"github.com/deemkeen/reblog/util"
	"github.com/google/uuid"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63")).
			MarginBottom(1)

	postStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	selectedPostStyle = postStyle.
				BorderForeground(lipgloss.Color(common.COLOR_MAGENTA))

	authorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")).
			Bold(true)

	contentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	timeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Faint(true)

	tagStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(common.COLOR_LIGHTBLUE))

	activeModeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(common.COLOR_MAGENTA)).
			Bold(true).
			Underline(true)

	modeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(common.COLOR_GREY))
)

type Mode int

const (
	ModeAll Mode = iota
	ModeFollowing
	ModeTag
)

var modes = []Mode{ModeAll, ModeFollowing, ModeTag}

func (m Mode) String() string {
	switch m {
	case ModeFollowing:
		return "following"
	case ModeTag:
		return "tag"
	default:
		return "all"
	}
}

type inputKind int

const (
	inputNone inputKind = iota
	inputTag
	inputComment
)

type Model struct {
	Items    []domain.FeedItem
	Mode     Mode
	Tag      string
	Selected int
	Width    int
	Height   int
	Loading  bool
	Status   string
	Error    string

	TagInput     textinput.Model
	CommentInput textinput.Model
	input        inputKind

	// seq identifies the newest request; results carrying an older seq are
	// dropped.
	seq uint64

	api      common.API
	composer *feed.Composer
	cache    *socialcache.Cache
	session  *session.Manager
}

func InitialModel(api common.API, composer *feed.Composer, cache *socialcache.Cache, s *session.Manager, width, height int) Model {
	tag := textinput.New()
	tag.Placeholder = "art"
	tag.Prompt = "#"
	tag.CharLimit = 50
	tag.Width = 30

	comment := textinput.New()
	comment.Placeholder = "say something nice"
	comment.CharLimit = 500
	comment.Width = 50

	return Model{
		Items:        []domain.FeedItem{},
		Mode:         ModeAll,
		Width:        width,
		Height:       height,
		TagInput:     tag,
		CommentInput: comment,
		api:          api,
		composer:     composer,
		cache:        cache,
		session:      s,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

// Refresh starts a new fetch for the current mode. Results of any fetch or
// action started before are dropped.
func (m Model) Refresh() (Model, tea.Cmd) {
	m.seq++
	m.Loading = true
	m.Error = ""
	return m, m.load(m.seq)
}

// Leave invalidates pending results, for when the view loses focus.
func (m Model) Leave() Model {
	m.seq++
	m.Loading = false
	m.input = inputNone
	return m
}

// Editing reports whether a text input has the keyboard.
func (m Model) Editing() bool {
	return m.input != inputNone
}

type feedLoadedMsg struct {
	seq   uint64
	items []domain.FeedItem
	err   error
}

type likedMsg struct {
	seq uint64
	id  uuid.UUID
	res *client.LikeResult
	err error
}

type repostedMsg struct {
	seq uint64
	id  uuid.UUID
	res *client.RepostResult
	err error
}

type commentedMsg struct {
	seq      uint64
	id       uuid.UUID
	comments []domain.Comment
	err      error
}

// mirroredMsg reports the server-side copy of a third-party post action.
type mirroredMsg struct {
	action socialcache.Action
	postId string
	err    error
}

func (m Model) viewer() *domain.User {
	if m.session == nil {
		return nil
	}
	return m.session.State().User
}

func (m Model) load(seq uint64) tea.Cmd {
	req := feed.Request{
		FollowingOnly: m.Mode == ModeFollowing,
	}
	if u := m.viewer(); u != nil {
		req.ViewerId = u.Id
	}
	if m.Mode == ModeTag {
		req.Tag = m.Tag
	}
	composer := m.composer
	return func() tea.Msg {
		ctx, cancel := common.Timeout()
		defer cancel()
		items, err := composer.GetFeed(ctx, req)
		return feedLoadedMsg{seq: seq, items: items, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case feedLoadedMsg:
		if msg.seq != m.seq {
			slog.Debug("dropping stale feed result", slog.Uint64("seq", msg.seq))
			return m, nil
		}
		m.Loading = false
		if msg.err != nil {
			m.Error = fmt.Sprintf("Could not load the feed: %v", msg.err)
			return m, nil
		}
		m.Items = msg.items
		if m.Selected >= len(m.Items) {
			m.Selected = max(len(m.Items)-1, 0)
		}
		return m, nil

	case likedMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		if msg.err != nil {
			m.Error = msg.err.Error()
			return m, nil
		}
		if p := m.localPost(msg.id); p != nil {
			p.Likes = msg.res.Likes
		}
		m.Status = "Unliked"
		if msg.res.Liked {
			m.Status = "Liked"
		}
		return m, nil

	case repostedMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		if msg.err != nil {
			m.Error = msg.err.Error()
			return m, nil
		}
		if p := m.localPost(msg.id); p != nil {
			p.Reposts = msg.res.Reposts
		}
		m.Status = "Reposted"
		return m, nil

	case commentedMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		if msg.err != nil {
			m.Error = msg.err.Error()
			return m, nil
		}
		if p := m.localPost(msg.id); p != nil {
			p.Comments = msg.comments
		}
		m.Status = "Comment added"
		return m, nil

	case mirroredMsg:
		if msg.err != nil {
			slog.Warn("third-party action kept locally only",
				slog.String("action", string(msg.action)),
				slog.String("post_id", msg.postId),
				slog.Any("error", msg.err))
		}
		return m, nil

	case common.ClearStatusMsg:
		m.Status = ""
		m.Error = ""
		return m, nil

	case tea.KeyMsg:
		if m.input != inputNone {
			return m.updateInput(msg)
		}
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m Model) updateKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.Selected > 0 {
			m.Selected--
		}
	case "down", "j":
		if m.Selected < len(m.Items)-1 {
			m.Selected++
		}
	case "tab":
		next := modes[(int(m.Mode)+1)%len(modes)]
		if next == ModeTag && m.Tag == "" {
			m.Mode = next
			return m.openInput(inputTag)
		}
		m.Mode = next
		m.Selected = 0
		return m.Refresh()
	case "t":
		m.Mode = ModeTag
		return m.openInput(inputTag)
	case "R":
		return m.Refresh()
	case "l":
		return m.like()
	case "r":
		return m.repost()
	case "c":
		if _, ok := m.selected(); ok {
			return m.openInput(inputComment)
		}
	}
	return m, nil
}

func (m Model) openInput(kind inputKind) (Model, tea.Cmd) {
	m.input = kind
	m.Status = ""
	m.Error = ""
	if kind == inputTag {
		m.TagInput.SetValue(m.Tag)
		return m, m.TagInput.Focus()
	}
	m.CommentInput.SetValue("")
	return m, m.CommentInput.Focus()
}

func (m Model) updateInput(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.input = inputNone
		m.TagInput.Blur()
		m.CommentInput.Blur()
		return m, nil
	case tea.KeyEnter:
		kind := m.input
		m.input = inputNone
		m.TagInput.Blur()
		m.CommentInput.Blur()
		if kind == inputTag {
			tags := util.ParseTagInput(m.TagInput.Value())
			if len(tags) == 0 {
				m.Error = "Please enter a tag"
				return m, nil
			}
			m.Tag = tags[0]
			m.Mode = ModeTag
			m.Selected = 0
			return m.Refresh()
		}
		return m.comment(m.CommentInput.Value())
	}

	var cmd tea.Cmd
	if m.input == inputTag {
		m.TagInput, cmd = m.TagInput.Update(msg)
	} else {
		m.CommentInput, cmd = m.CommentInput.Update(msg)
	}
	return m, cmd
}

func (m Model) selected() (domain.FeedItem, bool) {
	if m.Selected < 0 || m.Selected >= len(m.Items) {
		return domain.FeedItem{}, false
	}
	return m.Items[m.Selected], true
}

func (m Model) localPost(id uuid.UUID) *domain.Post {
	for i := range m.Items {
		if p := m.Items[i].Local; p != nil && p.Id == id {
			return p
		}
	}
	return nil
}

func (m Model) like() (Model, tea.Cmd) {
	item, ok := m.selected()
	if !ok {
		return m, nil
	}
	u := m.viewer()
	if u == nil {
		m.Error = session.ErrNotAuthenticated.Error()
		return m, nil
	}
	m.Status, m.Error = "", ""

	if item.IsExternal() {
		action := socialcache.ActionLike
		if m.cache.Query(item.External.Id).LikedByUser(u.Id.String()) {
			action = socialcache.ActionUnlike
		}
		return m.applyExternal(action, item.External.Id, u, nil)
	}

	api, seq, id := m.api, m.seq, item.Local.Id
	return m, func() tea.Msg {
		ctx, cancel := common.Timeout()
		defer cancel()
		res, err := api.LikePost(ctx, id)
		return likedMsg{seq: seq, id: id, res: res, err: err}
	}
}

func (m Model) repost() (Model, tea.Cmd) {
	item, ok := m.selected()
	if !ok {
		return m, nil
	}
	u := m.viewer()
	if u == nil {
		m.Error = session.ErrNotAuthenticated.Error()
		return m, nil
	}
	m.Status, m.Error = "", ""

	if item.IsExternal() {
		action := socialcache.ActionRepost
		if m.cache.Query(item.External.Id).RepostedByUser(u.Id.String()) {
			action = socialcache.ActionUnrepost
		}
		return m.applyExternal(action, item.External.Id, u, nil)
	}

	post := item.Local
	if post.Author.Id == u.Id {
		m.Error = domain.ErrSelfRepost.Error()
		return m, nil
	}
	if post.RepostedBy(u.Id) {
		m.Status = "Already reposted"
		return m, nil
	}

	api, seq, id := m.api, m.seq, post.Id
	return m, func() tea.Msg {
		ctx, cancel := common.Timeout()
		defer cancel()
		res, err := api.RepostPost(ctx, id)
		return repostedMsg{seq: seq, id: id, res: res, err: err}
	}
}

func (m Model) comment(text string) (Model, tea.Cmd) {
	item, ok := m.selected()
	if !ok {
		return m, nil
	}
	u := m.viewer()
	if u == nil {
		m.Error = session.ErrNotAuthenticated.Error()
		return m, nil
	}
	text = strings.TrimSpace(text)
	if text == "" {
		m.Error = "Comment text is required"
		return m, nil
	}

	if item.IsExternal() {
		payload := &socialcache.CommentPayload{
			AuthorName:   u.Name,
			AuthorAvatar: domain.DisplayAvatar(u.Avatar, u.Name),
			Text:         text,
		}
		return m.applyExternal(socialcache.ActionComment, item.External.Id, u, payload)
	}

	api, seq, id := m.api, m.seq, item.Local.Id
	return m, func() tea.Msg {
		ctx, cancel := common.Timeout()
		defer cancel()
		comments, err := api.CommentPost(ctx, id, text)
		return commentedMsg{seq: seq, id: id, comments: comments, err: err}
	}
}

// applyExternal updates the social cache and mirrors likes and reposts to
// the server. Comments on third-party posts stay local.
func (m Model) applyExternal(action socialcache.Action, postId string, u *domain.User, payload *socialcache.CommentPayload) (Model, tea.Cmd) {
	_, err := m.cache.Apply(action, postId, u.Id.String(), payload)
	switch {
	case errors.Is(err, domain.ErrValidation):
		m.Error = err.Error()
		return m, nil
	case err != nil:
		m.Error = "Saved for this session only"
	}

	switch action {
	case socialcache.ActionLike:
		m.Status = "Liked"
	case socialcache.ActionUnlike:
		m.Status = "Unliked"
	case socialcache.ActionRepost:
		m.Status = "Reposted"
	case socialcache.ActionUnrepost:
		m.Status = "Repost removed"
	case socialcache.ActionComment:
		m.Status = "Comment added"
		return m, nil
	}

	api := m.api
	return m, func() tea.Msg {
		ctx, cancel := common.Timeout()
		defer cancel()
		var err error
		switch action {
		case socialcache.ActionLike:
			_, err = api.LikeExternal(ctx, postId)
		case socialcache.ActionUnlike:
			_, err = api.UnlikeExternal(ctx, postId)
		case socialcache.ActionRepost:
			_, err = api.RepostExternal(ctx, postId)
		case socialcache.ActionUnrepost:
			_, err = api.UnrepostExternal(ctx, postId)
		}
		return mirroredMsg{action: action, postId: postId, err: err}
	}
}

func (m Model) pageSize() int {
	return max((m.Height-8)/6, 1)
}

func (m Model) View() string {
	var s strings.Builder

	s.WriteString(m.modeBar())
	s.WriteString("\n\n")

	switch m.input {
	case inputTag:
		s.WriteString("tag: " + m.TagInput.View() + "\n\n")
	case inputComment:
		s.WriteString("comment: " + m.CommentInput.View() + "\n\n")
	}

	switch {
	case m.Loading && len(m.Items) == 0:
		s.WriteString(common.EmptyStyle.Render("Loading..."))
	case len(m.Items) == 0:
		s.WriteString(common.EmptyStyle.Render(m.emptyText()))
	default:
		page := m.pageSize()
		start := 0
		if m.Selected >= page {
			start = m.Selected - page + 1
		}
		end := min(start+page, len(m.Items))
		for i := start; i < end; i++ {
			style := postStyle
			if i == m.Selected {
				style = selectedPostStyle
			}
			s.WriteString(style.Width(max(m.Width-4, 20)).Render(m.renderItem(m.Items[i])))
			s.WriteString("\n")
		}
		if rest := len(m.Items) - end; rest > 0 {
			s.WriteString(common.EmptyStyle.Render(fmt.Sprintf("... and %d more posts", rest)))
			s.WriteString("\n")
		}
	}

	s.WriteString("\n")
	if m.Status != "" {
		s.WriteString(common.StatusStyle.Render(m.Status) + "\n")
	}
	if m.Error != "" {
		s.WriteString(common.ErrorStyle.Render(m.Error) + "\n")
	}
	return s.String()
}

func (m Model) modeBar() string {
	parts := make([]string, 0, len(modes))
	for _, mode := range modes {
		label := mode.String()
		if mode == ModeTag && m.Tag != "" {
			label = "#" + m.Tag
		}
		if mode == m.Mode {
			parts = append(parts, activeModeStyle.Render(label))
		} else {
			parts = append(parts, modeStyle.Render(label))
		}
	}
	return headerStyle.Render(fmt.Sprintf("Feed (%d posts)", len(m.Items))) + "\n" + strings.Join(parts, "  ")
}

func (m Model) emptyText() string {
	switch m.Mode {
	case ModeFollowing:
		return "No posts from people you follow yet.\nFind someone in the people view!"
	case ModeTag:
		if m.Tag == "" {
			return "Press t to pick a tag."
		}
		return fmt.Sprintf("Nothing tagged #%s.", m.Tag)
	}
	return "No posts yet. Be the first to write one!"
}

func (m Model) renderItem(item domain.FeedItem) string {
	badge := common.LocalBadgeStyle.Render("local")
	if item.IsExternal() {
		badge = common.ExternalBadgeStyle.Render("tumblr")
	}

	var tags []string
	var likes, reposts, comments int
	var liked, reposted bool
	viewer := ""
	if u := m.viewer(); u != nil {
		viewer = u.Id.String()
	}

	if item.IsExternal() {
		tags = item.External.Tags
		st := m.cache.Query(item.External.Id)
		likes, reposts, comments = st.Likes(), st.Reposts(), len(st.Comments)
		liked, reposted = st.LikedByUser(viewer), st.RepostedByUser(viewer)
	} else {
		p := item.Local
		tags = p.Tags
		likes, reposts, comments = p.LikeCount(), p.RepostCount(), len(p.Comments)
		if u := m.viewer(); u != nil {
			liked, reposted = p.LikedBy(u.Id), p.RepostedBy(u.Id)
		}
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s %s %s\n", badge, authorStyle.Render(item.AuthorName()), timeStyle.Render(formatTime(item.CreatedAt))))
	b.WriteString(contentStyle.Render(util.Truncate(util.NormalizeInput(item.Body()), max(m.Width-10, 20))))
	if len(tags) > 0 {
		b.WriteString("\n" + tagStyle.Render("#"+strings.Join(tags, " #")))
	}
	b.WriteString("\n" + timeStyle.Render(socialLine(likes, reposts, comments, liked, reposted)))
	return b.String()
}

func socialLine(likes, reposts, comments int, liked, reposted bool) string {
	l := fmt.Sprintf("♡ %d", likes)
	if liked {
		l = fmt.Sprintf("♥ %d", likes)
	}
	r := fmt.Sprintf("reposts %d", reposts)
	if reposted {
		r += " (you)"
	}
	return fmt.Sprintf("%s  •  %s  •  comments %d", l, r, comments)
}

func formatTime(t time.Time) string {
	duration := time.Since(t)

	if duration < time.Minute {
		return "just now"
	} else if duration < time.Hour {
		mins := int(duration.Minutes())
		return fmt.Sprintf("%dm ago", mins)
	} else if duration < 24*time.Hour {
		hours := int(duration.Hours())
		return fmt.Sprintf("%dh ago", hours)
	} else {
		days := int(duration.Hours() / 24)
		return fmt.Sprintf("%dd ago", days)
	}
}
