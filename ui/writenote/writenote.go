package writenote

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/deemkeen/reblog/domain"
	"github.com/deemkeen/reblog/ui/common"
	"github.com/deemkeen/reblog/util"
)

const MaxLetters = 2000

const (
	focusBody = iota
	focusTags
	focusMedia
)

type Model struct {
	Textarea  textarea.Model
	Tags      textinput.Model
	MediaPath textinput.Model
	Focus     int
	Busy      bool
	Err       string
	Status    string
	width     int
	api       common.API
}

func InitialNote(api common.API, contentWidth int) Model {
	ti := textarea.New()
	ti.Placeholder = "what's on your mind?"
	ti.CharLimit = MaxLetters
	ti.ShowLineNumbers = false
	ti.SetWidth(max(contentWidth/2, 30))
	ti.Focus()

	tags := textinput.New()
	tags.Placeholder = "#art #music"
	tags.CharLimit = 200
	tags.Width = 40

	path := textinput.New()
	path.Placeholder = "optional image or video file"
	path.CharLimit = 512
	path.Width = 40

	return Model{
		Textarea:  ti,
		Tags:      tags,
		MediaPath: path,
		Focus:     focusBody,
		width:     contentWidth,
		api:       api,
	}
}

type createdMsg struct {
	post *domain.Post
	err  error
}

// draft is what ctrl+s publishes.
type draft struct {
	content   string
	tags      []string
	mediaPath string
}

func (m Model) draft() draft {
	return draft{
		content:   strings.TrimSpace(m.Textarea.Value()),
		tags:      util.ParseTagInput(m.Tags.Value()),
		mediaPath: strings.TrimSpace(m.MediaPath.Value()),
	}
}

func createPostCmd(api common.API, d draft) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := common.Timeout()
		defer cancel()

		np := domain.NewPost{Kind: domain.KindText, Content: d.content, Tags: d.tags}
		if d.mediaPath != "" {
			data, err := os.ReadFile(d.mediaPath)
			if err != nil {
				return createdMsg{err: fmt.Errorf("reading %s: %w", d.mediaPath, err)}
			}
			files, err := api.UploadMedia(ctx, filepath.Base(d.mediaPath), data)
			if err != nil {
				return createdMsg{err: err}
			}
			np.MediaFiles = files
			if len(files) > 0 {
				if kind, err := domain.ParsePostKind(files[0].Kind); err == nil {
					np.Kind = kind
				}
			}
		}
		if err := np.Validate(); err != nil {
			return createdMsg{err: err}
		}

		post, err := api.CreatePost(ctx, np)
		return createdMsg{post: post, err: err}
	}
}

func (m *Model) setFocus(f int) tea.Cmd {
	m.Textarea.Blur()
	m.Tags.Blur()
	m.MediaPath.Blur()
	m.Focus = f
	switch f {
	case focusTags:
		return m.Tags.Focus()
	case focusMedia:
		return m.MediaPath.Focus()
	default:
		return m.Textarea.Focus()
	}
}

func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case createdMsg:
		m.Busy = false
		if msg.err != nil {
			m.Err = msg.err.Error()
			return m, nil
		}
		m.Err = ""
		m.Status = "Posted!"
		m.Textarea.SetValue("")
		m.Tags.SetValue("")
		m.MediaPath.SetValue("")
		post := msg.post
		return m, tea.Batch(m.setFocus(focusBody), func() tea.Msg {
			return common.PostCreatedMsg{Post: post}
		})

	case common.ClearStatusMsg:
		m.Status = ""
		return m, nil

	case tea.KeyMsg:
		if m.Busy {
			return m, nil
		}
		switch msg.Type {
		case tea.KeyTab:
			return m, m.setFocus((m.Focus + 1) % 3)
		case tea.KeyCtrlS:
			d := m.draft()
			if d.content == "" && d.mediaPath == "" {
				m.Err = "Write something or attach a file first"
				return m, nil
			}
			m.Busy = true
			m.Err = ""
			m.Status = ""
			return m, createPostCmd(m.api, d)
		}
	}

	switch m.Focus {
	case focusTags:
		m.Tags, cmd = m.Tags.Update(msg)
	case focusMedia:
		m.MediaPath, cmd = m.MediaPath.Update(msg)
	default:
		m.Textarea, cmd = m.Textarea.Update(msg)
	}
	return m, cmd
}

func (m Model) CharCount() int {
	return m.Textarea.CharLimit - m.Textarea.Length()
}

func (m Model) View() string {
	styledTextarea := lipgloss.NewStyle().PaddingLeft(5).PaddingRight(5).Margin(1, 2).Render(m.Textarea.View())
	fields := lipgloss.NewStyle().PaddingLeft(7).Render(
		fmt.Sprintf("tags:  %s\n\nmedia: %s", m.Tags.View(), m.MediaPath.View()))
	caption := common.CaptionStyle.PaddingLeft(7).Render("new post")

	var status string
	switch {
	case m.Busy:
		status = common.StatusStyle.Render("Publishing...")
	case m.Err != "":
		status = common.ErrorStyle.Render(m.Err)
	case m.Status != "":
		status = common.StatusStyle.Render(m.Status)
	}
	help := common.HelpStyle.PaddingLeft(7).Render(fmt.Sprintf("characters left: %d\n\ntab: next field • publish: ctrl+s",
		m.CharCount()))

	return fmt.Sprintf("%s\n%s\n%s\n\n%s\n\n%s", caption, styledTextarea, fields, lipgloss.NewStyle().PaddingLeft(7).Render(status), help)
}
