package socialcache

import (
	"encoding/json"
	"slices"
	"time"

	"github.com/samber/lo"
)

type CommentAuthor struct {
	Id     string `json:"_id,omitempty"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

type Comment struct {
	User      CommentAuthor `json:"user"`
	Text      string        `json:"text"`
	CreatedAt time.Time     `json:"createdAt"`
}

// State is the client-local social state of one external post. Counts are
// always derived from the sets.
type State struct {
	LikedBy    []string  `json:"likedBy"`
	Comments   []Comment `json:"comments"`
	RepostedBy []string  `json:"repostedBy"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func emptyState() State {
	return State{LikedBy: []string{}, Comments: []Comment{}, RepostedBy: []string{}}
}

func (s State) Likes() int {
	return len(s.LikedBy)
}

func (s State) Reposts() int {
	return len(s.RepostedBy)
}

func (s State) LikedByUser(userId string) bool {
	return slices.Contains(s.LikedBy, userId)
}

func (s State) RepostedByUser(userId string) bool {
	return slices.Contains(s.RepostedBy, userId)
}

func (s State) clone() State {
	return State{
		LikedBy:    append([]string{}, s.LikedBy...),
		Comments:   append([]Comment{}, s.Comments...),
		RepostedBy: append([]string{}, s.RepostedBy...),
		UpdatedAt:  s.UpdatedAt,
	}
}

type wireState struct {
	Likes      int       `json:"likes"`
	LikedBy    []string  `json:"likedBy"`
	Comments   []Comment `json:"comments"`
	Reposts    int       `json:"reposts"`
	RepostedBy []string  `json:"repostedBy"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// MarshalJSON adds the likes and reposts counts older readers expect.
func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireState{
		Likes:      s.Likes(),
		LikedBy:    s.LikedBy,
		Comments:   s.Comments,
		Reposts:    s.Reposts(),
		RepostedBy: s.RepostedBy,
		UpdatedAt:  s.UpdatedAt,
	})
}

// UnmarshalJSON ignores stored counts and deduplicates the sets.
func (s *State) UnmarshalJSON(data []byte) error {
	var w wireState
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*s = emptyState()
	s.LikedBy = uniq(w.LikedBy)
	s.RepostedBy = uniq(w.RepostedBy)
	if w.Comments != nil {
		s.Comments = w.Comments
	}
	s.UpdatedAt = w.UpdatedAt
	return nil
}

func uniq(ids []string) []string {
	return lo.Uniq(lo.Filter(ids, func(id string, _ int) bool {
		return id != ""
	}))
}
