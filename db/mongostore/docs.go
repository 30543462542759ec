package mongostore

import (
	"time"

	"github.com/deemkeen/reblog/domain"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

type userDoc struct {
	Id               string    `bson:"_id"`
	Name             string    `bson:"name"`
	Email            string    `bson:"email"`
	PasswordHash     string    `bson:"password"`
	Avatar           string    `bson:"avatar"`
	ProfileBg        string    `bson:"profileBg"`
	Bio              string    `bson:"bio"`
	Website          string    `bson:"website"`
	Location         string    `bson:"location"`
	ThemeColor       string    `bson:"themeColor"`
	Following        []string  `bson:"following"`
	LikedExternal    []string  `bson:"likedTumblrPosts"`
	RepostedExternal []string  `bson:"repostedTumblrPosts"`
	CreatedAt        time.Time `bson:"createdAt"`
	UpdatedAt        time.Time `bson:"updatedAt"`
}

type mediaDoc struct {
	Url          string `bson:"url"`
	Kind         string `bson:"type"`
	OriginalName string `bson:"originalName,omitempty"`
}

type commentDoc struct {
	Id        string    `bson:"_id"`
	AuthorId  string    `bson:"user"`
	Text      string    `bson:"text"`
	CreatedAt time.Time `bson:"createdAt"`
}

type postDoc struct {
	Id         string       `bson:"_id"`
	AuthorId   string       `bson:"user"`
	Kind       string       `bson:"type"`
	Content    string       `bson:"content"`
	MediaFiles []mediaDoc   `bson:"mediaFiles"`
	Tags       []string     `bson:"tags"`
	Likes      []string     `bson:"likes"`
	Comments   []commentDoc `bson:"comments"`
	Reposts    []string     `bson:"reposts"`
	CreatedAt  time.Time    `bson:"createdAt"`
	UpdatedAt  time.Time    `bson:"updatedAt"`
}

func newUserDoc(u *domain.User) userDoc {
	return userDoc{
		Id:               u.Id.String(),
		Name:             u.Name,
		Email:            domain.NormalizeEmail(u.Email),
		PasswordHash:     u.PasswordHash,
		Avatar:           u.Avatar,
		ProfileBg:        u.ProfileBg,
		Bio:              u.Bio,
		Website:          u.Website,
		Location:         u.Location,
		ThemeColor:       u.ThemeColor,
		Following:        idStrings(u.Following),
		LikedExternal:    nonNil(u.LikedExternal),
		RepostedExternal: nonNil(u.RepostedExternal),
		CreatedAt:        u.CreatedAt.Truncate(time.Millisecond),
		UpdatedAt:        u.UpdatedAt.Truncate(time.Millisecond),
	}
}

func (d userDoc) toDomain() (*domain.User, error) {
	id, err := uuid.Parse(d.Id)
	if err != nil {
		return nil, err
	}
	following, err := parseIds(d.Following)
	if err != nil {
		return nil, err
	}
	return &domain.User{
		Id:           id,
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Profile: domain.Profile{
			Avatar:     d.Avatar,
			ProfileBg:  d.ProfileBg,
			Bio:        d.Bio,
			Website:    d.Website,
			Location:   d.Location,
			ThemeColor: d.ThemeColor,
		},
		Following:        following,
		LikedExternal:    nonNil(d.LikedExternal),
		RepostedExternal: nonNil(d.RepostedExternal),
		CreatedAt:        d.CreatedAt.UTC(),
		UpdatedAt:        d.UpdatedAt.UTC(),
	}, nil
}

// toDomain converts the document, resolving author summaries from authors.
func (d postDoc) toDomain(authors map[string]domain.UserSummary) (domain.Post, error) {
	id, err := uuid.Parse(d.Id)
	if err != nil {
		return domain.Post{}, err
	}
	likes, err := parseIds(d.Likes)
	if err != nil {
		return domain.Post{}, err
	}
	reposts, err := parseIds(d.Reposts)
	if err != nil {
		return domain.Post{}, err
	}
	comments, err := commentsToDomain(d.Comments, authors)
	if err != nil {
		return domain.Post{}, err
	}
	return domain.Post{
		Id:      id,
		Author:  summaryFor(d.AuthorId, authors),
		Kind:    domain.PostKind(d.Kind),
		Content: d.Content,
		MediaFiles: lo.Map(d.MediaFiles, func(m mediaDoc, _ int) domain.MediaFile {
			return domain.MediaFile{Url: m.Url, Kind: m.Kind, OriginalName: m.OriginalName}
		}),
		Tags:      nonNil(d.Tags),
		Likes:     likes,
		Comments:  comments,
		Reposts:   reposts,
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}, nil
}

func commentsToDomain(docs []commentDoc, authors map[string]domain.UserSummary) ([]domain.Comment, error) {
	comments := make([]domain.Comment, 0, len(docs))
	for _, c := range docs {
		id, err := uuid.Parse(c.Id)
		if err != nil {
			return nil, err
		}
		comments = append(comments, domain.Comment{
			Id:        id,
			Author:    summaryFor(c.AuthorId, authors),
			Text:      c.Text,
			CreatedAt: c.CreatedAt.UTC(),
		})
	}
	return comments, nil
}

func summaryFor(id string, authors map[string]domain.UserSummary) domain.UserSummary {
	if s, ok := authors[id]; ok {
		return s
	}
	parsed, _ := uuid.Parse(id)
	return domain.UserSummary{Id: parsed}
}

func idStrings(ids []uuid.UUID) []string {
	return lo.Map(ids, func(id uuid.UUID, _ int) string { return id.String() })
}

func parseIds(ss []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(ss))
	for _, s := range ss {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func nonNil(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}
