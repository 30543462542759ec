package domain

import (
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultAvatar     = "https://example.com/default-avatar.png"
	DefaultThemeColor = "#a1c4fd"
)

// Profile holds the optional, user-editable presentation fields.
type Profile struct {
	Avatar     string `json:"avatar"`
	ProfileBg  string `json:"profileBg"`
	Bio        string `json:"bio"`
	Website    string `json:"website"`
	Location   string `json:"location"`
	ThemeColor string `json:"themeColor"`
}

// DefaultProfile is the profile a freshly registered user gets.
func DefaultProfile() Profile {
	return Profile{Avatar: DefaultAvatar, ThemeColor: DefaultThemeColor}
}

type User struct {
	Id           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Profile
	Following        []uuid.UUID `json:"following"`
	LikedExternal    []string    `json:"likedTumblrPosts"`
	RepostedExternal []string    `json:"repostedTumblrPosts"`
	CreatedAt        time.Time   `json:"createdAt"`
	UpdatedAt        time.Time   `json:"updatedAt"`
}

func NewUser(name, email, passwordHash string) *User {
	now := time.Now().UTC()
	return &User{
		Id:               uuid.New(),
		Name:             strings.TrimSpace(name),
		Email:            NormalizeEmail(email),
		PasswordHash:     passwordHash,
		Profile:          DefaultProfile(),
		Following:        []uuid.UUID{},
		LikedExternal:    []string{},
		RepostedExternal: []string{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func (u *User) Summary() UserSummary {
	return UserSummary{Id: u.Id, Name: u.Name, Avatar: u.Avatar}
}

func (u *User) IsFollowing(id uuid.UUID) bool {
	for _, f := range u.Following {
		if f == id {
			return true
		}
	}
	return false
}

// UserSummary is the author projection embedded in posts and listings.
type UserSummary struct {
	Id     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Avatar string    `json:"avatar"`
}

// ProfileUpdate is a partial profile change; nil fields are left alone.
type ProfileUpdate struct {
	Name       *string `json:"name,omitempty"`
	Avatar     *string `json:"avatar,omitempty"`
	ProfileBg  *string `json:"profileBg,omitempty"`
	Bio        *string `json:"bio,omitempty"`
	Website    *string `json:"website,omitempty"`
	Location   *string `json:"location,omitempty"`
	ThemeColor *string `json:"themeColor,omitempty"`
}

func (p ProfileUpdate) Empty() bool {
	return p.Name == nil && p.Avatar == nil && p.ProfileBg == nil && p.Bio == nil &&
		p.Website == nil && p.Location == nil && p.ThemeColor == nil
}

// Apply writes the set fields onto u.
func (p ProfileUpdate) Apply(u *User) {
	if p.Name != nil && strings.TrimSpace(*p.Name) != "" {
		u.Name = strings.TrimSpace(*p.Name)
	}
	if p.Avatar != nil {
		u.Avatar = *p.Avatar
	}
	if p.ProfileBg != nil {
		u.ProfileBg = *p.ProfileBg
	}
	if p.Bio != nil {
		u.Bio = *p.Bio
	}
	if p.Website != nil {
		u.Website = *p.Website
	}
	if p.Location != nil {
		u.Location = *p.Location
	}
	if p.ThemeColor != nil {
		u.ThemeColor = *p.ThemeColor
	}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// DisplayAvatar swaps the placeholder avatar for a generated one.
func DisplayAvatar(avatar, name string) string {
	if avatar != "" && !strings.Contains(avatar, "example.com") {
		return avatar
	}
	if name == "" {
		name = "User"
	}
	return "https://ui-avatars.com/api/?name=" + url.QueryEscape(name) + "&background=random&size=128"
}
