// Package session tracks the client's authentication state and reconciles
// the user's profile across the server, the last known user and a local
// profile cache.
package session

import (
	"github.com/deemkeen/reblog/domain"
)

type Status int

const (
	Anonymous Status = iota
	Authenticating
	Authenticated
)

func (s Status) String() string {
	switch s {
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	default:
		return "anonymous"
	}
}

type State struct {
	Status Status
	User   *domain.User
	Token  string
	Err    error
}

type Event interface {
	isEvent()
}

type LoginStarted struct{}

type LoginSucceeded struct {
	Token string
	User  *domain.User
}

type LoginFailed struct {
	Err error
}

type LoggedOut struct{}

type ProfileUpdated struct {
	Fields domain.ProfileUpdate
}

func (LoginStarted) isEvent()   {}
func (LoginSucceeded) isEvent() {}
func (LoginFailed) isEvent()    {}
func (LoggedOut) isEvent()      {}
func (ProfileUpdated) isEvent() {}

// Reduce returns the state after e. Events that are not valid in the
// current status leave the state unchanged. The user of s is never mutated.
func Reduce(s State, e Event) State {
	switch e := e.(type) {
	case LoginStarted:
		if s.Status != Anonymous {
			return s
		}
		return State{Status: Authenticating}

	case LoginSucceeded:
		if s.Status == Authenticated || e.Token == "" || e.User == nil {
			return s
		}
		return State{Status: Authenticated, User: copyUser(e.User), Token: e.Token}

	case LoginFailed:
		if s.Status != Authenticating {
			return s
		}
		return State{Status: Anonymous, Err: e.Err}

	case LoggedOut:
		return State{Status: Anonymous}

	case ProfileUpdated:
		if s.Status != Authenticated || s.User == nil {
			return s
		}
		u := copyUser(s.User)
		e.Fields.Apply(u)
		s.User = u
		return s
	}
	return s
}

func copyUser(u *domain.User) *domain.User {
	c := *u
	c.Following = append(c.Following[:0:0], u.Following...)
	c.LikedExternal = append(c.LikedExternal[:0:0], u.LikedExternal...)
	c.RepostedExternal = append(c.RepostedExternal[:0:0], u.RepostedExternal...)
	return &c
}

// Reconcile merges profile sources field by field. A non-empty fresh value
// wins over lastKnown, which wins over cached; defaults fill the rest. Any
// source may be nil.
func Reconcile(fresh, lastKnown, cached *domain.Profile) domain.Profile {
	def := domain.DefaultProfile()
	pick := func(field func(*domain.Profile) string, fallback string) string {
		for _, p := range []*domain.Profile{fresh, lastKnown, cached} {
			if p == nil {
				continue
			}
			if v := field(p); v != "" {
				return v
			}
		}
		return fallback
	}

	return domain.Profile{
		Avatar:     pick(func(p *domain.Profile) string { return p.Avatar }, def.Avatar),
		ProfileBg:  pick(func(p *domain.Profile) string { return p.ProfileBg }, def.ProfileBg),
		Bio:        pick(func(p *domain.Profile) string { return p.Bio }, def.Bio),
		Website:    pick(func(p *domain.Profile) string { return p.Website }, def.Website),
		Location:   pick(func(p *domain.Profile) string { return p.Location }, def.Location),
		ThemeColor: pick(func(p *domain.Profile) string { return p.ThemeColor }, def.ThemeColor),
	}
}
