package domain

import "time"

// ExternalPost is a read-only post from the third-party blogging API. It has
// no local identifier and no server-side social state.
type ExternalPost struct {
	Id        string   `json:"id"`
	BlogName  string   `json:"blogName"`
	AvatarURL string   `json:"avatarUrl,omitempty"`
	Summary   string   `json:"summary"`
	MediaURL  string   `json:"mediaUrl,omitempty"`
	PostURL   string   `json:"postUrl,omitempty"`
	Type      string   `json:"type,omitempty"`
	Tags      []string `json:"tags"`
	// Timestamp is in seconds since the epoch, as the API reports it.
	Timestamp int64 `json:"timestamp"`
}

func (e ExternalPost) CreatedAt() time.Time {
	return time.Unix(e.Timestamp, 0).UTC()
}
