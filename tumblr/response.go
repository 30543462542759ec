package tumblr

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/deemkeen/reblog/domain"
	"github.com/deemkeen/reblog/util"
)

type meta struct {
	Status int    `json:"status"`
	Msg    string `json:"msg"`
}

type errorEnvelope struct {
	Meta meta `json:"meta"`
}

type blogEnvelope struct {
	Meta     meta          `json:"meta"`
	Response *blogResponse `json:"response"`
}

type blogResponse struct {
	Blog  blogInfo  `json:"blog"`
	Posts []rawPost `json:"posts"`
}

type taggedEnvelope struct {
	Meta     meta       `json:"meta"`
	Response *[]rawPost `json:"response"`
}

type blogInfo struct {
	Name   string `json:"name"`
	Avatar []struct {
		Url   string `json:"url"`
		Width int    `json:"width"`
	} `json:"avatar"`
}

// avatar returns the smallest avatar of at least 64px, or the first one.
func (b blogInfo) avatar() string {
	best := ""
	bestWidth := 0
	for _, a := range b.Avatar {
		if a.Width >= 64 && (bestWidth == 0 || a.Width < bestWidth) {
			best, bestWidth = a.Url, a.Width
		}
	}
	if best == "" && len(b.Avatar) > 0 {
		best = b.Avatar[0].Url
	}
	return best
}

type photo struct {
	OriginalSize struct {
		Url string `json:"url"`
	} `json:"original_size"`
}

type rawPost struct {
	Id        json.Number `json:"id"`
	IdString  string      `json:"id_string"`
	BlogName  string      `json:"blog_name"`
	Type      string      `json:"type"`
	Timestamp int64       `json:"timestamp"`
	Summary   string      `json:"summary"`
	Caption   string      `json:"caption"`
	Body      string      `json:"body"`
	PostURL   string      `json:"post_url"`
	Tags      []string    `json:"tags"`
	Photos    []photo     `json:"photos"`
	VideoURL  string      `json:"video_url"`
}

func (r rawPost) normalize(baseURL, blogAvatar string) (domain.ExternalPost, error) {
	id := r.IdString
	if id == "" {
		id = r.Id.String()
	}
	if id == "" {
		return domain.ExternalPost{}, errors.New("missing id")
	}
	if r.Timestamp <= 0 {
		return domain.ExternalPost{}, errors.New("missing timestamp")
	}

	summary := strings.TrimSpace(r.Summary)
	if summary == "" {
		summary = util.StripHTML(r.Caption)
	}
	if summary == "" {
		summary = util.StripHTML(r.Body)
	}

	media := r.VideoURL
	if len(r.Photos) > 0 && r.Photos[0].OriginalSize.Url != "" {
		media = r.Photos[0].OriginalSize.Url
	}

	avatar := blogAvatar
	if avatar == "" && r.BlogName != "" {
		avatar = baseURL + "/blog/" + r.BlogName + "/avatar/64"
	}

	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}

	return domain.ExternalPost{
		Id:        id,
		BlogName:  r.BlogName,
		AvatarURL: avatar,
		Summary:   summary,
		MediaURL:  media,
		PostURL:   r.PostURL,
		Type:      r.Type,
		Tags:      tags,
		Timestamp: r.Timestamp,
	}, nil
}
