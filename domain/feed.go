package domain

import "time"

type Provenance string

const (
	ProvenanceLocal    Provenance = "local"
	ProvenanceExternal Provenance = "external"
)

// FeedItem is one entry of a composed feed. Exactly one of Local and External
// is set, matching Provenance.
type FeedItem struct {
	Provenance Provenance    `json:"provenance"`
	CreatedAt  time.Time     `json:"createdAt"`
	Local      *Post         `json:"local,omitempty"`
	External   *ExternalPost `json:"external,omitempty"`
}

func LocalItem(p Post) FeedItem {
	return FeedItem{Provenance: ProvenanceLocal, CreatedAt: p.CreatedAt.UTC(), Local: &p}
}

func ExternalItem(e ExternalPost) FeedItem {
	return FeedItem{Provenance: ProvenanceExternal, CreatedAt: e.CreatedAt(), External: &e}
}

func (i FeedItem) IsExternal() bool {
	return i.Provenance == ProvenanceExternal
}

// Id is the local post id or the third-party post id.
func (i FeedItem) Id() string {
	if i.External != nil {
		return i.External.Id
	}
	if i.Local != nil {
		return i.Local.Id.String()
	}
	return ""
}

func (i FeedItem) AuthorName() string {
	if i.External != nil {
		return i.External.BlogName
	}
	if i.Local != nil {
		return i.Local.Author.Name
	}
	return ""
}

func (i FeedItem) Body() string {
	if i.External != nil {
		return i.External.Summary
	}
	if i.Local != nil {
		return i.Local.Content
	}
	return ""
}
