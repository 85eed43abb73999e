package domain

type SourceKind int

const (
	SourceSingle SourceKind = iota
	SourcePlaylist
	SourceChannel
)

func (k SourceKind) String() string {
	switch k {
	case SourcePlaylist:
		return "playlist"
	case SourceChannel:
		return "channel"
	default:
		return "single"
	}
}

// Source identifies where a queue entry came from. ID is the playlist or
// channel id and is empty for SourceSingle.
type Source struct {
	Kind SourceKind
	ID   string
}

func (s Source) Key() string {
	if s.Kind == SourceSingle {
		return s.Kind.String()
	}
	return s.Kind.String() + ":" + s.ID
}

type QueueEntry struct {
	VideoID string
	Source  Source
	Ordinal int
}

// Page is one page of a paginated playlist or channel feed. An empty
// NextPageToken means the feed is exhausted.
type Page struct {
	VideoIDs      []string
	NextPageToken string
}
