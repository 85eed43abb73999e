package domain

// ByteRange is an inclusive byte range into a progressively downloadable file.
type ByteRange struct {
	Start int64
	End   int64
}

type VideoStream struct {
	URL        string
	Format     string
	Quality    string
	MimeType   string
	Codec      string
	Bitrate    int
	Width      int
	Height     int
	FPS        int
	VideoOnly  bool
	IndexRange *ByteRange
	InitRange  *ByteRange
}

type AudioStream struct {
	URL              string
	Format           string
	Quality          string
	MimeType         string
	Codec            string
	Bitrate          int
	AudioTrackID     string
	AudioTrackName   string
	AudioTrackType   string
	AudioTrackLocale string
	IndexRange       *ByteRange
	InitRange        *ByteRange
}

type Subtitle struct {
	URL           string
	MimeType      string
	LanguageCode  string
	DisplayName   string
	AutoGenerated bool
}

// Streams is the catalog of one video as returned by the extraction backend.
// Duration is in whole seconds.
type Streams struct {
	Title        string
	Duration     int64
	Livestream   bool
	HLS          string
	VideoStreams []VideoStream
	AudioStreams []AudioStream
	Subtitles    []Subtitle
	Chapters     []Chapter
}

// IsLive reports whether the catalog describes a live broadcast.
func (s *Streams) IsLive() bool {
	return s.Livestream || s.Duration <= 0
}

type StreamType string

const (
	StreamVideo    StreamType = "video"
	StreamAudio    StreamType = "audio"
	StreamSubtitle StreamType = "subtitle"
)
