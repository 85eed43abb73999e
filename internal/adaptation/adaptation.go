package adaptation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/eleven-am/godash/internal/domain"
)

// AllCodecs disables the video codec prefix filter.
const AllCodecs = "all"

var ErrMalformedStream = errors.New("malformed stream")

// Key is the grouping identity of an adaptation set. Video sets key on the
// mime type alone; AudioTrackID is always empty for them.
type Key struct {
	MimeType     string
	AudioTrackID string
}

// Set is one adaptation-set bucket. Exactly one of Videos or Audios is
// populated, according to Type.
type Set struct {
	Key    Key
	Type   domain.StreamType
	Videos []domain.VideoStream
	Audios []domain.AudioStream

	// Taken from the first audio stream of the set.
	AudioTrackType   string
	AudioTrackLocale string
}

type Options struct {
	CodecPrefix string
	SupportsHDR bool
}

// Dropped records a stream that survived filtering but could not be used.
type Dropped struct {
	Type   domain.StreamType
	Index  int
	Reason string
	Err    error
}

type Result struct {
	Sets    []Set
	Dropped []Dropped
}

func (r Result) VideoSets() []Set { return r.byType(domain.StreamVideo) }
func (r Result) AudioSets() []Set { return r.byType(domain.StreamAudio) }

func (r Result) byType(t domain.StreamType) []Set {
	var out []Set
	for _, s := range r.Sets {
		if s.Type == t {
			out = append(out, s)
		}
	}
	return out
}

// eligible reports whether a video stream can appear in a static manifest.
func eligible(s domain.VideoStream, opts Options) bool {
	// HLS variants are delivered through a separate path.
	if strings.Contains(s.Format, "HLS") {
		return false
	}
	prefix := strings.ToLower(opts.CodecPrefix)
	if prefix != "" && prefix != AllCodecs && !strings.HasPrefix(strings.ToLower(s.Codec), prefix) {
		return false
	}
	if !opts.SupportsHDR && strings.Contains(strings.ToUpper(s.Quality), "HDR") {
		return false
	}
	// Muxed and on-the-fly streams cannot be described by SegmentBase.
	if !s.VideoOnly {
		return false
	}
	return s.IndexRange != nil && s.IndexRange.End > 0
}

// Group partitions the streams into adaptation sets. Sets appear in
// first-seen order, video sets before audio sets.
func Group(videos []domain.VideoStream, audios []domain.AudioStream, opts Options) Result {
	var res Result

	videoSets := make(map[Key]int)
	for i, s := range videos {
		if !eligible(s, opts) {
			continue
		}
		if reason, err := validateVideo(s); err != nil {
			res.Dropped = append(res.Dropped, Dropped{Type: domain.StreamVideo, Index: i, Reason: reason, Err: err})
			continue
		}
		key := Key{MimeType: s.MimeType}
		if idx, ok := videoSets[key]; ok {
			res.Sets[idx].Videos = append(res.Sets[idx].Videos, s)
			continue
		}
		videoSets[key] = len(res.Sets)
		res.Sets = append(res.Sets, Set{
			Key:    key,
			Type:   domain.StreamVideo,
			Videos: []domain.VideoStream{s},
		})
	}

	audioSets := make(map[Key]int)
	for i, s := range audios {
		if reason, err := validateAudio(s); err != nil {
			res.Dropped = append(res.Dropped, Dropped{Type: domain.StreamAudio, Index: i, Reason: reason, Err: err})
			continue
		}
		key := Key{MimeType: s.MimeType, AudioTrackID: s.AudioTrackID}
		if idx, ok := audioSets[key]; ok {
			res.Sets[idx].Audios = append(res.Sets[idx].Audios, s)
			continue
		}
		audioSets[key] = len(res.Sets)
		res.Sets = append(res.Sets, Set{
			Key:              key,
			Type:             domain.StreamAudio,
			Audios:           []domain.AudioStream{s},
			AudioTrackType:   s.AudioTrackType,
			AudioTrackLocale: s.AudioTrackLocale,
		})
	}

	return res
}

func validateVideo(s domain.VideoStream) (string, error) {
	return validate(s.URL, s.MimeType, s.Codec, s.InitRange)
}

func validateAudio(s domain.AudioStream) (string, error) {
	if s.IndexRange == nil {
		return "missing_index_range", fmt.Errorf("%w: missing index range", ErrMalformedStream)
	}
	return validate(s.URL, s.MimeType, s.Codec, s.InitRange)
}

func validate(url, mimeType, codec string, initRange *domain.ByteRange) (string, error) {
	switch {
	case url == "":
		return "missing_url", fmt.Errorf("%w: missing url", ErrMalformedStream)
	case mimeType == "":
		return "missing_mime_type", fmt.Errorf("%w: missing mime type", ErrMalformedStream)
	case codec == "":
		return "missing_codec", fmt.Errorf("%w: missing codec", ErrMalformedStream)
	case initRange == nil:
		return "missing_init_range", fmt.Errorf("%w: missing init range", ErrMalformedStream)
	}
	return "", nil
}
