package manifest

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/eleven-am/godash/internal/adaptation"
	"github.com/eleven-am/godash/internal/domain"
	"github.com/eleven-am/godash/internal/metrics"
)

const (
	mpdNamespace       = "urn:mpeg:dash:schema:mpd:2011"
	mpdProfile         = "urn:mpeg:dash:profile:full:2011"
	minBufferTime      = "PT1.5S"
	channelConfigURN   = "urn:mpeg:dash:23003:3:audio_channel_configuration:2011"
	stereoChannelCount = "2"
	roleSchemeURN      = "urn:mpeg:dash:role:2011"
)

type Builder struct {
	rewriter    domain.URLRewriter
	codecPrefix string
	logger      zerolog.Logger
}

// NewBuilder returns a builder that passes every stream URL through
// rewriter. A nil rewriter leaves URLs untouched.
func NewBuilder(rewriter domain.URLRewriter, codecPrefix string, logger zerolog.Logger) *Builder {
	if rewriter == nil {
		rewriter = domain.URLRewriterFunc(func(url string) string { return url })
	}
	if codecPrefix == "" {
		codecPrefix = adaptation.AllCodecs
	}
	return &Builder{rewriter: rewriter, codecPrefix: codecPrefix, logger: logger}
}

// Build returns the MPD tree for streams. Malformed streams are logged and
// left out; sparse input yields a document with fewer adaptation sets.
func (b *Builder) Build(streams *domain.Streams, supportsHDR, audioOnly bool) *Node {
	res := adaptation.Group(streams.VideoStreams, streams.AudioStreams, adaptation.Options{
		CodecPrefix: b.codecPrefix,
		SupportsHDR: supportsHDR,
	})

	for _, d := range res.Dropped {
		metrics.ObserveStreamDropped(string(d.Type), d.Reason)
		b.logger.Warn().
			Err(d.Err).
			Str("kind", string(d.Type)).
			Int("index", d.Index).
			Str("reason", d.Reason).
			Msg("dropping malformed stream")
	}

	period := Element("Period")
	if !audioOnly {
		for _, set := range res.VideoSets() {
			period.Append(b.videoSet(set))
		}
	}
	for _, set := range res.AudioSets() {
		period.Append(b.audioSet(set))
	}

	metrics.ManifestsBuilt.Inc()

	return Element("MPD",
		A("xmlns", mpdNamespace),
		A("profiles", mpdProfile),
		A("minBufferTime", minBufferTime),
		A("type", "static"),
		A("mediaPresentationDuration", fmt.Sprintf("PT%dS", streams.Duration)),
	).Append(period)
}

func (b *Builder) videoSet(set adaptation.Set) *Node {
	node := Element("AdaptationSet",
		A("mimeType", set.Key.MimeType),
		A("startWithSAP", "1"),
		A("subsegmentAlignment", "true"),
		A("scanType", "progressive"),
	)
	for _, s := range set.Videos {
		rep := Element("Representation",
			A("codecs", s.Codec),
			A("bandwidth", strconv.Itoa(s.Bitrate)),
			A("width", strconv.Itoa(s.Width)),
			A("height", strconv.Itoa(s.Height)),
			A("maxPlayoutRate", "1"),
			A("frameRate", strconv.Itoa(s.FPS)),
		)
		rep.Append(
			TextElement("BaseURL", b.rewriter.Rewrite(s.URL)),
			segmentBase(s.IndexRange, s.InitRange),
		)
		node.Append(rep)
	}
	return node
}

func (b *Builder) audioSet(set adaptation.Set) *Node {
	node := Element("AdaptationSet",
		A("mimeType", set.Key.MimeType),
		A("startWithSAP", "1"),
		A("subsegmentAlignment", "true"),
	)
	if lang := language(set); lang != "" {
		node.Attrs = append(node.Attrs, A("lang", lang))
	}
	if set.AudioTrackType != "" {
		node.Append(Element("Role",
			A("schemeIdUri", roleSchemeURN),
			A("value", role(set.AudioTrackType)),
		))
	}

	for _, s := range set.Audios {
		rep := Element("Representation",
			A("bandwidth", strconv.Itoa(s.Bitrate)),
			A("codecs", s.Codec),
			A("mimeType", s.MimeType),
		)
		rep.Append(
			Element("AudioChannelConfiguration",
				A("schemeIdUri", channelConfigURN),
				A("value", stereoChannelCount),
			),
			TextElement("BaseURL", b.rewriter.Rewrite(s.URL)),
			segmentBase(s.IndexRange, s.InitRange),
		)
		node.Append(rep)
	}
	return node
}

func segmentBase(index, init *domain.ByteRange) *Node {
	return Element("SegmentBase", A("indexRange", byteRange(index))).
		Append(Element("Initialization", A("range", byteRange(init))))
}

func byteRange(r *domain.ByteRange) string {
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// language prefers the two-letter prefix of the track id and falls back to
// the track locale.
func language(set adaptation.Set) string {
	id := set.Key.AudioTrackID
	switch {
	case len(id) >= 2:
		return id[:2]
	case id != "":
		return id
	default:
		return set.AudioTrackLocale
	}
}

func role(trackType string) string {
	switch strings.ToLower(trackType) {
	case "descriptive":
		return "description"
	case "dubbed":
		return "dub"
	case "original":
		return "main"
	default:
		return "alternate"
	}
}
