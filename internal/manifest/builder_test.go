package manifest

import (
	"encoding/base64"
	"encoding/xml"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"github.com/eleven-am/godash/internal/domain"
)

type prefixRewriter struct{ prefix string }

func (p prefixRewriter) Rewrite(url string) string { return p.prefix + url }

func sampleStreams() *domain.Streams {
	return &domain.Streams{
		Duration: 120,
		VideoStreams: []domain.VideoStream{{
			URL:        "https://a/v",
			MimeType:   "video/mp4",
			Codec:      "avc1",
			Quality:    "720p",
			Format:     "MPEG_4",
			Bitrate:    500000,
			Width:      1280,
			Height:     720,
			FPS:        30,
			VideoOnly:  true,
			IndexRange: &domain.ByteRange{Start: 0, End: 999},
			InitRange:  &domain.ByteRange{Start: 0, End: 99},
		}},
		AudioStreams: []domain.AudioStream{{
			URL:        "https://a/a",
			MimeType:   "audio/mp4",
			Codec:      "mp4a.40.2",
			Bitrate:    128000,
			IndexRange: &domain.ByteRange{Start: 0, End: 199},
			InitRange:  &domain.ByteRange{Start: 0, End: 19},
		}},
	}
}

func attr(t *testing.T, n *Node, name string) string {
	t.Helper()
	v, ok := n.Attr(name)
	if !ok {
		t.Fatalf("%s has no %s attribute: %+v", n.Name, name, n.Attrs)
	}
	return v
}

func TestBuilder_RoundTripShape(t *testing.T) {
	doc := NewBuilder(nil, "", zerolog.Nop()).Build(sampleStreams(), false, false)

	if doc.Name != "MPD" {
		t.Fatalf("root = %s, want MPD", doc.Name)
	}
	if got := attr(t, doc, "mediaPresentationDuration"); got != "PT120S" {
		t.Fatalf("mediaPresentationDuration = %q", got)
	}
	if got := attr(t, doc, "minBufferTime"); got != "PT1.5S" {
		t.Fatalf("minBufferTime = %q", got)
	}
	if got := attr(t, doc, "type"); got != "static" {
		t.Fatalf("type = %q", got)
	}

	periods := doc.FindAll("Period")
	if len(periods) != 1 {
		t.Fatalf("expected exactly one period, got %d", len(periods))
	}

	sets := doc.FindAll("AdaptationSet")
	if len(sets) != 2 {
		t.Fatalf("expected 2 adaptation sets, got %d", len(sets))
	}

	videoSet := sets[0]
	if got := attr(t, videoSet, "scanType"); got != "progressive" {
		t.Fatalf("video scanType = %q", got)
	}
	rep := videoSet.Child("Representation")
	if rep == nil {
		t.Fatalf("video set has no representation")
	}
	if got := attr(t, rep, "bandwidth"); got != "500000" {
		t.Fatalf("video bandwidth = %q", got)
	}

	audioSet := sets[1]
	if _, ok := audioSet.Attr("scanType"); ok {
		t.Fatalf("audio set must not carry scanType")
	}
	if _, ok := audioSet.Attr("lang"); ok {
		t.Fatalf("audio set without a track id or locale must not carry lang")
	}
}

func TestBuilder_RepresentationLayout(t *testing.T) {
	doc := NewBuilder(prefixRewriter{prefix: "proxied:"}, "all", zerolog.Nop()).Build(sampleStreams(), false, false)
	sets := doc.FindAll("AdaptationSet")

	want := &Node{
		Name: "Representation",
		Attrs: []Attr{
			A("codecs", "avc1"),
			A("bandwidth", "500000"),
			A("width", "1280"),
			A("height", "720"),
			A("maxPlayoutRate", "1"),
			A("frameRate", "30"),
		},
		Children: []*Node{
			{Name: "BaseURL", Text: "proxied:https://a/v"},
			{
				Name:  "SegmentBase",
				Attrs: []Attr{A("indexRange", "0-999")},
				Children: []*Node{
					{Name: "Initialization", Attrs: []Attr{A("range", "0-99")}},
				},
			},
		},
	}
	if diff := cmp.Diff(want, sets[0].Child("Representation")); diff != "" {
		t.Fatalf("video representation mismatch (-want +got):\n%s", diff)
	}

	wantAudio := &Node{
		Name: "Representation",
		Attrs: []Attr{
			A("bandwidth", "128000"),
			A("codecs", "mp4a.40.2"),
			A("mimeType", "audio/mp4"),
		},
		Children: []*Node{
			{
				Name: "AudioChannelConfiguration",
				Attrs: []Attr{
					A("schemeIdUri", "urn:mpeg:dash:23003:3:audio_channel_configuration:2011"),
					A("value", "2"),
				},
			},
			{Name: "BaseURL", Text: "proxied:https://a/a"},
			{
				Name:  "SegmentBase",
				Attrs: []Attr{A("indexRange", "0-199")},
				Children: []*Node{
					{Name: "Initialization", Attrs: []Attr{A("range", "0-19")}},
				},
			},
		},
	}
	if diff := cmp.Diff(wantAudio, sets[1].Child("Representation")); diff != "" {
		t.Fatalf("audio representation mismatch (-want +got):\n%s", diff)
	}
}

func TestBuilder_AudioOnlySkipsVideoSets(t *testing.T) {
	doc := NewBuilder(nil, "", zerolog.Nop()).Build(sampleStreams(), false, true)

	sets := doc.FindAll("AdaptationSet")
	if len(sets) != 1 || attr(t, sets[0], "mimeType") != "audio/mp4" {
		t.Fatalf("audio-only manifest should carry only the audio set: %+v", sets)
	}
}

func TestBuilder_SparseInputIsLegal(t *testing.T) {
	streams := sampleStreams()
	streams.AudioStreams = nil
	doc := NewBuilder(nil, "", zerolog.Nop()).Build(streams, false, false)
	if got := len(doc.FindAll("AdaptationSet")); got != 1 {
		t.Fatalf("silent video should produce one set, got %d", got)
	}

	empty := &domain.Streams{Duration: 5}
	doc = NewBuilder(nil, "", zerolog.Nop()).Build(empty, false, false)
	if doc.Child("Period") == nil || len(doc.FindAll("AdaptationSet")) != 0 {
		t.Fatalf("empty catalog should yield an empty period: %+v", doc)
	}
}

func TestBuilder_AudioLanguageAndRole(t *testing.T) {
	streams := &domain.Streams{Duration: 60}
	base := sampleStreams().AudioStreams[0]

	dubbed := base
	dubbed.AudioTrackID = "de-DE.3"
	dubbed.AudioTrackType = "DUBBED"

	original := base
	original.AudioTrackID = "en.4"
	original.AudioTrackType = "ORIGINAL"

	described := base
	described.AudioTrackID = "en.5"
	described.AudioTrackType = "DESCRIPTIVE"

	localeOnly := base
	localeOnly.MimeType = "audio/webm"
	localeOnly.Codec = "opus"
	localeOnly.AudioTrackLocale = "fr"
	localeOnly.AudioTrackType = "SECONDARY"

	streams.AudioStreams = []domain.AudioStream{dubbed, original, described, localeOnly}
	sets := NewBuilder(nil, "", zerolog.Nop()).Build(streams, false, false).FindAll("AdaptationSet")
	if len(sets) != 4 {
		t.Fatalf("expected four audio sets, got %d", len(sets))
	}

	tests := []struct {
		lang string
		role string
	}{
		{lang: "de", role: "dub"},
		{lang: "en", role: "main"},
		{lang: "en", role: "description"},
		{lang: "fr", role: "alternate"},
	}
	for i, tt := range tests {
		if got := attr(t, sets[i], "lang"); got != tt.lang {
			t.Fatalf("set %d lang = %q, want %q", i, got, tt.lang)
		}
		r := sets[i].Child("Role")
		if r == nil {
			t.Fatalf("set %d has no Role", i)
		}
		if got := attr(t, r, "value"); got != tt.role {
			t.Fatalf("set %d role = %q, want %q", i, got, tt.role)
		}
	}
}

func TestBuilder_DropsMalformedStream(t *testing.T) {
	streams := sampleStreams()
	broken := streams.VideoStreams[0]
	broken.Codec = ""
	broken.MimeType = "video/webm"
	streams.VideoStreams = append(streams.VideoStreams, broken)

	sets := NewBuilder(nil, "", zerolog.Nop()).Build(streams, false, false).FindAll("AdaptationSet")
	if len(sets) != 2 {
		t.Fatalf("malformed stream should be dropped without affecting others, got %d sets", len(sets))
	}
}

type decodedMPD struct {
	XMLName  xml.Name `xml:"MPD"`
	Duration string   `xml:"mediaPresentationDuration,attr"`
	Sets     []struct {
		MimeType string `xml:"mimeType,attr"`
		Reps     []struct {
			Bandwidth string `xml:"bandwidth,attr"`
			BaseURL   string `xml:"BaseURL"`
		} `xml:"Representation"`
	} `xml:"Period>AdaptationSet"`
}

func TestRender_ProducesWellFormedXML(t *testing.T) {
	streams := sampleStreams()
	streams.VideoStreams[0].URL = "https://a/v?itag=1&range=0-1"

	out, err := RenderBytes(NewBuilder(nil, "", zerolog.Nop()).Build(streams, false, false))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.HasPrefix(string(out), "<?xml") {
		t.Fatalf("missing xml prolog: %s", out)
	}
	if !strings.Contains(string(out), `xmlns="urn:mpeg:dash:schema:mpd:2011"`) {
		t.Fatalf("missing namespace: %s", out)
	}

	var mpd decodedMPD
	if err := xml.Unmarshal(out, &mpd); err != nil {
		t.Fatalf("rendered manifest is not well formed: %v\n%s", err, out)
	}
	if mpd.Duration != "PT120S" || len(mpd.Sets) != 2 {
		t.Fatalf("decoded manifest mismatch: %+v", mpd)
	}
	if got := mpd.Sets[0].Reps[0].BaseURL; got != "https://a/v?itag=1&range=0-1" {
		t.Fatalf("BaseURL did not survive escaping: %q", got)
	}
}

func TestDataURI(t *testing.T) {
	doc := []byte("<MPD/>")
	uri := DataURI(doc)

	const prefix = "data:application/dash+xml;charset=utf-8;base64,"
	if !strings.HasPrefix(uri, prefix) {
		t.Fatalf("unexpected prefix: %s", uri)
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, prefix))
	if err != nil || string(decoded) != "<MPD/>" {
		t.Fatalf("payload did not round trip: %q, %v", decoded, err)
	}
}
