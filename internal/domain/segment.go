package domain

import "strings"

// Category names a SponsorBlock segment category. Unknown categories are
// allowed and resolve to PolicyOff.
type Category string

const (
	CategorySponsor       Category = "sponsor"
	CategoryIntro         Category = "intro"
	CategoryOutro         Category = "outro"
	CategorySelfPromo     Category = "selfpromo"
	CategoryInteraction   Category = "interaction"
	CategoryFiller        Category = "filler"
	CategoryMusicOfftopic Category = "music_offtopic"
	CategoryPreview       Category = "preview"
	CategoryHighlight     Category = "poi_highlight"
)

// SkippableCategories lists the categories a user can bind a skip policy to.
var SkippableCategories = []Category{
	CategoryIntro,
	CategorySelfPromo,
	CategoryInteraction,
	CategorySponsor,
	CategoryOutro,
	CategoryFiller,
	CategoryMusicOfftopic,
	CategoryPreview,
}

type ActionType string

const (
	ActionSkip    ActionType = "skip"
	ActionMute    ActionType = "mute"
	ActionFull    ActionType = "full"
	ActionPOI     ActionType = "poi"
	ActionChapter ActionType = "chapter"
)

type SkipPolicy int

const (
	PolicyOff SkipPolicy = iota
	PolicyManual
	PolicyAutomatic
	PolicyAutomaticOnce
)

func (p SkipPolicy) String() string {
	switch p {
	case PolicyManual:
		return "manual"
	case PolicyAutomatic:
		return "automatic"
	case PolicyAutomaticOnce:
		return "automatic_once"
	default:
		return "off"
	}
}

// ParseSkipPolicy maps a preference value to a policy. Anything it does not
// recognise is PolicyOff.
func ParseSkipPolicy(s string) SkipPolicy {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "manual":
		return PolicyManual
	case "automatic":
		return PolicyAutomatic
	case "automatic_once", "automaticonce":
		return PolicyAutomaticOnce
	default:
		return PolicyOff
	}
}

type Segment struct {
	UUID          string
	Category      Category
	ActionType    ActionType
	Description   string
	Start         float64
	End           float64
	VideoDuration float64
	Votes         int
	Locked        int
	SkippedOnce   bool
}

// StartMs and EndMs truncate the interval to whole milliseconds.
func (s *Segment) StartMs() int64 { return int64(s.Start * 1000) }
func (s *Segment) EndMs() int64   { return int64(s.End * 1000) }

// Valid reports whether the interval is well formed.
func (s *Segment) Valid() bool {
	return s.Start <= s.End
}
