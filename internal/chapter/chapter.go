package chapter

import (
	"sort"
	"time"

	"github.com/eleven-am/godash/internal/domain"
)

// MaxHighlightDuration is how long a highlight chapter stays current after
// its start.
const MaxHighlightDuration = 10 * time.Second

const HighlightTitle = "Video highlight"

// Index returns the index of the chapter playing at positionMs. chapters must
// be sorted by Start. An expired highlight yields the last qualifying regular
// chapter instead.
func Index(positionMs int64, chapters []domain.Chapter) (int, bool) {
	seconds := positionMs / 1000

	last := -1
	for i, c := range chapters {
		if c.Start <= seconds {
			last = i
		}
	}
	if last < 0 {
		return 0, false
	}
	if !chapters[last].Highlight || !expired(chapters[last], positionMs) {
		return last, true
	}

	for i := last - 1; i >= 0; i-- {
		if !chapters[i].Highlight || !expired(chapters[i], positionMs) {
			return i, true
		}
	}
	return 0, false
}

func expired(c domain.Chapter, positionMs int64) bool {
	return positionMs > c.Start*1000+MaxHighlightDuration.Milliseconds()
}

// Current is Index returning the chapter itself.
func Current(positionMs int64, chapters []domain.Chapter) (domain.Chapter, bool) {
	i, ok := Index(positionMs, chapters)
	if !ok {
		return domain.Chapter{}, false
	}
	return chapters[i], true
}

// WithHighlight returns a sorted copy of chapters with a chapter synthesized
// from the first highlight segment. Without one the copy is only sorted.
func WithHighlight(chapters []domain.Chapter, segments []domain.Segment, image []byte) []domain.Chapter {
	out := make([]domain.Chapter, len(chapters), len(chapters)+1)
	copy(out, chapters)

	for _, s := range segments {
		if s.Category != domain.CategoryHighlight || !s.Valid() {
			continue
		}
		title := s.Description
		if title == "" {
			title = HighlightTitle
		}
		out = append(out, domain.Chapter{
			Title:     title,
			Start:     int64(s.Start),
			Image:     image,
			Highlight: true,
		})
		break
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}
