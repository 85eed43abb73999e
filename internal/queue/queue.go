package queue

import "github.com/eleven-am/godash/internal/domain"

// Queue is the ordered list of upcoming videos and a cursor into it. It is
// not safe for concurrent use; Controller confines it to one goroutine.
type Queue struct {
	entries     []domain.QueueEntry
	cursor      int
	nextOrdinal int
	// tokens maps Source.Key to the continuation token. A present empty
	// token means the source is exhausted.
	tokens map[string]string
}

func New() *Queue {
	return &Queue{cursor: -1, tokens: make(map[string]string)}
}

func (q *Queue) Len() int { return len(q.entries) }

// Cursor is the index of the current entry, or -1 when the queue is empty.
func (q *Queue) Cursor() int { return q.cursor }

func (q *Queue) Current() (domain.QueueEntry, bool) {
	if q.cursor < 0 || q.cursor >= len(q.entries) {
		return domain.QueueEntry{}, false
	}
	return q.entries[q.cursor], true
}

func (q *Queue) HasNext() bool {
	return q.cursor >= 0 && q.cursor+1 < len(q.entries)
}

func (q *Queue) HasPrev() bool {
	return q.cursor > 0 && q.cursor < len(q.entries)
}

// Next advances the cursor. At the last entry it returns false and leaves
// the cursor in place.
func (q *Queue) Next() (domain.QueueEntry, bool) {
	if !q.HasNext() {
		return domain.QueueEntry{}, false
	}
	q.cursor++
	return q.entries[q.cursor], true
}

func (q *Queue) Prev() (domain.QueueEntry, bool) {
	if !q.HasPrev() {
		return domain.QueueEntry{}, false
	}
	q.cursor--
	return q.entries[q.cursor], true
}

func (q *Queue) IndexOf(videoID string) int {
	for i, e := range q.entries {
		if e.VideoID == videoID {
			return i
		}
	}
	return -1
}

// Select moves the cursor to videoID if it is queued.
func (q *Queue) Select(videoID string) bool {
	i := q.IndexOf(videoID)
	if i < 0 {
		return false
	}
	q.cursor = i
	return true
}

// UpdateCurrent replaces the current entry in place, keeping its ordinal. On
// an empty queue the entry is appended and becomes current.
func (q *Queue) UpdateCurrent(entry domain.QueueEntry) {
	if q.cursor < 0 || q.cursor >= len(q.entries) {
		entry.Ordinal = q.ordinal()
		q.entries = append(q.entries, entry)
		q.cursor = len(q.entries) - 1
		return
	}
	entry.Ordinal = q.entries[q.cursor].Ordinal
	q.entries[q.cursor] = entry
}

// Append adds videoID at the end unless it is already queued. The first
// entry of an empty queue becomes current.
func (q *Queue) Append(videoID string, src domain.Source) bool {
	if videoID == "" || q.IndexOf(videoID) >= 0 {
		return false
	}
	q.entries = append(q.entries, domain.QueueEntry{VideoID: videoID, Source: src, Ordinal: q.ordinal()})
	if q.cursor < 0 {
		q.cursor = 0
	}
	return true
}

// InsertNext places videoID directly after the cursor, moving it there if it
// is already queued.
func (q *Queue) InsertNext(videoID string, src domain.Source) {
	if videoID == "" {
		return
	}
	var entry domain.QueueEntry
	if i := q.IndexOf(videoID); i >= 0 {
		if i == q.cursor {
			return
		}
		entry = q.entries[i]
		q.removeAt(i)
	} else {
		entry = domain.QueueEntry{VideoID: videoID, Source: src, Ordinal: q.ordinal()}
	}
	if q.cursor < 0 {
		q.entries = append(q.entries, entry)
		q.cursor = 0
		return
	}
	at := q.cursor + 1
	q.entries = append(q.entries, domain.QueueEntry{})
	copy(q.entries[at+1:], q.entries[at:])
	q.entries[at] = entry
}

// Remove deletes the entry at index. Removing the current entry makes the
// following entry current, or the previous one at the end of the queue.
func (q *Queue) Remove(index int) bool {
	if index < 0 || index >= len(q.entries) {
		return false
	}
	q.removeAt(index)
	return true
}

func (q *Queue) removeAt(index int) {
	q.entries = append(q.entries[:index], q.entries[index+1:]...)
	switch {
	case len(q.entries) == 0:
		q.cursor = -1
	case index < q.cursor:
		q.cursor--
	case q.cursor >= len(q.entries):
		q.cursor = len(q.entries) - 1
	}
}

func (q *Queue) Entries() []domain.QueueEntry {
	out := make([]domain.QueueEntry, len(q.entries))
	copy(out, q.entries)
	return out
}

// Token returns the continuation token for src. known is false when src has
// never been fetched.
func (q *Queue) Token(src domain.Source) (token string, known bool) {
	token, known = q.tokens[src.Key()]
	return token, known
}

func (q *Queue) SetToken(src domain.Source, token string) {
	q.tokens[src.Key()] = token
}

func (q *Queue) Clear() {
	q.entries = nil
	q.cursor = -1
	q.nextOrdinal = 0
	q.tokens = make(map[string]string)
}

func (q *Queue) ordinal() int {
	n := q.nextOrdinal
	q.nextOrdinal++
	return n
}
