package sponsorblock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/eleven-am/godash/internal/domain"
)

type recordingNotifier struct {
	keys []string
	err  error
	boom bool
}

func (n *recordingNotifier) Notify(ctx context.Context, key string) error {
	n.keys = append(n.keys, key)
	if n.boom {
		panic("ui detached")
	}
	return n.err
}

func policies(p map[domain.Category]domain.SkipPolicy) Config {
	return Config{Policies: p}
}

func seg(cat domain.Category, start, end float64) domain.Segment {
	return domain.Segment{Category: cat, ActionType: domain.ActionSkip, Start: start, End: end}
}

const durationMs = 600_000

func TestEvaluate_AutomaticOnceIsIdempotent(t *testing.T) {
	s := NewSkipper(policies(map[domain.Category]domain.SkipPolicy{
		domain.CategoryIntro: domain.PolicyAutomaticOnce,
	}), []domain.Segment{seg(domain.CategoryIntro, 10, 20)}, nil, zerolog.Nop())

	first := s.Evaluate(context.Background(), 12_000, durationMs)
	if first.Kind != DecisionAutoSkip || first.SeekToMs != 20_000 {
		t.Fatalf("first evaluation = %+v, want auto skip to 20000", first)
	}
	if !s.Segments()[0].SkippedOnce {
		t.Fatalf("segment should be marked skipped")
	}

	second := s.Evaluate(context.Background(), 12_000, durationMs)
	if second.Kind != DecisionOffer {
		t.Fatalf("second evaluation = %v, want offer", second.Kind)
	}
	third := s.Evaluate(context.Background(), 15_000, durationMs)
	if third.Kind == DecisionAutoSkip {
		t.Fatalf("AutomaticOnce must never auto skip twice")
	}
}

func TestEvaluate_AutomaticAlwaysSkips(t *testing.T) {
	s := NewSkipper(policies(map[domain.Category]domain.SkipPolicy{
		domain.CategorySponsor: domain.PolicyAutomatic,
	}), []domain.Segment{seg(domain.CategorySponsor, 30, 45.5)}, nil, zerolog.Nop())

	for i := 0; i < 3; i++ {
		d := s.Evaluate(context.Background(), 31_000, durationMs)
		if d.Kind != DecisionAutoSkip || d.SeekToMs != 45_500 {
			t.Fatalf("evaluation %d = %+v, want auto skip to 45500", i, d)
		}
	}
}

func TestEvaluate_ManualOffers(t *testing.T) {
	n := &recordingNotifier{}
	cfg := policies(map[domain.Category]domain.SkipPolicy{domain.CategoryOutro: domain.PolicyManual})
	cfg.Notifications = true
	s := NewSkipper(cfg, []domain.Segment{seg(domain.CategoryOutro, 100, 120)}, n, zerolog.Nop())

	d := s.Evaluate(context.Background(), 110_000, durationMs)
	if d.Kind != DecisionOffer || d.Segment.Category != domain.CategoryOutro || d.Index != 0 {
		t.Fatalf("manual policy should offer the segment: %+v", d)
	}
	if s.Segments()[0].SkippedOnce {
		t.Fatalf("offering must not mark the segment skipped")
	}
	if len(n.keys) != 0 {
		t.Fatalf("offers must not notify: %v", n.keys)
	}
}

func TestEvaluate_HalfOpenInterval(t *testing.T) {
	s := NewSkipper(policies(map[domain.Category]domain.SkipPolicy{
		domain.CategorySponsor: domain.PolicyManual,
	}), []domain.Segment{seg(domain.CategorySponsor, 10, 20)}, nil, zerolog.Nop())

	tests := []struct {
		positionMs int64
		want       DecisionKind
	}{
		{9_999, DecisionNone},
		{10_000, DecisionOffer},
		{19_999, DecisionOffer},
		{20_000, DecisionNone},
	}
	for _, tt := range tests {
		if got := s.Evaluate(context.Background(), tt.positionMs, durationMs).Kind; got != tt.want {
			t.Fatalf("Evaluate(%d) = %v, want %v", tt.positionMs, got, tt.want)
		}
	}
}

func TestEvaluate_EndOfVideoGuard(t *testing.T) {
	s := NewSkipper(policies(map[domain.Category]domain.SkipPolicy{
		domain.CategoryOutro: domain.PolicyAutomatic,
	}), []domain.Segment{seg(domain.CategoryOutro, 590, 600)}, nil, zerolog.Nop())

	if d := s.Evaluate(context.Background(), durationMs-100, durationMs); d.Kind != DecisionNone {
		t.Fatalf("positions within 500ms of the end must not match: %+v", d)
	}
	if d := s.Evaluate(context.Background(), durationMs-499, durationMs); d.Kind != DecisionNone {
		t.Fatalf("positions within 500ms of the end must not match: %+v", d)
	}
	if d := s.Evaluate(context.Background(), durationMs-500, durationMs); d.Kind != DecisionAutoSkip {
		t.Fatalf("guard is strict at 500ms: %+v", d)
	}
}

func TestEvaluate_HighlightNeverSkipped(t *testing.T) {
	s := NewSkipper(policies(map[domain.Category]domain.SkipPolicy{
		domain.CategoryHighlight: domain.PolicyAutomatic,
	}), []domain.Segment{seg(domain.CategoryHighlight, 10, 30)}, nil, zerolog.Nop())

	if d := s.Evaluate(context.Background(), 15_000, durationMs); d.Kind != DecisionNone {
		t.Fatalf("highlight segments are never evaluated: %+v", d)
	}
	if s.WithinAnySegment(15_000) {
		t.Fatalf("highlight segments do not count as skippable")
	}
}

func TestEvaluate_InvalidIntervalNeverMatches(t *testing.T) {
	s := NewSkipper(policies(map[domain.Category]domain.SkipPolicy{
		domain.CategorySponsor: domain.PolicyAutomatic,
	}), []domain.Segment{seg(domain.CategorySponsor, 40, 20)}, nil, zerolog.Nop())

	for _, pos := range []int64{20_000, 30_000, 40_000} {
		if d := s.Evaluate(context.Background(), pos, durationMs); d.Kind != DecisionNone {
			t.Fatalf("inverted interval matched at %d: %+v", pos, d)
		}
		if s.WithinAnySegment(pos) {
			t.Fatalf("inverted interval reported as containing %d", pos)
		}
	}
}

func TestEvaluate_OffStopsAtFirstMatch(t *testing.T) {
	s := NewSkipper(policies(map[domain.Category]domain.SkipPolicy{
		domain.CategorySponsor: domain.PolicyAutomatic,
	}), []domain.Segment{
		seg(domain.Category("exclusive_access"), 10, 30),
		seg(domain.CategorySponsor, 15, 25),
	}, nil, zerolog.Nop())

	if d := s.Evaluate(context.Background(), 20_000, durationMs); d.Kind != DecisionNone {
		t.Fatalf("an off category that matches first must end evaluation: %+v", d)
	}
	if d := s.Evaluate(context.Background(), 12_000, durationMs); d.Kind != DecisionNone {
		t.Fatalf("unknown category defaults to off: %+v", d)
	}
}

func TestEvaluate_NotifierFailuresAreSwallowed(t *testing.T) {
	tests := []struct {
		name     string
		notifier *recordingNotifier
	}{
		{name: "error", notifier: &recordingNotifier{err: errors.New("no ui")}},
		{name: "panic", notifier: &recordingNotifier{boom: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := policies(map[domain.Category]domain.SkipPolicy{domain.CategorySponsor: domain.PolicyAutomatic})
			cfg.Notifications = true
			s := NewSkipper(cfg, []domain.Segment{seg(domain.CategorySponsor, 0, 5)}, tt.notifier, zerolog.Nop())

			d := s.Evaluate(context.Background(), 1_000, durationMs)
			if d.Kind != DecisionAutoSkip || d.SeekToMs != 5_000 {
				t.Fatalf("notifier failure changed the decision: %+v", d)
			}
			if len(tt.notifier.keys) != 1 || tt.notifier.keys[0] != SkippedMessageKey {
				t.Fatalf("expected one notification, got %v", tt.notifier.keys)
			}
		})
	}
}

type blockingNotifier struct {
	err error
}

func (n *blockingNotifier) Notify(ctx context.Context, key string) error {
	<-ctx.Done()
	n.err = ctx.Err()
	return n.err
}

func TestEvaluate_BlockingNotifierIsBounded(t *testing.T) {
	cfg := policies(map[domain.Category]domain.SkipPolicy{domain.CategorySponsor: domain.PolicyAutomatic})
	cfg.Notifications = true
	n := &blockingNotifier{}
	s := NewSkipper(cfg, []domain.Segment{seg(domain.CategorySponsor, 0, 5)}, n, zerolog.Nop())

	start := time.Now()
	d := s.Evaluate(context.Background(), 1_000, durationMs)
	elapsed := time.Since(start)

	if d.Kind != DecisionAutoSkip || d.SeekToMs != 5_000 {
		t.Fatalf("blocking notifier changed the decision: %+v", d)
	}
	if !errors.Is(n.err, context.DeadlineExceeded) {
		t.Fatalf("notifier context err = %v, want deadline exceeded", n.err)
	}
	if elapsed > 5*notifyTimeout {
		t.Fatalf("evaluate took %v with a blocking notifier", elapsed)
	}
}

func TestEvaluate_NotificationsDisabled(t *testing.T) {
	n := &recordingNotifier{}
	s := NewSkipper(policies(map[domain.Category]domain.SkipPolicy{
		domain.CategorySponsor: domain.PolicyAutomatic,
	}), []domain.Segment{seg(domain.CategorySponsor, 0, 5)}, n, zerolog.Nop())

	s.Evaluate(context.Background(), 1_000, durationMs)
	if len(n.keys) != 0 {
		t.Fatalf("notifications are off: %v", n.keys)
	}
}

func TestWithinAnySegment_InclusiveEnd(t *testing.T) {
	s := NewSkipper(Config{}, []domain.Segment{seg(domain.CategorySponsor, 10, 20)}, nil, zerolog.Nop())

	if !s.WithinAnySegment(10_000) || !s.WithinAnySegment(20_000) {
		t.Fatalf("both bounds are inside")
	}
	if s.WithinAnySegment(20_001) || s.WithinAnySegment(9_999) {
		t.Fatalf("positions outside the bounds are not inside")
	}
}

func TestAccept(t *testing.T) {
	s := NewSkipper(policies(map[domain.Category]domain.SkipPolicy{
		domain.CategoryIntro: domain.PolicyAutomaticOnce,
	}), []domain.Segment{
		seg(domain.CategoryIntro, 0, 8),
		seg(domain.CategoryHighlight, 30, 30),
	}, nil, zerolog.Nop())

	seek, ok := s.Accept(0)
	if !ok || seek != 8_000 {
		t.Fatalf("Accept(0) = %d, %v", seek, ok)
	}
	if d := s.Evaluate(context.Background(), 2_000, durationMs); d.Kind != DecisionOffer {
		t.Fatalf("manual skip should consume the automatic-once skip: %+v", d)
	}
	if _, ok := s.Accept(1); ok {
		t.Fatalf("highlights cannot be accepted")
	}
	if _, ok := s.Accept(5); ok {
		t.Fatalf("out of range index accepted")
	}
}

func TestHighlight(t *testing.T) {
	segments := []domain.Segment{seg(domain.CategorySponsor, 0, 5), seg(domain.CategoryHighlight, 42, 42)}

	s := NewSkipper(Config{Highlights: true}, segments, nil, zerolog.Nop())
	h, ok := s.Highlight()
	if !ok || h.Start != 42 {
		t.Fatalf("Highlight() = %+v, %v", h, ok)
	}

	s = NewSkipper(Config{}, segments, nil, zerolog.Nop())
	if _, ok := s.Highlight(); ok {
		t.Fatalf("highlights disabled")
	}
}

func TestNewSkipper_CopiesSegments(t *testing.T) {
	segments := []domain.Segment{seg(domain.CategorySponsor, 0, 5)}
	s := NewSkipper(policies(map[domain.Category]domain.SkipPolicy{
		domain.CategorySponsor: domain.PolicyAutomaticOnce,
	}), segments, nil, zerolog.Nop())

	s.Evaluate(context.Background(), 1_000, durationMs)
	if segments[0].SkippedOnce {
		t.Fatalf("caller's slice must not be mutated")
	}
}
