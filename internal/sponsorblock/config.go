package sponsorblock

import (
	"sort"

	"github.com/eleven-am/godash/internal/domain"
)

// Config binds skip policies to categories. Categories missing from
// Policies are off.
type Config struct {
	Policies      map[domain.Category]domain.SkipPolicy
	Notifications bool
	Highlights    bool
}

func (c Config) Policy(category domain.Category) domain.SkipPolicy {
	return c.Policies[category]
}

// Enabled reports whether any category has a policy other than off.
func (c Config) Enabled() bool {
	for _, p := range c.Policies {
		if p != domain.PolicyOff {
			return true
		}
	}
	return false
}

// Categories lists the categories to request from the segment API: known
// categories in their canonical order, then unknown ones sorted, then the
// highlight category when highlights are shown.
func (c Config) Categories() []domain.Category {
	var out []domain.Category
	seen := make(map[domain.Category]bool)
	for _, cat := range domain.SkippableCategories {
		seen[cat] = true
		if c.Policy(cat) != domain.PolicyOff {
			out = append(out, cat)
		}
	}

	var extra []domain.Category
	for cat, p := range c.Policies {
		if !seen[cat] && cat != domain.CategoryHighlight && p != domain.PolicyOff {
			extra = append(extra, cat)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	out = append(out, extra...)

	if c.Highlights {
		out = append(out, domain.CategoryHighlight)
	}
	return out
}
