package mirror

import (
	"github.com/gobwas/glob"
	"github.com/pkg/errors"
)

// TagFilter matches tag names against glob patterns. An empty filter matches
// every tag.
type TagFilter struct {
	patterns []glob.Glob
}

func NewTagFilter(patterns []string) (*TagFilter, error) {
	f := &TagFilter{
		patterns: make([]glob.Glob, 0, len(patterns)),
	}

	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, errors.Wrapf(err, "compile tag pattern failed: %s", p)
		}
		f.patterns = append(f.patterns, g)
	}

	return f, nil
}

func (f *TagFilter) Match(tag string) bool {
	if len(f.patterns) == 0 {
		return true
	}
	for _, g := range f.patterns {
		if g.Match(tag) {
			return true
		}
	}
	return false
}
