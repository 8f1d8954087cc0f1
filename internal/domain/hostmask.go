package domain

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// AdminList holds the wildcard hostmask patterns that authorize admin-only
// commands. Matching is case-insensitive and any matching pattern authorizes.
type AdminList struct {
	patterns []glob.Glob
	raw      []string
}

// NewAdminList compiles the configured mask patterns. Pattern syntax is the
// usual hostmask wildcard form, e.g. "*!*@snoonet/staff/*".
func NewAdminList(masks []string) (AdminList, error) {
	list := AdminList{
		patterns: make([]glob.Glob, 0, len(masks)),
		raw:      make([]string, 0, len(masks)),
	}
	for _, mask := range masks {
		pattern, err := glob.Compile(strings.ToLower(mask))
		if err != nil {
			return AdminList{}, fmt.Errorf("compile admin mask %q: %w", mask, err)
		}
		list.patterns = append(list.patterns, pattern)
		list.raw = append(list.raw, mask)
	}
	return list, nil
}

// Match reports whether the sender mask ("nick!user@host") is authorized.
func (l AdminList) Match(mask string) bool {
	lowered := strings.ToLower(mask)
	for _, pattern := range l.patterns {
		if pattern.Match(lowered) {
			return true
		}
	}
	return false
}

// Masks returns the configured patterns as given.
func (l AdminList) Masks() []string {
	return append([]string(nil), l.raw...)
}
