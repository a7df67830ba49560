// Package exclude decides whether a file path is eligible for backup.
package exclude

import (
	"fmt"
	"regexp"
)

// Filter evaluates exclusion rules against absolute paths. Rules are
// regular expressions matched against the full path, in order; the first
// match excludes the file. A Filter with no rules allows everything.
type Filter struct {
	rules []*regexp.Regexp
}

// New compiles the given rules. A malformed rule fails construction so bad
// configuration surfaces at load time, not on a save.
func New(rules []string) (*Filter, error) {
	f := &Filter{rules: make([]*regexp.Regexp, 0, len(rules))}
	for _, r := range rules {
		re, err := regexp.Compile(r)
		if err != nil {
			return nil, fmt.Errorf("compile exclusion rule %q: %w", r, err)
		}
		f.rules = append(f.rules, re)
	}
	return f, nil
}

// Excluded reports whether path matches any rule.
func (f *Filter) Excluded(path string) bool {
	for _, re := range f.rules {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}
