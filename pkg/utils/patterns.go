package utils

import (
	"fmt"
	"regexp"
)

// CompilePathPatterns compiles disallowed-path expressions. Blank entries are skipped;
// the first invalid one fails the whole set with ErrConfigValidation.
func CompilePathPatterns(exprs []string) ([]*regexp.Regexp, error) {
	var out []*regexp.Regexp
	for i, expr := range exprs {
		if expr == "" {
			continue
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("%w: disallowed pattern %d %q: %v", ErrConfigValidation, i+1, expr, err)
		}
		out = append(out, re)
	}
	return out, nil
}

// MatchesAny reports whether s matches at least one of res
func MatchesAny(res []*regexp.Regexp, s string) bool {
	for _, re := range res {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}
