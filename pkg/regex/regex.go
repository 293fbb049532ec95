package regex

import (
	"github.com/dlclark/regexp2"
	"github.com/pkg/errors"
)

type Pattern struct {
	Expression *regexp2.Regexp
}

// Compile compiles a case-insensitive pattern.
func Compile(pattern string) (*Pattern, error) {
	re, err := regexp2.Compile(pattern, regexp2.IgnoreCase)
	if err != nil {
		return nil, errors.Wrapf(err, "compile pattern %q", pattern)
	}

	return &Pattern{Expression: re}, nil
}

// CompileAll compiles every pattern, failing on the first invalid one.
func CompileAll(patterns []string) ([]*Pattern, error) {
	compiled := make([]*Pattern, 0, len(patterns))
	for _, p := range patterns {
		c, err := Compile(p)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, c)
	}

	return compiled, nil
}

func Check(s string, p *Pattern) (bool, error) {
	match, err := p.Expression.MatchString(s)
	if err != nil {
		return false, errors.Wrapf(err, "match pattern %q", p.Expression.String())
	}

	return match, nil
}

func CheckAny(s string, patterns []*Pattern) (bool, error) {
	for _, p := range patterns {
		match, err := Check(s, p)
		if err != nil {
			return false, err
		}
		if match {
			return true, nil
		}
	}

	return false, nil
}
