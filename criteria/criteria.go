package criteria

import (
	"sort"
	"strings"
)

// Criteria is a declarative eligibility rule set.
//
// Version bounds are keyed by operating system name. A nil or empty field
// declares no constraint.
type Criteria struct {
	AllOfGroups    []string       `json:"allOfGroups,omitempty" yaml:"allOfGroups,omitempty" dynamodbav:"allOfGroups,omitempty"`
	NoneOfGroups   []string       `json:"noneOfGroups,omitempty" yaml:"noneOfGroups,omitempty" dynamodbav:"noneOfGroups,omitempty"`
	MinAppVersions map[string]int `json:"minAppVersions,omitempty" yaml:"minAppVersions,omitempty" dynamodbav:"minAppVersions,omitempty" validate:"omitempty,dive,gte=0"`
	MaxAppVersions map[string]int `json:"maxAppVersions,omitempty" yaml:"maxAppVersions,omitempty" dynamodbav:"maxAppVersions,omitempty" validate:"omitempty,dive,gte=0"`
	Language       string         `json:"language,omitempty" yaml:"language,omitempty" dynamodbav:"language,omitempty"`
}

// Context is what a request knows about the user and the calling app.
type Context struct {
	Languages  []string
	AppVersion *int
	OSName     string
	DataGroups []string
	HealthCode string
	UserID     string
}

// Version returns a pointer to v for Context.AppVersion literals.
func Version(v int) *int {
	return &v
}

// Candidate is anything carrying an identifier and a rule set.
type Candidate interface {
	RuleID() string
	RuleCriteria() Criteria
}

// Matches reports whether ctx satisfies c.
//
// Version bounds only apply when both the app version and the OS name are
// known. Group rules apply when DataGroups is non-nil; an empty non-nil
// slice satisfies no all-of requirement. The language rule is a case-insensitive membership
// test, not a negotiation over the user's preferences.
func Matches(ctx Context, c Criteria) bool {
	if ctx.AppVersion != nil && ctx.OSName != "" {
		version := *ctx.AppVersion
		if lo, ok := c.MinAppVersions[ctx.OSName]; ok && version < lo {
			return false
		}
		if hi, ok := c.MaxAppVersions[ctx.OSName]; ok && version > hi {
			return false
		}
	}

	if ctx.DataGroups != nil {
		groups := toSet(ctx.DataGroups)
		for _, g := range c.AllOfGroups {
			if _, ok := groups[g]; !ok {
				return false
			}
		}
		for _, g := range c.NoneOfGroups {
			if _, ok := groups[g]; ok {
				return false
			}
		}
	}

	if c.Language != "" && !containsFold(ctx.Languages, c.Language) {
		return false
	}
	return true
}

// Specificity counts the constraints c declares: every group, every version
// bound, and the language.
func Specificity(c Criteria) int {
	n := len(c.AllOfGroups) + len(c.NoneOfGroups) + len(c.MinAppVersions) + len(c.MaxAppVersions)
	if c.Language != "" {
		n++
	}
	return n
}

// SortBySpecificity orders items most specific first, ties by RuleID.
func SortBySpecificity[T Candidate](items []T) {
	sort.SliceStable(items, func(i, j int) bool {
		si, sj := Specificity(items[i].RuleCriteria()), Specificity(items[j].RuleCriteria())
		if si != sj {
			return si > sj
		}
		return items[i].RuleID() < items[j].RuleID()
	})
}

// SelectBestMatch returns the most specific candidate matching ctx. The
// boolean is false when no candidate matches; there is no fallback.
func SelectBestMatch[T Candidate](ctx Context, candidates []T) (T, bool) {
	matched := make([]T, 0, len(candidates))
	for _, c := range candidates {
		if Matches(ctx, c.RuleCriteria()) {
			matched = append(matched, c)
		}
	}

	var zero T
	if len(matched) == 0 {
		return zero, false
	}
	SortBySpecificity(matched)
	return matched[0], true
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func containsFold(values []string, target string) bool {
	for _, v := range values {
		if strings.EqualFold(v, target) {
			return true
		}
	}
	return false
}
