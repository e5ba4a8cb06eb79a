package criteria

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidCriteria is wrapped by every error Validate returns.
var ErrInvalidCriteria = errors.New("invalid criteria")

var validate = validator.New()

// ValidationError lists every problem found in one rule set.
type ValidationError struct {
	Findings []string
}

func (e *ValidationError) Error() string {
	return ErrInvalidCriteria.Error() + ": " + strings.Join(e.Findings, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidCriteria
}

// Validate checks a rule set against a tenant's data group vocabulary.
// It is meant for configuration time; Matches never calls it.
func Validate(c Criteria, vocabulary []string) error {
	var findings []string

	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fe := range fieldErrs {
			if fe.Tag() == "gte" {
				findings = append(findings, lowerFirst(fe.Field())+" cannot be negative")
				continue
			}
			findings = append(findings, fmt.Sprintf("%s failed '%s'", lowerFirst(fe.Field()), fe.Tag()))
		}
	}

	for _, os := range operatingSystems(c) {
		lo, hasMin := c.MinAppVersions[os]
		hi, hasMax := c.MaxAppVersions[os]
		if hasMin && hasMax && hi < lo {
			findings = append(findings, fmt.Sprintf("maxAppVersions[%s] cannot be less than minAppVersions[%s]", os, os))
		}
	}

	known := toSet(vocabulary)
	findings = append(findings, unknownGroups("allOfGroups", c.AllOfGroups, known, vocabulary)...)
	findings = append(findings, unknownGroups("noneOfGroups", c.NoneOfGroups, known, vocabulary)...)

	if overlap := intersect(c.AllOfGroups, c.NoneOfGroups); len(overlap) > 0 {
		findings = append(findings, "allOfGroups includes these excluded data groups: "+strings.Join(overlap, ", "))
	}

	if len(findings) == 0 {
		return nil
	}
	sort.Strings(findings)
	return &ValidationError{Findings: findings}
}

func operatingSystems(c Criteria) []string {
	seen := make(map[string]struct{}, len(c.MinAppVersions)+len(c.MaxAppVersions))
	for os := range c.MinAppVersions {
		seen[os] = struct{}{}
	}
	for os := range c.MaxAppVersions {
		seen[os] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for os := range seen {
		out = append(out, os)
	}
	sort.Strings(out)
	return out
}

func unknownGroups(field string, groups []string, known map[string]struct{}, vocabulary []string) []string {
	var out []string
	for _, g := range groups {
		if _, ok := known[g]; ok {
			continue
		}
		declared := "<no data groups declared>"
		if len(vocabulary) > 0 {
			sorted := append([]string(nil), vocabulary...)
			sort.Strings(sorted)
			declared = strings.Join(sorted, ", ")
		}
		out = append(out, fmt.Sprintf("%s: '%s' is not in enumeration: %s", field, g, declared))
	}
	return out
}

func intersect(a, b []string) []string {
	bs := toSet(b)
	var out []string
	seen := make(map[string]struct{})
	for _, v := range a {
		if _, ok := bs[v]; !ok {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
