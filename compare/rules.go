package compare

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/c0deZ3R0/readsync/record"
)

// Kind selects how a field is compared.
type Kind string

const (
	KindString Kind = "string"
	KindNumber Kind = "number"
	KindTime   Kind = "time"
	KindList   Kind = "list"
)

// Rule describes how one field is compared. Tolerance is an absolute
// difference for numbers and a number of seconds for times.
type Rule struct {
	Kind          Kind    `yaml:"kind" json:"kind"`
	Tolerance     float64 `yaml:"tolerance" json:"tolerance"`
	CaseSensitive bool    `yaml:"case_sensitive" json:"caseSensitive"`
}

// Rules maps field names to their comparison rule. Only fields present in
// the table are compared.
type Rules map[string]Rule

// DefaultRules compares the four core fields of a record.
func DefaultRules() Rules {
	return Rules{
		record.FieldTitle:       {Kind: KindString, CaseSensitive: true},
		record.FieldAuthors:     {Kind: KindList, CaseSensitive: true},
		record.FieldProgress:    {Kind: KindNumber},
		record.FieldLastUpdated: {Kind: KindTime},
	}
}

// Validate rejects rules with an unknown kind or a negative tolerance.
func (r Rules) Validate() error {
	for name, rule := range r {
		switch rule.Kind {
		case KindString, KindNumber, KindTime, KindList:
		default:
			return fmt.Errorf("field %q: unknown rule kind %q", name, rule.Kind)
		}
		if rule.Tolerance < 0 {
			return fmt.Errorf("field %q: tolerance must not be negative", name)
		}
	}
	return nil
}

// fields returns the rule names in a stable order.
func (r Rules) fields() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// diff compares one field value pair under rule. It returns the change type
// and whether the values differ.
func (rule Rule) diff(sv any, sok bool, tv any, tok bool) (ChangeType, bool) {
	switch {
	case !sok && !tok:
		return "", false
	case sok && !tok:
		return Added, true
	case !sok && tok:
		return Removed, true
	}

	switch rule.Kind {
	case KindString:
		a, aok := sv.(string)
		b, bok := tv.(string)
		if !aok || !bok {
			return TypeChanged, true
		}
		return ValueChanged, !equalStrings(a, b, rule.CaseSensitive)

	case KindNumber:
		a, aok := toFloat(sv)
		b, bok := toFloat(tv)
		if !aok || !bok {
			return TypeChanged, true
		}
		return ValueChanged, math.Abs(a-b) > rule.Tolerance

	case KindTime:
		a, aok := toTime(sv)
		b, bok := toTime(tv)
		if !aok || !bok {
			return TypeChanged, true
		}
		gap := math.Abs(a.Sub(b).Seconds())
		return ValueChanged, gap > rule.Tolerance

	case KindList:
		a, aok := toStrings(sv)
		b, bok := toStrings(tv)
		if !aok || !bok {
			return TypeChanged, true
		}
		return ValueChanged, !sameElements(a, b, rule.CaseSensitive)
	}

	return TypeChanged, true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := time.Parse(time.RFC3339, t)
		return parsed, err == nil
	}
	return time.Time{}, false
}

func toStrings(v any) ([]string, bool) {
	switch l := v.(type) {
	case []string:
		return l, true
	case []any:
		out := make([]string, 0, len(l))
		for _, item := range l {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}

// sameElements compares two lists as multisets.
func sameElements(a, b []string, caseSensitive bool) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int, len(a))
	for _, s := range a {
		if !caseSensitive {
			s = fold(s)
		}
		counts[s]++
	}
	for _, s := range b {
		if !caseSensitive {
			s = fold(s)
		}
		if counts[s] == 0 {
			return false
		}
		counts[s]--
	}
	return true
}
