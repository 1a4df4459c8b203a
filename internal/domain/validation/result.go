package validation

import (
	"sort"
	"strings"
)

// Global is the field name used for failures that are not tied to one field.
const Global = "__all__"

// Failure is one broken rule.
type Failure struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
	Rule   string `json:"rule,omitempty"`
}

// Result aggregates failures from one validation run. The zero value is success.
type Result struct {
	Failures []Failure `json:"failures,omitempty"`
}

func (r Result) OK() bool { return len(r.Failures) == 0 }

// Merge appends failures from another result, preserving order.
func (r *Result) Merge(other Result) {
	if len(other.Failures) == 0 {
		return
	}
	r.Failures = append(r.Failures, other.Failures...)
}

// Add records a failure. An empty field is treated as Global.
func (r *Result) Add(field, reason string) {
	field = strings.TrimSpace(field)
	if field == "" {
		field = Global
	}
	r.Failures = append(r.Failures, Failure{Field: field, Reason: strings.TrimSpace(reason)})
}

// Fields returns the distinct failing fields, sorted.
func (r Result) Fields() []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(r.Failures))
	for _, f := range r.Failures {
		if _, ok := seen[f.Field]; ok {
			continue
		}
		seen[f.Field] = struct{}{}
		out = append(out, f.Field)
	}
	sort.Strings(out)
	return out
}

// ByField groups reasons per field, keeping per-field order.
func (r Result) ByField() map[string][]string {
	out := make(map[string][]string, len(r.Failures))
	for _, f := range r.Failures {
		out[f.Field] = append(out[f.Field], f.Reason)
	}
	return out
}

// HasRule reports whether the named rule failed.
func (r Result) HasRule(name string) bool {
	for _, f := range r.Failures {
		if f.Rule == name {
			return true
		}
	}
	return false
}

func (r Result) String() string {
	if r.OK() {
		return "ok"
	}
	parts := make([]string, 0, len(r.Failures))
	for _, f := range r.Failures {
		parts = append(parts, f.Field+": "+f.Reason)
	}
	return strings.Join(parts, "; ")
}
