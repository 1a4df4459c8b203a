package validation

import "strings"

// Rule is a pure predicate over an entity value. Check returns true when the
// entity satisfies the rule.
type Rule[T any] struct {
	Name   string
	Field  string
	Reason string
	Check  func(T) bool
}

// Pipeline holds the ordered rules for one entity type.
type Pipeline[T any] struct {
	rules []Rule[T]
}

func NewPipeline[T any](rules ...Rule[T]) *Pipeline[T] {
	p := &Pipeline[T]{}
	for _, r := range rules {
		p.Register(r)
	}
	return p
}

// Register appends a rule. Rules without a Check are ignored.
func (p *Pipeline[T]) Register(rule Rule[T]) {
	if rule.Check == nil {
		return
	}
	rule.Field = strings.TrimSpace(rule.Field)
	if rule.Field == "" {
		rule.Field = Global
	}
	p.rules = append(p.rules, rule)
}

// Validate runs every rule in declaration order and never stops early.
func (p *Pipeline[T]) Validate(v T) Result {
	var res Result
	if p == nil {
		return res
	}
	for _, rule := range p.rules {
		if rule.Check(v) {
			continue
		}
		res.Failures = append(res.Failures, Failure{
			Field:  rule.Field,
			Reason: rule.Reason,
			Rule:   rule.Name,
		})
	}
	return res
}

// Rules returns rule names in declaration order.
func (p *Pipeline[T]) Rules() []string {
	if p == nil {
		return nil
	}
	out := make([]string, 0, len(p.rules))
	for _, r := range p.rules {
		out = append(out, r.Name)
	}
	return out
}

// Entity is implemented by every persisted domain type.
type Entity interface {
	Validate() Result
}

// Check validates e. A nil entity yields a single global failure.
func Check(e Entity) Result {
	if e == nil {
		var res Result
		res.Add(Global, "entity is required")
		return res
	}
	return e.Validate()
}
