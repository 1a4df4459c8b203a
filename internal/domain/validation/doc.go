// Package validation runs entity invariant checks.
//
// Rules are pure predicates declared next to the entity they guard. A Pipeline
// evaluates every rule in declaration order and collects all failures so callers
// can report them together. Nothing in this package persists anything.
package validation
