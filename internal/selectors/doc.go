// Package selectors holds the read side. Selectors load entities and
// projections for a caller and never write, validate or open a write scope.
// Inside an open txscope they read through its transaction.
package selectors
