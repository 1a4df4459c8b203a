// Package txscope owns the transaction boundary for service writes.
//
// A Scope is attached to the context by Runner.InTx. Calls that find an open
// scope in their context join it instead of starting a new transaction, so the
// outermost InTx is the only commit point. After-commit callbacks registered on
// the scope run once, after that commit, and never affect its outcome.
package txscope
