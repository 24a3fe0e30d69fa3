// Package relevance scores how well a filename's token set corresponds to a
// candidate book's title and author, and ranks candidates for automatic or
// human-assisted binding. Scoring is deterministic and order-independent in
// its inputs; all weights are configuration, not invariants.
package relevance
