// Package normalize canonicalizes raw strings (filenames, titles, authors)
// into comparable token sets. Normalization is a pure function: the same
// input always yields the same token set, with no locale or global state.
package normalize
