// Package fixup rewrites series descriptors of studies whose protocol names are
// known to be wrong.
//
// Corrections are data, not code: a Tables resource (TOML or YAML) lists
// canceled runs per accession, regular-expression substitutions per study
// hash, study instance UIDs to drop, the raw-file filter, and per-study
// policies. An embedded default resource carries the tables of the site the
// heuristic was first written for.
//
// Rewrites never modify a descriptor in place; every operation returns a new
// batch.
package fixup
