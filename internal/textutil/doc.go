// Package textutil provides the small pure string helpers shared by the
// protocol parser, the fixup engine, and the identity resolver.
//
// The primary use cases are:
//   - Sanitizing label values so they are safe inside BIDS entity values
//   - Hashing study descriptions into stable keys for the correction tables
//   - Normalizing patient identifiers into subject labels
//
// Every function here is deterministic and free of side effects.
package textutil
