// Package services defines shared utilities consumed by the classification
// stages and the CLI runner.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, study hashes, and stage names for
//     logging and catalog correlation.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent categories (configuration vs validation vs invariant).
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the heuristic.
package services
