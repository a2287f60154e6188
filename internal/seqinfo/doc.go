// Package seqinfo models the per-series acquisition descriptors that the
// heuristic classifies.
//
// A SeriesDescriptor is a value: every "change" goes through a With* method
// that returns a fresh copy, so fixups never touch series they were not asked
// to rewrite. A Batch is the ordered list of descriptors for one study; its
// Unique* accessors enforce the single-study invariant (one accession number,
// one patient, one study description).
package seqinfo
