// Package protocol parses the encoded protocol names scanner operators type
// at the console into BIDS naming fields.
//
// A protocol name looks like
//
//	[bids_]<seqtype>[-<label>][_<key>-<value>|_<key><sigil>]...[__<ignored>]
//
// where seqtype is one of anat, func, dwi, behav, or fmap and the recognized
// keys are ses, run, task, and acq. Sigils are "+" (increment) and "="
// (reuse). Unrecognized key-value tokens are kept verbatim as a leftover
// annotation. Names whose first token is not a known seqtype are not
// classifiable and yield ok=false.
package protocol
