// Package policy holds per-study exceptions to the classification rules.
//
// Some historical studies were acquired before the naming convention settled
// and need special treatment: a fieldmap phase image without a preceding
// magnitude image, or a session label that cannot be derived from protocol
// names. Rather than hardcoding those studies in control flow, each exception
// is a Policy selected by the study hash, by an expr-lang predicate over the
// study's identity fields, or both.
//
// Predicates see these variables: study_hash, study_description, accession,
// patient_id. Example:
//
//	when = 'study_description startsWith "Haxby^"'
package policy
