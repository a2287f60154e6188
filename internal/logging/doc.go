// Package logging assembles structured slog loggers used across bidsify.
//
// The console handler prints one line per record and lifts the study identity
// fields (run id, study hash, accession, series id) into a bracketed tag after
// the message, so the warnings of one study can be grepped together. The json
// handler keeps every field as is. WarnDiagnostic logs a seqinfo.Diagnostic
// with its kind as the event type, so every returned diagnostic has a matching
// log line.
package logging
