package seqinfo

// DiagnosticKind classifies a recoverable condition found while processing a
// study.
type DiagnosticKind string

const (
	DiagRunRegression     DiagnosticKind = "run_regression"
	DiagSeqTypeMismatch   DiagnosticKind = "seqtype_mismatch"
	DiagUnpairedPhase     DiagnosticKind = "unpaired_phase"
	DiagMultipleSessions  DiagnosticKind = "multiple_sessions"
	DiagSessionForced     DiagnosticKind = "session_forced"
	DiagUnknownTaggedName DiagnosticKind = "unknown_tagged_name"
)

// Diagnostic is a warning returned alongside a result. SeriesID is empty for
// study-level conditions.
type Diagnostic struct {
	Kind     DiagnosticKind `json:"kind"`
	SeriesID string         `json:"series_id,omitempty"`
	Message  string         `json:"message"`
}
