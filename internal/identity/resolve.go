package identity

import (
	"fmt"
	"log/slog"
	"strings"

	"bidsify/internal/logging"
	"bidsify/internal/protocol"
	"bidsify/internal/seqinfo"
	"bidsify/internal/services"
	"bidsify/internal/textutil"
)

// DefaultSession is used when protocols carry only session sigils.
const DefaultSession = "001"

// Options controls identity resolution.
type Options struct {
	// DefaultSession replaces DefaultSession when set.
	DefaultSession string
	// ForceSession overrides whatever the protocol names say.
	ForceSession string
	Logger       *slog.Logger
}

// Record is the identity of one study. Session is empty when no series
// carries a session token.
type Record struct {
	Locator     string               `json:"locator"`
	Session     string               `json:"session,omitempty"`
	Subject     string               `json:"subject"`
	OutputRoot  string               `json:"output_root,omitempty"`
	Diagnostics []seqinfo.Diagnostic `json:"diagnostics,omitempty"`
}

// Resolve computes the identity record of a batch. outputRoot is carried into
// the record unchanged.
func Resolve(batch seqinfo.Batch, outputRoot string, opts Options) (Record, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "identity")

	study, err := batch.Validate()
	if err != nil {
		return Record{}, services.Wrap(services.ErrInvariant, "identity", "resolve", "", err)
	}

	record := Record{
		Locator:    Locator(study.Description),
		Subject:    textutil.NormalizeSubjectID(study.PatientID),
		OutputRoot: outputRoot,
	}

	fallback := opts.DefaultSession
	if fallback == "" {
		fallback = DefaultSession
	}
	session, diags, err := resolveSession(SessionMarkers(batch), fallback)
	if err != nil {
		return Record{}, err
	}
	record.Session = session
	record.Diagnostics = diags
	for _, d := range diags {
		logging.WarnDiagnostic(logger, d, "only the first session is processed", logging.Accession(study.Accession))
	}

	if force := strings.TrimSpace(opts.ForceSession); force != "" {
		if force != record.Session {
			record.Diagnostics = append(record.Diagnostics, seqinfo.Diagnostic{
				Kind:    seqinfo.DiagSessionForced,
				Message: fmt.Sprintf("session %q imposed over %q", force, record.Session),
			})
		}
		logger.Info("imposing session",
			logging.String("session", force),
			logging.Accession(study.Accession),
		)
		record.Session = force
	}

	logger.Debug("identity resolved",
		logging.String("locator", record.Locator),
		logging.String("subject", record.Subject),
		logging.String("session", record.Session),
	)
	return record, nil
}

// Locator turns "PI-Student^Experiment" into "PI/Student/Experiment". The
// head before the first caret is split once more on the first hyphen or
// underscore.
func Locator(description string) string {
	head, tail, hasTail := strings.Cut(description, "^")
	parts := make([]string, 0, 3)
	if i := strings.IndexAny(head, "-_"); i >= 0 {
		parts = append(parts, head[:i], head[i+1:])
	} else {
		parts = append(parts, head)
	}
	if hasTail {
		parts = append(parts, tail)
	}
	return strings.Join(parts, "/")
}

// SessionMarkers collects the non-empty session tokens of non-derived series
// in batch order.
func SessionMarkers(batch seqinfo.Batch) []string {
	markers := make([]string, 0, len(batch))
	for _, s := range batch {
		if s.IsDerived {
			continue
		}
		parsed, ok := protocol.Parse(s.ProtocolName)
		if !ok || parsed.Session == "" {
			continue
		}
		markers = append(markers, parsed.Session)
	}
	return markers
}

func resolveSession(markers []string, fallback string) (string, []seqinfo.Diagnostic, error) {
	if len(markers) == 0 {
		return "", nil, nil
	}
	var (
		explicit []string
		seen     = make(map[string]struct{})
		sigils   bool
	)
	for _, m := range markers {
		if protocol.IsSigil(m) {
			sigils = true
			continue
		}
		if _, ok := seen[m]; !ok {
			seen[m] = struct{}{}
			explicit = append(explicit, m)
		}
	}
	if len(explicit) == 0 {
		return fallback, nil, nil
	}
	if sigils {
		return "", nil, services.Wrap(services.ErrUnsupported, "identity", "session",
			fmt.Sprintf("should not mix explicit session markers %v with incremental ones (+=)", explicit), nil)
	}
	var diags []seqinfo.Diagnostic
	if len(explicit) > 1 {
		diags = append(diags, seqinfo.Diagnostic{
			Kind:    seqinfo.DiagMultipleSessions,
			Message: fmt.Sprintf("cannot deal with multiple sessions %v in one study yet, using %q", explicit, explicit[0]),
		})
	}
	return explicit[0], diags, nil
}
