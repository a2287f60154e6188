package protocol

import (
	"log/slog"
	"strings"

	"bidsify/internal/logging"
	"bidsify/internal/textutil"
)

// SeqType is the BIDS data type directory a series belongs under.
type SeqType string

const (
	SeqAnat  SeqType = "anat"
	SeqFunc  SeqType = "func"
	SeqDWI   SeqType = "dwi"
	SeqBehav SeqType = "behav"
	SeqFmap  SeqType = "fmap"
)

// Sigils accepted in place of explicit session and run values.
const (
	SigilIncrement = "+"
	SigilReuse     = "="
)

const (
	tagMarker      = "bids"
	scoutAlias     = "scout"
	scoutCanonical = "anat-scout"
	annotationSep  = "__"
)

var knownSeqTypes = map[SeqType]struct{}{
	SeqAnat:  {},
	SeqFunc:  {},
	SeqDWI:   {},
	SeqBehav: {},
	SeqFmap:  {},
}

// IsSeqType reports whether value names a known data type.
func IsSeqType(value string) bool {
	_, ok := knownSeqTypes[SeqType(value)]
	return ok
}

// IsSigil reports whether value is one of the sigils.
func IsSigil(value string) bool {
	return value == SigilIncrement || value == SigilReuse
}

// Parsed holds the fields extracted from a classifiable protocol name.
// Empty strings mean the field was absent, except for Run where HasRun
// distinguishes "run-" (present, empty, invalid) from no run token at all.
type Parsed struct {
	SeqType      SeqType `json:"seqtype"`
	SeqTypeLabel string  `json:"seqtype_label,omitempty"`
	Session      string  `json:"session,omitempty"`
	Run          string  `json:"run,omitempty"`
	HasRun       bool    `json:"-"`
	Task         string  `json:"task,omitempty"`
	Acq          string  `json:"acq,omitempty"`
	Bids         string  `json:"bids,omitempty"`
}

// Parser wraps Parse with diagnostic logging.
type Parser struct {
	logger *slog.Logger
}

// NewParser returns a parser that reports names explicitly tagged as BIDS
// but carrying an unknown data type.
func NewParser(logger *slog.Logger) *Parser {
	return &Parser{logger: logging.NewComponentLogger(logger, "protocol")}
}

// Parse parses name and logs a warning when a tagged name is rejected.
func (p *Parser) Parse(name string) (Parsed, bool) {
	parsed, tagged, ok := parse(name)
	if !ok && tagged && p != nil {
		logging.WarnWithContext(p.logger, "protocol tagged as bids has unknown data type", "protocol_unknown_seqtype",
			logging.String("protocol_name", name),
			logging.String(logging.FieldErrorHint, "use one of anat, func, dwi, behav, fmap after the bids_ prefix"),
			logging.String(logging.FieldImpact, "series will be reported as unrecognized"),
		)
	}
	return parsed, ok
}

// Parse parses a protocol name. ok is false when the name is not classifiable.
func Parse(name string) (Parsed, bool) {
	parsed, _, ok := parse(name)
	return parsed, ok
}

// IsTagged reports whether name carries the explicit bids marker.
func IsTagged(name string) bool {
	_, tagged, _ := parse(name)
	return tagged
}

func parse(name string) (Parsed, bool, bool) {
	if idx := strings.Index(name, annotationSep); idx >= 0 {
		name = name[:idx]
	}
	tokens := strings.Split(name, "_")

	if tokens[0] == scoutAlias {
		tokens[0] = scoutCanonical
	}

	tagged := false
	prefix := tokens[0]
	if prefix != tagMarker {
		prefix, _ = splitPair(prefix)
	}
	if prefix == tagMarker {
		tagged = true
		tokens = tokens[1:]
	}
	if len(tokens) == 0 {
		return Parsed{}, tagged, false
	}

	seqtype, label := splitPair(tokens[0])
	if !IsSeqType(seqtype) {
		return Parsed{}, tagged, false
	}

	parsed := Parsed{SeqType: SeqType(seqtype), SeqTypeLabel: label}
	var leftovers []string
	for _, token := range tokens[1:] {
		if token == "" {
			continue
		}
		key, value := splitPair(token)
		if !strings.Contains(token, "-") {
			if last := token[len(token)-1:]; IsSigil(last) {
				key, value = token[:len(token)-1], last
			}
		}
		value = textutil.SanitizeLabel(value)

		switch key {
		case "ses":
			parsed.Session = value
		case "run":
			parsed.Run = value
			parsed.HasRun = true
		case "task":
			parsed.Task = value
		case "acq":
			parsed.Acq = value
		default:
			leftovers = append(leftovers, token)
		}
	}
	if len(leftovers) > 0 {
		parsed.Bids = strings.Join(leftovers, "_")
	}
	return parsed, tagged, true
}

// splitPair splits on the first hyphen. value is empty when there is none.
func splitPair(token string) (string, string) {
	key, value, _ := strings.Cut(token, "-")
	return key, value
}

// Fields renders the parsed values as a flat map, omitting absent ones.
func (p Parsed) Fields() map[string]string {
	out := map[string]string{"seqtype": string(p.SeqType)}
	add := func(key, value string) {
		if value != "" {
			out[key] = value
		}
	}
	add("seqtype_label", p.SeqTypeLabel)
	add("session", p.Session)
	if p.HasRun {
		out["run"] = p.Run
	}
	add("task", p.Task)
	add("acq", p.Acq)
	add("bids", p.Bids)
	return out
}
