package classify

import (
	"fmt"
	"log/slog"
	"strings"

	"bidsify/internal/logging"
	"bidsify/internal/protocol"
	"bidsify/internal/runcounter"
	"bidsify/internal/seqinfo"
	"bidsify/internal/services"
	"bidsify/internal/textutil"
)

// Protocol names rewritten before parsing.
var protocolAliases = map[string]string{
	"AAHead_Scout": "anat-scout",
}

// coarseSeqTypes maps the image data type to the data type it usually implies.
// Magnitude images are absent on purpose: scouts, anatomicals, BOLD and
// fieldmaps all produce them.
var coarseSeqTypes = map[string]protocol.SeqType{
	"P":         protocol.SeqFmap,
	"FMRI":      protocol.SeqFunc,
	"MPR":       protocol.SeqAnat,
	"DIFFUSION": protocol.SeqDWI,
	"MIP_SAG":   protocol.SeqAnat,
	"MIP_COR":   protocol.SeqAnat,
	"MIP_TRA":   protocol.SeqAnat,
}

const (
	paceMarker   = "_pace_"
	scoutMarker  = "_Scout"
	scoutLabel   = "scout"
	mipPrefix    = "MIP"
	labelBold    = "bold"
	labelPace    = "pace"
	labelDWI     = "dwi"
	labelMag     = "magnitude"
	labelPhase   = "phasediff"
	stageName    = "classify"
	defaultDelim = "_"
)

// Options controls one classification.
type Options struct {
	// OutputTypes for every template; nil selects DefaultOutputTypes.
	OutputTypes []string
	// Prefix is prepended to every template path.
	Prefix string
	// AllowUnpairedPhase is passed to the run counter.
	AllowUnpairedPhase bool
	Logger             *slog.Logger
}

// Template is one naming template and the series assigned to it, in
// processing order.
type Template struct {
	Key       TemplateKey `json:"key"`
	Path      string      `json:"template"`
	SeriesIDs []string    `json:"series_ids"`
}

// Result is the outcome of Classify.
type Result struct {
	// Templates are ordered by first use.
	Templates    []Template           `json:"templates"`
	Skipped      []string             `json:"skipped,omitempty"`
	Unrecognized []string             `json:"unrecognized,omitempty"`
	Diagnostics  []seqinfo.Diagnostic `json:"diagnostics,omitempty"`
}

// Lookup returns the series assigned to a rendered template path.
func (r Result) Lookup(template string) ([]string, bool) {
	for _, t := range r.Templates {
		if t.Path == template {
			return t.SeriesIDs, true
		}
	}
	return nil, false
}

// SeriesCount returns the number of series placed in templates.
func (r Result) SeriesCount() int {
	n := 0
	for _, t := range r.Templates {
		n += len(t.SeriesIDs)
	}
	return n
}

type classifier struct {
	opts    Options
	logger  *slog.Logger
	parser  *protocol.Parser
	counter *runcounter.Counter
	result  Result
	index   map[string]int
}

// Classify assigns the series of one study to naming templates. The batch is
// expected in acquisition order and is not modified. A batch spanning more
// than one study fails with ErrInvariant.
func Classify(batch seqinfo.Batch, opts Options) (Result, error) {
	if _, err := batch.Validate(); err != nil {
		return Result{}, services.Wrap(services.ErrInvariant, stageName, "validate", "", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	c := &classifier{
		opts:    opts,
		logger:  logging.NewComponentLogger(logger, stageName),
		parser:  protocol.NewParser(logger),
		counter: runcounter.New(runcounter.Options{AllowUnpairedPhase: opts.AllowUnpairedPhase}),
		index:   make(map[string]int),
	}
	c.logger.Debug("classifying study", logging.Int("series", len(batch)))

	for _, s := range batch {
		if err := c.series(s); err != nil {
			return Result{}, err
		}
	}

	if len(c.result.Skipped) > 0 {
		c.logger.Info("skipped series",
			logging.Int("count", len(c.result.Skipped)),
			logging.Strings("series_ids", c.result.Skipped),
		)
	}
	if len(c.result.Unrecognized) > 0 {
		logging.WarnWithContext(c.logger, "could not place series", "series_unrecognized",
			logging.Int("count", len(c.result.Unrecognized)),
			logging.Strings("series_ids", c.result.Unrecognized),
			logging.String(logging.FieldErrorHint, "protocol names must start with anat, func, dwi, behav or fmap"),
			logging.String(logging.FieldImpact, "series will not be converted"),
		)
	}
	return c.result, nil
}

func (c *classifier) series(s seqinfo.SeriesDescriptor) error {
	if s.IsDerived {
		c.result.Skipped = append(c.result.Skipped, s.SeriesID)
		c.logger.Debug("ignoring derived series", logging.SeriesID(s.SeriesID))
		return nil
	}

	dataType := s.ImageType.DataType()
	coarse, hasCoarse := coarseSeqTypes[dataType]

	name := s.ProtocolName
	if alias, ok := protocolAliases[name]; ok {
		name = alias
	}
	parsed, ok := c.parser.Parse(name)
	if !ok {
		c.counter.Observe(dataType)
		c.result.Unrecognized = append(c.result.Unrecognized, s.SeriesID)
		if protocol.IsTagged(name) {
			c.diagnose(seqinfo.DiagUnknownTaggedName, s.SeriesID, fmt.Sprintf("protocol %q is tagged but has no known data type", name))
		}
		return nil
	}
	if strings.HasPrefix(dataType, mipPrefix) {
		parsed.Acq += textutil.SanitizeValue(dataType)
	}

	seqtype, label := parsed.SeqType, parsed.SeqTypeLabel
	if hasCoarse && coarse != seqtype {
		d := c.diagnose(seqinfo.DiagSeqTypeMismatch, s.SeriesID,
			fmt.Sprintf("image type suggests %s but protocol %q names %s", coarse, name, seqtype))
		logging.WarnDiagnostic(c.logger, d, "protocol name wins",
			logging.String("image_seqtype", string(coarse)),
			logging.String("protocol_seqtype", string(seqtype)),
		)
	}

	if label == "" {
		var err error
		if label, err = defaultLabel(seqtype, name, dataType); err != nil {
			return services.Wrap(services.ErrValidation, stageName, "label", fmt.Sprintf("series %s", s.SeriesID), err)
		}
	}

	runLabel, err := c.run(s.SeriesID, dataType, parsed)
	if err != nil {
		return err
	}

	suffix := joinNonEmpty(
		prefixed("task-", parsed.Task),
		prefixed("acq-", parsed.Acq),
		parsed.Bids,
		runLabel,
		label,
	)

	if strings.Contains(s.SeriesDescription, scoutMarker) || (seqtype == protocol.SeqAnat && label == scoutLabel) {
		c.result.Skipped = append(c.result.Skipped, s.SeriesID)
		c.logger.Debug("ignoring scout series", logging.SeriesID(s.SeriesID))
		return nil
	}

	key, err := NewTemplateKey(string(seqtype), suffix, c.opts.OutputTypes, nil, c.opts.Prefix)
	if err != nil {
		return err
	}
	c.assign(key, s.SeriesID)
	return nil
}

func (c *classifier) run(seriesID, dataType string, parsed protocol.Parsed) (string, error) {
	if !parsed.HasRun {
		c.counter.Observe(dataType)
		return "", nil
	}
	step, err := c.counter.Next(seriesID, dataType, parsed.Run)
	if err != nil {
		return "", err
	}
	if reg := step.Regression; reg != nil {
		d := c.diagnose(seqinfo.DiagRunRegression, seriesID,
			fmt.Sprintf("previous run (%d) was larger than explicitly specified %d", reg.Previous, reg.Explicit))
		logging.WarnDiagnostic(c.logger, d, "explicit run is used",
			logging.Int("previous_run", reg.Previous),
			logging.Int("explicit_run", reg.Explicit),
		)
	}
	if step.UnpairedPhase {
		d := c.diagnose(seqinfo.DiagUnpairedPhase, seriesID, "phase image without preceding magnitude")
		logging.WarnDiagnostic(c.logger, d, "run incremented by study policy")
	}
	return step.Label, nil
}

func (c *classifier) assign(key TemplateKey, seriesID string) {
	id := key.identity()
	if i, ok := c.index[id]; ok {
		c.result.Templates[i].SeriesIDs = append(c.result.Templates[i].SeriesIDs, seriesID)
		return
	}
	c.index[id] = len(c.result.Templates)
	c.result.Templates = append(c.result.Templates, Template{
		Key:       key,
		Path:      key.Template(),
		SeriesIDs: []string{seriesID},
	})
}

func (c *classifier) diagnose(kind seqinfo.DiagnosticKind, seriesID, message string) seqinfo.Diagnostic {
	d := seqinfo.Diagnostic{Kind: kind, SeriesID: seriesID, Message: message}
	c.result.Diagnostics = append(c.result.Diagnostics, d)
	return d
}

func defaultLabel(seqtype protocol.SeqType, name, dataType string) (string, error) {
	switch seqtype {
	case protocol.SeqFunc:
		if strings.Contains(name, paceMarker) {
			return labelPace, nil
		}
		return labelBold, nil
	case protocol.SeqFmap:
		switch dataType {
		case seqinfo.DataTypeMagnitude:
			return labelMag, nil
		case seqinfo.DataTypePhase:
			return labelPhase, nil
		default:
			return "", fmt.Errorf("fieldmap image data type %q is neither magnitude nor phase", dataType)
		}
	case protocol.SeqDWI:
		return labelDWI, nil
	default:
		return "", nil
	}
}

func prefixed(prefix, value string) string {
	if value == "" {
		return ""
	}
	return prefix + value
}

func joinNonEmpty(parts ...string) string {
	kept := parts[:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, defaultDelim)
}
