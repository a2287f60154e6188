package heuristic

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"bidsify/internal/classify"
	"bidsify/internal/fixup"
	"bidsify/internal/identity"
	"bidsify/internal/logging"
	"bidsify/internal/policy"
	"bidsify/internal/seqinfo"
	"bidsify/internal/services"
	"bidsify/internal/textutil"
)

// Options configures a Processor.
type Options struct {
	OutputTypes    []string
	DefaultSession string
	OutputRoot     string
	// Workers bounds ProcessAll; values below one mean one.
	Workers int
}

// Outcome is everything learned about one study.
type Outcome struct {
	RunID            string          `json:"run_id"`
	Source           string          `json:"source,omitempty"`
	Accession        string          `json:"accession"`
	PatientID        string          `json:"patient_id"`
	StudyDescription string          `json:"study_description"`
	StudyHash        string          `json:"study_hash"`
	FixedUp          bool            `json:"fixed_up"`
	Dropped          []string        `json:"dropped,omitempty"`
	Policies         []string        `json:"policies,omitempty"`
	Classification   classify.Result `json:"classification"`
	Identity         identity.Record `json:"identity"`
	Duration         time.Duration   `json:"duration"`
}

// Processor is safe for concurrent use.
type Processor struct {
	engine *fixup.Engine
	opts   Options
	logger *slog.Logger
}

// New returns a processor. A nil engine uses no correction tables.
func New(engine *fixup.Engine, opts Options, logger *slog.Logger) (*Processor, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	if engine == nil {
		var err error
		if engine, err = fixup.New(fixup.Tables{}, logger); err != nil {
			return nil, err
		}
	}
	return &Processor{engine: engine, opts: opts, logger: logging.NewComponentLogger(logger, "heuristic")}, nil
}

// Engine returns the correction engine in use.
func (p *Processor) Engine() *fixup.Engine { return p.engine }

// Process runs the heuristic over one batch. The batch is not modified.
func (p *Processor) Process(ctx context.Context, batch seqinfo.Batch) (*Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	runID, ok := services.RunIDFromContext(ctx)
	if !ok {
		runID = uuid.NewString()
		ctx = services.WithRunID(ctx, runID)
	}
	source, _ := services.SourceFromContext(ctx)

	kept, dropped := p.engine.FilterSkipped(batch)
	if len(kept) == 0 {
		return nil, services.Wrap(services.ErrValidation, "heuristic", "process", "no series left after skip list", nil)
	}
	study, err := kept.Validate()
	if err != nil {
		return nil, services.Wrap(services.ErrInvariant, "seqinfo", "validate", "", err)
	}
	hash := textutil.StudyHash(study.Description)
	ctx = services.WithStudyHash(ctx, hash)
	logger := logging.WithContext(ctx, p.logger).With(logging.Accession(study.Accession))

	outcome := &Outcome{
		RunID:            runID,
		Source:           source,
		Accession:        study.Accession,
		PatientID:        study.PatientID,
		StudyDescription: study.Description,
		StudyHash:        hash,
		Dropped:          dropped,
	}
	if len(dropped) > 0 {
		logger.Info("dropped skip-listed series", logging.Strings("series_ids", dropped))
	}

	if p.engine.Knows(hash) {
		logger.Info("fixing up protocols", logging.String("study_description", study.Description))
		if kept, err = p.engine.ApplyStudyFixups(kept); err != nil {
			return nil, err
		}
		outcome.FixedUp = true
	}

	eff, err := p.engine.Policies().For(policy.Facts{
		StudyHash:        hash,
		StudyDescription: study.Description,
		Accession:        study.Accession,
		PatientID:        study.PatientID,
	})
	if err != nil {
		return nil, err
	}
	outcome.Policies = eff.Matched
	if len(eff.Matched) > 0 {
		logger.Info("policies selected", logging.Strings("policies", eff.Matched))
	}

	classified, err := classify.Classify(kept, classify.Options{
		OutputTypes:        p.opts.OutputTypes,
		AllowUnpairedPhase: eff.AllowUnpairedPhase,
		Logger:             logger,
	})
	if err != nil {
		return nil, err
	}
	outcome.Classification = classified

	record, err := identity.Resolve(kept, p.opts.OutputRoot, identity.Options{
		DefaultSession: p.opts.DefaultSession,
		ForceSession:   eff.ForceSession,
		Logger:         logger,
	})
	if err != nil {
		return nil, err
	}
	outcome.Identity = record
	outcome.Duration = time.Since(start)

	logger.Info("study processed",
		logging.String(logging.FieldEventType, "study_processed"),
		logging.Int("templates", len(classified.Templates)),
		logging.Int("series", classified.SeriesCount()),
		logging.Int("skipped", len(classified.Skipped)),
		logging.Int("unrecognized", len(classified.Unrecognized)),
		logging.String("locator", record.Locator),
		logging.String("subject", record.Subject),
		logging.String("session", record.Session),
		logging.Duration("duration", outcome.Duration),
	)
	return outcome, nil
}
