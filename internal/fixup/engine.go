package fixup

import (
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"regexp"
	"slices"
	"sort"
	"strings"

	"bidsify/internal/logging"
	"bidsify/internal/policy"
	"bidsify/internal/seqinfo"
	"bidsify/internal/services"
	"bidsify/internal/textutil"
)

// CanceledPrefix is prepended to the protocol name and series description of
// canceled runs so they no longer parse.
const CanceledPrefix = "cancelme_"

type substitution struct {
	re          *regexp.Regexp
	replacement string
}

type rejectRule struct {
	accession string
	reject    *regexp.Regexp
}

// Engine applies a compiled Tables resource. It is read-only after New and
// safe for concurrent use.
type Engine struct {
	tables        Tables
	fields        []seqinfo.Field
	canceled      map[string][]*regexp.Regexp
	substitutions map[string][]substitution
	skip          map[string]struct{}
	require       *regexp.Regexp
	keepAll       map[string]struct{}
	keepPrefixes  []string
	rejects       []rejectRule
	policies      *policy.Set
	logger        *slog.Logger
}

// New validates and compiles tables.
func New(tables Tables, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	e := &Engine{
		tables:        tables,
		canceled:      make(map[string][]*regexp.Regexp, len(tables.CanceledRuns)),
		substitutions: make(map[string][]substitution, len(tables.Substitutions)),
		skip:          make(map[string]struct{}, len(tables.SkipStudyUIDs)),
		keepAll:       make(map[string]struct{}, len(tables.FileFilter.KeepAllAccessions)),
		logger:        logging.NewComponentLogger(logger, "fixup"),
	}

	if len(tables.Fields) == 0 {
		e.fields = slices.Clone(seqinfo.DefaultFixupFields)
	}
	for _, name := range tables.Fields {
		field, err := seqinfo.ParseField(name)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "fixup", "compile tables", "fields", err)
		}
		e.fields = append(e.fields, field)
	}

	for accession, patterns := range tables.CanceledRuns {
		for _, pattern := range patterns {
			re, err := compileAnchored(pattern)
			if err != nil {
				return nil, services.Wrap(services.ErrConfiguration, "fixup", "compile tables", fmt.Sprintf("canceled_runs %s", accession), err)
			}
			e.canceled[accession] = append(e.canceled[accession], re)
		}
	}

	for hash, subs := range tables.Substitutions {
		key := strings.ToLower(strings.TrimSpace(hash))
		compiled := make([]substitution, 0, len(subs))
		for i, sub := range subs {
			re, err := regexp.Compile(sub.Pattern)
			if err != nil {
				return nil, services.Wrap(services.ErrConfiguration, "fixup", "compile tables", fmt.Sprintf("substitutions %s #%d", hash, i+1), err)
			}
			compiled = append(compiled, substitution{re: re, replacement: sub.Replacement})
		}
		e.substitutions[key] = compiled
	}

	for _, uid := range tables.SkipStudyUIDs {
		if uid = strings.TrimSpace(uid); uid != "" {
			e.skip[uid] = struct{}{}
		}
	}

	filter := tables.FileFilter
	if filter.Require != "" {
		re, err := compileAnchored(filter.Require)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "fixup", "compile tables", "file_filter.require", err)
		}
		e.require = re
	}
	for _, accession := range filter.KeepAllAccessions {
		e.keepAll[accession] = struct{}{}
	}
	e.keepPrefixes = slices.Clone(filter.KeepAccessionPrefixes)
	for _, rule := range filter.Rules {
		re, err := compileAnchored(rule.Reject)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "fixup", "compile tables", fmt.Sprintf("file_filter rule %s", rule.Accession), err)
		}
		e.rejects = append(e.rejects, rejectRule{accession: rule.Accession, reject: re})
	}

	set, err := policy.Compile(tables.Policies)
	if err != nil {
		return nil, err
	}
	e.policies = set
	return e, nil
}

// Open builds an engine from a tables file, or from the embedded tables when
// path is empty.
func Open(path string, logger *slog.Logger) (*Engine, error) {
	var (
		tables Tables
		err    error
	)
	if strings.TrimSpace(path) == "" {
		tables, err = DefaultTables()
	} else {
		tables, err = LoadTables(path)
	}
	if err != nil {
		return nil, err
	}
	return New(tables, logger)
}

// Tables returns the resource the engine was built from.
func (e *Engine) Tables() Tables { return e.tables }

// Policies returns the compiled per-study policies.
func (e *Engine) Policies() *policy.Set { return e.policies }

// Knows reports whether the substitution table has rules for a study hash.
func (e *Engine) Knows(studyHash string) bool {
	_, ok := e.substitutions[studyHash]
	return ok
}

// StudyHashes lists the hashes with substitution rules, sorted.
func (e *Engine) StudyHashes() []string {
	out := make([]string, 0, len(e.substitutions))
	for hash := range e.substitutions {
		out = append(out, hash)
	}
	sort.Strings(out)
	return out
}

// MarkCanceledRuns prefixes the protocol name and series description of
// series listed as canceled for the batch accession. Other series are copied
// unchanged.
func (e *Engine) MarkCanceledRuns(batch seqinfo.Batch) (seqinfo.Batch, error) {
	accession, err := batch.UniqueAccession()
	if err != nil {
		return nil, services.Wrap(services.ErrInvariant, "fixup", "mark canceled runs", "", err)
	}
	patterns := e.canceled[accession]
	out := make(seqinfo.Batch, len(batch))
	for i, s := range batch {
		if !matchesAny(patterns, s.SeriesID) {
			out[i] = s.Clone()
			continue
		}
		e.logger.Debug("marking canceled run",
			logging.SeriesID(s.SeriesID),
			logging.Accession(accession),
		)
		out[i] = s.
			WithProtocolName(CanceledPrefix + s.ProtocolName).
			WithSeriesDescription(CanceledPrefix + s.SeriesDescription)
	}
	return out, nil
}

// ApplyStudyFixups marks canceled runs and then applies every substitution
// for the batch study hash, in table order, to each configured field. A study
// without substitution rules is a configuration error.
func (e *Engine) ApplyStudyFixups(batch seqinfo.Batch) (seqinfo.Batch, error) {
	marked, err := e.MarkCanceledRuns(batch)
	if err != nil {
		return nil, err
	}
	description, err := marked.UniqueStudyDescription()
	if err != nil {
		return nil, services.Wrap(services.ErrInvariant, "fixup", "apply study fixups", "", err)
	}
	hash := textutil.StudyHash(description)
	subs, ok := e.substitutions[hash]
	if !ok {
		return nil, services.Wrap(services.ErrConfiguration, "fixup", "apply study fixups",
			fmt.Sprintf("no fixups known for study %q (hash %s)", description, hash), nil)
	}

	for i, s := range marked {
		for _, field := range e.fields {
			before := s.Get(field)
			after := before
			for _, sub := range subs {
				after = sub.re.ReplaceAllString(after, sub.replacement)
			}
			if after == before {
				continue
			}
			e.logger.Debug("rewrote series field",
				logging.SeriesID(s.SeriesID),
				logging.StudyHash(hash),
				logging.String("field", string(field)),
				logging.String("before", before),
				logging.String("after", after),
			)
			s = s.With(field, after)
		}
		marked[i] = s
	}
	return marked, nil
}

// FilterSkipped drops series whose study instance UID is listed for skipping
// and returns the dropped series ids.
func (e *Engine) FilterSkipped(batch seqinfo.Batch) (seqinfo.Batch, []string) {
	if len(e.skip) == 0 {
		return batch.Clone(), nil
	}
	kept := make(seqinfo.Batch, 0, len(batch))
	var dropped []string
	for _, s := range batch {
		if _, ok := e.skip[s.StudyInstanceUID]; ok {
			dropped = append(dropped, s.SeriesID)
			continue
		}
		kept = append(kept, s.Clone())
	}
	return kept, dropped
}

// KeepFile reports whether a raw file should be collected. The path is
// expected to end in <accession>/<series dir>/<file>.
func (e *Engine) KeepFile(file string) bool {
	dir := path.Dir(filepath.ToSlash(file))
	seriesDir := path.Base(dir)
	accession := path.Base(path.Dir(dir))

	for _, rule := range e.rejects {
		if rule.accession == accession {
			return !rule.reject.MatchString(seriesDir)
		}
	}
	if _, ok := e.keepAll[accession]; ok {
		return true
	}
	for _, prefix := range e.keepPrefixes {
		if strings.HasPrefix(accession, prefix) {
			return true
		}
	}
	if e.require == nil {
		return true
	}
	return e.require.MatchString(seriesDir)
}

func matchesAny(patterns []*regexp.Regexp, value string) bool {
	for _, re := range patterns {
		if re.MatchString(value) {
			return true
		}
	}
	return false
}

// compileAnchored compiles a pattern that must match at the start of the value.
func compileAnchored(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile("^(?:" + pattern + ")")
}
