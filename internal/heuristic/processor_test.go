package heuristic_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"bidsify/internal/fixup"
	"bidsify/internal/heuristic"
	"bidsify/internal/policy"
	"bidsify/internal/seqinfo"
	"bidsify/internal/services"
	"bidsify/internal/textutil"
)

const description = "Haxby-Kim^Life"

func desc(id, protocol, dataType string) seqinfo.SeriesDescriptor {
	return seqinfo.SeriesDescriptor{
		SeriesID:          id,
		ProtocolName:      protocol,
		SeriesDescription: protocol,
		ImageType:         seqinfo.ImageType{"ORIGINAL", "PRIMARY", dataType, "ND"},
		AccessionNumber:   "A000200",
		PatientID:         "sid0042",
		StudyDescription:  description,
	}
}

func newProcessor(t *testing.T, tables fixup.Tables, opts heuristic.Options) *heuristic.Processor {
	t.Helper()
	engine, err := fixup.New(tables, nil)
	if err != nil {
		t.Fatalf("fixup.New: %v", err)
	}
	p, err := heuristic.New(engine, opts, nil)
	if err != nil {
		t.Fatalf("heuristic.New: %v", err)
	}
	return p
}

func TestProcessPlainStudy(t *testing.T) {
	p := newProcessor(t, fixup.Tables{}, heuristic.Options{OutputRoot: "/bids"})
	batch := seqinfo.Batch{
		desc("1-scout", "anat-scout", "M"),
		desc("2-t1", "anat-T1w_ses-01_run+", "M"),
		desc("3-bold", "func_task-rest_run+", "FMRI"),
	}
	outcome, err := p.Process(context.Background(), batch)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if outcome.FixedUp {
		t.Fatal("unexpected fixup")
	}
	if outcome.StudyHash != textutil.StudyHash(description) {
		t.Fatalf("hash = %q", outcome.StudyHash)
	}
	if outcome.RunID == "" {
		t.Fatal("expected run id")
	}
	if len(outcome.Classification.Templates) != 2 {
		t.Fatalf("templates = %+v", outcome.Classification.Templates)
	}
	want := []string{"1-scout"}
	if !reflect.DeepEqual(outcome.Classification.Skipped, want) {
		t.Fatalf("skipped = %v", outcome.Classification.Skipped)
	}
	id := outcome.Identity
	if id.Locator != "Haxby/Kim/Life" || id.Subject != "sid000042" || id.Session != "01" || id.OutputRoot != "/bids" {
		t.Fatalf("identity = %+v", id)
	}
}

func TestProcessAutoFixupAndPolicy(t *testing.T) {
	hash := textutil.StudyHash(description)
	p := newProcessor(t, fixup.Tables{
		CanceledRuns: map[string][]string{"A000200": {"^4-"}},
		Substitutions: map[string][]fixup.Substitution{
			hash: {
				{Pattern: "gre_field_mapping", Replacement: "fmap_run+"},
				{Pattern: "epi_bold", Replacement: "func_run+_task-life"},
			},
		},
		Policies: []policy.Policy{{Name: "legacy", StudyHash: hash, AllowUnpairedPhase: true, ForceSession: "siemens1"}},
	}, heuristic.Options{})

	batch := seqinfo.Batch{
		desc("1-bold", "epi_bold", "FMRI"),
		desc("2-phase", "gre_field_mapping", "P"),
		desc("3-bold", "epi_bold", "FMRI"),
		desc("4-bold", "epi_bold", "FMRI"),
	}
	outcome, err := p.Process(context.Background(), batch)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !outcome.FixedUp {
		t.Fatal("expected fixup")
	}
	if !reflect.DeepEqual(outcome.Policies, []string{"legacy"}) {
		t.Fatalf("policies = %v", outcome.Policies)
	}
	var got []string
	for _, tpl := range outcome.Classification.Templates {
		got = append(got, tpl.Key.Suffix)
	}
	want := []string{"task-life_run-01_bold", "run-02_phasediff", "task-life_run-03_bold"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("suffixes = %v, want %v", got, want)
	}
	if !reflect.DeepEqual(outcome.Classification.Unrecognized, []string{"4-bold"}) {
		t.Fatalf("unrecognized = %v", outcome.Classification.Unrecognized)
	}
	if outcome.Identity.Session != "siemens1" {
		t.Fatalf("session = %q", outcome.Identity.Session)
	}
	if batch[0].ProtocolName != "epi_bold" {
		t.Fatal("input batch mutated")
	}
}

func TestProcessPolicyPredicate(t *testing.T) {
	p := newProcessor(t, fixup.Tables{
		Policies: []policy.Policy{{Name: "haxby", When: `study_description startsWith "Haxby"`, ForceSession: "pilot"}},
	}, heuristic.Options{})
	outcome, err := p.Process(context.Background(), seqinfo.Batch{desc("1-a", "anat-T1w", "M")})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if outcome.Identity.Session != "pilot" {
		t.Fatalf("session = %q", outcome.Identity.Session)
	}
}

func TestProcessWithoutPolicyFailsOnUnpairedPhase(t *testing.T) {
	p := newProcessor(t, fixup.Tables{}, heuristic.Options{})
	_, err := p.Process(context.Background(), seqinfo.Batch{
		desc("1-bold", "func_run+", "FMRI"),
		desc("2-phase", "fmap_run+", "P"),
	})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestProcessDropsSkippedStudies(t *testing.T) {
	p := newProcessor(t, fixup.Tables{SkipStudyUIDs: []string{"1.2.840"}}, heuristic.Options{})
	skipped := desc("2-x", "anat-T1w", "M")
	skipped.StudyInstanceUID = "1.2.840"
	outcome, err := p.Process(context.Background(), seqinfo.Batch{desc("1-a", "anat-T2w", "M"), skipped})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !reflect.DeepEqual(outcome.Dropped, []string{"2-x"}) {
		t.Fatalf("dropped = %v", outcome.Dropped)
	}

	if _, err := p.Process(context.Background(), seqinfo.Batch{skipped}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty study, got %v", err)
	}
}

func TestProcessRejectsMixedStudies(t *testing.T) {
	p := newProcessor(t, fixup.Tables{}, heuristic.Options{})
	other := desc("2-x", "anat-T1w", "M")
	other.StudyDescription = "Other^Study"
	_, err := p.Process(context.Background(), seqinfo.Batch{desc("1-a", "anat-T1w", "M"), other})
	var notUnique *seqinfo.NotUniqueError
	if !errors.As(err, &notUnique) {
		t.Fatalf("expected NotUniqueError, got %v", err)
	}
}

func TestProcessKeepsRunIDFromContext(t *testing.T) {
	p := newProcessor(t, fixup.Tables{}, heuristic.Options{})
	ctx := services.WithRunID(context.Background(), "run-123")
	outcome, err := p.Process(ctx, seqinfo.Batch{desc("1-a", "anat-T1w", "M")})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if outcome.RunID != "run-123" {
		t.Fatalf("run id = %q", outcome.RunID)
	}
}

func TestNewWithoutEngine(t *testing.T) {
	p, err := heuristic.New(nil, heuristic.Options{}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.Engine() == nil {
		t.Fatal("expected empty engine")
	}
}
