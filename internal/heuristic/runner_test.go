package heuristic_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"bidsify/internal/fixup"
	"bidsify/internal/heuristic"
	"bidsify/internal/seqinfo"
)

func TestProcessAllKeepsOrderAndIsolatesFailures(t *testing.T) {
	p := newProcessor(t, fixup.Tables{}, heuristic.Options{Workers: 3})

	var jobs []heuristic.Job
	for i := 0; i < 8; i++ {
		batch := seqinfo.Batch{desc("1-a", "anat-T1w", "M")}
		if i == 5 {
			batch = seqinfo.Batch{desc("1-a", "func_run-zz", "FMRI")}
		}
		for j := range batch {
			batch[j].AccessionNumber = fmt.Sprintf("A%03d", i)
		}
		jobs = append(jobs, heuristic.Job{Source: fmt.Sprintf("study-%d.json", i), Batch: batch})
	}

	results := p.ProcessAll(context.Background(), jobs)
	if len(results) != len(jobs) {
		t.Fatalf("results = %d", len(results))
	}
	for i, r := range results {
		if r.Source != jobs[i].Source {
			t.Fatalf("result %d source = %q", i, r.Source)
		}
		if i == 5 {
			if r.Err == nil || r.Outcome != nil {
				t.Fatalf("expected failure for job 5, got %+v", r)
			}
			continue
		}
		if r.Err != nil {
			t.Fatalf("job %d: %v", i, r.Err)
		}
		if r.Outcome.Accession != fmt.Sprintf("A%03d", i) || r.Outcome.Source != jobs[i].Source {
			t.Fatalf("job %d outcome = %+v", i, r.Outcome)
		}
	}
}

func TestProcessAllCanceled(t *testing.T) {
	p := newProcessor(t, fixup.Tables{}, heuristic.Options{Workers: 2})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results := p.ProcessAll(ctx, []heuristic.Job{{Source: "a", Batch: seqinfo.Batch{desc("1-a", "anat-T1w", "M")}}})
	if !errors.Is(results[0].Err, context.Canceled) {
		t.Fatalf("expected canceled, got %+v", results[0])
	}
}

func TestProcessAllEmpty(t *testing.T) {
	p := newProcessor(t, fixup.Tables{}, heuristic.Options{})
	if got := p.ProcessAll(context.Background(), nil); len(got) != 0 {
		t.Fatalf("results = %v", got)
	}
}
