package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bidsify/internal/catalog"
	"bidsify/internal/seqinfo"
	"bidsify/internal/services"
	"bidsify/internal/testsupport"
	"bidsify/internal/textutil"
)

func TestHashCommand(t *testing.T) {
	out, _, err := runCLI(t, []string{"hash", "cryptonomicon"}, "")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if strings.TrimSpace(out) != "1cd52edfa41af887e14ae71d1db96ad1" {
		t.Fatalf("hash output = %q", out)
	}
}

func TestParseCommand(t *testing.T) {
	out, _, err := runCLI(t, []string{"parse", "bids_func-pace_ses-1_task-boo_run-2", "localizer", "func_run-"}, "")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	requireContains(t, out, "bids_func-pace_ses-1_task-boo_run-2\tfunc\tpace\t1\t2\tboo\t-\t-")
	requireContains(t, out, "localizer\tunrecognized")
	requireContains(t, out, "func_run-\tfunc\t-\t-\t(empty)")

	out, _, err = runCLI(t, []string{"parse", "--json", "anat-T1w"}, "")
	if err != nil {
		t.Fatalf("parse --json: %v", err)
	}
	var reports []parseReport
	if err := json.Unmarshal([]byte(out), &reports); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(reports) != 1 || !reports[0].Recognized || reports[0].Fields["seqtype_label"] != "T1w" {
		t.Fatalf("reports = %+v", reports)
	}
}

func TestClassifyCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	path := testsupport.WriteBatch(t, env.baseDir, "study.json", studyBatch())

	out, _, err := runCLI(t, []string{"classify", path}, env.configPath)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	requireContains(t, out, "Locator:   Haxby/Kim/Life")
	requireContains(t, out, "Subject:   sid000042")
	requireContains(t, out, "{bids_subject_session_dir}/func/{bids_subject_session_prefix}_task-rest_run-02_bold\tnii.gz,dicom\t3-rest 4-rest\t2")
	requireContains(t, out, "Skipped: 1-scout 5-moco")
	requireContains(t, out, "Unrecognized: 6-junk")
}

func TestClassifyCommandJSONAndYAML(t *testing.T) {
	env := setupCLITestEnv(t)
	path := testsupport.WriteBatch(t, env.baseDir, "study.yaml", studyBatch())

	out, _, err := runCLI(t, []string{"classify", "--json", "--output-root", "/bids", path}, env.configPath)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	var reports []classifyReport
	if err := json.Unmarshal([]byte(out), &reports); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(reports) != 1 || reports[0].Outcome == nil {
		t.Fatalf("reports = %+v", reports)
	}
	outcome := reports[0].Outcome
	if outcome.Identity.OutputRoot != "/bids" || len(outcome.Classification.Templates) != 2 {
		t.Fatalf("outcome = %+v", outcome)
	}
}

func TestClassifyCommandReportsFailures(t *testing.T) {
	env := setupCLITestEnv(t)
	good := testsupport.WriteBatch(t, env.baseDir, "good.json", studyBatch())
	bad := testsupport.WriteBatch(t, env.baseDir, "bad.json", seqinfo.Batch{
		testsupport.Series("1-a", "anat_ses-1", "M"),
		testsupport.Series("2-b", "func_ses+", "FMRI"),
	})

	out, _, err := runCLI(t, []string{"classify", good, bad, filepath.Join(env.baseDir, "missing.json")}, env.configPath)
	if err == nil {
		t.Fatal("expected failure")
	}
	requireContains(t, err.Error(), "2 of 3 studies failed")
	requireContains(t, out, "error:")
	requireContains(t, out, "Haxby/Kim/Life")
	if code := services.ExitCode(err); code == 0 {
		t.Fatalf("exit code = %d", code)
	}
}

func TestClassifyCommandKeepsArgumentOrder(t *testing.T) {
	env := setupCLITestEnv(t)
	good := testsupport.WriteBatch(t, env.baseDir, "good.json", studyBatch())
	missing := filepath.Join(env.baseDir, "missing.json")
	bad := testsupport.WriteBatch(t, env.baseDir, "bad.json", seqinfo.Batch{
		testsupport.Series("1-a", "func_run-x", "FMRI"),
	})
	args := []string{good, missing, bad}

	out, _, err := runCLI(t, append([]string{"classify", "--json"}, args...), env.configPath)
	if err == nil {
		t.Fatal("expected failure")
	}
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected the first failing argument's error, got %v", err)
	}
	var reports []classifyReport
	if jsonErr := json.Unmarshal([]byte(out), &reports); jsonErr != nil {
		t.Fatalf("decode: %v\n%s", jsonErr, out)
	}
	if len(reports) != len(args) {
		t.Fatalf("reports = %+v", reports)
	}
	for i, report := range reports {
		if report.Source != args[i] {
			t.Fatalf("report %d source = %q, want %q", i, report.Source, args[i])
		}
	}
	if reports[0].Outcome == nil || reports[0].Error != "" {
		t.Fatalf("good report = %+v", reports[0])
	}
	if reports[1].Error == "" || reports[2].Error == "" {
		t.Fatalf("expected errors for missing and bad batches: %+v", reports[1:])
	}
}

func TestClassifyRecordAndHistory(t *testing.T) {
	env := setupCLITestEnv(t)
	path := testsupport.WriteBatch(t, env.baseDir, "study.json", studyBatch())

	if _, _, err := runCLI(t, []string{"classify", "--record", path}, env.configPath); err != nil {
		t.Fatalf("classify --record: %v", err)
	}

	out, _, err := runCLI(t, []string{"history", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	var entries []catalog.Entry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 1 || entries[0].Locator != "Haxby/Kim/Life" || entries[0].Templates != 2 {
		t.Fatalf("entries = %+v", entries)
	}

	out, _, err = runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "A000100")
}

func TestHistoryEmpty(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "No studies recorded")
}

const customTables = `
canceled_runs:
  A000100: ["^3-"]
substitutions:
  HASH:
    - pattern: "run="
      replacement: "run+"
`

func tablesFor(description string) string {
	return strings.Replace(customTables, "HASH", `"`+textutil.StudyHash(description)+`"`, 1)
}


func TestFixupCommand(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithTablesFile("tables.yaml", tablesFor(testsupport.DefaultStudy.Description)))
	path := testsupport.WriteBatch(t, env.baseDir, "study.json", studyBatch())

	out, _, err := runCLI(t, []string{"fixup", path}, env.configPath)
	if err != nil {
		t.Fatalf("fixup: %v", err)
	}
	requireContains(t, out, "4-rest\tfunc_task-rest_run= -> func_task-rest_run+")
	requireContains(t, out, "3-rest\tfunc_task-rest_run+ -> cancelme_func_task-rest_run+")

	target := filepath.Join(env.baseDir, "fixed.yaml")
	out, _, err = runCLI(t, []string{"fixup", "--out", target, path}, env.configPath)
	if err != nil {
		t.Fatalf("fixup --out: %v", err)
	}
	requireContains(t, out, "Wrote 6 series")
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read fixed batch: %v", err)
	}
	requireContains(t, string(data), "cancelme_func_task-rest_run+")
}

func TestFixupCommandUnknownStudy(t *testing.T) {
	env := setupCLITestEnv(t)
	path := testsupport.WriteBatch(t, env.baseDir, "study.json", studyBatch())

	_, _, err := runCLI(t, []string{"fixup", path}, env.configPath)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}

	out, _, err := runCLI(t, []string{"fixup", "--canceled-only", path}, env.configPath)
	if err != nil {
		t.Fatalf("fixup --canceled-only: %v", err)
	}
	requireContains(t, out, "2-t1\tanat-T1w_acq-MPRAGE_run+")
}

func TestFilterCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	keep := "/home/mvdoc/dbic/09-run_func_meh/0123432432.dcm"
	drop := "/home/mvdoc/dbic/run_func_meh/012343143.dcm"

	out, _, err := runCLI(t, []string{"filter", keep, drop}, env.configPath)
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if strings.TrimSpace(out) != keep {
		t.Fatalf("kept = %q", out)
	}

	cmd := newRootCommand()
	var stdout strings.Builder
	cmd.SetOut(&stdout)
	cmd.SetIn(strings.NewReader(keep + "\n" + drop + "\n"))
	cmd.SetArgs([]string{"--config", env.configPath, "filter", "--rejected"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("filter --rejected: %v", err)
	}
	if strings.TrimSpace(stdout.String()) != drop {
		t.Fatalf("rejected = %q", stdout.String())
	}
}

func TestTablesShowCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"tables", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("tables show: %v", err)
	}
	requireContains(t, out, "Source: embedded defaults")
	requireContains(t, out, "9d148e2a05f782273f6343507733309d\t21")
	requireContains(t, out, "A000035\t^8- ^9-")
	requireContains(t, out, "siemens1")
}

func TestTablesShowBadTables(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithTablesFile("tables.toml", "bogus = true\n"))
	_, _, err := runCLI(t, []string{"tables", "show"}, env.configPath)
	if services.ExitCode(err) != 2 {
		t.Fatalf("expected configuration exit code, got %v", err)
	}
}

func TestClassifyRecordsWhenCatalogEnabled(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithCatalog())
	path := testsupport.WriteBatch(t, env.baseDir, "study.json", studyBatch())

	if _, _, err := runCLI(t, []string{"classify", path}, env.configPath); err != nil {
		t.Fatalf("classify: %v", err)
	}
	out, _, err := runCLI(t, []string{"history", "--accession", "A000100", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	var entries []catalog.Entry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 1 || entries[0].Subject != "sid000042" {
		t.Fatalf("entries = %+v", entries)
	}
}
