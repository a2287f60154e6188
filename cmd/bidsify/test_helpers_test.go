package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bidsify/internal/config"
	"bidsify/internal/seqinfo"
	"bidsify/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	base := testsupport.BaseDir(cfg)
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("BIDSIFY_TABLES", "")

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	encoded, err := cfg.Encode()
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.WriteFile(path, []byte(encoded), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func studyBatch() seqinfo.Batch {
	return seqinfo.Batch{
		testsupport.Series("1-scout", "anat-scout", "M"),
		testsupport.Series("2-t1", "anat-T1w_acq-MPRAGE_run+", "M"),
		testsupport.Series("3-rest", "func_task-rest_run+", "FMRI"),
		testsupport.Series("4-rest", "func_task-rest_run=", "FMRI"),
		testsupport.Series("5-moco", "func_task-rest_run+", "FMRI", testsupport.Derived()),
		testsupport.Series("6-junk", "localizer", "M"),
	}
}
