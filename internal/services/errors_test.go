package services_test

import (
	"errors"
	"strings"
	"testing"

	"bidsify/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrConfiguration, "fixup", "lookup", "unknown study", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"fixup", "lookup", "unknown study"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "heuristic failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestExitCodeAndKind(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
		kind string
	}{
		{"nil", nil, 0, ""},
		{"configuration", services.Wrap(services.ErrConfiguration, "fixup", "", "", nil), 2, "configuration"},
		{"unsupported", services.Wrap(services.ErrUnsupported, "identity", "", "", nil), 3, "unsupported"},
		{"invariant", services.Wrap(services.ErrInvariant, "seqinfo", "", "", nil), 1, "invariant"},
		{"validation", services.Wrap(services.ErrValidation, "classify", "run", "", nil), 1, "validation"},
		{"plain", errors.New("x"), 1, "unknown"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := services.ExitCode(tc.err); got != tc.code {
				t.Fatalf("ExitCode = %d, want %d", got, tc.code)
			}
			if got := services.Kind(tc.err); got != tc.kind {
				t.Fatalf("Kind = %q, want %q", got, tc.kind)
			}
		})
	}
}
