package services_test

import (
	"context"
	"testing"

	"bidsify/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-42")
	ctx = services.WithStage(ctx, "classify")
	ctx = services.WithStudyHash(ctx, "abc123")
	ctx = services.WithSource(ctx, "/tmp/batch.json")

	if id, ok := services.RunIDFromContext(ctx); !ok || id != "run-42" {
		t.Fatalf("unexpected run id: %v %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "classify" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if hash, ok := services.StudyHashFromContext(ctx); !ok || hash != "abc123" {
		t.Fatalf("unexpected study hash: %v %v", hash, ok)
	}
	if src, ok := services.SourceFromContext(ctx); !ok || src != "/tmp/batch.json" {
		t.Fatalf("unexpected source: %v %v", src, ok)
	}
}

func TestStageBlankPreservesContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
	ctx = services.WithRunID(ctx, "")
	if _, ok := services.RunIDFromContext(ctx); ok {
		t.Fatal("expected no run id")
	}
}
