package batchfile

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bidsify/internal/seqinfo"
	"bidsify/internal/services"
)

func sampleBatch() seqinfo.Batch {
	return seqinfo.Batch{
		{
			SeriesID:          "1-anat",
			ProtocolName:      "anat-T1w",
			SeriesDescription: "anat-T1w",
			ImageType:         seqinfo.ImageType{"ORIGINAL", "PRIMARY", "M"},
			AccessionNumber:   "A1",
			PatientID:         "sid1",
			StudyDescription:  "PI^Study",
			Dim1:              256,
			RepetitionTime:    2.3,
		},
	}
}

func TestReadJSONAndYAML(t *testing.T) {
	dir := t.TempDir()
	for _, format := range []Format{FormatJSON, FormatYAML} {
		var buf bytes.Buffer
		if err := Encode(&buf, sampleBatch(), format); err != nil {
			t.Fatalf("Encode(%s): %v", format, err)
		}
		path := filepath.Join(dir, "batch."+string(format))
		if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		batch, err := Read(path)
		if err != nil {
			t.Fatalf("Read(%s): %v", format, err)
		}
		if len(batch) != 1 || !batch[0].Equal(sampleBatch()[0]) {
			t.Fatalf("%s: batch = %+v", format, batch)
		}
	}
}

func TestFormatForPath(t *testing.T) {
	if FormatForPath("a.YML") != FormatYAML || FormatForPath("a.json") != FormatJSON || FormatForPath("a") != FormatJSON {
		t.Fatal("unexpected format detection")
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		format Format
	}{
		{"empty json array", "[]", FormatJSON},
		{"empty yaml", "", FormatYAML},
		{"unknown json field", `[{"series_id": "1", "bogus": 1}]`, FormatJSON},
		{"unknown yaml field", "- series_id: '1'\n  bogus: 1\n", FormatYAML},
		{"bad format", "[]", Format("xml")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.input), tt.format)
			if !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestReadMissingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "missing.json"))
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
