// Package batchfile reads and writes series batches exchanged with the DICOM
// scanner: a JSON array or YAML sequence of series descriptors in
// acquisition order.
package batchfile

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"bidsify/internal/seqinfo"
	"bidsify/internal/services"
)

// Format is a batch encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatForPath picks the format from the extension; anything that is not
// YAML is read as JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Read loads a batch from disk.
func Read(path string) (seqinfo.Batch, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "batchfile", "read", path, err)
	}
	defer file.Close()
	batch, err := Decode(file, FormatForPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return batch, nil
}

// Decode reads a batch. Unknown fields are rejected so typos in hand-edited
// batches surface.
func Decode(r io.Reader, format Format) (seqinfo.Batch, error) {
	var batch seqinfo.Batch
	switch format {
	case FormatYAML:
		decoder := yaml.NewDecoder(r)
		decoder.KnownFields(true)
		if err := decoder.Decode(&batch); err != nil && err != io.EOF {
			return nil, services.Wrap(services.ErrValidation, "batchfile", "decode", "invalid yaml batch", err)
		}
	case FormatJSON:
		decoder := json.NewDecoder(r)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&batch); err != nil {
			return nil, services.Wrap(services.ErrValidation, "batchfile", "decode", "invalid json batch", err)
		}
	default:
		return nil, services.Wrap(services.ErrValidation, "batchfile", "decode", fmt.Sprintf("unknown format %q", format), nil)
	}
	if len(batch) == 0 {
		return nil, services.Wrap(services.ErrValidation, "batchfile", "decode", "batch has no series", nil)
	}
	return batch, nil
}

// Encode writes a batch.
func Encode(w io.Writer, batch seqinfo.Batch, format Format) error {
	switch format {
	case FormatYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(batch); err != nil {
			return fmt.Errorf("encode yaml batch: %w", err)
		}
		return encoder.Close()
	case FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(batch); err != nil {
			return fmt.Errorf("encode json batch: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown batch format %q", format)
	}
}
