package fixup

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"bidsify/internal/policy"
	"bidsify/internal/services"
)

//go:embed default_tables.toml
var defaultTables []byte

// Substitution is one regular-expression rewrite. Replacement uses Go
// regexp expansion syntax ($1, ${name}).
type Substitution struct {
	Pattern     string `toml:"pattern" yaml:"pattern" json:"pattern"`
	Replacement string `toml:"replacement" yaml:"replacement" json:"replacement"`
}

// RejectRule drops raw files of one accession whose series directory matches
// Reject. Files that do not match are kept.
type RejectRule struct {
	Accession string `toml:"accession" yaml:"accession" json:"accession"`
	Reject    string `toml:"reject" yaml:"reject" json:"reject"`
}

// FileFilter decides which raw files are collected before classification.
type FileFilter struct {
	// Require is the pattern a series directory must match by default.
	// Empty keeps every file.
	Require string `toml:"require" yaml:"require" json:"require,omitempty"`
	// KeepAllAccessions are accessions whose files are never filtered.
	KeepAllAccessions []string `toml:"keep_all_accessions" yaml:"keep_all_accessions" json:"keep_all_accessions,omitempty"`
	// KeepAccessionPrefixes keep every file of accessions starting with a prefix.
	KeepAccessionPrefixes []string     `toml:"keep_accession_prefixes" yaml:"keep_accession_prefixes" json:"keep_accession_prefixes,omitempty"`
	Rules                 []RejectRule `toml:"rules" yaml:"rules" json:"rules,omitempty"`
}

// Tables is the correction resource.
type Tables struct {
	// Fields names the descriptor fields substitutions apply to.
	Fields []string `toml:"fields" yaml:"fields" json:"fields,omitempty"`
	// CanceledRuns maps an accession number to series-id patterns.
	CanceledRuns map[string][]string `toml:"canceled_runs" yaml:"canceled_runs" json:"canceled_runs,omitempty"`
	// Substitutions maps a study hash to its ordered rewrites.
	Substitutions map[string][]Substitution `toml:"substitutions" yaml:"substitutions" json:"substitutions,omitempty"`
	SkipStudyUIDs []string                  `toml:"skip_study_uids" yaml:"skip_study_uids" json:"skip_study_uids,omitempty"`
	FileFilter    FileFilter                `toml:"file_filter" yaml:"file_filter" json:"file_filter"`
	Policies      []policy.Policy           `toml:"policies" yaml:"policies" json:"policies,omitempty"`
}

// Format is the encoding of a tables resource.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// FormatForPath picks the encoding from a file extension.
func FormatForPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", services.Wrap(services.ErrConfiguration, "fixup", "load tables", fmt.Sprintf("unsupported tables extension %q", filepath.Ext(path)), nil)
	}
}

// ParseTables decodes a tables resource. Unknown keys are rejected.
func ParseTables(data []byte, format Format) (Tables, error) {
	var tables Tables
	switch format {
	case FormatTOML:
		decoder := toml.NewDecoder(bytes.NewReader(data))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&tables); err != nil {
			return Tables{}, services.Wrap(services.ErrConfiguration, "fixup", "parse tables", "invalid toml", err)
		}
	case FormatYAML:
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&tables); err != nil {
			return Tables{}, services.Wrap(services.ErrConfiguration, "fixup", "parse tables", "invalid yaml", err)
		}
	default:
		return Tables{}, services.Wrap(services.ErrConfiguration, "fixup", "parse tables", fmt.Sprintf("unknown format %q", format), nil)
	}
	return tables, nil
}

// LoadTables reads a tables resource from disk.
func LoadTables(path string) (Tables, error) {
	format, err := FormatForPath(path)
	if err != nil {
		return Tables{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Tables{}, services.Wrap(services.ErrConfiguration, "fixup", "load tables", path, err)
	}
	return ParseTables(data, format)
}

// DefaultTables returns the embedded tables.
func DefaultTables() (Tables, error) {
	return ParseTables(defaultTables, FormatTOML)
}
