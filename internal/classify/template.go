package classify

import (
	"path"
	"slices"
	"strings"

	"bidsify/internal/services"
)

// Placeholders substituted by the converter when files are written.
const (
	SubjectSessionDir    = "{bids_subject_session_dir}"
	SubjectSessionPrefix = "{bids_subject_session_prefix}"
)

// DefaultOutputTypes are the representations written for every template.
var DefaultOutputTypes = []string{"nii.gz", "dicom"}

// TemplateKey names the destination of a group of series.
type TemplateKey struct {
	Subdir            string   `json:"subdir"`
	Suffix            string   `json:"suffix"`
	Prefix            string   `json:"prefix,omitempty"`
	OutputTypes       []string `json:"output_types"`
	AnnotationClasses []string `json:"annotation_classes,omitempty"`
}

// NewTemplateKey builds a key. subdir is required; nil outputTypes selects
// DefaultOutputTypes.
func NewTemplateKey(subdir, suffix string, outputTypes, annotationClasses []string, prefix string) (TemplateKey, error) {
	if strings.TrimSpace(subdir) == "" {
		return TemplateKey{}, services.Wrap(services.ErrValidation, "classify", "template", "subdir must be a valid format string", nil)
	}
	if outputTypes == nil {
		outputTypes = DefaultOutputTypes
	}
	return TemplateKey{
		Subdir:            subdir,
		Suffix:            suffix,
		Prefix:            prefix,
		OutputTypes:       slices.Clone(outputTypes),
		AnnotationClasses: slices.Clone(annotationClasses),
	}, nil
}

// Template renders the path template, for example
// "{bids_subject_session_dir}/func/{bids_subject_session_prefix}_task-rest_run-01_bold".
func (k TemplateKey) Template() string {
	return path.Join(k.Prefix, SubjectSessionDir, k.Subdir, SubjectSessionPrefix+"_"+k.Suffix)
}

// String returns the rendered template.
func (k TemplateKey) String() string { return k.Template() }

// identity is the textual form two keys must share to collapse.
func (k TemplateKey) identity() string {
	return k.Template() + "\x00" + strings.Join(k.OutputTypes, ",") + "\x00" + strings.Join(k.AnnotationClasses, ",")
}
