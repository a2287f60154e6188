package seqinfo

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
)

// ImageType is the DICOM ImageType classification tuple, for example
// ["ORIGINAL", "PRIMARY", "M", "ND", "NORM"].
type ImageType []string

// DataType returns the third element (M, P, FMRI, DIFFUSION, MIP_SAG, ...),
// which carries the coarse image data type. It is empty when absent.
func (t ImageType) DataType() string {
	if len(t) < 3 {
		return ""
	}
	return strings.TrimSpace(t[2])
}

// Clone returns an independent copy of the tuple.
func (t ImageType) Clone() ImageType {
	if t == nil {
		return nil
	}
	return slices.Clone(t)
}

// Field names a rewritable text field of a SeriesDescriptor.
type Field string

const (
	FieldProtocolName      Field = "protocol_name"
	FieldSeriesDescription Field = "series_description"
)

// DefaultFixupFields are the fields correction tables rewrite unless told otherwise.
var DefaultFixupFields = []Field{FieldProtocolName, FieldSeriesDescription}

// ParseField validates a field name coming from configuration.
func ParseField(name string) (Field, error) {
	switch f := Field(strings.ToLower(strings.TrimSpace(name))); f {
	case FieldProtocolName, FieldSeriesDescription:
		return f, nil
	default:
		return "", fmt.Errorf("unknown descriptor field %q", name)
	}
}

// SeriesDescriptor describes one scanned series. Treat values as immutable
// and use the With* methods to derive modified copies.
type SeriesDescriptor struct {
	TotalFiles         int       `json:"total_files_till_now,omitempty" yaml:"total_files_till_now,omitempty"`
	ExampleFile        string    `json:"example_dcm_file,omitempty" yaml:"example_dcm_file,omitempty"`
	SeriesID           string    `json:"series_id" yaml:"series_id"`
	Dim1               int       `json:"dim1,omitempty" yaml:"dim1,omitempty"`
	Dim2               int       `json:"dim2,omitempty" yaml:"dim2,omitempty"`
	Dim3               int       `json:"dim3,omitempty" yaml:"dim3,omitempty"`
	Dim4               int       `json:"dim4,omitempty" yaml:"dim4,omitempty"`
	RepetitionTime     float64   `json:"tr,omitempty" yaml:"tr,omitempty"`
	EchoTime           float64   `json:"te,omitempty" yaml:"te,omitempty"`
	ProtocolName       string    `json:"protocol_name" yaml:"protocol_name"`
	IsMotionCorrected  bool      `json:"is_motion_corrected,omitempty" yaml:"is_motion_corrected,omitempty"`
	IsDerived          bool      `json:"is_derived,omitempty" yaml:"is_derived,omitempty"`
	PatientID          string    `json:"patient_id" yaml:"patient_id"`
	StudyDescription   string    `json:"study_description" yaml:"study_description"`
	ReferringPhysician string    `json:"referring_physician_name,omitempty" yaml:"referring_physician_name,omitempty"`
	SeriesDescription  string    `json:"series_description" yaml:"series_description"`
	SequenceName       string    `json:"sequence_name,omitempty" yaml:"sequence_name,omitempty"`
	ImageType          ImageType `json:"image_type" yaml:"image_type"`
	AccessionNumber    string    `json:"accession_number" yaml:"accession_number"`
	PatientAge         string    `json:"patient_age,omitempty" yaml:"patient_age,omitempty"`
	PatientSex         string    `json:"patient_sex,omitempty" yaml:"patient_sex,omitempty"`
	Date               string    `json:"date,omitempty" yaml:"date,omitempty"`
	StudyInstanceUID   string    `json:"study_instance_uid,omitempty" yaml:"study_instance_uid,omitempty"`
}

// Clone returns a deep copy of the descriptor.
func (s SeriesDescriptor) Clone() SeriesDescriptor {
	s.ImageType = s.ImageType.Clone()
	return s
}

// Get returns the value of a rewritable field.
func (s SeriesDescriptor) Get(field Field) string {
	switch field {
	case FieldProtocolName:
		return s.ProtocolName
	case FieldSeriesDescription:
		return s.SeriesDescription
	default:
		return ""
	}
}

// With returns a copy with field replaced by value. Unknown fields leave the
// copy unchanged.
func (s SeriesDescriptor) With(field Field, value string) SeriesDescriptor {
	out := s.Clone()
	switch field {
	case FieldProtocolName:
		out.ProtocolName = value
	case FieldSeriesDescription:
		out.SeriesDescription = value
	}
	return out
}

// WithProtocolName returns a copy with ProtocolName replaced.
func (s SeriesDescriptor) WithProtocolName(value string) SeriesDescriptor {
	return s.With(FieldProtocolName, value)
}

// WithSeriesDescription returns a copy with SeriesDescription replaced.
func (s SeriesDescriptor) WithSeriesDescription(value string) SeriesDescriptor {
	return s.With(FieldSeriesDescription, value)
}

// Equal reports whether two descriptors carry identical values.
func (s SeriesDescriptor) Equal(other SeriesDescriptor) bool {
	if !slices.Equal(s.ImageType, other.ImageType) {
		return false
	}
	a, b := s, other
	a.ImageType, b.ImageType = nil, nil
	return reflect.DeepEqual(a, b)
}

// Image data types that drive fieldmap handling.
const (
	DataTypeMagnitude = "M"
	DataTypePhase     = "P"
)
