package testsupport

import "bidsify/internal/seqinfo"

// StudyFields are the values shared by every series of a generated study.
type StudyFields struct {
	Accession   string
	PatientID   string
	Description string
}

// DefaultStudy is used by Series when no study is given.
var DefaultStudy = StudyFields{
	Accession:   "A000100",
	PatientID:   "sid0042",
	Description: "Haxby-Kim^Life",
}

// SeriesOption customizes a generated descriptor.
type SeriesOption func(*seqinfo.SeriesDescriptor)

// Derived marks the series as derived data.
func Derived() SeriesOption {
	return func(s *seqinfo.SeriesDescriptor) { s.IsDerived = true }
}

// Description sets the series description independently of the protocol.
func Description(value string) SeriesOption {
	return func(s *seqinfo.SeriesDescriptor) { s.SeriesDescription = value }
}

// InStudy places the series in another study.
func InStudy(study StudyFields) SeriesOption {
	return func(s *seqinfo.SeriesDescriptor) {
		s.AccessionNumber = study.Accession
		s.PatientID = study.PatientID
		s.StudyDescription = study.Description
	}
}

// Series builds a descriptor of DefaultStudy. dataType is the third image
// type element (M, P, FMRI, DIFFUSION, ...).
func Series(id, protocol, dataType string, opts ...SeriesOption) seqinfo.SeriesDescriptor {
	s := seqinfo.SeriesDescriptor{
		SeriesID:          id,
		ProtocolName:      protocol,
		SeriesDescription: protocol,
		ImageType:         seqinfo.ImageType{"ORIGINAL", "PRIMARY", dataType, "ND"},
		AccessionNumber:   DefaultStudy.Accession,
		PatientID:         DefaultStudy.PatientID,
		StudyDescription:  DefaultStudy.Description,
		Dim1:              64,
		Dim2:              64,
		Dim3:              32,
		Dim4:              1,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}
