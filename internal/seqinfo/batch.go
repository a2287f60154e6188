package seqinfo

import (
	"fmt"
	"sort"
	"strings"

	"bidsify/internal/services"
)

// Batch is the ordered (chronological) list of series for one study.
type Batch []SeriesDescriptor

// NotUniqueError reports a batch that mixes values of a field which must be
// identical for every series of a study.
type NotUniqueError struct {
	Field  string
	Values []string
}

func (e *NotUniqueError) Error() string {
	if len(e.Values) == 0 {
		return fmt.Sprintf("%s: batch is empty", e.Field)
	}
	return fmt.Sprintf("%s is not unique across batch: %s", e.Field, strings.Join(e.Values, ", "))
}

// Unwrap ties the error to the invariant marker.
func (e *NotUniqueError) Unwrap() error { return services.ErrInvariant }

// Clone returns a deep copy of the batch.
func (b Batch) Clone() Batch {
	if b == nil {
		return nil
	}
	out := make(Batch, len(b))
	for i, s := range b {
		out[i] = s.Clone()
	}
	return out
}

// SeriesIDs lists the series identifiers in batch order.
func (b Batch) SeriesIDs() []string {
	ids := make([]string, len(b))
	for i, s := range b {
		ids[i] = s.SeriesID
	}
	return ids
}

// Unique returns the single value of an attribute shared by every series.
// It fails with a NotUniqueError when the batch is empty or values differ.
func (b Batch) Unique(field string, get func(SeriesDescriptor) string) (string, error) {
	seen := make(map[string]struct{}, 1)
	for _, s := range b {
		seen[get(s)] = struct{}{}
	}
	if len(seen) == 1 {
		for v := range seen {
			return v, nil
		}
	}
	values := make([]string, 0, len(seen))
	for v := range seen {
		values = append(values, v)
	}
	sort.Strings(values)
	return "", &NotUniqueError{Field: field, Values: values}
}

// UniqueAccession returns the batch accession number.
func (b Batch) UniqueAccession() (string, error) {
	return b.Unique("accession_number", func(s SeriesDescriptor) string { return s.AccessionNumber })
}

// UniquePatientID returns the batch patient identifier.
func (b Batch) UniquePatientID() (string, error) {
	return b.Unique("patient_id", func(s SeriesDescriptor) string { return s.PatientID })
}

// UniqueStudyDescription returns the batch study description.
func (b Batch) UniqueStudyDescription() (string, error) {
	return b.Unique("study_description", func(s SeriesDescriptor) string { return s.StudyDescription })
}

// Study summarizes the identity fields shared by a batch.
type Study struct {
	Accession   string
	PatientID   string
	Description string
}

// Validate checks the single-study invariant and returns the shared fields.
func (b Batch) Validate() (Study, error) {
	accession, err := b.UniqueAccession()
	if err != nil {
		return Study{}, err
	}
	patient, err := b.UniquePatientID()
	if err != nil {
		return Study{}, err
	}
	description, err := b.UniqueStudyDescription()
	if err != nil {
		return Study{}, err
	}
	return Study{Accession: accession, PatientID: patient, Description: description}, nil
}
