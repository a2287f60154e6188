package textutil

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	subjectSIDPattern   = regexp.MustCompile(`^sid0*(\d+)$`)
	subjectStripPattern = regexp.MustCompile(`[-_]`)
	subjectLower        = cases.Lower(language.Und)
)

const subjectSIDWidth = 6

// NormalizeSubjectID turns a patient identifier into a subject label.
// Identifiers of the form sid<digits> are rewritten with a six digit,
// zero-padded number so a missing or extra zero does not split one subject
// in two. Anything else is lowercased with hyphens and underscores removed.
func NormalizeSubjectID(patientID string) string {
	lowered := subjectLower.String(patientID)
	m := subjectSIDPattern.FindStringSubmatch(lowered)
	if m == nil {
		return subjectStripPattern.ReplaceAllString(lowered, "")
	}
	digits := strings.TrimLeft(m[1], "0")
	if len(digits) < subjectSIDWidth {
		digits = strings.Repeat("0", subjectSIDWidth-len(digits)) + digits
	}
	return "sid" + digits
}
