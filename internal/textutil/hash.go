package textutil

import (
	"crypto/md5"
	"encoding/hex"
)

// StudyHash returns the lowercase hex MD5 digest of a study description.
// Correction tables and per-study policies are keyed by this value.
func StudyHash(description string) string {
	sum := md5.Sum([]byte(description))
	return hex.EncodeToString(sum[:])
}
