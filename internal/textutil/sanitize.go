package textutil

import "strings"

// valueReplacer drops punctuation that is illegal in BIDS label values.
// Hyphens survive here; parsed values have them mapped to a placeholder
// before sanitizing.
var valueReplacer = strings.NewReplacer(
	"#", "",
	"!", "",
	"@", "",
	"$", "",
	"%", "",
	"^", "",
	"&", "",
	".", "",
	",", "",
	":", "",
	";", "",
	"_", "",
)

// SanitizeValue removes characters that may not appear in a BIDS label value.
func SanitizeValue(value string) string {
	if value == "" {
		return ""
	}
	return valueReplacer.Replace(value)
}

// SeparatorPlaceholder replaces entity separators inside label values.
const SeparatorPlaceholder = "X"

var separatorReplacer = strings.NewReplacer(
	"_", SeparatorPlaceholder,
	"-", SeparatorPlaceholder,
)

// SanitizeLabel maps separators to the placeholder and then strips illegal
// punctuation, yielding a value that can be embedded as key-value.
func SanitizeLabel(value string) string {
	return SanitizeValue(separatorReplacer.Replace(value))
}
