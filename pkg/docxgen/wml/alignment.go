package wml

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var upper = cases.Upper(language.Und)

// paragraph alignment keywords and their w:jc values
var alignments = map[string]string{
	"LEFT":         "left",
	"CENTER":       "center",
	"RIGHT":        "right",
	"JUSTIFY":      "both",
	"DISTRIBUTE":   "distribute",
	"JUSTIFY_MED":  "mediumKashida",
	"JUSTIFY_HI":   "highKashida",
	"JUSTIFY_LOW":  "lowKashida",
	"THAI_JUSTIFY": "thaiDistribute",
}

// Keyword normalizes an alignment or position keyword for comparison.
func Keyword(s string) string {
	return upper.String(strings.TrimSpace(s))
}

// Alignment maps a case-insensitive alignment keyword to its w:jc value.
func Alignment(keyword string) (string, bool) {
	jc, ok := alignments[Keyword(keyword)]
	return jc, ok
}
