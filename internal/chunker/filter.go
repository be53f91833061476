package chunker

import "strings"

// proceduralPhrases are boilerplate fragments that make a statement
// procedural rather than substantive, regardless of length.
var proceduralPhrases = []string{
	"thank you",
	"i yield back",
	"i yield the balance",
	"without objection",
	"the chair recognizes",
	"the gentleman yields",
	"the gentlewoman yields",
	"hearing adjourned",
	"hearing is adjourned",
	"meeting is adjourned",
	"we are adjourned",
	"the committee will come to order",
}

// administrativeTitles are whole-document floor-speech titles that carry no
// substantive content and should be dropped before chunking.
var administrativeTitles = []string{
	"prayer",
	"daily digest",
	"reports of committees",
	"pledge of allegiance",
	"recess",
}

// IsProcedural reports whether a statement is administrative boilerplate:
// short (fewer than 10 words) or containing a known procedural phrase.
func IsProcedural(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return true
	}
	lower := strings.ToLower(trimmed)
	for _, phrase := range proceduralPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	if wordCount(trimmed) < 10 {
		return true
	}
	return false
}

// IsAdministrativeTitle reports whether a floor-speech document title names a
// non-substantive administrative section, including "FrontMatter"-style
// placeholder pages. Only the title is inspected.
func IsAdministrativeTitle(title string) bool {
	lower := strings.ToLower(strings.TrimSpace(title))
	if strings.HasPrefix(lower, "frontmatter") {
		return true
	}
	for _, t := range administrativeTitles {
		if lower == t || strings.Contains(lower, t) {
			return true
		}
	}
	return false
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
