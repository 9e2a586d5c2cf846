package skills

import (
	"regexp"
	"strings"
)

var (
	emailPattern  = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	phonePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\+?1?\s*\(?(\d{3})\)?[-.\s]?(\d{3})[-.\s]?(\d{4})`),
		regexp.MustCompile(`\b\d{3}[-.]?\d{3}[-.]?\d{4}\b`),
	}
	spacePattern  = regexp.MustCompile(`\s+`)
	symbolPattern = regexp.MustCompile(`[^\p{L}\p{N}_\s.,!?-]`)
)

// ExtractEmail returns the first e-mail address in text.
func ExtractEmail(text string) string {
	return emailPattern.FindString(text)
}

// ExtractPhone returns the digits of the first phone number in text.
func ExtractPhone(text string) string {
	for _, pattern := range phonePatterns {
		groups := pattern.FindStringSubmatch(text)
		if groups == nil {
			continue
		}
		if len(groups) > 1 {
			return strings.Join(groups[1:], "")
		}
		return groups[0]
	}
	return ""
}

// ExtractJobType guesses the employment type of a posting; full-time when nothing is mentioned.
func ExtractJobType(text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "full-time") || strings.Contains(lower, "full time"):
		return "full-time"
	case strings.Contains(lower, "part-time") || strings.Contains(lower, "part time"):
		return "part-time"
	case strings.Contains(lower, "contract"):
		return "contract"
	case strings.Contains(lower, "freelance"):
		return "freelance"
	case strings.Contains(lower, "intern"):
		return "internship"
	default:
		return "full-time"
	}
}

// CleanText collapses whitespace and drops symbols other than basic punctuation.
func CleanText(text string) string {
	text = spacePattern.ReplaceAllString(text, " ")
	text = symbolPattern.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}
