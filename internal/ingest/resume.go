package ingest

import (
	"strings"
	"unicode"
)

const maxNameLength = 100

var (
	educationKeywords = []string{"education", "degree", "university", "college", "bachelor", "master", "phd", "diploma"}
	sectionKeywords   = []string{"experience", "skills", "projects", "certifications"}
)

// ExtractName returns the first short line of a resume that holds no digits
// and no e-mail address.
func ExtractName(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || len(line) >= maxNameLength || strings.Contains(line, "@") {
			continue
		}
		if strings.IndexFunc(line, unicode.IsDigit) >= 0 {
			continue
		}
		return line
	}
	return ""
}

// ExtractEducation collects up to five lines starting at the first line that
// mentions education, stopping at the next resume section.
func ExtractEducation(text string) string {
	var section []string
	inEducation := false

	for _, line := range strings.Split(strings.ToLower(text), "\n") {
		switch {
		case hasAny(line, educationKeywords):
			inEducation = true
		case inEducation && len(section) > 0 && hasAny(line, sectionKeywords):
			return joinEducation(section)
		}

		if inEducation {
			if trimmed := strings.TrimSpace(line); trimmed != "" {
				section = append(section, trimmed)
			}
		}
	}

	return joinEducation(section)
}

func joinEducation(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	if len(lines) > 5 {
		lines = lines[:5]
	}
	return strings.Join(lines, " | ")
}

func hasAny(line string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(line, k) {
			return true
		}
	}
	return false
}
