// Package skills classifies free text with keyword rules: skills, experience,
// seniority and domain, plus the skill overlap between a candidate and a job.
package skills

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/spigell/hh-matcher/internal/entity"
)

type Seniority string

const (
	Junior Seniority = "junior"
	Mid    Seniority = "mid"
	Senior Seniority = "senior"
)

var experiencePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d+)\+?\s*(?:years?|yrs?)(?:\s+of)?\s+(?:experience|exp)`),
	regexp.MustCompile(`(?:experience|exp)(?:\s+of)?\s+(\d+)\+?\s*(?:years?|yrs?)`),
	regexp.MustCompile(`(\d+)\s*-\s*(\d+)\s*(?:years?|yrs?)`),
}

// Extractor finds vocabulary terms in text.
type Extractor struct {
	vocabulary []string
}

// New returns an extractor over the default vocabulary plus any extra terms.
func New(extra ...string) *Extractor {
	seen := make(map[string]struct{}, len(defaultVocabulary)+len(extra))
	vocabulary := make([]string, 0, len(defaultVocabulary)+len(extra))
	for _, term := range append(append([]string{}, defaultVocabulary...), extra...) {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			continue
		}
		if _, ok := seen[term]; ok {
			continue
		}
		seen[term] = struct{}{}
		vocabulary = append(vocabulary, term)
	}

	return &Extractor{vocabulary: vocabulary}
}

// ExtractSkills returns the title-cased vocabulary terms found in text, sorted.
func (e *Extractor) ExtractSkills(text string) []string {
	lower := strings.ToLower(text)
	found := make([]string, 0)
	for _, term := range e.vocabulary {
		if containsTerm(lower, term) {
			found = append(found, titleCase(term))
		}
	}
	sort.Strings(found)
	return found
}

// ExtractExperienceYears returns the first experience figure found in text, or 0.
// A range such as "3-5 years" yields its average.
func ExtractExperienceYears(text string) float64 {
	lower := strings.ToLower(text)
	for _, pattern := range experiencePatterns {
		groups := pattern.FindStringSubmatch(lower)
		if groups == nil {
			continue
		}
		if len(groups) == 3 {
			from, _ := strconv.Atoi(groups[1])
			to, _ := strconv.Atoi(groups[2])
			return float64(from+to) / 2
		}
		years, _ := strconv.Atoi(groups[1])
		return float64(years)
	}
	return 0
}

// ClassifySeniority prefers explicit keywords over the experience thresholds.
func ClassifySeniority(text string, experienceYears float64) Seniority {
	lower := strings.ToLower(text)
	switch {
	case containsAny(lower, seniorTerms):
		return Senior
	case containsAny(lower, juniorTerms):
		return Junior
	case containsAny(lower, midTerms):
		return Mid
	}

	switch {
	case experienceYears >= 7:
		return Senior
	case experienceYears >= 3:
		return Mid
	default:
		return Junior
	}
}

// ClassifyDomain returns the first domain in rule order whose keyword appears in text.
func ClassifyDomain(text string) string {
	lower := strings.ToLower(text)
	for _, rule := range domainRules {
		if containsAny(lower, rule.keywords) {
			return rule.name
		}
	}
	return DefaultDomain
}

// Overlap compares a candidate's skills against a job's required skills.
// The percentage is always relative to the job side.
func Overlap(candidateSkills, jobSkills []string) entity.SkillOverlap {
	have := lowerSet(candidateSkills)
	want := lowerSet(jobSkills)

	overlapping := make([]string, 0)
	missing := make([]string, 0)
	for skill := range want {
		if _, ok := have[skill]; ok {
			overlapping = append(overlapping, skill)
		} else {
			missing = append(missing, skill)
		}
	}
	sort.Strings(overlapping)
	sort.Strings(missing)

	percentage := 0.0
	if len(want) > 0 {
		percentage = Round2(float64(len(overlapping)) / float64(len(want)) * 100)
	}

	return entity.SkillOverlap{
		OverlappingSkills: overlapping,
		OverlapCount:      len(overlapping),
		OverlapPercentage: percentage,
		MissingSkills:     missing,
	}
}

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func lowerSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		set[v] = struct{}{}
	}
	return set
}

func containsAny(lower string, terms []string) bool {
	for _, term := range terms {
		if containsTerm(lower, term) {
			return true
		}
	}
	return false
}

// containsTerm reports whether term occurs in text with no word character
// directly before or after it, so "go" is not found in "ongoing".
func containsTerm(text, term string) bool {
	if term == "" {
		return false
	}
	offset := 0
	for {
		idx := strings.Index(text[offset:], term)
		if idx < 0 {
			return false
		}
		start := offset + idx
		end := start + len(term)

		before, _ := utf8.DecodeLastRuneInString(text[:start])
		after, _ := utf8.DecodeRuneInString(text[end:])
		if (start == 0 || !isWordRune(before)) && (end == len(text) || !isWordRune(after)) {
			return true
		}

		_, size := utf8.DecodeRuneInString(text[start:])
		offset = start + size
	}
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// titleCase upper-cases every letter that follows a non-letter, e.g. "node.js" -> "Node.Js".
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
			continue
		}
		b.WriteRune(r)
		prevLetter = false
	}
	return b.String()
}
