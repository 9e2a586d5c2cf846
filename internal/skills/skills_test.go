package skills

import (
	"reflect"
	"testing"
)

func TestExtractSkills(t *testing.T) {
	t.Parallel()

	extractor := New("Airflow")

	tests := []struct {
		name   string
		text   string
		expect []string
	}{
		{
			name:   "respects word boundaries",
			text:   "An ongoing project in Golang with a goal of growth",
			expect: []string{},
		},
		{
			name:   "finds standalone go",
			text:   "We write Go and Python.",
			expect: []string{"Go", "Python"},
		},
		{
			name:   "deduplicates and title cases",
			text:   "python PYTHON Node.js, docker; CI/CD pipelines",
			expect: []string{"Ci/Cd", "Docker", "Node.Js", "Python"},
		},
		{
			name:   "handles symbols in terms",
			text:   "C++ and C# on .NET",
			expect: []string{".Net", "C#", "C++"},
		},
		{
			name:   "symbol terms need a non-word neighbour",
			text:   "C++ developer, ASP.NET backend",
			expect: []string{"C++"},
		},
		{
			name:   "java is not found in javascript",
			text:   "JavaScript only",
			expect: []string{"Javascript"},
		},
		{
			name:   "multi word and extra vocabulary",
			text:   "machine learning pipelines on airflow",
			expect: []string{"Airflow", "Machine Learning"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := extractor.ExtractSkills(tt.text)
			if !reflect.DeepEqual(got, tt.expect) {
				t.Fatalf("expected %v, got %v", tt.expect, got)
			}
		})
	}
}

func TestExtractExperienceYears(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text   string
		expect float64
	}{
		{text: "5+ years of experience with Go", expect: 5},
		{text: "3 yrs exp in support", expect: 3},
		{text: "Experience of 4 years in finance", expect: 4},
		{text: "We need 3-5 years in backend", expect: 4},
		{text: "2 years experience, later 10 years experience", expect: 2},
		{text: "no numbers here", expect: 0},
	}

	for _, tt := range tests {
		if got := ExtractExperienceYears(tt.text); got != tt.expect {
			t.Fatalf("%q: expected %v, got %v", tt.text, tt.expect, got)
		}
	}
}

func TestClassifySeniority(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		text   string
		years  float64
		expect Seniority
	}{
		{name: "keyword beats years", text: "Lead engineer", years: 1, expect: Senior},
		{name: "junior keyword", text: "Junior developer", years: 9, expect: Junior},
		{name: "senior wins over junior", text: "Senior mentor for junior staff", years: 0, expect: Senior},
		{name: "mid keyword", text: "Mid-level analyst", years: 0, expect: Mid},
		{name: "threshold senior", text: "developer", years: 7, expect: Senior},
		{name: "threshold mid", text: "developer", years: 3, expect: Mid},
		{name: "threshold junior", text: "developer", years: 2.5, expect: Junior},
		{name: "seniority word is not senior", text: "seniority matters", years: 0, expect: Junior},
	}

	for _, tt := range tests {
		if got := ClassifySeniority(tt.text, tt.years); got != tt.expect {
			t.Fatalf("%s: expected %s, got %s", tt.name, tt.expect, got)
		}
	}
}

func TestClassifyDomain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text   string
		expect string
	}{
		{text: "Software engineer for a fintech", expect: "technology"},
		{text: "Machine learning for trading desks", expect: "data_science"},
		{text: "Investment banking analyst", expect: "finance"},
		{text: "Clinical nurse at the hospital", expect: "healthcare"},
		{text: "Brand and SEO manager", expect: "marketing"},
		{text: "Account manager, business development", expect: "sales"},
		{text: "Graphic designer", expect: "design"},
		{text: "Supply chain coordinator", expect: "operations"},
		{text: "Baker wanted", expect: DefaultDomain},
	}

	for _, tt := range tests {
		if got := ClassifyDomain(tt.text); got != tt.expect {
			t.Fatalf("%q: expected %s, got %s", tt.text, tt.expect, got)
		}
	}
}

func TestOverlap(t *testing.T) {
	t.Parallel()

	t.Run("partial overlap", func(t *testing.T) {
		got := Overlap([]string{"Python", "SQL"}, []string{"Python", "Docker", "SQL"})

		if got.OverlapCount != 2 {
			t.Fatalf("expected overlap count 2, got %d", got.OverlapCount)
		}
		if got.OverlapPercentage != 66.67 {
			t.Fatalf("expected 66.67, got %v", got.OverlapPercentage)
		}
		if !reflect.DeepEqual(got.MissingSkills, []string{"docker"}) {
			t.Fatalf("unexpected missing skills: %v", got.MissingSkills)
		}
		if !reflect.DeepEqual(got.OverlappingSkills, []string{"python", "sql"}) {
			t.Fatalf("unexpected overlapping skills: %v", got.OverlappingSkills)
		}
	})

	t.Run("empty job skills", func(t *testing.T) {
		got := Overlap([]string{"Go"}, nil)
		if got.OverlapPercentage != 0 || got.OverlapCount != 0 {
			t.Fatalf("expected zero overlap, got %+v", got)
		}
		if len(got.MissingSkills) != 0 {
			t.Fatalf("expected no missing skills, got %v", got.MissingSkills)
		}
	})

	t.Run("denominator is the job side", func(t *testing.T) {
		got := Overlap([]string{"Go", "Rust", "Kafka", "Redis"}, []string{"go"})
		if got.OverlapPercentage != 100 {
			t.Fatalf("expected 100, got %v", got.OverlapPercentage)
		}
	})

	t.Run("case and whitespace insensitive", func(t *testing.T) {
		got := Overlap([]string{" docker "}, []string{"Docker", ""})
		if got.OverlapCount != 1 || got.OverlapPercentage != 100 {
			t.Fatalf("unexpected overlap: %+v", got)
		}
	})
}

func TestContactExtraction(t *testing.T) {
	t.Parallel()

	text := "Jane Doe, jane.doe@example.com, call (555) 010-1234"
	if got := ExtractEmail(text); got != "jane.doe@example.com" {
		t.Fatalf("unexpected email %q", got)
	}
	if got := ExtractPhone(text); got != "5550101234" {
		t.Fatalf("unexpected phone %q", got)
	}
	if got := ExtractEmail("nothing"); got != "" {
		t.Fatalf("expected empty email, got %q", got)
	}
}

func TestExtractJobType(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"Full time role":        "full-time",
		"part-time evenings":    "part-time",
		"6 month contract":      "contract",
		"Freelance designer":    "freelance",
		"Summer intern program": "internship",
		"No details":            "full-time",
	}
	for text, expect := range tests {
		if got := ExtractJobType(text); got != expect {
			t.Fatalf("%q: expected %s, got %s", text, expect, got)
		}
	}
}

func TestCleanText(t *testing.T) {
	t.Parallel()

	got := CleanText("  Hello,\n\n world!  (Go)  ")
	if got != "Hello, world! Go" {
		t.Fatalf("unexpected cleaned text %q", got)
	}
}
