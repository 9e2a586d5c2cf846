package ingest

import (
	"context"

	"github.com/google/uuid"
)

// sampleNamespace keeps sample ids stable so seeding twice updates rather than duplicates.
var sampleNamespace = uuid.MustParse("6f1c4b9e-2d55-4a8e-9a53-0d3c2f7b8e11")

func sampleID(key string) string {
	return uuid.NewSHA1(sampleNamespace, []byte(key)).String()
}

func years(v float64) *float64 { return &v }

// SampleCandidates is a small fixed corpus for trying the matcher out.
func SampleCandidates() []CandidateInput {
	return []CandidateInput{
		{
			ID:              CandidateIDFromEmail("alice.johnson@email.com"),
			Name:            "Alice Johnson",
			Email:           "alice.johnson@email.com",
			Phone:           "555-0101",
			Skills:          []string{"Python", "Machine Learning", "TensorFlow", "PyTorch", "Data Analysis", "SQL"},
			ExperienceYears: years(5),
			Education:       "Master's in Computer Science, Stanford University",
			Text:            "Experienced Data Scientist with 5 years of expertise in machine learning, deep learning, and data analysis. Proficient in Python, TensorFlow, PyTorch, and SQL.",
		},
		{
			ID:              CandidateIDFromEmail("bob.smith@email.com"),
			Name:            "Bob Smith",
			Email:           "bob.smith@email.com",
			Phone:           "555-0102",
			Skills:          []string{"JavaScript", "React", "Node.js", "TypeScript", "AWS", "Docker"},
			ExperienceYears: years(4),
			Education:       "Bachelor's in Software Engineering, MIT",
			Text:            "Full Stack Developer with 4 years of experience building scalable web applications using React, Node.js, and cloud technologies.",
		},
		{
			ID:              CandidateIDFromEmail("carol.williams@email.com"),
			Name:            "Carol Williams",
			Email:           "carol.williams@email.com",
			Phone:           "555-0103",
			Skills:          []string{"Python", "FastAPI", "Django", "PostgreSQL", "Redis", "Docker", "Kubernetes"},
			ExperienceYears: years(7),
			Education:       "Master's in Software Engineering, UC Berkeley",
			Text:            "Senior Backend Engineer with 7 years of experience designing and implementing microservices architecture using Python, FastAPI, and cloud-native technologies.",
		},
		{
			ID:              CandidateIDFromEmail("david.chen@email.com"),
			Name:            "David Chen",
			Email:           "david.chen@email.com",
			Phone:           "555-0104",
			Skills:          []string{"Java", "Spring Boot", "Microservices", "Kafka", "MongoDB", "AWS"},
			ExperienceYears: years(6),
			Education:       "Bachelor's in Computer Science, Carnegie Mellon",
			Text:            "Senior Java Developer with 6 years of experience in enterprise applications, microservices, and distributed systems.",
		},
		{
			ID:              CandidateIDFromEmail("emma.davis@email.com"),
			Name:            "Emma Davis",
			Email:           "emma.davis@email.com",
			Phone:           "555-0105",
			Skills:          []string{"React", "Vue.js", "JavaScript", "CSS", "HTML", "TailwindCSS", "Figma"},
			ExperienceYears: years(3),
			Education:       "Bachelor's in Design, Rhode Island School of Design",
			Text:            "Frontend Developer with 3 years of experience creating beautiful, responsive user interfaces using modern JavaScript frameworks and design tools.",
		},
	}
}

// SampleJobs is a small fixed corpus for trying the matcher out.
func SampleJobs() []JobInput {
	return []JobInput{
		{
			ID:                 sampleID("job/AI Innovations Inc/Senior Machine Learning Engineer"),
			Title:              "Senior Machine Learning Engineer",
			Company:            "AI Innovations Inc",
			Description:        "We are seeking a Senior ML Engineer with expertise in deep learning, PyTorch, and production ML systems. You will lead the development of cutting-edge AI models.",
			RequiredSkills:     []string{"Python", "Machine Learning", "Deep Learning", "PyTorch", "TensorFlow", "AWS"},
			ExperienceRequired: years(5),
			Location:           "San Francisco, CA",
			JobType:            "full-time",
			SeniorityLevel:     "senior",
			Domain:             "data_science",
		},
		{
			ID:                 sampleID("job/WebTech Solutions/Full Stack Developer"),
			Title:              "Full Stack Developer",
			Company:            "WebTech Solutions",
			Description:        "Join our team to build modern web applications using React, Node.js, and cloud technologies. Experience with TypeScript and AWS is highly valued.",
			RequiredSkills:     []string{"React", "Node.js", "JavaScript", "TypeScript", "PostgreSQL", "AWS"},
			ExperienceRequired: years(3),
			Location:           "Remote",
			JobType:            "full-time",
			SeniorityLevel:     "mid",
			Domain:             "technology",
		},
		{
			ID:                 sampleID("job/CloudScale Systems/Backend Python Developer"),
			Title:              "Backend Python Developer",
			Company:            "CloudScale Systems",
			Description:        "We need a skilled Python developer to work on our microservices platform. FastAPI, Docker, and Kubernetes experience required.",
			RequiredSkills:     []string{"Python", "FastAPI", "Docker", "Kubernetes", "PostgreSQL", "Redis"},
			ExperienceRequired: years(4),
			Location:           "Austin, TX",
			JobType:            "full-time",
			SeniorityLevel:     "mid",
			Domain:             "technology",
		},
		{
			ID:                 sampleID("job/Enterprise Tech Corp/Lead Java Architect"),
			Title:              "Lead Java Architect",
			Company:            "Enterprise Tech Corp",
			Description:        "Lead the design and implementation of enterprise-scale Java applications using Spring Boot, microservices, and cloud technologies.",
			RequiredSkills:     []string{"Java", "Spring Boot", "Microservices", "Kafka", "AWS", "MongoDB"},
			ExperienceRequired: years(8),
			Location:           "New York, NY",
			JobType:            "full-time",
			SeniorityLevel:     "senior",
			Domain:             "technology",
		},
		{
			ID:                 sampleID("job/Design First Studios/Frontend Developer"),
			Title:              "Frontend Developer",
			Company:            "Design First Studios",
			Description:        "Create stunning user interfaces using React, Vue.js, and modern CSS frameworks. Work closely with designers to implement pixel-perfect designs.",
			RequiredSkills:     []string{"React", "Vue.js", "JavaScript", "TailwindCSS", "CSS", "HTML"},
			ExperienceRequired: years(2),
			Location:           "Remote",
			JobType:            "full-time",
			SeniorityLevel:     "junior",
			Domain:             "technology",
		},
		{
			ID:                 sampleID("job/Analytics Pro/Data Scientist"),
			Title:              "Data Scientist",
			Company:            "Analytics Pro",
			Description:        "Analyze complex datasets and build predictive models using Python, machine learning, and statistical methods. SQL and data visualization skills required.",
			RequiredSkills:     []string{"Python", "Machine Learning", "SQL", "Pandas", "NumPy", "Tableau"},
			ExperienceRequired: years(4),
			Location:           "Boston, MA",
			JobType:            "full-time",
			SeniorityLevel:     "mid",
			Domain:             "data_science",
		},
	}
}

// Seed ingests the sample corpus and returns how many candidates and jobs were stored.
func (i *Ingester) Seed(ctx context.Context) (candidates, jobs int, err error) {
	for _, in := range SampleCandidates() {
		if _, err := i.IngestCandidate(ctx, in); err != nil {
			return candidates, jobs, err
		}
		candidates++
	}
	for _, in := range SampleJobs() {
		if _, err := i.IngestJob(ctx, in); err != nil {
			return candidates, jobs, err
		}
		jobs++
	}
	return candidates, jobs, nil
}
