package skills

// defaultVocabulary is the fixed list of skill terms recognised in free text.
var defaultVocabulary = []string{
	"python", "java", "javascript", "typescript", "react", "angular", "vue",
	"node.js", "express", "django", "flask", "fastapi", "spring", "sql",
	"postgresql", "mysql", "mongodb", "redis", "docker", "kubernetes",
	"aws", "azure", "gcp", "git", "ci/cd", "agile", "scrum", "html", "css",
	"rest api", "graphql", "microservices", "machine learning", "deep learning",
	"tensorflow", "pytorch", "scikit-learn", "pandas", "numpy", "data analysis",
	"tableau", "power bi", "spark", "hadoop", "linux", "bash", "devops",
	"jenkins", "terraform", "ansible", "elasticsearch", "kafka", "rabbitmq",
	"c++", "c#", ".net", "php", "ruby", "go", "rust", "scala", "kotlin",
	"swift", "objective-c", "android", "ios", "flutter", "react native",
}

// Seniority terms are checked in this order: senior wins over junior, junior over mid.
var (
	seniorTerms = []string{"senior", "lead", "principal", "staff", "architect"}
	juniorTerms = []string{"junior", "entry", "graduate", "intern"}
	midTerms    = []string{"mid-level", "intermediate", "associate"}
)

type domainRule struct {
	name     string
	keywords []string
}

// domainRules is evaluated top to bottom and the first rule with a matching keyword wins.
// Order: technology, data_science, finance, healthcare, marketing, sales, design, operations.
var domainRules = []domainRule{
	{name: "technology", keywords: []string{"software", "developer", "engineer", "programmer", "tech", "it", "devops"}},
	{name: "data_science", keywords: []string{"data scientist", "machine learning", "ai", "analytics", "data engineer"}},
	{name: "finance", keywords: []string{"finance", "banking", "investment", "trading", "fintech"}},
	{name: "healthcare", keywords: []string{"healthcare", "medical", "hospital", "clinical", "pharmaceutical"}},
	{name: "marketing", keywords: []string{"marketing", "digital marketing", "seo", "content", "brand"}},
	{name: "sales", keywords: []string{"sales", "business development", "account manager"}},
	{name: "design", keywords: []string{"designer", "ui/ux", "graphic", "creative"}},
	{name: "operations", keywords: []string{"operations", "logistics", "supply chain", "project manager"}},
}

// DefaultDomain is returned when no domain rule matches.
const DefaultDomain = "general"
