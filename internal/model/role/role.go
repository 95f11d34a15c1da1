package role

import "strings"

// Role describes a job role candidates can interview for.
type Role struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Focus       []string `json:"focus,omitempty"` // 题库与提示词使用的技术方向
}

// Seed returns the built-in role catalog.
func Seed() []Role {
	return []Role{
		{
			ID:          "front-end",
			Title:       "Frontend Developer",
			Description: "Proficient in HTML, CSS and JavaScript along with a modern UI framework.",
			Focus:       []string{"html", "css", "javascript", "react", "accessibility"},
		},
		{
			ID:          "back-end",
			Title:       "Backend Developer",
			Description: "Builds services, databases and RESTful APIs.",
			Focus:       []string{"http", "databases", "rest", "caching", "queues"},
		},
		{
			ID:          "full-stack",
			Title:       "MERN Stack Developer",
			Description: "Works across MongoDB, Express.js, React and Node.js.",
			Focus:       []string{"mongodb", "express", "react", "node"},
		},
		{
			ID:          "ai-engineer",
			Title:       "AI Engineer",
			Description: "Ships machine-learning models and LLM features to production.",
			Focus:       []string{"python", "transformers", "evaluation", "mlops"},
		},
		{
			ID:          "network-engineer",
			Title:       "Network Engineer",
			Description: "Designs and operates routed and switched networks.",
			Focus:       []string{"tcp/ip", "routing", "dns", "firewalls"},
		},
		{
			ID:          "cloud-architect",
			Title:       "Cloud Architect",
			Description: "Plans resilient, cost-aware cloud platforms.",
			Focus:       []string{"aws", "kubernetes", "networking", "iam"},
		},
		{
			ID:          "data-analyst",
			Title:       "Data Analyst",
			Description: "Turns raw data into reports and decisions.",
			Focus:       []string{"sql", "statistics", "visualisation", "excel"},
		},
		{
			ID:          "python-developer",
			Title:       "Python Developer",
			Description: "Writes idiomatic, tested Python services and scripts.",
			Focus:       []string{"python", "asyncio", "packaging", "testing"},
		},
		{
			ID:          "js-developer",
			Title:       "JavaScript Developer",
			Description: "Deep knowledge of the JavaScript language and runtime.",
			Focus:       []string{"javascript", "event loop", "typescript", "node"},
		},
		{
			ID:          "java-developer",
			Title:       "Java Developer",
			Description: "Builds JVM services with Java and Spring.",
			Focus:       []string{"java", "spring", "jvm", "concurrency"},
		},
		{
			ID:          "android-developer",
			Title:       "Android Developer",
			Description: "Builds native Android apps in Kotlin.",
			Focus:       []string{"kotlin", "jetpack compose", "lifecycle", "coroutines"},
		},
	}
}

// Matches reports whether raw names this role by id or title, case-insensitively.
func (r Role) Matches(raw string) bool {
	raw = strings.TrimSpace(raw)
	return strings.EqualFold(raw, r.ID) || strings.EqualFold(raw, r.Title)
}
