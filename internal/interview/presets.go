package interview

import "sort"

// Preset is a ready-made learning goal that pre-fills the interview start.
type Preset struct {
	Name        string
	Description string
	Goal        Goal
}

// GetPresets returns all available goal presets
func GetPresets() map[string]Preset {
	return map[string]Preset{
		"web-frontend": {
			Name:        "web-frontend",
			Description: "Modern web frontend (HTML, CSS, TypeScript, React)",
			Goal: Goal{
				Topic:          "Web frontend development",
				Goal:           "Build and ship a production single-page application",
				DurationMonths: 6,
				DailyMinutes:   60,
			},
		},
		"go-backend": {
			Name:        "go-backend",
			Description: "Backend services in Go (HTTP, databases, concurrency)",
			Goal: Goal{
				Topic:          "Backend development with Go",
				Goal:           "Design and operate a REST service with a SQL database",
				DurationMonths: 4,
				DailyMinutes:   60,
			},
		},
		"data-analysis": {
			Name:        "data-analysis",
			Description: "Data analysis with Python, SQL and visualisation",
			Goal: Goal{
				Topic:          "Data analysis",
				Goal:           "Answer business questions from raw datasets",
				DurationMonths: 3,
				DailyMinutes:   45,
			},
		},
		"ml-foundations": {
			Name:        "ml-foundations",
			Description: "Machine learning foundations (math, models, evaluation)",
			Goal: Goal{
				Topic:          "Machine learning",
				Goal:           "Train, evaluate and deploy classical ML models",
				DurationMonths: 6,
				DailyMinutes:   90,
			},
		},
		"language-basics": {
			Name:        "language-basics",
			Description: "A new spoken language from zero to conversational",
			Goal: Goal{
				Topic:          "Foreign language",
				Goal:           "Hold a 15 minute everyday conversation",
				DurationMonths: 12,
				DailyMinutes:   30,
				LearningMode:   "quiz",
			},
		},
	}
}

// PresetNames returns the preset names in alphabetical order.
func PresetNames() []string {
	presets := GetPresets()
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
