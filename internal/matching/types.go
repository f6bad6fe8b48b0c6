// Package matching implements the skill-based matching core: document
// construction, indexing, per-facet similarity matching, and deletion.
//
// People and work items live in two vector namespaces. A user is indexed
// as one vector per held skill; a task as one whole-task vector. Matching
// queries the opposite namespace once per facet (a required skill when
// ranking users, a held skill when ranking tasks) and aggregates the hits
// into a weighted mean per candidate.
package matching

// Vector namespaces. Store implementations map these to collections.
const (
	// NamespaceUserSkills holds one vector per (user, held skill).
	NamespaceUserSkills = "user_skills"

	// NamespaceTasks holds one vector per task.
	NamespaceTasks = "tasks"
)

// HeldSkill is a skill a user declares, with self-assessed depth.
type HeldSkill struct {
	Name     string `json:"name"`
	Category string `json:"category"`

	// ExperienceYears is years of experience; normalized against a
	// 10-year cap when weighting.
	ExperienceYears float64 `json:"experience_years"`

	// ProficiencyScore is self-assessed proficiency on a 0-100 scale.
	ProficiencyScore float64 `json:"proficiency_score"`
}

// RequiredSkill is a skill a task calls for.
type RequiredSkill struct {
	Name     string `json:"name"`
	Category string `json:"category"`

	// PreferredExperience is desired years of experience on a 0-10 scale.
	PreferredExperience float64 `json:"preferred_experience"`

	// RequiredProficiency is the required proficiency on a 1-10 scale.
	RequiredProficiency float64 `json:"required_proficiency"`
}

// User is a person with declared skills.
type User struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	PrimaryDomain string      `json:"primary_domain"`
	Skills        []HeldSkill `json:"skills"`
}

// Task is a unit of work with skill requirements.
type Task struct {
	TaskID string `json:"task_id"`
	Name   string `json:"name"`

	// Description is free-form detail carried from roadmap generation.
	// It is not part of the embedded document text.
	Description    string          `json:"description,omitempty"`
	Complexity     int             `json:"complexity"`
	EstimatedHours float64         `json:"estimated_hours"`
	RequiredSkills []RequiredSkill `json:"required_skills"`
	DependsOn      []string        `json:"depends_on,omitempty"`
}

// UserMatch is one ranked user for a task.
type UserMatch struct {
	UserID     string  `json:"user_id"`
	Name       string  `json:"name"`
	MatchScore float64 `json:"match_score"`

	// SkillCoverage is the fraction of the task's required skills that
	// produced at least one hit on this user.
	SkillCoverage float64 `json:"skill_coverage"`
}

// TaskMatch is one ranked task for a user.
type TaskMatch struct {
	TaskID     string  `json:"task_id"`
	Name       string  `json:"name"`
	MatchScore float64 `json:"match_score"`

	// SkillCoverage is the fraction of the user's held skills that
	// produced at least one hit on this task.
	SkillCoverage float64 `json:"skill_coverage"`

	// MinComplexity and TimeEstimate are passed through from the indexed
	// task's metadata for downstream planning.
	MinComplexity int     `json:"min_complexity"`
	TimeEstimate  float64 `json:"time_estimate"`
}

// Report summarizes one indexing call.
type Report struct {
	// Indexed is the number of documents upserted.
	Indexed int `json:"indexed"`

	// Skipped is the number of malformed records dropped.
	Skipped int `json:"skipped"`

	// Degraded is the number of documents stored with zero-vector
	// embeddings after a provider failure. They are findable by filter
	// but carry no similarity signal until re-indexed.
	Degraded int `json:"degraded,omitempty"`
}
