package matching

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/optiplanhq/matchd/internal/vectorstore"
)

// idNamespace is the fixed UUID namespace for stable document IDs.
// Changing it orphans every previously indexed vector.
var idNamespace = uuid.MustParse("9c0f7e52-4b1d-4a6e-8f3a-2d5b8c1e9a47")

// Weighting constants. Experience caps at 10 years; proficiency is
// declared on a 0-100 scale for held skills and 0-10 for required ones.
const (
	experienceWeight  = 0.4
	proficiencyWeight = 0.6
	experienceCap     = 10.0

	heldProficiencyCap     = 100.0
	requiredProficiencyCap = 10.0

	// weightFloor keeps weights strictly positive so a candidate whose
	// only matched skill has zero declared depth still accumulates score.
	weightFloor = 0.05
)

// categoryMultipliers bias weights by skill category.
var categoryMultipliers = map[string]float64{
	"frontend":   1.1,
	"backend":    1.1,
	"design":     1.1,
	"database":   1.15,
	"cloud":      1.15,
	"management": 1.0,
}

// StableID returns the deterministic vector ID for an entity. User IDs
// are keyed per (user, skill); task IDs per task. The same inputs always
// produce the same UUID, so re-indexing supersedes in place.
func StableID(entityID, skillName string, isUser bool) string {
	var base string
	if isUser {
		base = fmt.Sprintf("user_%s_skill_%s", entityID, skillName)
	} else {
		base = fmt.Sprintf("task_%s", entityID)
	}
	return uuid.NewSHA1(idNamespace, []byte(base)).String()
}

// SkillText renders a held skill as its embeddable document text.
func SkillText(s HeldSkill) string {
	return fmt.Sprintf("Skill: %s\nCategory: %s\nExperience: %sy\nProficiency: %s",
		s.Name, s.Category, formatNumber(s.ExperienceYears), formatNumber(s.ProficiencyScore))
}

// SkillQueryText renders a skill facet as query text. Only name and
// category carry semantic signal; depth goes into the facet weight.
func SkillQueryText(name, category string) string {
	return fmt.Sprintf("Skill: %s\nCategory: %s", name, category)
}

// TaskText renders a task as its embeddable document text.
func TaskText(t Task) string {
	names := make([]string, len(t.RequiredSkills))
	for i, s := range t.RequiredSkills {
		names[i] = s.Name
	}
	return fmt.Sprintf("Task: %s\nRequired Skills: %s", t.Name, strings.Join(names, ", "))
}

// HeldSkillWeight computes the facet weight of a held skill.
func HeldSkillWeight(s HeldSkill) float64 {
	return skillWeight(s.ExperienceYears, s.ProficiencyScore, heldProficiencyCap, s.Category)
}

// RequiredSkillWeight computes the facet weight of a required skill.
func RequiredSkillWeight(s RequiredSkill) float64 {
	return skillWeight(s.PreferredExperience, s.RequiredProficiency, requiredProficiencyCap, s.Category)
}

func skillWeight(experience, proficiency, proficiencyCap float64, category string) float64 {
	exp := experience / experienceCap
	if exp > 1 {
		exp = 1
	}
	if exp < 0 {
		exp = 0
	}
	prof := proficiency / proficiencyCap
	if prof > 1 {
		prof = 1
	}
	if prof < 0 {
		prof = 0
	}

	multiplier := 1.0
	if m, ok := categoryMultipliers[strings.ToLower(category)]; ok {
		multiplier = m
	}

	w := (experienceWeight*exp + proficiencyWeight*prof) * multiplier
	if w < weightFloor {
		return weightFloor
	}
	if w > 1 {
		return 1
	}
	return w
}

// UserSkillDocuments builds one document per well-formed held skill.
// Malformed skills (empty name or category) are skipped with a warning.
// The returned skipped count feeds the indexing report.
func UserSkillDocuments(user User, logger *zap.Logger) (docs []vectorstore.Document, skipped int) {
	for _, skill := range user.Skills {
		if skill.Name == "" || skill.Category == "" {
			logger.Warn("skipping malformed skill",
				zap.String("user_id", user.ID),
				zap.String("skill_name", skill.Name),
				zap.String("skill_category", skill.Category),
			)
			skipped++
			continue
		}
		content := SkillText(skill)
		docs = append(docs, vectorstore.Document{
			ID:      StableID(user.ID, skill.Name, true),
			Content: content,
			Metadata: map[string]interface{}{
				"user_id":        user.ID,
				"user_name":      user.Name,
				"primary_domain": user.PrimaryDomain,
				"skill_name":     skill.Name,
				"skill_category": skill.Category,
				"experience":     formatNumber(skill.ExperienceYears),
				"proficiency":    formatNumber(skill.ProficiencyScore),
				"weight":         formatNumber(HeldSkillWeight(skill)),
			},
		})
	}
	return docs, skipped
}

// TaskDocument builds the whole-task document. A task without an ID or
// name is malformed and reported as not ok.
func TaskDocument(task Task, logger *zap.Logger) (vectorstore.Document, bool) {
	if task.TaskID == "" || task.Name == "" {
		logger.Warn("skipping malformed task",
			zap.String("task_id", task.TaskID),
			zap.String("task_name", task.Name),
		)
		return vectorstore.Document{}, false
	}

	names := make([]string, len(task.RequiredSkills))
	for i, s := range task.RequiredSkills {
		names[i] = s.Name
	}

	return vectorstore.Document{
		ID:      StableID(task.TaskID, "", false),
		Content: TaskText(task),
		Metadata: map[string]interface{}{
			"task_id":         task.TaskID,
			"task_name":       task.Name,
			"required_skills": names,
			"min_complexity":  strconv.Itoa(task.Complexity),
			"time_estimate":   formatNumber(task.EstimatedHours),
		},
	}, true
}

// formatNumber renders a float without trailing zeros, matching the
// indexed document text across runs.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
