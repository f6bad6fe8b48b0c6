// Package roadmap generates project task roadmaps from a free-form
// project description.
//
// Generated task IDs are batch-local small integers; callers rewrite
// them into project scope with ScopeTaskIDs before the tasks leave the
// service. IDs are never assumed stable across generations.
package roadmap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/optiplanhq/matchd/internal/matching"
)

// Sentinel errors for roadmap generation.
var (
	// ErrEmptyDescription indicates an empty project description.
	ErrEmptyDescription = errors.New("empty project description")

	// ErrMalformedOutput indicates model output that could not be parsed
	// into a task list.
	ErrMalformedOutput = errors.New("malformed roadmap output")
)

// Generator produces a task roadmap from a project description.
type Generator interface {
	Generate(ctx context.Context, projectDescription string) ([]matching.Task, error)
}

// ScopeTaskIDs rewrites batch-local task IDs into project scope:
// id -> {projectID}_{id}, including depends_on references. Returns a
// new slice; the input is not modified.
func ScopeTaskIDs(tasks []matching.Task, projectID string) []matching.Task {
	scoped := make([]matching.Task, len(tasks))
	for i, task := range tasks {
		task.TaskID = fmt.Sprintf("%s_%s", projectID, task.TaskID)
		if len(task.DependsOn) > 0 {
			deps := make([]string, len(task.DependsOn))
			for j, dep := range task.DependsOn {
				deps[j] = fmt.Sprintf("%s_%s", projectID, dep)
			}
			task.DependsOn = deps
		}
		scoped[i] = task
	}
	return scoped
}

// flexID decodes a task id that models emit as either a JSON number or
// a string.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("task id is neither string nor number: %s", data)
	}
	*f = flexID(n.String())
	return nil
}

type generatedTask struct {
	TaskID         flexID                   `json:"task_id"`
	Name           string                   `json:"name"`
	Description    string                   `json:"description"`
	Complexity     int                      `json:"complexity"`
	EstimatedHours float64                  `json:"estimated_hours"`
	RequiredSkills []matching.RequiredSkill `json:"required_skills"`
	DependsOn      []flexID                 `json:"depends_on"`
}

// ParseTasks parses a model's JSON task array, tolerating markdown code
// fences around the payload.
func ParseTasks(raw string) ([]matching.Task, error) {
	payload := stripFences(raw)
	if payload == "" {
		return nil, fmt.Errorf("%w: empty output", ErrMalformedOutput)
	}

	var generated []generatedTask
	if err := json.Unmarshal([]byte(payload), &generated); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}

	tasks := make([]matching.Task, 0, len(generated))
	for i, g := range generated {
		if g.TaskID == "" || g.Name == "" {
			return nil, fmt.Errorf("%w: task at index %d missing id or name", ErrMalformedOutput, i)
		}
		deps := make([]string, len(g.DependsOn))
		for j, dep := range g.DependsOn {
			deps[j] = string(dep)
		}
		tasks = append(tasks, matching.Task{
			TaskID:         string(g.TaskID),
			Name:           g.Name,
			Description:    g.Description,
			Complexity:     g.Complexity,
			EstimatedHours: g.EstimatedHours,
			RequiredSkills: g.RequiredSkills,
			DependsOn:      deps,
		})
	}
	return tasks, nil
}

// stripFences removes a surrounding markdown code fence, with or
// without a language tag.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
