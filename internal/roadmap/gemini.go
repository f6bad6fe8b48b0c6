package roadmap

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/optiplanhq/matchd/internal/matching"
)

const defaultGenerationModel = "gemini-2.5-flash"

// roadmapPrompt instructs the model to emit a bare JSON task array.
// The JSON response MIME type enforces structure; the prompt carries the
// field contract.
const roadmapPrompt = `You are a strategic project planner. Break the following project
description into a roadmap of concrete tasks.

Return a JSON array of task objects. For each task provide:
- task_id: a unique numeric identifier starting from 1
- name: an action-oriented task brief of 2-8 words, e.g. "Implement user authentication system"
- description: a paragraph of 2-4 complete sentences describing the work
- complexity: an integer from 1 (trivial) to 10 (very complex)
- estimated_hours: estimated effort in hours
- required_skills: an array of objects with
  - name: the skill name, e.g. "React"
  - category: one of frontend, backend, database, cloud, design, management
  - preferred_experience: preferred years of experience (0-10)
  - required_proficiency: required proficiency level (1-10)
- depends_on: an array of task_ids that must be completed first (may be empty)

Return ONLY the JSON array, no markdown code blocks, no explanations.

Project description:
%s`

// GeminiConfig holds configuration for the Gemini roadmap generator.
type GeminiConfig struct {
	// APIKey authenticates against the Gemini API. Required.
	APIKey string

	// Model is the generation model name. Default: gemini-2.5-flash.
	Model string
}

// GeminiGenerator generates roadmaps with a Gemini model constrained to
// JSON output.
type GeminiGenerator struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

// NewGeminiGenerator creates a Gemini roadmap generator.
func NewGeminiGenerator(ctx context.Context, cfg GeminiConfig, logger *zap.Logger) (*GeminiGenerator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("gemini api key required")
	}
	if cfg.Model == "" {
		cfg.Model = defaultGenerationModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return &GeminiGenerator{client: client, model: cfg.Model, logger: logger}, nil
}

// Generate produces a task roadmap for a project description. Returned
// task IDs are batch-local; callers rewrite them with ScopeTaskIDs.
func (g *GeminiGenerator) Generate(ctx context.Context, projectDescription string) ([]matching.Task, error) {
	if strings.TrimSpace(projectDescription) == "" {
		return nil, ErrEmptyDescription
	}

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.model,
		genai.Text(fmt.Sprintf(roadmapPrompt, projectDescription)),
		&genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
		},
	)
	if err != nil {
		return nil, fmt.Errorf("generating roadmap: %w", err)
	}

	tasks, err := ParseTasks(resp.Text())
	if err != nil {
		g.logger.Error("unparseable roadmap output",
			zap.String("model", g.model),
			zap.Error(err),
		)
		return nil, err
	}

	g.logger.Info("generated roadmap",
		zap.String("model", g.model),
		zap.Int("tasks", len(tasks)),
		zap.Duration("duration", time.Since(start)),
	)
	return tasks, nil
}

var _ Generator = (*GeminiGenerator)(nil)
