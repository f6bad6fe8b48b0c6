package server

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/optiplanhq/matchd/internal/matching"
	"github.com/optiplanhq/matchd/internal/roadmap"
	"github.com/optiplanhq/matchd/internal/scope"
)

// ErrGenerationDisabled is returned when roadmap generation is called
// without a configured generator.
var ErrGenerationDisabled = errors.New("roadmap generation not configured")

// Service is the core surface the HTTP layer drives. Scope arrives via
// context on every call.
type Service interface {
	GenerateRoadmap(ctx context.Context, projectDescription string) ([]matching.Task, error)
	IndexUsers(ctx context.Context, users []matching.User) (matching.Report, error)
	IndexTasks(ctx context.Context, tasks []matching.Task) (matching.Report, error)
	MatchTasksForUser(ctx context.Context, user matching.User, topK int) ([]matching.TaskMatch, error)
	MatchUsersForTask(ctx context.Context, task matching.Task, candidateUserIDs []string, topK int) ([]matching.UserMatch, error)
	DeleteUsers(ctx context.Context, userIDs []string) error
	DeleteTasks(ctx context.Context, taskIDs []string) error
}

// Core wires the matching packages into one Service.
type Core struct {
	indexer   *matching.Indexer
	matcher   *matching.Matcher
	deleter   *matching.Deleter
	generator roadmap.Generator
	logger    *zap.Logger
}

// NewCore creates the core service. generator may be nil; roadmap
// generation then returns ErrGenerationDisabled.
func NewCore(indexer *matching.Indexer, matcher *matching.Matcher, deleter *matching.Deleter, generator roadmap.Generator, logger *zap.Logger) *Core {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Core{
		indexer:   indexer,
		matcher:   matcher,
		deleter:   deleter,
		generator: generator,
		logger:    logger,
	}
}

// GenerateRoadmap generates tasks for a project description and rewrites
// their batch-local IDs into the caller's project scope.
func (c *Core) GenerateRoadmap(ctx context.Context, projectDescription string) ([]matching.Task, error) {
	if c.generator == nil {
		return nil, ErrGenerationDisabled
	}
	sc, err := scope.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	tasks, err := c.generator.Generate(ctx, projectDescription)
	if err != nil {
		return nil, fmt.Errorf("generating roadmap: %w", err)
	}
	return roadmap.ScopeTaskIDs(tasks, sc.ProjectID), nil
}

func (c *Core) IndexUsers(ctx context.Context, users []matching.User) (matching.Report, error) {
	return c.indexer.IndexUsers(ctx, users)
}

func (c *Core) IndexTasks(ctx context.Context, tasks []matching.Task) (matching.Report, error) {
	return c.indexer.IndexTasks(ctx, tasks)
}

func (c *Core) MatchTasksForUser(ctx context.Context, user matching.User, topK int) ([]matching.TaskMatch, error) {
	return c.matcher.MatchTasksForUser(ctx, user, topK)
}

func (c *Core) MatchUsersForTask(ctx context.Context, task matching.Task, candidateUserIDs []string, topK int) ([]matching.UserMatch, error) {
	return c.matcher.MatchUsersForTask(ctx, task, candidateUserIDs, topK)
}

func (c *Core) DeleteUsers(ctx context.Context, userIDs []string) error {
	return c.deleter.DeleteUsers(ctx, userIDs)
}

func (c *Core) DeleteTasks(ctx context.Context, taskIDs []string) error {
	return c.deleter.DeleteTasks(ctx, taskIDs)
}

var _ Service = (*Core)(nil)
