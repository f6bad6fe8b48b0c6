package server

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

func (s *Server) handleRoot(c echo.Context) error {
	return c.JSON(http.StatusOK, healthResponse{
		Message: "matchd - skill-based matching service",
		Status:  "healthy",
	})
}

func (s *Server) handleHealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, healthResponse{Message: "Service is up and running"})
}

func (s *Server) handleGenerateTasks(c echo.Context) error {
	var req generateTasksRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ctx, err := s.scopeContext(c, req.scoped)
	if err != nil {
		return err
	}
	if strings.TrimSpace(req.ProjectDescription) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "project_description is required")
	}

	tasks, err := s.service.GenerateRoadmap(ctx, req.ProjectDescription)
	if err != nil {
		s.logger.Error("roadmap generation failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, generateTasksResponse{Tasks: tasks})
}

func (s *Server) handleIndexUsers(c echo.Context) error {
	var req indexUsersRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ctx, err := s.scopeContext(c, req.scoped)
	if err != nil {
		return err
	}
	if len(req.Users) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "users list is required")
	}

	report, err := s.service.IndexUsers(ctx, req.Users)
	if err != nil {
		s.logger.Error("indexing users failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, indexResponse{
		Message:  "Users indexed successfully",
		Indexed:  report.Indexed,
		Skipped:  report.Skipped,
		Degraded: report.Degraded,
	})
}

func (s *Server) handleIndexTasks(c echo.Context) error {
	var req indexTasksRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ctx, err := s.scopeContext(c, req.scoped)
	if err != nil {
		return err
	}
	if len(req.Tasks) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "tasks list is required")
	}

	report, err := s.service.IndexTasks(ctx, req.Tasks)
	if err != nil {
		s.logger.Error("indexing tasks failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, indexResponse{
		Message:  "Tasks indexed successfully",
		Indexed:  report.Indexed,
		Skipped:  report.Skipped,
		Degraded: report.Degraded,
	})
}

func (s *Server) handleMatchTasksForUsers(c echo.Context) error {
	var req matchUsersRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ctx, err := s.scopeContext(c, req.scoped)
	if err != nil {
		return err
	}
	if len(req.Users) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "users list is required")
	}
	topK, err := s.resolveTopK(req.TopK)
	if err != nil {
		return err
	}

	annotated := make([]userWithMatches, len(req.Users))
	for i, user := range req.Users {
		matches, err := s.service.MatchTasksForUser(ctx, user, topK)
		if err != nil {
			s.logger.Error("matching tasks for user failed",
				zap.String("user_id", user.ID),
				zap.Error(err),
			)
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		annotated[i] = userWithMatches{User: user, MatchedTasks: matches}
	}
	return c.JSON(http.StatusOK, matchedUsersResponse{Users: annotated})
}

func (s *Server) handleMatchUsersForTasks(c echo.Context) error {
	var req matchTasksRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ctx, err := s.scopeContext(c, req.scoped)
	if err != nil {
		return err
	}
	if len(req.Tasks) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "tasks list is required")
	}
	topK, err := s.resolveTopK(req.TopK)
	if err != nil {
		return err
	}

	annotated := make([]taskWithMatches, len(req.Tasks))
	for i, task := range req.Tasks {
		matches, err := s.service.MatchUsersForTask(ctx, task, nil, topK)
		if err != nil {
			s.logger.Error("matching users for task failed",
				zap.String("task_id", task.TaskID),
				zap.Error(err),
			)
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		annotated[i] = taskWithMatches{Task: task, MatchedUsers: matches}
	}
	return c.JSON(http.StatusOK, matchedTasksResponse{Tasks: annotated})
}

func (s *Server) handleMatchTasksForUser(c echo.Context) error {
	var req singleUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ctx, err := s.scopeContext(c, req.scoped)
	if err != nil {
		return err
	}
	if req.User.ID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user is required")
	}
	topK, err := s.resolveTopK(req.TopK)
	if err != nil {
		return err
	}

	matches, err := s.service.MatchTasksForUser(ctx, req.User, topK)
	if err != nil {
		s.logger.Error("matching tasks for user failed",
			zap.String("user_id", req.User.ID),
			zap.Error(err),
		)
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, singleUserResponse{User: req.User, MatchedTasks: matches})
}

func (s *Server) handleMatchUserForTask(c echo.Context) error {
	var req singleTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ctx, err := s.scopeContext(c, req.scoped)
	if err != nil {
		return err
	}
	if req.Task.TaskID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "task is required")
	}
	topK, err := s.resolveTopK(req.TopK)
	if err != nil {
		return err
	}

	matches, err := s.service.MatchUsersForTask(ctx, req.Task, nil, topK)
	if err != nil {
		s.logger.Error("matching users for task failed",
			zap.String("task_id", req.Task.TaskID),
			zap.Error(err),
		)
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, singleTaskResponse{Task: req.Task, MatchedUsers: matches})
}

func (s *Server) handleDeleteUsers(c echo.Context) error {
	var req deleteUsersRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ctx, err := s.scopeContext(c, req.scoped)
	if err != nil {
		return err
	}
	if len(req.UserIDs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "user_ids list is required")
	}

	if err := s.service.DeleteUsers(ctx, req.UserIDs); err != nil {
		s.logger.Error("deleting users failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Users index deleted successfully"})
}

func (s *Server) handleDeleteTasks(c echo.Context) error {
	var req deleteTasksRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ctx, err := s.scopeContext(c, req.scoped)
	if err != nil {
		return err
	}
	if len(req.TaskIDs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "task_ids list is required")
	}

	if err := s.service.DeleteTasks(ctx, req.TaskIDs); err != nil {
		s.logger.Error("deleting tasks failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Tasks index deleted successfully"})
}
