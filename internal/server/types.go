package server

import "github.com/optiplanhq/matchd/internal/matching"

// scoped carries the organizational scope every request must declare.
type scoped struct {
	ProjectID string `json:"project_id"`
	ManagerID string `json:"manager_id"`
}

type generateTasksRequest struct {
	scoped
	ProjectDescription string `json:"project_description"`
}

type generateTasksResponse struct {
	Tasks []matching.Task `json:"tasks"`
}

type indexUsersRequest struct {
	scoped
	Users []matching.User `json:"users"`
}

type indexTasksRequest struct {
	scoped
	Tasks []matching.Task `json:"tasks"`
}

type indexResponse struct {
	Message  string `json:"message"`
	Indexed  int    `json:"indexed"`
	Skipped  int    `json:"skipped"`
	Degraded int    `json:"degraded,omitempty"`
}

type matchUsersRequest struct {
	scoped
	Users []matching.User `json:"users"`
	TopK  *int            `json:"top_k,omitempty"`
}

type matchTasksRequest struct {
	scoped
	Tasks []matching.Task `json:"tasks"`
	TopK  *int            `json:"top_k,omitempty"`
}

type singleUserRequest struct {
	scoped
	User matching.User `json:"user"`
	TopK *int          `json:"top_k,omitempty"`
}

type singleTaskRequest struct {
	scoped
	Task matching.Task `json:"task"`
	TopK *int          `json:"top_k,omitempty"`
}

// userWithMatches is a user annotated with their ranked tasks.
type userWithMatches struct {
	matching.User
	MatchedTasks []matching.TaskMatch `json:"matched_tasks"`
}

// taskWithMatches is a task annotated with its ranked users.
type taskWithMatches struct {
	matching.Task
	MatchedUsers []matching.UserMatch `json:"matched_users"`
}

type matchedUsersResponse struct {
	Users []userWithMatches `json:"users"`
}

type matchedTasksResponse struct {
	Tasks []taskWithMatches `json:"tasks"`
}

type singleUserResponse struct {
	User         matching.User        `json:"user"`
	MatchedTasks []matching.TaskMatch `json:"matched_tasks"`
}

type singleTaskResponse struct {
	Task         matching.Task        `json:"task"`
	MatchedUsers []matching.UserMatch `json:"matched_users"`
}

type deleteUsersRequest struct {
	scoped
	UserIDs []string `json:"user_ids"`
}

type deleteTasksRequest struct {
	scoped
	TaskIDs []string `json:"task_ids"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type healthResponse struct {
	Message string `json:"message"`
	Status  string `json:"status,omitempty"`
}
