package controller

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/singleflight"
	"taskflow/internal/apperrors"
	"taskflow/internal/cache"
	"taskflow/internal/models"
	"taskflow/internal/service"
)

// TaskController handles the task endpoints. The unfiltered default
// listing is served cache-first as raw bytes; every mutation invalidates.
type TaskController struct {
	svc       *service.Tasks
	listGroup singleflight.Group
}

// NewTaskController wires the task controller.
func NewTaskController(svc *service.Tasks) *TaskController {
	return &TaskController{svc: svc}
}

// Create handles POST /api/tasks.
func (tc *TaskController) Create(c *gin.Context) {
	ctx := c.Request.Context()
	var input models.CreateTaskInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	task, err := tc.svc.CreateTask(ctx, &input, currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	cache.InvalidateTasks(ctx)
	respondData(c, http.StatusCreated, task)
}

// List handles GET /api/tasks with filter and sort query parameters.
func (tc *TaskController) List(c *gin.Context) {
	ctx := c.Request.Context()
	filters, sort, err := parseTaskQuery(c)
	if err != nil {
		respondError(c, err)
		return
	}

	if defaultQuery(filters, sort) {
		if b, ok := cache.GetRawTasks(ctx); ok {
			c.Data(http.StatusOK, "application/json", b)
			return
		}
		v, err, _ := tc.listGroup.Do("tasks", func() (interface{}, error) {
			tasks, err := tc.svc.GetTasks(context.Background(), filters, sort)
			if err != nil {
				return nil, err
			}
			return json.Marshal(gin.H{"success": true, "data": tasks})
		})
		if err != nil {
			respondError(c, err)
			return
		}
		b := v.([]byte)
		c.Data(http.StatusOK, "application/json", b)
		go cache.SetRawTasksAsync(b)
		return
	}

	tasks, err := tc.svc.GetTasks(ctx, filters, sort)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, tasks)
}

// GetByID handles GET /api/tasks/:id.
func (tc *TaskController) GetByID(c *gin.Context) {
	task, err := tc.svc.GetTaskByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, task)
}

// Update handles PUT /api/tasks/:id.
func (tc *TaskController) Update(c *gin.Context) {
	ctx := c.Request.Context()
	var input models.UpdateTaskInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	task, err := tc.svc.UpdateTask(ctx, c.Param("id"), &input, currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	cache.InvalidateTasks(ctx)
	respondData(c, http.StatusOK, task)
}

// Delete handles DELETE /api/tasks/:id.
func (tc *TaskController) Delete(c *gin.Context) {
	ctx := c.Request.Context()
	if err := tc.svc.DeleteTask(ctx, c.Param("id"), currentUserID(c)); err != nil {
		respondError(c, err)
		return
	}
	cache.InvalidateTasks(ctx)
	respondMessage(c, http.StatusOK, "Task deleted successfully")
}

// Dashboard handles GET /api/tasks/dashboard.
func (tc *TaskController) Dashboard(c *gin.Context) {
	dash, err := tc.svc.GetDashboard(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, dash)
}

// Audit handles GET /api/tasks/:id/audit.
func (tc *TaskController) Audit(c *gin.Context) {
	entries, err := tc.svc.GetAuditTrail(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, entries)
}

func parseTaskQuery(c *gin.Context) (models.TaskFilters, models.TaskSort, error) {
	filters := models.TaskFilters{
		CreatorID:    c.Query("creatorId"),
		AssignedToID: c.Query("assignedToId"),
		Overdue:      c.Query("overdue") == "true",
	}
	if v := c.Query("status"); v != "" {
		status := models.Status(v)
		if !status.Valid() {
			return filters, models.TaskSort{}, apperrors.Validation("Invalid status filter")
		}
		filters.Status = status
	}
	if v := c.Query("priority"); v != "" {
		priority := models.Priority(v)
		if !priority.Valid() {
			return filters, models.TaskSort{}, apperrors.Validation("Invalid priority filter")
		}
		filters.Priority = priority
	}

	sort := models.TaskSort{By: c.DefaultQuery("sortBy", "dueDate"), Order: c.DefaultQuery("sortOrder", "asc")}
	switch sort.By {
	case "dueDate", "createdAt", "priority":
	default:
		return filters, sort, apperrors.Validation("Invalid sort field")
	}
	switch sort.Order {
	case "asc", "desc":
	default:
		return filters, sort, apperrors.Validation("Invalid sort order")
	}
	return filters, sort, nil
}

func defaultQuery(filters models.TaskFilters, sort models.TaskSort) bool {
	return filters == (models.TaskFilters{}) && sort.By == "dueDate" && sort.Order == "asc"
}
