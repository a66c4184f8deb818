package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"taskflow/internal/cache"
	"taskflow/internal/database"
	"taskflow/internal/service"
)

// UserController handles the user listing used by the assignment dropdown.
type UserController struct {
	users service.UserStore
}

// NewUserController wires the user controller.
func NewUserController(users service.UserStore) *UserController {
	return &UserController{users: users}
}

// List handles GET /api/users.
func (uc *UserController) List(c *gin.Context) {
	users, err := uc.users.FindAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, users)
}

// Health returns 200 if the process is alive. Used by load balancers.
func Health(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// Ready returns 200 if DB and Redis are reachable. Used by K8s readiness probes.
func Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if cache.Client(ctx) == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "redis unavailable"})
		return
	}
	db := database.DB(ctx)
	if db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "database unavailable"})
		return
	}
	if err := db.PingContext(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "database ping failed"})
		return
	}
	c.String(http.StatusOK, "OK")
}
