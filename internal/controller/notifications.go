package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"taskflow/internal/service"
)

// NotificationController handles the notification feed endpoints.
type NotificationController struct {
	svc *service.Notifications
}

// NewNotificationController wires the notification controller.
func NewNotificationController(svc *service.Notifications) *NotificationController {
	return &NotificationController{svc: svc}
}

// List handles GET /api/notifications?includeRead=true.
func (nc *NotificationController) List(c *gin.Context) {
	includeRead := c.Query("includeRead") == "true"
	notifications, err := nc.svc.ListForUser(c.Request.Context(), currentUserID(c), includeRead)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, notifications)
}

// MarkRead handles PUT /api/notifications/:id/read.
func (nc *NotificationController) MarkRead(c *gin.Context) {
	n, err := nc.svc.MarkRead(c.Request.Context(), c.Param("id"), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, n)
}

// MarkAllRead handles PUT /api/notifications/read-all.
func (nc *NotificationController) MarkAllRead(c *gin.Context) {
	if _, err := nc.svc.MarkAllRead(c.Request.Context(), currentUserID(c)); err != nil {
		respondError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "All notifications marked as read")
}
