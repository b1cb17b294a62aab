package api

import (
	"net/http"

	"ecofinds/internal/service"

	"github.com/gin-gonic/gin"
)

func (h *Handler) getProfile(c *gin.Context) {
	profile, err := h.svc.Users.GetProfile(c.Request.Context(), userID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

func (h *Handler) updateProfile(c *gin.Context) {
	var req service.UpdateProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	profile, err := h.svc.Users.UpdateProfile(c.Request.Context(), userID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

func (h *Handler) listNotifications(c *gin.Context) {
	notifications, err := h.svc.Notifications.List(c.Request.Context(), userID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": notifications})
}

func (h *Handler) markNotificationRead(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.svc.Notifications.MarkRead(c.Request.Context(), userID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}
