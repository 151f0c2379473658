package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Jayabed45/unihub-sub000/models"
	"github.com/Jayabed45/unihub-sub000/services"
	"github.com/Jayabed45/unihub-sub000/utils"
)

type NotificationHandler struct {
	store  *services.EventStore
	logger *utils.Logger
}

func NewNotificationHandler(store *services.EventStore, logger *utils.Logger) *NotificationHandler {
	return &NotificationHandler{
		store:  store,
		logger: logger,
	}
}

// ListNotifications handles GET /api/v1/notifications
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	recipientID := c.Query("recipient_id")
	// An absent or invalid limit falls back to the store's configured cap
	limit, _ := strconv.Atoi(c.Query("limit"))
	includeHidden := c.Query("include_hidden") == "true"

	events, err := h.store.ListForRecipient(recipientID, limit, includeHidden)
	if err != nil {
		h.logger.Error("Failed to list notifications", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list notifications",
		})
		return
	}

	c.JSON(http.StatusOK, models.ListEventsResponse{
		Data:  events,
		Count: len(events),
	})
}

// ListBroadcast handles GET /api/v1/notifications/broadcast
func (h *NotificationHandler) ListBroadcast(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	events, err := h.store.ListBroadcast(limit)
	if err != nil {
		h.logger.Error("Failed to list broadcast feed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list broadcast feed",
		})
		return
	}

	c.JSON(http.StatusOK, models.ListEventsResponse{
		Data:  events,
		Count: len(events),
	})
}

// MarkRead handles PUT /api/v1/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid notification id",
		})
		return
	}

	event, err := h.store.MarkRead(id)
	if err != nil {
		if errors.Is(err, services.ErrEventNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Notification not found",
			})
			return
		}
		h.logger.Error("Failed to mark notification read", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to mark notification read",
		})
		return
	}

	c.JSON(http.StatusOK, event)
}

// UpdateJoinStatus handles PUT /api/v1/notifications/:id/join-status
func (h *NotificationHandler) UpdateJoinStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid notification id",
		})
		return
	}

	var req models.UpdateJoinStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	event, err := h.store.SetJoinStatus(id, req.Status)
	if err != nil {
		if errors.Is(err, services.ErrInvalidJoinStatus) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid join status",
			})
			return
		}
		if errors.Is(err, services.ErrEventNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Notification not found",
			})
			return
		}
		h.logger.Error("Failed to update join status", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to update join status",
		})
		return
	}

	c.JSON(http.StatusOK, event)
}
