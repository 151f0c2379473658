package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Jayabed45/unihub-sub000/models"
	"github.com/Jayabed45/unihub-sub000/services"
	"github.com/Jayabed45/unihub-sub000/utils"
)

type PresenceHandler struct {
	registry *services.PresenceRegistry
	logger   *utils.Logger
}

func NewPresenceHandler(registry *services.PresenceRegistry, logger *utils.Logger) *PresenceHandler {
	return &PresenceHandler{
		registry: registry,
		logger:   logger,
	}
}

// GetOnlineUsers handles GET /api/v1/presence/online
func (h *PresenceHandler) GetOnlineUsers(c *gin.Context) {
	userIDs := h.registry.OnlineUserIDs()

	c.JSON(http.StatusOK, models.OnlineUsersResponse{
		Count:   len(userIDs),
		UserIDs: userIDs,
	})
}

// CheckPresence handles POST /api/v1/presence/check
func (h *PresenceHandler) CheckPresence(c *gin.Context) {
	var req models.PresenceCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, models.PresenceCheckResponse{
		Presence: h.registry.ListPresence(req.UserIDs),
	})
}
