package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Jayabed45/unihub-sub000/models"
	"github.com/Jayabed45/unihub-sub000/services"
	"github.com/Jayabed45/unihub-sub000/utils"
)

// EventHandler is the ingress for domain event producers: join requests,
// approvals, attendance marks, project creation. Producers append first,
// publish second; an event that could not be stored is never pushed.
type EventHandler struct {
	store      *services.EventStore
	dispatcher *services.Dispatcher
	logger     *utils.Logger
}

func NewEventHandler(store *services.EventStore, dispatcher *services.Dispatcher, logger *utils.Logger) *EventHandler {
	return &EventHandler{
		store:      store,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// CreateEvent handles POST /api/v1/events
func (h *EventHandler) CreateEvent(c *gin.Context) {
	var req models.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	event, err := h.store.Append(req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidJoinStatus) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid join status",
			})
			return
		}
		// Storage failure: the producer must fail its triggering
		// operation, so no publish happens
		h.logger.Error("Failed to append event", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to store event",
		})
		return
	}

	h.dispatcher.Publish(event)

	c.JSON(http.StatusCreated, event)
}

// RequestRefresh handles POST /api/v1/events/refresh
func (h *EventHandler) RequestRefresh(c *gin.Context) {
	var req models.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	h.dispatcher.RequestRefresh(req.UserID)

	c.JSON(http.StatusAccepted, gin.H{
		"status": "refresh signal dispatched",
	})
}
