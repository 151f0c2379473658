package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Jayabed45/unihub-sub000/models"
	"github.com/Jayabed45/unihub-sub000/utils"
)

// DefaultListLimit caps every listing query
const DefaultListLimit = 50

var (
	// ErrEventNotFound is returned when an event id does not exist
	ErrEventNotFound = errors.New("notification event not found")

	// ErrInvalidJoinStatus is returned for a status outside the recognized values
	ErrInvalidJoinStatus = errors.New("invalid join status")
)

// EventStore owns the NotificationEvent lifecycle. It is the durable
// source of truth: a client that misses a push recovers by querying
// the store.
type EventStore struct {
	db     *gorm.DB
	logger *utils.Logger
	limit  int
}

// NewEventStore creates a store whose listing queries are capped at
// limit; a non-positive limit selects DefaultListLimit.
func NewEventStore(db *gorm.DB, limit int, logger *utils.Logger) *EventStore {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	return &EventStore{
		db:     db,
		logger: logger,
		limit:  limit,
	}
}

// Append persists a new event, assigning its id and creation timestamp.
// A persistence error propagates to the caller; the caller must not
// publish an event that was never stored.
func (s *EventStore) Append(req models.CreateEventRequest) (*models.NotificationEvent, error) {
	if req.JoinStatus != "" && !req.JoinStatus.Valid() {
		return nil, ErrInvalidJoinStatus
	}

	event := models.NotificationEvent{
		ID:          uuid.New(),
		Title:       req.Title,
		Message:     req.Message,
		ProjectID:   req.ProjectID,
		RecipientID: req.RecipientID,
		RequesterID: req.RequesterID,
		JoinStatus:  req.JoinStatus,
		Read:        false,
		ShowInPanel: true,
		CreatedAt:   time.Now().UTC(),
	}
	if req.ShowInPanel != nil {
		event.ShowInPanel = *req.ShowInPanel
	}

	if err := s.db.Create(&event).Error; err != nil {
		return nil, fmt.Errorf("failed to append event: %w", err)
	}

	return &event, nil
}

// ListForRecipient returns the most recent events addressed to the given
// recipient, newest first, capped at limit. An empty recipientID means no
// recipient filter was requested and returns broadcast events instead.
// When includeHidden is false, feed-only events are excluded.
func (s *EventStore) ListForRecipient(recipientID string, limit int, includeHidden bool) ([]models.NotificationEvent, error) {
	query := s.db.Model(&models.NotificationEvent{})

	if recipientID == "" {
		query = query.Where("recipient_id IS NULL")
	} else {
		query = query.Where("recipient_id = ?", recipientID)
	}

	if !includeHidden {
		query = query.Where("show_in_panel = ?", true)
	}

	var events []models.NotificationEvent
	err := query.Order("created_at DESC, seq DESC").Limit(s.clampLimit(limit)).Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}

// ListBroadcast returns the most recent broadcast events, newest first
func (s *EventStore) ListBroadcast(limit int) ([]models.NotificationEvent, error) {
	return s.ListForRecipient("", limit, true)
}

// MarkRead flips an event's read flag. Idempotent for an already-read event.
func (s *EventStore) MarkRead(id uuid.UUID) (*models.NotificationEvent, error) {
	event, err := s.getByID(id)
	if err != nil {
		return nil, err
	}

	if !event.Read {
		if err := s.db.Model(event).Update("read", true).Error; err != nil {
			return nil, fmt.Errorf("failed to mark event read: %w", err)
		}
		event.Read = true
	}
	return event, nil
}

// SetJoinStatus updates the join-request status of an event. The status
// is validated before any lookup so an invalid value never mutates state.
func (s *EventStore) SetJoinStatus(id uuid.UUID, status models.JoinStatus) (*models.NotificationEvent, error) {
	if !status.Valid() {
		return nil, ErrInvalidJoinStatus
	}

	event, err := s.getByID(id)
	if err != nil {
		return nil, err
	}

	if err := s.db.Model(event).Update("join_status", status).Error; err != nil {
		return nil, fmt.Errorf("failed to update join status: %w", err)
	}
	event.JoinStatus = status
	return event, nil
}

func (s *EventStore) getByID(id uuid.UUID) (*models.NotificationEvent, error) {
	var event models.NotificationEvent
	if err := s.db.Where("id = ?", id).First(&event).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to fetch event: %w", err)
	}
	return &event, nil
}

func (s *EventStore) clampLimit(limit int) int {
	if limit <= 0 || limit > s.limit {
		return s.limit
	}
	return limit
}
