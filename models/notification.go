package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// JoinStatus tracks the lifecycle of a join-request notification
type JoinStatus string

const (
	JoinStatusRequested JoinStatus = "Requested"
	JoinStatusApproved  JoinStatus = "Approved"
	JoinStatusRejected  JoinStatus = "Rejected"
)

// Valid reports whether the status is one of the three recognized values
func (s JoinStatus) Valid() bool {
	switch s {
	case JoinStatusRequested, JoinStatusApproved, JoinStatusRejected:
		return true
	}
	return false
}

// Recognized notification titles used by domain event producers
const (
	TitleJoinRequest         = "Join request"
	TitleJoinRequestApproved = "Join request approved"
	TitleJoinRequestDeclined = "Join request declined"
	TitleProjectApproved     = "Project approved"
	TitleNewProjectCreated   = "New project created"
	TitleActivityJoin        = "Activity join"
	TitleAttendance          = "Attendance"
)

// NotificationEvent is the durable unit of record for the notification feed.
// A nil RecipientID marks a broadcast event visible to every client.
// RequesterID carries the acting user's identity as a structured field;
// Message is display text only and is never parsed for control logic.
type NotificationEvent struct {
	Seq         int64      `json:"-" gorm:"primaryKey;autoIncrement"`
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;uniqueIndex;not null"`
	Title       string     `json:"title" gorm:"not null"`
	Message     string     `json:"message"`
	ProjectID   *string    `json:"project_id,omitempty" gorm:"index"`
	RecipientID *string    `json:"recipient_id,omitempty" gorm:"index"`
	RequesterID *string    `json:"requester_id,omitempty"`
	JoinStatus  JoinStatus `json:"join_status,omitempty"`
	Read        bool       `json:"read" gorm:"not null;default:false"`
	ShowInPanel bool       `json:"show_in_panel" gorm:"not null;default:true"`
	CreatedAt   time.Time  `json:"created_at" gorm:"index"`
}

func (NotificationEvent) TableName() string {
	return "notification_events"
}

// Request/Response DTOs
type CreateEventRequest struct {
	Title       string     `json:"title" binding:"required"`
	Message     string     `json:"message"`
	ProjectID   *string    `json:"project_id"`
	RecipientID *string    `json:"recipient_id"`
	RequesterID *string    `json:"requester_id"`
	JoinStatus  JoinStatus `json:"join_status"`
	ShowInPanel *bool      `json:"show_in_panel"`
}

type UpdateJoinStatusRequest struct {
	Status JoinStatus `json:"status" binding:"required"`
}

type RefreshRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

type ListEventsResponse struct {
	Data  []NotificationEvent `json:"data"`
	Count int                 `json:"count"`
}

// SocketMessage is the envelope for every frame on the subscription socket
type SocketMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Socket event names
const (
	SocketEventSubscribe = "subscribe"
	SocketEventNew       = "event:new"
	SocketEventRefresh   = "event:refresh"
)

// SubscribePayload is sent once by a client to declare its identity
type SubscribePayload struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// EventPayload mirrors the stored event on the push channel
type EventPayload struct {
	ID         uuid.UUID  `json:"id"`
	Title      string     `json:"title"`
	Message    string     `json:"message"`
	ProjectID  *string    `json:"project_id,omitempty"`
	JoinStatus JoinStatus `json:"join_status,omitempty"`
	Read       bool       `json:"read"`
	Timestamp  time.Time  `json:"timestamp"`
}

// NewEventPayload builds the push payload for a stored event
func NewEventPayload(event *NotificationEvent) EventPayload {
	return EventPayload{
		ID:         event.ID,
		Title:      event.Title,
		Message:    event.Message,
		ProjectID:  event.ProjectID,
		JoinStatus: event.JoinStatus,
		Read:       event.Read,
		Timestamp:  event.CreatedAt,
	}
}
