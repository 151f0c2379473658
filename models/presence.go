package models

// PresenceCheckRequest is a batch presence query for a list of candidate users
type PresenceCheckRequest struct {
	UserIDs []string `json:"user_ids" binding:"required"`
}

type PresenceCheckResponse struct {
	Presence map[string]bool `json:"presence"`
}

type OnlineUsersResponse struct {
	Count   int      `json:"count"`
	UserIDs []string `json:"user_ids"`
}
