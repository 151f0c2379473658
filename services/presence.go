package services

import (
	"sync"

	"github.com/Jayabed45/unihub-sub000/utils"
)

// PresenceRegistry tracks which users currently hold at least one live
// connection. A user may hold several simultaneous connections (multiple
// browser tabs); presence is per-user, not per-connection. The registry is
// in-memory only: a restart loses live-connection tracking, which clients
// reconcile by re-subscribing.
//
// The whole table is guarded by a single mutex. It is small and contention
// is not a bottleneck, so coarse-grained locking is sufficient.
type PresenceRegistry struct {
	mu     sync.Mutex
	conns  map[string]map[string]struct{} // userID -> set of connection IDs
	logger *utils.Logger
}

func NewPresenceRegistry(logger *utils.Logger) *PresenceRegistry {
	return &PresenceRegistry{
		conns:  make(map[string]map[string]struct{}),
		logger: logger,
	}
}

// Register records a connection for the user. Registering the same
// connection twice is a no-op.
func (r *PresenceRegistry) Register(userID, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.conns[userID]
	if !ok {
		set = make(map[string]struct{})
		r.conns[userID] = set
	}
	set[connID] = struct{}{}

	r.logger.Debug("Presence registered", "user_id", userID, "conn_id", connID)
}

// Unregister removes a connection for the user. When the last connection
// goes away the user transitions to offline.
func (r *PresenceRegistry) Unregister(userID, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.conns[userID]
	if !ok {
		return
	}
	delete(set, connID)
	if len(set) == 0 {
		delete(r.conns, userID)
	}

	r.logger.Debug("Presence unregistered", "user_id", userID, "conn_id", connID)
}

// IsOnline reports whether the user has at least one live connection
func (r *PresenceRegistry) IsOnline(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.conns[userID]) > 0
}

// OnlineUserIDs returns a snapshot of every currently online user
func (r *PresenceRegistry) OnlineUserIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.conns))
	for userID := range r.conns {
		ids = append(ids, userID)
	}
	return ids
}

// ListPresence answers a batch presence query so a client need not issue
// one request per candidate user
func (r *PresenceRegistry) ListPresence(candidateIDs []string) map[string]bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	presence := make(map[string]bool, len(candidateIDs))
	for _, userID := range candidateIDs {
		presence[userID] = len(r.conns[userID]) > 0
	}
	return presence
}

// ConnectionIDs returns a snapshot of the user's live connection IDs
func (r *PresenceRegistry) ConnectionIDs(userID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	set := r.conns[userID]
	ids := make([]string, 0, len(set))
	for connID := range set {
		ids = append(ids, connID)
	}
	return ids
}
