package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Jayabed45/unihub-sub000/models"
	"github.com/Jayabed45/unihub-sub000/utils"
)

// relayChannel carries dispatched frames between service instances
const relayChannel = "notifications:events"

// relayRetryDelay spaces out reconnect attempts after a relay error
const relayRetryDelay = time.Second

// Pusher is the gateway surface the dispatcher delivers through.
// Defined consumer-side per Go convention.
type Pusher interface {
	PushToConnection(connID string, payload []byte)
	PushToAll(payload []byte)
}

// relayEnvelope wraps a socket frame with its delivery target for the
// Redis relay. A nil RecipientID means broadcast.
type relayEnvelope struct {
	RecipientID *string         `json:"recipient_id,omitempty"`
	Frame       json.RawMessage `json:"frame"`
}

// Dispatcher bridges Event Store writes to live gateway connections.
// Push delivery is a best-effort latency optimization, never the source
// of truth: a dropped push is permanently dropped and the client recovers
// it by polling the store.
//
// With a Redis client configured, frames are published to a shared
// channel and re-delivered by every instance's relay listener, so
// clients connected to other instances receive pushes too. Without one,
// frames are delivered to the local hub directly.
type Dispatcher struct {
	hub      Pusher
	registry *PresenceRegistry
	redis    *redis.Client
	logger   *utils.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDispatcher creates a dispatcher. A nil redis client disables the
// relay and selects direct local delivery.
func NewDispatcher(hub Pusher, registry *PresenceRegistry, redisClient *redis.Client, logger *utils.Logger) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())

	return &Dispatcher{
		hub:      hub,
		registry: registry,
		redis:    redisClient,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins the relay listener when a Redis client is configured
func (d *Dispatcher) Start() {
	if d.redis == nil {
		return
	}

	d.wg.Add(1)
	go d.relayListener()
}

// Stop shuts down the relay listener
func (d *Dispatcher) Stop() {
	d.cancel()
	d.wg.Wait()
}

// Publish routes a freshly stored event to its live target connections.
// Callers invoke it only after a successful store append. It never
// returns an error: the write has already succeeded and a delivery
// problem must not roll it back.
func (d *Dispatcher) Publish(event *models.NotificationEvent) {
	payload, err := json.Marshal(models.NewEventPayload(event))
	if err != nil {
		d.logger.Error("Failed to marshal event payload", "event_id", event.ID, "error", err)
		return
	}

	frame, err := json.Marshal(models.SocketMessage{
		Event: models.SocketEventNew,
		Data:  payload,
	})
	if err != nil {
		d.logger.Error("Failed to marshal socket frame", "event_id", event.ID, "error", err)
		return
	}

	d.dispatch(relayEnvelope{RecipientID: event.RecipientID, Frame: frame})
}

// RequestRefresh pushes a payload-less reconcile signal to one user's
// connections, telling the client to re-fetch from the store instead of
// trusting an inline push.
func (d *Dispatcher) RequestRefresh(userID string) {
	frame, err := json.Marshal(models.SocketMessage{Event: models.SocketEventRefresh})
	if err != nil {
		d.logger.Error("Failed to marshal refresh frame", "error", err)
		return
	}

	d.dispatch(relayEnvelope{RecipientID: &userID, Frame: frame})
}

// dispatch hands an envelope to the relay, or delivers locally when no
// relay is configured
func (d *Dispatcher) dispatch(envelope relayEnvelope) {
	if d.redis == nil {
		d.deliver(envelope)
		return
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		d.logger.Error("Failed to marshal relay envelope", "error", err)
		return
	}

	if err := d.redis.Publish(d.ctx, relayChannel, string(data)).Err(); err != nil {
		// Degrade to local delivery so clients on this instance still
		// get the hint; others reconcile by polling
		d.logger.Warn("Relay publish failed, delivering locally", "error", err)
		d.deliver(envelope)
	}
}

// deliver pushes a frame to the local hub connections matching the target
func (d *Dispatcher) deliver(envelope relayEnvelope) {
	if envelope.RecipientID == nil {
		d.hub.PushToAll(envelope.Frame)
		return
	}

	userID := *envelope.RecipientID
	if !d.registry.IsOnline(userID) {
		// Offline recipient: the client catches up on its next poll
		return
	}

	for _, connID := range d.registry.ConnectionIDs(userID) {
		d.hub.PushToConnection(connID, envelope.Frame)
	}
}

// relayListener re-delivers frames published on the relay channel,
// mirroring pushes across service instances
func (d *Dispatcher) relayListener() {
	defer d.wg.Done()

	pubsub := d.redis.Subscribe(d.ctx, relayChannel)
	defer pubsub.Close()

	for {
		msg, err := pubsub.ReceiveMessage(d.ctx)
		if err != nil {
			// go-redis may wrap the context error on shutdown
			if errors.Is(err, context.Canceled) || d.ctx.Err() != nil {
				return
			}
			d.logger.Error("Relay pubsub error", "error", err)

			// Pace reconnect attempts during a Redis outage
			select {
			case <-d.ctx.Done():
				return
			case <-time.After(relayRetryDelay):
			}
			continue
		}

		var envelope relayEnvelope
		if err := json.Unmarshal([]byte(msg.Payload), &envelope); err != nil {
			d.logger.Error("Malformed relay envelope", "error", err)
			continue
		}
		d.deliver(envelope)
	}
}
