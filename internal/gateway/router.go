package gateway

import (
	"context"
	"errors"

	"github.com/tripmesh/gateway/internal/notify"
	"github.com/tripmesh/gateway/internal/stats"
	"github.com/tripmesh/gateway/internal/types"
)

// Dispatch is the sole entry point for inbound client events. It decodes
// and validates the payload once, enforces the authentication
// precondition for everything but authenticate itself, and hands the
// typed payload to the matching handler. A validation failure emits one
// "<family>_error" frame to the sender and never closes the connection.
func (g *Gateway) Dispatch(c *Client, frame *ClientFrame) {
	defer func() {
		if rec := recover(); rec != nil {
			g.log.Printf("panic handling %q from %q: %v", frame.Event, c.id, rec)
			c.queueFrame(errorFrame(familyFor(frame.Event), "internal server error"))
		}
	}()

	if frame.Event == EventAuthenticate {
		g.handleAuthenticate(c, frame)
		return
	}

	binding, ok := g.registry.Binding(c.id)
	if !ok {
		// the rejection is scoped to the event's own family so clients
		// can correlate it with what they sent
		c.queueFrame(errorFrame(familyFor(frame.Event), "not authenticated"))
		return
	}

	switch frame.Event {
	case EventSendMessage:
		g.handleSendMessage(c, binding, frame)
	case EventAddReaction:
		g.handleAddReaction(c, binding, frame)
	case EventTypingStart:
		g.handleTyping(c, binding, true)
	case EventTypingStop:
		g.handleTyping(c, binding, false)
	case EventShareLocation:
		g.handleShareLocation(c, binding, frame)
	case EventVoiceMessage:
		g.handleVoiceMessage(c, binding, frame)
	default:
		c.queueFrame(errorFrame("", "unknown event: "+frame.Event))
	}
}

func (g *Gateway) handleAuthenticate(c *Client, frame *ClientFrame) {
	var p AuthenticatePayload
	if err := unmarshalPayload(frame.Data, &p); err != nil {
		c.queueFrame(errorFrame(familyAuth, "invalid authenticate payload"))
		return
	}

	identity := types.Identity{UserID: p.UserID, UserName: p.UserName}
	if p.Token != "" && g.resolver != nil {
		resolved, err := g.resolver.Resolve(p.Token)
		if err != nil {
			g.log.Printf("resolve token for %q: %v", c.id, err)
			c.queueFrame(errorFrame(familyAuth, "invalid token"))
			return
		}

		// the token is authoritative for the user id, the claimed
		// display name fills in when the token carries none
		identity.UserID = resolved.UserID
		if resolved.UserName != "" {
			identity.UserName = resolved.UserName
		}
	}

	if identity.UserID == "" || identity.UserName == "" {
		c.queueFrame(errorFrame(familyAuth, "userId and userName are required"))
		return
	}

	g.stateLock.Lock()
	defer g.stateLock.Unlock()

	if err := g.registry.Bind(c.id, identity, p.RoomID); err != nil {
		if errors.Is(err, ErrAlreadyAuthenticated) {
			c.queueFrame(errorFrame(familyAuth, "already authenticated"))
		} else {
			c.queueFrame(errorFrame(familyAuth, "connection closed"))
		}
		return
	}

	c.queueFrame(&ServerFrame{
		Event: EventAuthenticated,
		Data:  AuthenticatedPayload{Success: true},
	})

	if p.RoomID == "" {
		return
	}

	if g.rooms.Join(p.RoomID, c.id) {
		g.stats.Incr(stats.ActiveRooms)
	}
	g.presence.MarkOnline(p.RoomID, identity.UserID)

	g.broadcast(p.RoomID, EventUserJoined, UserEventPayload{
		UserID:    identity.UserID,
		UserName:  identity.UserName,
		Timestamp: Now(),
	}, c.id)

	g.log.Printf("user %q joined vacation %q", identity.UserID, p.RoomID)
}

func (g *Gateway) handleSendMessage(c *Client, binding Binding, frame *ClientFrame) {
	var p SendMessagePayload
	if err := unmarshalPayload(frame.Data, &p); err != nil {
		c.queueFrame(errorFrame(familyMessage, "invalid send_message payload"))
		return
	}

	if !g.requireRoom(c, binding, familyMessage) {
		return
	}

	if p.Content == "" {
		c.queueFrame(errorFrame(familyMessage, "message content is required"))
		return
	}

	msg := types.Message{
		ID:          newMessageID(),
		UserID:      binding.Identity.UserID,
		UserName:    binding.Identity.UserName,
		VacationID:  binding.VacationID,
		Content:     p.Content,
		Type:        types.MessageTypeText,
		ReplyTo:     p.ReplyTo,
		Attachments: p.Attachments,
		Reactions:   map[string][]string{},
		Timestamp:   Now(),
	}

	g.deliverMessage(c, binding.VacationID, msg)
}

func (g *Gateway) handleVoiceMessage(c *Client, binding Binding, frame *ClientFrame) {
	var p VoiceMessagePayload
	if err := unmarshalPayload(frame.Data, &p); err != nil {
		c.queueFrame(errorFrame(familyVoice, "invalid voice_message payload"))
		return
	}

	if !g.requireRoom(c, binding, familyVoice) {
		return
	}

	if p.Duration == nil || *p.Duration <= 0 {
		c.queueFrame(errorFrame(familyVoice, "voice message duration is required"))
		return
	}

	msg := types.Message{
		ID:          newMessageID(),
		UserID:      binding.Identity.UserID,
		UserName:    binding.Identity.UserName,
		VacationID:  binding.VacationID,
		Type:        types.MessageTypeVoice,
		Duration:    *p.Duration,
		Attachments: p.Attachments,
		Reactions:   map[string][]string{},
		Timestamp:   Now(),
	}

	g.deliverMessage(c, binding.VacationID, msg)
}

// deliverMessage broadcasts a message to its room including the sender,
// acks the sender, and queues the persistence write after the broadcast
// so a slow store never delays delivery.
func (g *Gateway) deliverMessage(c *Client, vacationID string, msg types.Message) {
	g.stateLock.Lock()
	g.broadcast(vacationID, EventReceiveMessage, msg, "")
	g.stateLock.Unlock()

	c.queueFrame(&ServerFrame{
		Event: EventMessageSent,
		Data: MessageSentPayload{
			MessageID: msg.ID,
			Timestamp: msg.Timestamp,
		},
	})

	g.stats.Incr(stats.MessagesBroadcast)

	if g.writer != nil {
		g.writer.QueueMessage(msg)
	}
}

func (g *Gateway) handleAddReaction(c *Client, binding Binding, frame *ClientFrame) {
	var p AddReactionPayload
	if err := unmarshalPayload(frame.Data, &p); err != nil {
		c.queueFrame(errorFrame(familyReaction, "invalid add_reaction payload"))
		return
	}

	if !g.requireRoom(c, binding, familyReaction) {
		return
	}

	if p.MessageID == "" || p.Reaction == "" {
		c.queueFrame(errorFrame(familyReaction, "messageId and reaction are required"))
		return
	}

	g.stateLock.Lock()
	g.broadcast(binding.VacationID, EventMessageReaction, MessageReactionPayload{
		MessageID: p.MessageID,
		UserID:    binding.Identity.UserID,
		UserName:  binding.Identity.UserName,
		Reaction:  p.Reaction,
		Timestamp: Now(),
	}, "")
	g.stateLock.Unlock()
}

func (g *Gateway) handleTyping(c *Client, binding Binding, isTyping bool) {
	if !g.requireRoom(c, binding, familyTyping) {
		return
	}

	// the sender never echoes its own typing state back to itself
	g.stateLock.Lock()
	g.broadcast(binding.VacationID, EventUserTyping, UserTypingPayload{
		UserID:   binding.Identity.UserID,
		UserName: binding.Identity.UserName,
		IsTyping: isTyping,
	}, c.id)
	g.stateLock.Unlock()
}

func (g *Gateway) handleShareLocation(c *Client, binding Binding, frame *ClientFrame) {
	var p ShareLocationPayload
	if err := unmarshalPayload(frame.Data, &p); err != nil {
		c.queueFrame(errorFrame(familyLocation, "invalid share_location payload"))
		return
	}

	if !g.requireRoom(c, binding, familyLocation) {
		return
	}

	if p.Latitude == nil || p.Longitude == nil {
		c.queueFrame(errorFrame(familyLocation, "latitude and longitude are required"))
		return
	}

	if *p.Latitude < -90 || *p.Latitude > 90 {
		c.queueFrame(errorFrame(familyLocation, "latitude must be between -90 and 90"))
		return
	}

	if *p.Longitude < -180 || *p.Longitude > 180 {
		c.queueFrame(errorFrame(familyLocation, "longitude must be between -180 and 180"))
		return
	}

	// emergency updates are never throttled
	if !p.IsEmergency && g.limiter != nil && !g.limiter.Allow(binding.Identity.UserID) {
		c.queueFrame(errorFrame(familyLocation, "too many location updates"))
		return
	}

	update := types.LocationUpdate{
		UserID:      binding.Identity.UserID,
		UserName:    binding.Identity.UserName,
		VacationID:  binding.VacationID,
		Latitude:    *p.Latitude,
		Longitude:   *p.Longitude,
		Accuracy:    p.Accuracy,
		Message:     p.Message,
		Attraction:  p.Attraction,
		IsEmergency: p.IsEmergency,
		Timestamp:   Now(),
	}

	g.stateLock.Lock()
	g.broadcast(binding.VacationID, EventLocationUpdate, update, "")
	g.stateLock.Unlock()

	g.stats.Incr(stats.LocationUpdates)

	if g.writer != nil {
		g.writer.QueueLocationUpdate(update)
	}

	if p.IsEmergency {
		g.stats.Incr(stats.EmergencyAlerts)
		g.raiseEmergency(update)
	}
}

// raiseEmergency triggers the side-channel notification without blocking
// the event loop for the sending connection.
func (g *Gateway) raiseEmergency(update types.LocationUpdate) {
	alert := notify.Alert{
		VacationID: update.VacationID,
		UserID:     update.UserID,
		UserName:   update.UserName,
		Latitude:   update.Latitude,
		Longitude:  update.Longitude,
		Message:    update.Message,
		Timestamp:  update.Timestamp,
	}

	go func() {
		if err := g.notifier.Notify(context.Background(), alert); err != nil {
			g.log.Println("emergency notify:", err)
		}
	}()
}

func (g *Gateway) requireRoom(c *Client, binding Binding, family string) bool {
	if binding.VacationID == "" {
		c.queueFrame(errorFrame(family, "join a vacation before sending events"))
		return false
	}

	return true
}
