package gateway

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/tripmesh/gateway/internal/types"
)

// Inbound event names.
const (
	EventAuthenticate  = "authenticate"
	EventSendMessage   = "send_message"
	EventAddReaction   = "add_reaction"
	EventTypingStart   = "typing_start"
	EventTypingStop    = "typing_stop"
	EventShareLocation = "share_location"
	EventVoiceMessage  = "voice_message"
)

// Outbound event names.
const (
	EventAuthenticated   = "authenticated"
	EventUserJoined      = "user_joined"
	EventUserLeft        = "user_left"
	EventReceiveMessage  = "receive_message"
	EventMessageSent     = "message_sent"
	EventMessageReaction = "message_reaction"
	EventUserTyping      = "user_typing"
	EventLocationUpdate  = "location_update"
	EventError           = "error"
)

// Error families. A rejected event gets exactly one "<family>_error"
// response scoped to the event that caused it.
const (
	familyAuth     = "auth"
	familyMessage  = "message"
	familyReaction = "reaction"
	familyTyping   = "typing"
	familyLocation = "location"
	familyVoice    = "voice"
)

// ClientFrame is one inbound WebSocket message: an event name plus its
// raw payload. Unknown payload fields are ignored during decoding.
type ClientFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ServerFrame is one outbound WebSocket message.
type ServerFrame struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

type AuthenticatePayload struct {
	Token    string `json:"token,omitempty"`
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	RoomID   string `json:"roomId,omitempty"`
}

type SendMessagePayload struct {
	Content     string             `json:"content"`
	ReplyTo     string             `json:"replyTo,omitempty"`
	Attachments []types.Attachment `json:"attachments,omitempty"`
}

type AddReactionPayload struct {
	MessageID string `json:"messageId"`
	Reaction  string `json:"reaction"`
}

// ShareLocationPayload uses pointers for the coordinates so a missing
// field is distinguishable from a valid zero value.
type ShareLocationPayload struct {
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Accuracy    float64  `json:"accuracy,omitempty"`
	Message     string   `json:"message,omitempty"`
	Attraction  string   `json:"attraction,omitempty"`
	IsEmergency bool     `json:"isEmergency,omitempty"`
}

type VoiceMessagePayload struct {
	Duration    *float64           `json:"duration"`
	Attachments []types.Attachment `json:"attachments,omitempty"`
}

type AuthenticatedPayload struct {
	Success bool `json:"success"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// UserEventPayload is shared by user_joined and user_left.
type UserEventPayload struct {
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	Timestamp time.Time `json:"timestamp"`
}

type MessageSentPayload struct {
	MessageID string    `json:"messageId"`
	Timestamp time.Time `json:"timestamp"`
}

type MessageReactionPayload struct {
	MessageID string    `json:"messageId"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	Reaction  string    `json:"reaction"`
	Timestamp time.Time `json:"timestamp"`
}

type UserTypingPayload struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	IsTyping bool   `json:"isTyping"`
}

func errorFrame(family, message string) *ServerFrame {
	event := EventError
	if family != "" {
		event = family + "_error"
	}

	return &ServerFrame{
		Event: event,
		Data:  ErrorPayload{Message: message},
	}
}

// familyFor maps an inbound event name to its error family. Unknown
// events map to the generic "error" response.
func familyFor(event string) string {
	switch event {
	case EventAuthenticate:
		return familyAuth
	case EventSendMessage:
		return familyMessage
	case EventAddReaction:
		return familyReaction
	case EventTypingStart, EventTypingStop:
		return familyTyping
	case EventShareLocation:
		return familyLocation
	case EventVoiceMessage:
		return familyVoice
	default:
		return ""
	}
}

func unmarshalPayload(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return nil
	}

	return json.Unmarshal(data, v)
}

// newMessageID builds a time plus random composite so ids sort roughly
// by creation time while staying unique across the process lifetime.
func newMessageID() string {
	return strconv.FormatInt(time.Now().UnixMilli(), 36) + "-" + uuid.NewString()[:8]
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
