package types

import (
	"time"
)

// Identity is the authenticated user bound to a connection.
type Identity struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

// Attachment is client-supplied metadata for a file attached to a message.
type Attachment struct {
	URL  string `json:"url"`
	Name string `json:"name,omitempty"`
	Type string `json:"type,omitempty"`
	Size int64  `json:"size,omitempty"`
}

const (
	MessageTypeText  = "text"
	MessageTypeVoice = "voice"
)

// Message is a chat message as broadcast to a vacation party. The id and
// timestamp are assigned by the server so ordering and uniqueness never
// depend on client clocks.
type Message struct {
	ID          string              `json:"id"`
	UserID      string              `json:"userId"`
	UserName    string              `json:"userName"`
	VacationID  string              `json:"vacationId"`
	Content     string              `json:"content,omitempty"`
	Type        string              `json:"type"`
	Duration    float64             `json:"duration,omitempty"`
	ReplyTo     string              `json:"replyTo,omitempty"`
	Attachments []Attachment        `json:"attachments,omitempty"`
	Reactions   map[string][]string `json:"reactions"`
	Edited      bool                `json:"edited"`
	Timestamp   time.Time           `json:"timestamp"`
}

// LocationUpdate is a member's live position, optionally flagged as an
// emergency broadcast.
type LocationUpdate struct {
	UserID      string    `json:"userId"`
	UserName    string    `json:"userName"`
	VacationID  string    `json:"vacationId"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Accuracy    float64   `json:"accuracy,omitempty"`
	Message     string    `json:"message,omitempty"`
	Attraction  string    `json:"attraction,omitempty"`
	IsEmergency bool      `json:"isEmergency"`
	Timestamp   time.Time `json:"timestamp"`
}

// PresenceEntry is the externally visible presence state of one user in
// one vacation party.
type PresenceEntry struct {
	IsOnline bool      `json:"isOnline"`
	LastSeen time.Time `json:"lastSeen,omitempty"`
}
