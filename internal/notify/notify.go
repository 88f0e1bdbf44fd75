package notify

import (
	"context"
	"time"
)

// Alert is the side-channel notification raised for an emergency
// location broadcast.
type Alert struct {
	VacationID string    `json:"vacationId"`
	UserID     string    `json:"userId"`
	UserName   string    `json:"userName"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Message    string    `json:"message,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Notifier delivers emergency alerts outside the WebSocket fan-out so
// party members without an open connection still hear about them.
type Notifier interface {
	Notify(ctx context.Context, alert Alert) error
}

// NoopNotifier is used when no push credentials are configured.
type NoopNotifier struct{}

func (NoopNotifier) Notify(ctx context.Context, alert Alert) error { return nil }
