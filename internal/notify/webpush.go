package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	webpush "github.com/SherClockHolmes/webpush-go"
)

const pushTTL = 60

// WebPushNotifier fans an emergency alert out to every registered Web
// Push subscription for the vacation party. Subscriptions are registered
// over the HTTP API and kept in memory; a failed endpoint is removed on
// HTTP 404/410.
type WebPushNotifier struct {
	log        *log.Logger
	subscriber string
	publicKey  string
	privateKey string
	// client overrides the push service HTTP client in tests
	client webpush.HTTPClient

	mu   sync.RWMutex
	subs map[string]map[string]*webpush.Subscription
}

func NewWebPushNotifier(logger *log.Logger, subscriber, publicKey, privateKey string) *WebPushNotifier {
	return &WebPushNotifier{
		log:        logger,
		subscriber: subscriber,
		publicKey:  publicKey,
		privateKey: privateKey,
		subs:       make(map[string]map[string]*webpush.Subscription),
	}
}

// Subscribe registers a browser push subscription for a vacation party.
func (n *WebPushNotifier) Subscribe(vacationID string, sub webpush.Subscription) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.subs[vacationID] == nil {
		n.subs[vacationID] = make(map[string]*webpush.Subscription)
	}
	n.subs[vacationID][sub.Endpoint] = &sub
}

func (n *WebPushNotifier) Unsubscribe(vacationID, endpoint string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if subs, ok := n.subs[vacationID]; ok {
		delete(subs, endpoint)
		if len(subs) == 0 {
			delete(n.subs, vacationID)
		}
	}
}

func (n *WebPushNotifier) Notify(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	n.mu.RLock()
	subs := make([]*webpush.Subscription, 0, len(n.subs[alert.VacationID]))
	for _, sub := range n.subs[alert.VacationID] {
		subs = append(subs, sub)
	}
	n.mu.RUnlock()

	for _, sub := range subs {
		resp, err := webpush.SendNotificationWithContext(ctx, payload, sub, &webpush.Options{
			HTTPClient:      n.client,
			Subscriber:      n.subscriber,
			VAPIDPublicKey:  n.publicKey,
			VAPIDPrivateKey: n.privateKey,
			TTL:             pushTTL,
			Urgency:         webpush.UrgencyHigh,
		})
		if err != nil {
			n.log.Printf("push to %q: %v", sub.Endpoint, err)
			continue
		}
		resp.Body.Close()

		// the push service reports expired subscriptions with 404/410
		if resp.StatusCode == 404 || resp.StatusCode == 410 {
			n.Unsubscribe(alert.VacationID, sub.Endpoint)
		}
	}

	return nil
}
