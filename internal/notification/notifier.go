package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Payload is the change-notification body consumed by downstream
// subscribers: which (type, store, codes) changed, and when.
type Payload struct {
	Type             string   `json:"type"`
	Store            string   `json:"store"`
	ModifiedDateTime string   `json:"modifiedDateTime"`
	Codes            []string `json:"codes"`
}

// Message is the envelope published to the bus.
type Message struct {
	EventType Kind    `json:"eventType"`
	GUID      string  `json:"guid"`
	Data      Payload `json:"data"`
}

// Publisher delivers a serialized message to one channel of the bus.
type Publisher interface {
	Publish(ctx context.Context, channel string, message []byte) error
}

// Notifier derives change-notification messages from accepted projection
// writes. Resolution failures are fatal to the notification step only; the
// data write that triggered it has already committed.
type Notifier struct {
	resolver  *Resolver
	publisher Publisher
}

// NewNotifier creates a notifier.
func NewNotifier(resolver *Resolver, publisher Publisher) *Notifier {
	return &Notifier{resolver: resolver, publisher: publisher}
}

// Notify emits one change notification for the (type, store) group.
func (n *Notifier) Notify(ctx context.Context, projType, store string, modifiedAt time.Time, codes []string) error {
	kind, err := n.resolver.Resolve(projType)
	if err != nil {
		return err
	}

	message := Message{
		EventType: kind,
		GUID:      uuid.New().String(),
		Data: Payload{
			Type:             projType,
			Store:            store,
			ModifiedDateTime: modifiedAt.UTC().Format(time.RFC3339),
			Codes:            codes,
		},
	}

	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	if err := n.publisher.Publish(ctx, channelFor(kind), body); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}

	slog.Debug("[Notifier] Published change notification",
		"kind", kind,
		"type", projType,
		"store", store,
		"codes", len(codes))
	return nil
}

// channelFor maps a kind to its bus channel, e.g. catalog.categories_updated.
func channelFor(kind Kind) string {
	return "catalog." + strings.ToLower(string(kind))
}
