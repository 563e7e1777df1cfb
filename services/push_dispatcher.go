package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/asaskevich/EventBus"
	"github.com/gofrs/uuid"
	"github.com/m-barthelemy/dating-pwa/models"
)

// DispatchResult is the structured outcome of a push dispatch. Delivery is
// at-most-once; failures are reported here, never retried and never thrown
// past the dispatch boundary.
type DispatchResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// DispatchMeta carries the optional parts of a notification: a title
// override, a deep-link URL, and a context-specific secondary action.
type DispatchMeta struct {
	Title           string
	URL             string
	SecondaryAction *models.NotificationAction
}

// PushDispatcher builds notification payloads and hands them to the push
// transport. It also listens on the event bus so application events
// (match, message, profile view) trigger notifications.
type PushDispatcher struct {
	registry  *SubscriptionRegistry
	transport PushTransport
	config    *models.Config
	bus       *EventBus.Bus
}

// NewPushDispatcher creates an instance of the dispatcher.
func NewPushDispatcher(registry *SubscriptionRegistry, transport PushTransport, config *models.Config, bus *EventBus.Bus) *PushDispatcher {
	return &PushDispatcher{registry: registry, transport: transport, config: config, bus: bus}
}

// Dispatch sends messageText to the target subscription, or to the most
// recently registered one when target is nil.
func (d *PushDispatcher) Dispatch(target *webpush.Subscription, messageText string, meta *DispatchMeta) DispatchResult {
	if !d.config.PushConfigured() {
		return DispatchResult{Success: false, Error: "push transport not configured"}
	}

	subscription, err := d.registry.PickTarget(target)
	if err != nil {
		if errors.Is(err, ErrNoSubscription) {
			return DispatchResult{Success: false, Error: ErrNoSubscription.Error()}
		}
		log.Printf("PushDispatcher: Error picking target subscription: %s", err.Error())
		return DispatchResult{Success: false, Error: "failed to send notification"}
	}

	payload := d.buildPayload(messageText, meta)
	body, err := json.Marshal(payload)
	if err != nil {
		return DispatchResult{Success: false, Error: "failed to send notification"}
	}

	if err := d.transport.Deliver(subscription, body); err != nil {
		var transportErr *TransportError
		if errors.As(err, &transportErr) && transportErr.SubscriptionGone() {
			// The push service signals that the subscription is no longer
			// active, so delete it.
			if removeErr := d.registry.Remove(subscription.Endpoint); removeErr != nil {
				log.Printf("PushDispatcher: Error deleting inactive subscription: %s", removeErr.Error())
			} else {
				log.Printf("PushDispatcher: Deleted inactive push subscription %s", subscription.Endpoint)
			}
		}
		log.Printf("PushDispatcher: Error sending push notification: %s", err.Error())
		return DispatchResult{Success: false, Error: "failed to send notification"}
	}
	return DispatchResult{Success: true}
}

// buildPayload assembles the wire payload. The tag groups notifications so
// a newer one replaces the previous, and renotify makes the replacement
// alert the user again.
func (d *PushDispatcher) buildPayload(messageText string, meta *DispatchMeta) models.PushPayload {
	payload := models.PushPayload{
		Title:              d.config.AppName,
		Body:               messageText,
		Icon:               "/icons/icon-192x192.png",
		Badge:              "/icons/icon-72x72.png",
		Tag:                "dating-app-notification",
		Renotify:           true,
		RequireInteraction: false,
		Actions: []models.NotificationAction{
			{Action: "explore", Title: "Explore Matches", Icon: "/icons/icon-96x96.png"},
			{Action: "messages", Title: "View Messages", Icon: "/icons/icon-96x96.png"},
		},
	}
	if id, err := uuid.NewV4(); err == nil {
		payload.ID = id.String()
	}
	if meta == nil {
		return payload
	}
	if meta.Title != "" {
		payload.Title = meta.Title
	}
	if meta.URL != "" {
		payload.URL = meta.URL
	}
	if meta.SecondaryAction != nil {
		payload.Actions[1] = *meta.SecondaryAction
	}
	return payload
}

// SendMatchNotification notifies the device that a new match happened.
func (d *PushDispatcher) SendMatchNotification(matchedUser string) DispatchResult {
	return d.Dispatch(nil, fmt.Sprintf("You have a new match with %s! 💕", matchedUser), &DispatchMeta{
		URL: "/discover",
	})
}

// SendMessageNotification notifies the device of a new chat message with a
// truncated preview.
func (d *PushDispatcher) SendMessageNotification(sender string, messagePreview string) DispatchResult {
	preview := messagePreview
	// Truncate on rune boundaries so a multi-byte character never gets
	// split mid-sequence.
	if runes := []rune(preview); len(runes) > 50 {
		preview = string(runes[:50])
	}
	return d.Dispatch(nil, fmt.Sprintf("New message from %s: %q...", sender, preview), &DispatchMeta{
		URL: "/messages",
	})
}

// SendProfileViewNotification notifies the device that someone viewed the
// user's profile.
func (d *PushDispatcher) SendProfileViewNotification(viewer string) DispatchResult {
	return d.Dispatch(nil, fmt.Sprintf("%s viewed your profile! 👀", viewer), &DispatchMeta{
		URL: "/profile",
		SecondaryAction: &models.NotificationAction{
			Action: "profile", Title: "View Profile", Icon: "/icons/icon-96x96.png",
		},
	})
}

// SubscribeEvents wires the dispatcher to the application event bus.
func (d *PushDispatcher) SubscribeEvents() error {
	bus := *d.bus
	if err := bus.Subscribe("notify:match", func(matchedUser string) {
		d.SendMatchNotification(matchedUser)
	}); err != nil {
		return err
	}
	if err := bus.Subscribe("notify:message", func(sender string, preview string) {
		d.SendMessageNotification(sender, preview)
	}); err != nil {
		return err
	}
	return bus.Subscribe("notify:profileview", func(viewer string) {
		d.SendProfileViewNotification(viewer)
	})
}
