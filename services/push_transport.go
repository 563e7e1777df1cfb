package services

import (
	"fmt"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/m-barthelemy/dating-pwa/models"
)

// TransportError is a push delivery rejection reported by the push service.
type TransportError struct {
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("push service answered %d", e.StatusCode)
}

func (e *TransportError) Unwrap() error { return e.Err }

// SubscriptionGone reports whether the push service signalled that the
// subscription is no longer active and should be discarded.
func (e *TransportError) SubscriptionGone() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// PushTransport delivers an encrypted payload to a subscription endpoint.
// The cryptographic signing protocol lives entirely behind this interface.
type PushTransport interface {
	Deliver(subscription *webpush.Subscription, payload []byte) error
}

// WebPushTransport is the VAPID web push implementation of PushTransport.
type WebPushTransport struct {
	config *models.Config
}

func NewWebPushTransport(config *models.Config) *WebPushTransport {
	return &WebPushTransport{config: config}
}

func (t *WebPushTransport) Deliver(subscription *webpush.Subscription, payload []byte) error {
	resp, err := webpush.SendNotification(payload, subscription, &webpush.Options{
		Subscriber:      t.config.ContactEmail,
		VAPIDPublicKey:  t.config.VapidPublicKey,
		VAPIDPrivateKey: t.config.VapidPrivateKey,
		TTL:             int(t.config.PushTTL.Seconds()),
	})
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return &TransportError{StatusCode: resp.StatusCode}
	}
	return nil
}
