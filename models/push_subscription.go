package models

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"
)

// PushSubscription is a browser push endpoint registered by a visitor.
// The endpoint URL uniquely identifies the subscription; subscribing the
// same endpoint again replaces the stored key material.
type PushSubscription struct {
	Endpoint   string `gorm:"primaryKey"`
	P256dh     string
	Auth       string
	CreatedAt  time.Time
	LastSeenAt time.Time
}

// ToWebPush converts the stored row into the transport's subscription type.
func (s *PushSubscription) ToWebPush() *webpush.Subscription {
	return &webpush.Subscription{
		Endpoint: s.Endpoint,
		Keys: webpush.Keys{
			P256dh: s.P256dh,
			Auth:   s.Auth,
		},
	}
}

// NewPushSubscription builds a registry row from a browser subscription.
func NewPushSubscription(sub *webpush.Subscription) PushSubscription {
	return PushSubscription{
		Endpoint: sub.Endpoint,
		P256dh:   sub.Keys.P256dh,
		Auth:     sub.Keys.Auth,
	}
}
