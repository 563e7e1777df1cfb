package services

import (
	"errors"
	"log"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/m-barthelemy/dating-pwa/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNoSubscription is returned when a push target is needed but the
// registry holds no subscription.
var ErrNoSubscription = errors.New("no subscription available")

// SubscriptionRegistry is the persisted store of active push
// subscriptions, unique by endpoint.
type SubscriptionRegistry struct {
	db     *gorm.DB
	config *models.Config
}

// NewSubscriptionRegistry creates an instance of the registry and sets its DB handle
func NewSubscriptionRegistry(db *gorm.DB, config *models.Config) *SubscriptionRegistry {
	return &SubscriptionRegistry{db: db, config: config}
}

// Upsert inserts the subscription or, when the endpoint is already known,
// replaces its key material. Every service worker activation re-registers
// the subscription, so duplicates are expected.
func (r *SubscriptionRegistry) Upsert(sub *webpush.Subscription) error {
	row := models.NewPushSubscription(sub)
	row.LastSeenAt = time.Now()
	if err := r.protect(&row); err != nil {
		return err
	}

	result := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth", "last_seen_at"}),
	}).Create(&row)
	if result.Error != nil {
		return result.Error
	}
	log.Printf("SubscriptionRegistry: Registered push subscription for endpoint %s", row.Endpoint)
	return nil
}

// Remove deletes any subscription with the given endpoint. Removing an
// unknown endpoint is a no-op success.
func (r *SubscriptionRegistry) Remove(endpoint string) error {
	result := r.db.Delete(&models.PushSubscription{}, "endpoint = ?", endpoint)
	return result.Error
}

// PickTarget returns the explicit subscription when one is given,
// otherwise the most recently registered entry. The most-recent choice is
// deliberate: it replaces the reference behavior of picking whatever
// happened to be first in insertion order.
func (r *SubscriptionRegistry) PickTarget(explicit *webpush.Subscription) (*webpush.Subscription, error) {
	if explicit != nil {
		return explicit, nil
	}

	var row models.PushSubscription
	result := r.db.Order("created_at desc").First(&row)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNoSubscription
		}
		return nil, result.Error
	}
	if err := r.unprotect(&row); err != nil {
		return nil, err
	}
	return row.ToWebPush(), nil
}

// All returns every registered subscription, most recent first.
func (r *SubscriptionRegistry) All() ([]*webpush.Subscription, error) {
	var rows []models.PushSubscription
	if result := r.db.Order("created_at desc").Find(&rows); result.Error != nil {
		return nil, result.Error
	}
	subscriptions := make([]*webpush.Subscription, 0, len(rows))
	for i := range rows {
		if err := r.unprotect(&rows[i]); err != nil {
			return nil, err
		}
		subscriptions = append(subscriptions, rows[i].ToWebPush())
	}
	return subscriptions, nil
}

// Count returns the number of registered subscriptions.
func (r *SubscriptionRegistry) Count() (int64, error) {
	var count int64
	result := r.db.Model(&models.PushSubscription{}).Count(&count)
	return count, result.Error
}

// protect encrypts the key material at rest when an encryption key is
// configured. The endpoint stays in clear text since it is the row key.
func (r *SubscriptionRegistry) protect(row *models.PushSubscription) error {
	if r.config.EncryptionKey == "" {
		return nil
	}
	dp := NewDataProtector(r.config)
	p256dh, err := dp.Encrypt(row.P256dh)
	if err != nil {
		return err
	}
	auth, err := dp.Encrypt(row.Auth)
	if err != nil {
		return err
	}
	row.P256dh = p256dh
	row.Auth = auth
	return nil
}

func (r *SubscriptionRegistry) unprotect(row *models.PushSubscription) error {
	if r.config.EncryptionKey == "" {
		return nil
	}
	dp := NewDataProtector(r.config)
	p256dh, err := dp.Decrypt(row.P256dh)
	if err != nil {
		return err
	}
	auth, err := dp.Decrypt(row.Auth)
	if err != nil {
		return err
	}
	row.P256dh = p256dh
	row.Auth = auth
	return nil
}
