package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/asaskevich/EventBus"
	"github.com/m-barthelemy/dating-pwa/models"
	"github.com/m-barthelemy/dating-pwa/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type recordingTransport struct {
	payloads [][]byte
	err      error
}

func (f *recordingTransport) Deliver(subscription *webpush.Subscription, payload []byte) error {
	f.payloads = append(f.payloads, payload)
	return f.err
}

func newTestController(t *testing.T) (*PushController, *services.SubscriptionRegistry, *recordingTransport) {
	t.Helper()
	var config models.Config
	config = config.New()
	config.VapidPublicKey = "test-public-key"
	config.VapidPrivateKey = "test-private-key"
	config.ContactEmail = "contact@datingapp.example"

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.PushSubscription{}))

	registry := services.NewSubscriptionRegistry(db, &config)
	transport := &recordingTransport{}
	bus := EventBus.New()
	dispatcher := services.NewPushDispatcher(registry, transport, &config, &bus)
	return New(&config, registry, dispatcher), registry, transport
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	handler(recorder, req)
	return recorder
}

func subscriptionBody(endpoint string) string {
	return fmt.Sprintf(`{"subscription":{"endpoint":%q,"keys":{"p256dh":"dGVzdA","auth":"YXV0aA"}}}`, endpoint)
}

func TestGetKey(t *testing.T) {
	controller, _, _ := newTestController(t)
	recorder := httptest.NewRecorder()
	controller.GetKey(recorder, httptest.NewRequest(http.MethodGet, "/api/push/key", nil))

	require.Equal(t, http.StatusOK, recorder.Code)
	var response struct {
		PublicKey string `json:"publicKey"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Equal(t, "test-public-key", response.PublicKey)
}

func TestGetKeyUnconfigured(t *testing.T) {
	controller, _, _ := newTestController(t)
	controller.config.VapidPublicKey = ""

	recorder := httptest.NewRecorder()
	controller.GetKey(recorder, httptest.NewRequest(http.MethodGet, "/api/push/key", nil))
	assert.Equal(t, http.StatusServiceUnavailable, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "not configured")
}

func TestSubscribe(t *testing.T) {
	controller, registry, _ := newTestController(t)
	recorder := postJSON(t, controller.Subscribe, "/api/push/subscribe", subscriptionBody("https://push.example/a"))

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"success":true}`, recorder.Body.String())

	count, err := registry.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestSubscribeSameEndpointTwice(t *testing.T) {
	controller, registry, _ := newTestController(t)
	postJSON(t, controller.Subscribe, "/api/push/subscribe", subscriptionBody("https://push.example/a"))
	recorder := postJSON(t, controller.Subscribe, "/api/push/subscribe", subscriptionBody("https://push.example/a"))

	require.Equal(t, http.StatusOK, recorder.Code)
	count, err := registry.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestSubscribeRejectsBadBody(t *testing.T) {
	controller, _, _ := newTestController(t)
	for _, body := range []string{"", "not json", "{}", `{"subscription":{"endpoint":""}}`} {
		recorder := postJSON(t, controller.Subscribe, "/api/push/subscribe", body)
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
		assert.Contains(t, recorder.Body.String(), "Subscription is required")
	}
}

func TestUnsubscribeUnknownEndpointSucceeds(t *testing.T) {
	controller, _, _ := newTestController(t)
	recorder := postJSON(t, controller.Unsubscribe, "/api/push/unsubscribe", subscriptionBody("https://push.example/ghost"))
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"success":true}`, recorder.Body.String())
}

func TestSendRequiresMessage(t *testing.T) {
	controller, _, _ := newTestController(t)
	recorder := postJSON(t, controller.Send, "/api/push/send", `{"title":"no message"}`)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "Message is required")
}

func TestSendWithoutSubscriptionIsStructuredFailure(t *testing.T) {
	controller, _, _ := newTestController(t)
	recorder := postJSON(t, controller.Send, "/api/push/send", `{"message":"hello"}`)

	// Delivery failures are reported in the result, not as an HTTP fault.
	require.Equal(t, http.StatusOK, recorder.Code)
	var result services.DispatchResult
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &result))
	assert.False(t, result.Success)
	assert.Equal(t, "no subscription available", result.Error)
}

func TestSendDelivers(t *testing.T) {
	controller, _, transport := newTestController(t)
	postJSON(t, controller.Subscribe, "/api/push/subscribe", subscriptionBody("https://push.example/device"))

	recorder := postJSON(t, controller.Send, "/api/push/send", `{"message":"hello","title":"Custom"}`)
	require.Equal(t, http.StatusOK, recorder.Code)

	var result services.DispatchResult
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &result))
	assert.True(t, result.Success)

	require.Len(t, transport.payloads, 1)
	var payload models.PushPayload
	require.NoError(t, json.Unmarshal(transport.payloads[0], &payload))
	assert.Equal(t, "Custom", payload.Title)
	assert.Equal(t, "hello", payload.Body)
}
