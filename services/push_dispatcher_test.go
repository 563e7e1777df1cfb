package services

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/asaskevich/EventBus"
	"github.com/m-barthelemy/dating-pwa/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	payloads  [][]byte
	endpoints []string
	err       error
}

func (f *fakeTransport) Deliver(subscription *webpush.Subscription, payload []byte) error {
	f.endpoints = append(f.endpoints, subscription.Endpoint)
	f.payloads = append(f.payloads, payload)
	return f.err
}

func newTestDispatcher(t *testing.T, transport PushTransport) (*PushDispatcher, *SubscriptionRegistry) {
	t.Helper()
	config := newTestConfig()
	registry := NewSubscriptionRegistry(newTestDB(t), &config)
	bus := EventBus.New()
	dispatcher := NewPushDispatcher(registry, transport, &config, &bus)
	return dispatcher, registry
}

func lastPayload(t *testing.T, transport *fakeTransport) models.PushPayload {
	t.Helper()
	require.NotEmpty(t, transport.payloads)
	var payload models.PushPayload
	require.NoError(t, json.Unmarshal(transport.payloads[len(transport.payloads)-1], &payload))
	return payload
}

func TestDispatchBuildsPayload(t *testing.T) {
	transport := &fakeTransport{}
	dispatcher, registry := newTestDispatcher(t, transport)
	require.NoError(t, registry.Upsert(testSubscription("https://push.example/target")))

	result := dispatcher.Dispatch(nil, "You have a new match!", nil)
	require.True(t, result.Success)
	assert.Empty(t, result.Error)

	payload := lastPayload(t, transport)
	assert.Equal(t, "Dating App", payload.Title)
	assert.Equal(t, "You have a new match!", payload.Body)
	assert.Equal(t, "dating-app-notification", payload.Tag)
	assert.True(t, payload.Renotify)
	assert.False(t, payload.RequireInteraction)
	require.Len(t, payload.Actions, 2)
	assert.Equal(t, "explore", payload.Actions[0].Action)
	assert.NotEmpty(t, payload.ID)
}

func TestDispatchExplicitSubscription(t *testing.T) {
	transport := &fakeTransport{}
	dispatcher, registry := newTestDispatcher(t, transport)
	require.NoError(t, registry.Upsert(testSubscription("https://push.example/registered")))

	explicit := testSubscription("https://push.example/explicit")
	result := dispatcher.Dispatch(explicit, "hello", nil)
	require.True(t, result.Success)
	assert.Equal(t, []string{"https://push.example/explicit"}, transport.endpoints)
}

func TestDispatchEmptyRegistry(t *testing.T) {
	transport := &fakeTransport{}
	dispatcher, _ := newTestDispatcher(t, transport)

	result := dispatcher.Dispatch(nil, "nobody listens", nil)
	assert.False(t, result.Success)
	assert.Equal(t, "no subscription available", result.Error)
	assert.Empty(t, transport.payloads)
}

func TestDispatchNotConfigured(t *testing.T) {
	config := newTestConfig()
	config.VapidPrivateKey = ""
	registry := NewSubscriptionRegistry(newTestDB(t), &config)
	bus := EventBus.New()
	dispatcher := NewPushDispatcher(registry, &fakeTransport{}, &config, &bus)

	result := dispatcher.Dispatch(nil, "anything", nil)
	assert.False(t, result.Success)
	assert.Equal(t, "push transport not configured", result.Error)
}

func TestDispatchRemovesGoneSubscription(t *testing.T) {
	transport := &fakeTransport{err: &TransportError{StatusCode: 410}}
	dispatcher, registry := newTestDispatcher(t, transport)
	require.NoError(t, registry.Upsert(testSubscription("https://push.example/expired")))

	result := dispatcher.Dispatch(nil, "are you there", nil)
	assert.False(t, result.Success)

	count, err := registry.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestDispatchKeepsSubscriptionOnServerFault(t *testing.T) {
	transport := &fakeTransport{err: &TransportError{StatusCode: 500}}
	dispatcher, registry := newTestDispatcher(t, transport)
	require.NoError(t, registry.Upsert(testSubscription("https://push.example/flaky")))

	result := dispatcher.Dispatch(nil, "try again later", nil)
	assert.False(t, result.Success)

	count, err := registry.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestConvenienceBuilders(t *testing.T) {
	transport := &fakeTransport{}
	dispatcher, registry := newTestDispatcher(t, transport)
	require.NoError(t, registry.Upsert(testSubscription("https://push.example/device")))

	require.True(t, dispatcher.SendMatchNotification("Alex").Success)
	payload := lastPayload(t, transport)
	assert.Equal(t, "You have a new match with Alex! 💕", payload.Body)
	assert.Equal(t, "/discover", payload.URL)

	longPreview := "this message preview is definitely longer than fifty characters in total"
	require.True(t, dispatcher.SendMessageNotification("Sam", longPreview).Success)
	payload = lastPayload(t, transport)
	assert.Contains(t, payload.Body, "New message from Sam")
	assert.Contains(t, payload.Body, longPreview[:50])
	assert.NotContains(t, payload.Body, longPreview)

	require.True(t, dispatcher.SendProfileViewNotification("Riley").Success)
	payload = lastPayload(t, transport)
	assert.Equal(t, "Riley viewed your profile! 👀", payload.Body)
	assert.Equal(t, "profile", payload.Actions[1].Action)
}

func TestMessagePreviewTruncatesOnRuneBoundary(t *testing.T) {
	transport := &fakeTransport{}
	dispatcher, registry := newTestDispatcher(t, transport)
	require.NoError(t, registry.Upsert(testSubscription("https://push.example/device")))

	// The 50th rune is multi-byte; truncation must keep it whole instead
	// of cutting its UTF-8 sequence.
	preview := strings.Repeat("a", 49) + "💕💕💕"
	require.True(t, dispatcher.SendMessageNotification("Sam", preview).Success)

	payload := lastPayload(t, transport)
	assert.Contains(t, payload.Body, strings.Repeat("a", 49)+"💕")
	assert.NotContains(t, payload.Body, "💕💕")
	assert.NotContains(t, payload.Body, "�")
}

func TestEventBusTriggersDispatch(t *testing.T) {
	config := newTestConfig()
	registry := NewSubscriptionRegistry(newTestDB(t), &config)
	transport := &fakeTransport{}
	bus := EventBus.New()
	dispatcher := NewPushDispatcher(registry, transport, &config, &bus)
	require.NoError(t, dispatcher.SubscribeEvents())
	require.NoError(t, registry.Upsert(testSubscription("https://push.example/bus")))

	bus.Publish("notify:match", "Jordan")
	require.Len(t, transport.payloads, 1)
	payload := lastPayload(t, transport)
	assert.Contains(t, payload.Body, "Jordan")
}
