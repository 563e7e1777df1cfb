package worker

import (
	"encoding/json"
	"time"

	"github.com/m-barthelemy/dating-pwa/models"
)

// NotificationData is the opaque bag attached to a displayed notification
// and read back when the user clicks it.
type NotificationData struct {
	DateOfArrival int64  `json:"dateOfArrival"`
	PrimaryKey    string `json:"primaryKey"`
	URL           string `json:"url"`
}

// DisplayOptions is everything the platform needs to show a system
// notification.
type DisplayOptions struct {
	Body               string                      `json:"body"`
	Icon               string                      `json:"icon"`
	Badge              string                      `json:"badge"`
	Vibrate            []int                       `json:"vibrate"`
	Data               NotificationData            `json:"data"`
	Actions            []models.NotificationAction `json:"actions"`
	Tag                string                      `json:"tag"`
	Renotify           bool                        `json:"renotify"`
	RequireInteraction bool                        `json:"requireInteraction"`
	Silent             bool                        `json:"silent"`
}

// BuildNotification turns an incoming push payload into the title and
// display options for a system notification. Missing payload fields fall
// back to fixed defaults.
func BuildNotification(raw []byte, now time.Time) (string, DisplayOptions, error) {
	var payload models.PushPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", DisplayOptions{}, err
	}

	title := payload.Title
	if title == "" {
		title = "Dating App"
	}
	body := payload.Body
	if body == "" {
		body = "You have a new notification!"
	}
	id := payload.ID
	if id == "" {
		id = "1"
	}
	targetURL := payload.URL
	if targetURL == "" {
		targetURL = "/"
	}

	options := DisplayOptions{
		Body:    body,
		Icon:    "/icon.svg",
		Badge:   "/icon.svg",
		Vibrate: []int{100, 50, 100},
		Data: NotificationData{
			DateOfArrival: now.UnixNano() / int64(time.Millisecond),
			PrimaryKey:    id,
			URL:           targetURL,
		},
		Actions: []models.NotificationAction{
			{Action: "explore", Title: "View", Icon: "/icon.svg"},
			{Action: "close", Title: "Close", Icon: "/icon.svg"},
		},
		Tag:                "dating-app-notification",
		Renotify:           true,
		RequireInteraction: false,
		Silent:             false,
	}
	return title, options, nil
}

// WindowClient is an open page the worker controls.
type WindowClient struct {
	URL       string
	Focusable bool
}

// ClickKind is the single outcome of a notification click.
type ClickKind int

const (
	// ClickNone closes the notification and navigates nowhere.
	ClickNone ClickKind = iota
	// ClickFocus brings an already-open page to the front.
	ClickFocus
	// ClickOpen opens the target URL in a new page.
	ClickOpen
)

// ClickOutcome says what the click handler decided. Exactly one of
// focus/open happens, never both.
type ClickOutcome struct {
	Kind ClickKind
	URL  string
}

// ResolveClick handles a user click on a displayed notification. The
// notification itself is always closed; the "close" action goes no
// further.
func ResolveClick(action string, data NotificationData, clients []WindowClient) ClickOutcome {
	if action == "close" {
		return ClickOutcome{Kind: ClickNone}
	}

	targetURL := data.URL
	if targetURL == "" {
		targetURL = "/"
	}

	for _, client := range clients {
		if client.URL == targetURL && client.Focusable {
			return ClickOutcome{Kind: ClickFocus, URL: targetURL}
		}
	}
	return ClickOutcome{Kind: ClickOpen, URL: targetURL}
}
