package models

// NotificationAction is a button displayed on a system notification.
type NotificationAction struct {
	Action string `json:"action"`
	Title  string `json:"title"`
	Icon   string `json:"icon,omitempty"`
}

// PushPayload is the JSON document sent over the push transport and
// consumed by the service worker to display a notification.
type PushPayload struct {
	Title              string               `json:"title"`
	Body               string               `json:"body"`
	Icon               string               `json:"icon,omitempty"`
	Badge              string               `json:"badge,omitempty"`
	Tag                string               `json:"tag,omitempty"`
	Renotify           bool                 `json:"renotify"`
	RequireInteraction bool                 `json:"requireInteraction"`
	Actions            []NotificationAction `json:"actions,omitempty"`
	ID                 string               `json:"id,omitempty"`
	URL                string               `json:"url,omitempty"`
}
