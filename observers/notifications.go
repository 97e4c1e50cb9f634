package observers

import "github.com/nativebridge/kernel/eventloop"

// NotificationEvent is the JSON event forwarded to JS when the OS
// notification permission UI (an out-of-scope collaborator) reports a
// user action.
type NotificationEvent struct {
	ID     string `json:"id"`
	Action string `json:"action"` // "show" | "click" | "close" | "reply"
	Reply  string `json:"reply,omitempty"`
}

// Notifications is the kernel's Notifications module: a registry of
// subscribers notified whenever the host's notification permission UI
// reports an event.
type Notifications struct {
	*Registry[NotificationEvent]
}

// NewNotifications creates a Notifications module bound to loop.
func NewNotifications(loop *eventloop.Loop) *Notifications {
	return &Notifications{Registry: NewRegistry[NotificationEvent](loop)}
}
