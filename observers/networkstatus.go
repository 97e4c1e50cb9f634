package observers

import "github.com/nativebridge/kernel/eventloop"

// NetworkStatusEvent is the JSON event forwarded when the OS network
// status observer (out-of-scope collaborator) reports a connectivity
// change.
type NetworkStatusEvent struct {
	Online bool   `json:"online"`
	Kind   string `json:"kind,omitempty"` // "wifi" | "cellular" | "ethernet" | "none" | ...
}

// NetworkStatus is the kernel's NetworkStatus module.
type NetworkStatus struct {
	*Registry[NetworkStatusEvent]
}

// NewNetworkStatus creates a NetworkStatus module bound to loop.
func NewNetworkStatus(loop *eventloop.Loop) *NetworkStatus {
	return &NetworkStatus{Registry: NewRegistry[NetworkStatusEvent](loop)}
}
