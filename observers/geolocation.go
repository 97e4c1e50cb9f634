package observers

import "github.com/nativebridge/kernel/eventloop"

// GeolocationEvent is the JSON event forwarded when the OS geolocation
// permission UI (out-of-scope collaborator) reports a position update
// or error.
type GeolocationEvent struct {
	Latitude  float64 `json:"latitude,omitempty"`
	Longitude float64 `json:"longitude,omitempty"`
	Accuracy  float64 `json:"accuracy,omitempty"`
	Error     string  `json:"error,omitempty"`
}

// Geolocation is the kernel's Geolocation module.
type Geolocation struct {
	*Registry[GeolocationEvent]
}

// NewGeolocation creates a Geolocation module bound to loop.
func NewGeolocation(loop *eventloop.Loop) *Geolocation {
	return &Geolocation{Registry: NewRegistry[GeolocationEvent](loop)}
}
