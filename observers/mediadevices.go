package observers

import "github.com/nativebridge/kernel/eventloop"

// MediaDevicesEvent is the JSON event forwarded when the OS media
// device observer (out-of-scope collaborator) reports a device list
// change, e.g. a camera or microphone being plugged in or removed.
type MediaDevicesEvent struct {
	Devices []MediaDeviceInfo `json:"devices"`
}

// MediaDeviceInfo describes one available media device.
type MediaDeviceInfo struct {
	ID    string `json:"id"`
	Kind  string `json:"kind"` // "videoinput" | "audioinput" | "audiooutput"
	Label string `json:"label"`
}

// MediaDevices is the kernel's MediaDevices module.
type MediaDevices struct {
	*Registry[MediaDevicesEvent]
}

// NewMediaDevices creates a MediaDevices module bound to loop.
func NewMediaDevices(loop *eventloop.Loop) *MediaDevices {
	return &MediaDevices{Registry: NewRegistry[MediaDevicesEvent](loop)}
}
