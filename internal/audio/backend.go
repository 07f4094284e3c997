package audio

import (
	"sync/atomic"

	"github.com/rishikanthc/scriberr-desktop/internal/ring"
)

// Reserved microphone device selectors.
const (
	// DeviceDefault selects the platform's default input device.
	DeviceDefault = "default"
	// DeviceNone disables the microphone source for a session.
	DeviceNone = "none"
)

// Device identifies a microphone input device for enumeration.
type Device struct {
	Name    string `json:"name"`
	ID      string `json:"id"`
	Default bool   `json:"default"`
}

// SourceStream is a running platform capture stream feeding a sample
// channel. Close stops the stream and releases the platform handle.
type SourceStream interface {
	Close() error
}

// MicrophoneSource is a SourceStream whose underlying hardware device can be
// hot-swapped without recreating the sample channel it produces into.
type MicrophoneSource interface {
	SourceStream
	// Switch replaces the active device stream with one opened for the
	// named device. On failure the previous device remains active.
	Switch(name string) error
}

// CaptureBackend abstracts the platform audio facility so the session
// controller can be wired to fakes in tests. Both open calls attach a
// producer to the given sample channel; the paused flag is consulted on
// every platform callback before any sample is pushed.
type CaptureBackend interface {
	ListMicrophones() ([]Device, error)
	OpenMicrophone(name string, sink *ring.Buffer, paused *atomic.Bool) (MicrophoneSource, error)
	OpenSystemSource(sink *ring.Buffer, paused *atomic.Bool) (SourceStream, error)
	Close() error
}
