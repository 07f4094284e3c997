package audio

import "errors"

// Error kinds surfaced by the recorder. Callers match with errors.Is; the
// HTTP layer maps them to status codes.
var (
	// ErrTargetNotFound: the system-capture target or a named microphone
	// device does not exist at start/switch time.
	ErrTargetNotFound = errors.New("capture target not found")

	// ErrDeviceOpen: the platform refused to open or configure the
	// requested input.
	ErrDeviceOpen = errors.New("failed to open capture device")

	// ErrInvalidState: stop without an active session, or an operation that
	// requires one.
	ErrInvalidState = errors.New("invalid recorder state")
)
