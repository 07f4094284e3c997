package audio

import (
	"time"
)

// Fixed wire format for every recording session.
const (
	SampleRate = 48000
	Channels   = 2

	// sourceBufferCap sizes each per-source sample channel: about two
	// seconds of interleaved stereo at 48 kHz.
	sourceBufferCap = 192000

	// stopDrainGrace bounds how long stop waits for the mixing engine to
	// flush in-flight samples before finalizing the encoder.
	stopDrainGrace = 500 * time.Millisecond
)

// Status represents the current state of the recorder.
type Status string

const (
	StatusStandby   Status = "STANDBY"
	StatusRecording Status = "RECORDING"
)

// SessionInfo describes the active recording session.
type SessionInfo struct {
	OutputFile  string    `json:"output_file"`
	StartTime   time.Time `json:"start_time"`
	SystemAudio bool      `json:"system_audio"`
	MicDevice   string    `json:"mic_device"`
	Paused      bool      `json:"paused"`
}

// StartOptions configures a new recording session.
type StartOptions struct {
	// OutputPath is the full path of the WAV file to create. The extension
	// is the caller's responsibility.
	OutputPath string
	// MicDevice selects the microphone: a device name, DeviceDefault, or
	// DeviceNone/"" to record without a microphone.
	MicDevice string
	// SystemAudio enables capture of the system/application audio mix.
	SystemAudio bool
}

// StopResult reports the outcome of a finished session.
type StopResult struct {
	Duration time.Duration
	Path     string
}

// StreamEncoder is the session's output sink. wavenc.Encoder is the real
// implementation; tests inject counting fakes.
type StreamEncoder interface {
	WriteSample(float32) error
	Finalize() error
	Path() string
}

// Recorder is the recording session controller.
type Recorder interface {
	// Start wires a new capture-to-file pipeline. An active session is
	// stopped first. On any adapter failure the partially built session is
	// rolled back and nothing is left running.
	Start(opts StartOptions) error

	// Stop tears down the session, finalizes the encoder exactly once and
	// reports the elapsed duration. ErrInvalidState when nothing is active.
	// Resources are released even when finalization fails.
	Stop() (*StopResult, error)

	// Pause and Resume flip the shared flag consulted by both capture
	// adapters. Paused spans do not appear in the output at all.
	Pause()
	Resume()

	// SwitchMicrophone hot-swaps the active input device mid-session.
	SwitchMicrophone(name string) error

	// Status never blocks on the mixing engine.
	Status() (Status, *SessionInfo)

	// Level returns the most recent RMS level metric.
	Level() float64

	ListMicrophones() ([]Device, error)

	// Cleanup stops any active session and releases the platform context.
	Cleanup() error
}
