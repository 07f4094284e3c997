package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rishikanthc/scriberr-desktop/internal/ring"
	"github.com/rishikanthc/scriberr-desktop/internal/wavenc"
)

// sessionRecorder implements Recorder. Lifecycle operations serialize on
// ctl; status/session reads take only the st lock so they never wait behind
// a stop that is draining the engine.
type sessionRecorder struct {
	backend    CaptureBackend
	newEncoder func(path string) (StreamEncoder, error)

	ctl sync.Mutex

	st      sync.RWMutex
	status  Status
	session *SessionInfo

	paused atomic.Bool

	// Per-session wiring, owned by the ctl-holding goroutine.
	engine    *Engine
	encoder   StreamEncoder
	sysStream SourceStream
	micSource MicrophoneSource
	startTime time.Time
}

// NewRecorder creates a recorder backed by the platform audio facility.
func NewRecorder() (Recorder, error) {
	backend, err := NewBackend()
	if err != nil {
		return nil, err
	}
	return newRecorder(backend), nil
}

func newRecorder(backend CaptureBackend) *sessionRecorder {
	return &sessionRecorder{
		backend: backend,
		status:  StatusStandby,
		newEncoder: func(path string) (StreamEncoder, error) {
			return wavenc.Create(path, SampleRate, Channels)
		},
	}
}

func (r *sessionRecorder) Start(opts StartOptions) error {
	r.ctl.Lock()
	defer r.ctl.Unlock()

	// Idempotent stop-then-start: a live session is fully torn down first.
	if r.currentStatus() == StatusRecording {
		if _, err := r.stopLocked(); err != nil {
			slog.Warn("stopping previous session before start", "error", err)
		}
	}

	micEnabled := opts.MicDevice != "" && opts.MicDevice != DeviceNone

	encoder, err := r.newEncoder(opts.OutputPath)
	if err != nil {
		return fmt.Errorf("create encoder: %w", err)
	}

	sysCh := ring.New(sourceBufferCap)
	micCh := ring.New(sourceBufferCap)
	engine := NewEngine(
		Source{Ch: sysCh, Enabled: opts.SystemAudio},
		Source{Ch: micCh, Enabled: micEnabled},
		encoder,
	)

	r.paused.Store(false)

	var mic MicrophoneSource
	if micEnabled {
		mic, err = r.backend.OpenMicrophone(opts.MicDevice, micCh, &r.paused)
		if err != nil {
			r.rollbackEncoder(encoder)
			return fmt.Errorf("open microphone: %w", err)
		}
	}

	var sys SourceStream
	if opts.SystemAudio {
		sys, err = r.backend.OpenSystemSource(sysCh, &r.paused)
		if err != nil {
			// No partial session: the mic stream and the output file both
			// go away before the error is reported.
			if mic != nil {
				mic.Close()
			}
			r.rollbackEncoder(encoder)
			return fmt.Errorf("open system source: %w", err)
		}
	}

	engine.Start()

	r.encoder = encoder
	r.micSource = mic
	r.sysStream = sys
	r.startTime = time.Now()

	r.st.Lock()
	r.engine = engine
	r.status = StatusRecording
	r.session = &SessionInfo{
		OutputFile:  opts.OutputPath,
		StartTime:   r.startTime,
		SystemAudio: opts.SystemAudio,
		MicDevice:   opts.MicDevice,
	}
	r.st.Unlock()

	slog.Info("recording started",
		"output", opts.OutputPath,
		"system_audio", opts.SystemAudio,
		"mic_device", opts.MicDevice)
	return nil
}

// rollbackEncoder disposes of an encoder created for a session that never
// came up, removing the partially written file.
func (r *sessionRecorder) rollbackEncoder(enc StreamEncoder) {
	if err := enc.Finalize(); err != nil && !errors.Is(err, wavenc.ErrClosed) {
		slog.Warn("finalizing encoder during rollback", "error", err)
	}
	if path := enc.Path(); path != "" {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			slog.Warn("removing partial output file", "path", path, "error", err)
		}
	}
}

func (r *sessionRecorder) Stop() (*StopResult, error) {
	r.ctl.Lock()
	defer r.ctl.Unlock()

	if r.currentStatus() != StatusRecording {
		return nil, fmt.Errorf("%w: no active recording session", ErrInvalidState)
	}
	return r.stopLocked()
}

// stopLocked tears the session down: adapters first so the channels stop
// growing, then the engine (which drains what is left), then exactly one
// finalize. Resources are released and state reset even when finalize
// fails. Caller holds ctl.
func (r *sessionRecorder) stopLocked() (*StopResult, error) {
	if r.micSource != nil {
		if err := r.micSource.Close(); err != nil {
			slog.Warn("closing microphone stream", "error", err)
		}
	}
	if r.sysStream != nil {
		if err := r.sysStream.Close(); err != nil {
			slog.Warn("closing system capture stream", "error", err)
		}
	}

	r.engine.Stop(stopDrainGrace)

	finalizeErr := r.encoder.Finalize()

	result := &StopResult{
		Duration: time.Since(r.startTime),
		Path:     r.encoder.Path(),
	}

	r.encoder = nil
	r.micSource = nil
	r.sysStream = nil
	r.paused.Store(false)

	r.st.Lock()
	r.engine = nil
	r.status = StatusStandby
	r.session = nil
	r.st.Unlock()

	if finalizeErr != nil {
		return result, fmt.Errorf("finalize recording: %w", finalizeErr)
	}

	slog.Info("recording stopped", "output", result.Path, "duration", result.Duration)
	return result, nil
}

func (r *sessionRecorder) Pause() {
	r.paused.Store(true)
	r.setSessionPaused(true)
}

func (r *sessionRecorder) Resume() {
	r.paused.Store(false)
	r.setSessionPaused(false)
}

func (r *sessionRecorder) setSessionPaused(paused bool) {
	r.st.Lock()
	if r.session != nil {
		r.session.Paused = paused
	}
	r.st.Unlock()
}

func (r *sessionRecorder) SwitchMicrophone(name string) error {
	r.ctl.Lock()
	defer r.ctl.Unlock()

	if r.currentStatus() != StatusRecording {
		return fmt.Errorf("%w: no active recording session", ErrInvalidState)
	}
	if r.micSource == nil {
		return fmt.Errorf("%w: microphone source not enabled for this session", ErrInvalidState)
	}

	if err := r.micSource.Switch(name); err != nil {
		return err
	}

	r.st.Lock()
	if r.session != nil {
		r.session.MicDevice = name
	}
	r.st.Unlock()
	return nil
}

func (r *sessionRecorder) Status() (Status, *SessionInfo) {
	r.st.RLock()
	defer r.st.RUnlock()

	if r.session == nil {
		return r.status, nil
	}
	info := *r.session
	info.Paused = r.paused.Load()
	return r.status, &info
}

func (r *sessionRecorder) Level() float64 {
	r.st.RLock()
	engine := r.engine
	r.st.RUnlock()
	if engine == nil {
		return 0
	}
	return engine.Level()
}

func (r *sessionRecorder) currentStatus() Status {
	r.st.RLock()
	defer r.st.RUnlock()
	return r.status
}

func (r *sessionRecorder) ListMicrophones() ([]Device, error) {
	devices, err := r.backend.ListMicrophones()
	if err != nil {
		return nil, err
	}
	// The reserved default entry always leads the list.
	return append([]Device{{Name: "System Default", ID: DeviceDefault, Default: true}}, devices...), nil
}

func (r *sessionRecorder) Cleanup() error {
	r.ctl.Lock()
	if r.currentStatus() == StatusRecording {
		if _, err := r.stopLocked(); err != nil {
			slog.Warn("stopping session during cleanup", "error", err)
		}
	}
	r.ctl.Unlock()

	return r.backend.Close()
}
