package audio

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
	"github.com/rishikanthc/scriberr-desktop/internal/ring"
)

// systemSource captures the system/application audio mix via a loopback
// stream on the default render device. Buffers arrive on a platform-owned
// callback thread in whatever layout the device delivers; deliver normalizes
// them to interleaved stereo before they reach the sample channel.
type systemSource struct {
	mu     sync.Mutex
	device *malgo.Device
	sink   *ring.Buffer
	paused *atomic.Bool
}

func (b *malgoBackend) OpenSystemSource(sink *ring.Buffer, paused *atomic.Bool) (SourceStream, error) {
	s := &systemSource{sink: sink, paused: paused}

	cfg := malgo.DefaultDeviceConfig(malgo.Loopback)
	cfg.SampleRate = SampleRate
	cfg.Capture.Format = malgo.FormatF32
	// Channels 0 keeps the device's native layout; deliver introspects the
	// actual channel count per buffer.
	cfg.Capture.Channels = 0
	cfg.Alsa.NoMMap = 1

	callbacks := malgo.DeviceCallbacks{
		Data: func(pOutput, pInput []byte, frameCount uint32) {
			s.deliver(pInput, frameCount)
		},
	}

	device, err := malgo.InitDevice(b.ctx.Context, cfg, callbacks)
	if err != nil {
		return nil, fmt.Errorf("%w: loopback capture unavailable: %v", ErrTargetNotFound, err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return nil, fmt.Errorf("%w: start loopback capture: %v", ErrDeviceOpen, err)
	}

	s.device = device
	return s, nil
}

// deliver runs on the platform callback thread: it must not block. The
// buffer is always consumed; while paused nothing is pushed downstream.
func (s *systemSource) deliver(raw []byte, frameCount uint32) {
	samples := bytesAsFloat32(raw)
	if len(samples) == 0 {
		return
	}

	var desc *BufferFormat
	if frameCount > 0 {
		desc = &BufferFormat{Channels: len(samples) / int(frameCount)}
	}

	if s.paused.Load() {
		return
	}
	normalizeStereo(samples, desc, func(v float32) {
		// Push drops on overflow; never stall the callback thread.
		s.sink.Push(v)
	})
}

func (s *systemSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.device == nil {
		return nil
	}
	err := s.device.Stop()
	s.device.Uninit()
	s.device = nil
	if err != nil {
		return fmt.Errorf("stop loopback capture: %w", err)
	}
	return nil
}
