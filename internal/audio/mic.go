package audio

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/gen2brain/malgo"
	"github.com/rishikanthc/scriberr-desktop/internal/ring"
)

// micSource captures microphone input at the session's fixed format. The
// sample channel and paused flag outlive any individual hardware stream:
// Switch re-homes the producer to a new device without the consumer side
// noticing anything but (at most) a short gap.
type micSource struct {
	backend *malgoBackend

	mu     sync.Mutex
	device *malgo.Device
	sink   *ring.Buffer
	paused *atomic.Bool
}

func (b *malgoBackend) OpenMicrophone(name string, sink *ring.Buffer, paused *atomic.Bool) (MicrophoneSource, error) {
	deviceID, err := b.resolveDeviceID(name)
	if err != nil {
		return nil, err
	}

	m := &micSource{backend: b, sink: sink, paused: paused}
	device, err := m.initDevice(deviceID)
	if err != nil {
		return nil, err
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return nil, fmt.Errorf("%w: start microphone: %v", ErrDeviceOpen, err)
	}

	m.device = device
	return m, nil
}

// initDevice opens (but does not start) a capture stream bound to this
// source's channel and paused flag.
func (m *micSource) initDevice(deviceID unsafe.Pointer) (*malgo.Device, error) {
	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.SampleRate = SampleRate
	cfg.Capture.Format = malgo.FormatF32
	cfg.Capture.Channels = Channels
	cfg.Capture.DeviceID = deviceID
	cfg.Alsa.NoMMap = 1

	callbacks := malgo.DeviceCallbacks{
		Data: func(pOutput, pInput []byte, frameCount uint32) {
			if m.paused.Load() {
				return
			}
			for _, s := range bytesAsFloat32(pInput) {
				m.sink.Push(s)
			}
		},
	}

	device, err := malgo.InitDevice(m.backend.ctx.Context, cfg, callbacks)
	if err != nil {
		return nil, fmt.Errorf("%w: microphone: %v", ErrDeviceOpen, err)
	}
	return device, nil
}

// Switch replaces the active hardware stream with the named device. The old
// stream is stopped only after the new device initialized, so a failed
// lookup or open leaves the previous device running. At most one producer
// writes to the channel at any time: the old stream is stopped before the
// new one starts.
func (m *micSource) Switch(name string) error {
	deviceID, err := m.backend.resolveDeviceID(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	next, err := m.initDevice(deviceID)
	if err != nil {
		return err
	}

	prev := m.device
	if prev != nil {
		if err := prev.Stop(); err != nil {
			slog.Warn("stopping previous microphone stream", "error", err)
		}
		prev.Uninit()
	}

	if err := next.Start(); err != nil {
		next.Uninit()
		m.device = nil
		return fmt.Errorf("%w: start microphone %q: %v", ErrDeviceOpen, name, err)
	}

	m.device = next
	slog.Info("microphone switched", "device", name)
	return nil
}

func (m *micSource) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device == nil {
		return nil
	}
	err := m.device.Stop()
	m.device.Uninit()
	m.device = nil
	if err != nil {
		return fmt.Errorf("stop microphone: %w", err)
	}
	return nil
}
