package audio

import (
	"fmt"
	"log/slog"
	"strings"
	"unsafe"

	"github.com/gen2brain/malgo"
)

// malgoBackend implements CaptureBackend on top of miniaudio. One context is
// shared by every device the backend opens; it owns no devices itself.
type malgoBackend struct {
	ctx *malgo.AllocatedContext
}

// NewBackend initializes the platform audio context.
func NewBackend() (CaptureBackend, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		slog.Debug("miniaudio", "message", strings.TrimSpace(message))
	})
	if err != nil {
		return nil, fmt.Errorf("init audio context: %w", err)
	}
	return &malgoBackend{ctx: ctx}, nil
}

func (b *malgoBackend) ListMicrophones() ([]Device, error) {
	infos, err := b.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("enumerate capture devices: %w", err)
	}

	devices := make([]Device, 0, len(infos))
	for _, info := range infos {
		devices = append(devices, Device{
			// Device names double as identifiers: the platform does not
			// expose IDs that stay stable across enumerations.
			Name:    info.Name(),
			ID:      info.Name(),
			Default: info.IsDefault != 0,
		})
	}
	return devices, nil
}

// resolveDeviceID maps a device selector to a platform device ID. A nil
// pointer selects the system default.
func (b *malgoBackend) resolveDeviceID(name string) (unsafe.Pointer, error) {
	if name == "" || name == DeviceDefault {
		return nil, nil
	}

	infos, err := b.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("enumerate capture devices: %w", err)
	}
	for i := range infos {
		if infos[i].Name() == name {
			return infos[i].ID.Pointer(), nil
		}
	}
	return nil, fmt.Errorf("%w: microphone %q", ErrTargetNotFound, name)
}

func (b *malgoBackend) Close() error {
	if err := b.ctx.Uninit(); err != nil {
		return fmt.Errorf("uninit audio context: %w", err)
	}
	b.ctx.Free()
	return nil
}
