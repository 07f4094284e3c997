package audio

import "unsafe"

// BufferFormat describes the layout of a raw capture buffer as reported by
// the platform alongside the buffer itself. A nil descriptor means the
// layout is unknown and the buffer is passed through unchanged.
type BufferFormat struct {
	Channels int
	Planar   bool
}

// normalizeStereo converts a raw capture buffer into interleaved stereo and
// feeds each sample to emit, in output order.
//
// Three layouts are handled:
//   - planar stereo [L0..Ln R0..Rn] is de-interleaved to L,R,L,R
//   - mono [M0..Mn] duplicates every sample into both stereo slots
//   - interleaved stereo (or anything unrecognized) passes through as-is
func normalizeStereo(samples []float32, desc *BufferFormat, emit func(float32)) {
	switch {
	case desc != nil && desc.Planar && desc.Channels == 2:
		frames := len(samples) / 2
		left := samples[:frames]
		right := samples[frames : 2*frames]
		for i := 0; i < frames; i++ {
			emit(left[i])
			emit(right[i])
		}
	case desc != nil && desc.Channels == 1:
		for _, s := range samples {
			emit(s)
			emit(s)
		}
	default:
		for _, s := range samples {
			emit(s)
		}
	}
}

// bytesAsFloat32 reinterprets a little-endian byte buffer as float32 samples
// without copying. The result aliases the input and must not outlive the
// audio callback that delivered it.
func bytesAsFloat32(data []byte) []float32 {
	n := len(data) / 4
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&data[0])), n)
}
