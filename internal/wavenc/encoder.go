// Package wavenc wraps a streaming WAV writer for the recording pipeline.
// Samples are appended one mixed tick at a time; Finalize rewrites the RIFF
// length fields and must run exactly once, otherwise the file is left
// structurally invalid.
package wavenc

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// IEEE float PCM, per the RIFF fmt chunk encoding field.
const wavFormatFloat = 3

// ErrClosed is returned when a sample is written, or Finalize is called,
// after the encoder has already been finalized.
var ErrClosed = errors.New("wavenc: encoder already finalized")

// Encoder writes 32-bit float samples to a WAV file as they arrive. It is
// safe for one writer and one finalizer to race: all access to the
// underlying file goes through a single mutex, held for one write or the
// final header rewrite.
type Encoder struct {
	mu     sync.Mutex
	file   *os.File
	enc    *wav.Encoder
	format *audio.Format
	path   string
	frames uint64
	closed bool
}

// Create opens path for writing and emits the WAV header for the given
// sample rate and channel count.
func Create(path string, sampleRate, channels int) (*Encoder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}

	return &Encoder{
		file: f,
		enc:  wav.NewEncoder(f, sampleRate, 32, channels, wavFormatFloat),
		format: &audio.Format{
			NumChannels: channels,
			SampleRate:  sampleRate,
		},
		path: path,
	}, nil
}

// WriteSample appends one sample to the open file.
func (e *Encoder) WriteSample(s float32) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}
	if err := e.enc.WriteFrame(s); err != nil {
		return fmt.Errorf("write sample: %w", err)
	}
	e.frames++
	return nil
}

// Finalize rewrites the header length fields and closes the file. A second
// call returns ErrClosed without touching the file.
func (e *Encoder) Finalize() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}
	e.closed = true

	encErr := e.enc.Close()
	fileErr := e.file.Close()
	if encErr != nil {
		return fmt.Errorf("finalize wav: %w", encErr)
	}
	if fileErr != nil {
		return fmt.Errorf("close output file: %w", fileErr)
	}
	return nil
}

// Path returns the output file path.
func (e *Encoder) Path() string { return e.path }

// Format returns the fixed output format.
func (e *Encoder) Format() *audio.Format { return e.format }

// SamplesWritten returns the number of samples written so far.
func (e *Encoder) SamplesWritten() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frames
}
