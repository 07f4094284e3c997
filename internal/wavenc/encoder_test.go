package wavenc

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestCreateWriteFinalize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")

	enc, err := Create(path, 48000, 2)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	samples := []float32{0.5, -0.5, 1.0, -1.0, 0.0, 0.25}
	for _, s := range samples {
		if err := enc.WriteSample(s); err != nil {
			t.Fatalf("WriteSample(%v) failed: %v", s, err)
		}
	}

	if got := enc.SamplesWritten(); got != uint64(len(samples)) {
		t.Errorf("SamplesWritten = %d, expected %d", got, len(samples))
	}

	if err := enc.Finalize(); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	verifyWavHeader(t, data, len(samples))
}

// verifyWavHeader checks the RIFF structure and the fmt fields the pipeline
// fixes: IEEE float, stereo, 48 kHz, 32-bit.
func verifyWavHeader(t *testing.T, data []byte, samples int) {
	t.Helper()

	if len(data) < 44 {
		t.Fatalf("file too small for a WAV header: %d bytes", len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Fatalf("not a RIFF/WAVE file: %q %q", data[0:4], data[8:12])
	}
	riffSize := binary.LittleEndian.Uint32(data[4:8])
	if int(riffSize) != len(data)-8 {
		t.Errorf("RIFF size = %d, expected %d (header not finalized?)", riffSize, len(data)-8)
	}

	// Scan chunks for fmt and data.
	pos := 12
	var sawFmt, sawData bool
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		switch id {
		case "fmt ":
			sawFmt = true
			if f := binary.LittleEndian.Uint16(data[body : body+2]); f != 3 {
				t.Errorf("audio format = %d, expected 3 (IEEE float)", f)
			}
			if ch := binary.LittleEndian.Uint16(data[body+2 : body+4]); ch != 2 {
				t.Errorf("channels = %d, expected 2", ch)
			}
			if sr := binary.LittleEndian.Uint32(data[body+4 : body+8]); sr != 48000 {
				t.Errorf("sample rate = %d, expected 48000", sr)
			}
			if bits := binary.LittleEndian.Uint16(data[body+14 : body+16]); bits != 32 {
				t.Errorf("bit depth = %d, expected 32", bits)
			}
		case "data":
			sawData = true
			if size != samples*4 {
				t.Errorf("data chunk size = %d, expected %d", size, samples*4)
			}
		}
		pos = body + size
		if size%2 == 1 {
			pos++
		}
	}

	if !sawFmt {
		t.Error("no fmt chunk found")
	}
	if !sawData {
		t.Error("no data chunk found")
	}
}

func TestFinalizeTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")

	enc, err := Create(path, 48000, 2)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := enc.WriteSample(0.1); err != nil {
		t.Fatalf("WriteSample failed: %v", err)
	}
	if err := enc.Finalize(); err != nil {
		t.Fatalf("first Finalize failed: %v", err)
	}
	if err := enc.Finalize(); !errors.Is(err, ErrClosed) {
		t.Errorf("second Finalize = %v, expected ErrClosed", err)
	}
}

func TestWriteAfterFinalize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")

	enc, err := Create(path, 48000, 2)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := enc.Finalize(); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	if err := enc.WriteSample(0.1); !errors.Is(err, ErrClosed) {
		t.Errorf("WriteSample after Finalize = %v, expected ErrClosed", err)
	}
}

func TestCreate_BadPath(t *testing.T) {
	_, err := Create(filepath.Join(t.TempDir(), "missing", "out.wav"), 48000, 2)
	if err == nil {
		t.Error("Create in nonexistent directory succeeded, expected error")
	}
}
