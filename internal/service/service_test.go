package service

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rishikanthc/scriberr-desktop/internal/audio"
	"github.com/rishikanthc/scriberr-desktop/internal/config"
)

// fakeRecorder implements audio.Recorder for service-level tests.
type fakeRecorder struct {
	status   audio.Status
	session  *audio.SessionInfo
	level    float64
	devices  []audio.Device
	startErr error
	stopErr  error

	started  []audio.StartOptions
	switched []string
	paused   bool
	cleaned  bool
}

func (f *fakeRecorder) Start(opts audio.StartOptions) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.started = append(f.started, opts)
	f.status = audio.StatusRecording
	f.session = &audio.SessionInfo{
		OutputFile:  opts.OutputPath,
		StartTime:   time.Now(),
		SystemAudio: opts.SystemAudio,
		MicDevice:   opts.MicDevice,
	}
	return nil
}

func (f *fakeRecorder) Stop() (*audio.StopResult, error) {
	if f.stopErr != nil {
		return nil, f.stopErr
	}
	if f.status != audio.StatusRecording {
		return nil, audio.ErrInvalidState
	}
	result := &audio.StopResult{Duration: 3 * time.Second, Path: f.session.OutputFile}
	f.status = audio.StatusStandby
	f.session = nil
	return result, nil
}

func (f *fakeRecorder) Pause()  { f.paused = true }
func (f *fakeRecorder) Resume() { f.paused = false }

func (f *fakeRecorder) SwitchMicrophone(name string) error {
	f.switched = append(f.switched, name)
	return nil
}

func (f *fakeRecorder) Status() (audio.Status, *audio.SessionInfo) {
	if f.status == "" {
		return audio.StatusStandby, nil
	}
	return f.status, f.session
}

func (f *fakeRecorder) Level() float64 { return f.level }

func (f *fakeRecorder) ListMicrophones() ([]audio.Device, error) { return f.devices, nil }

func (f *fakeRecorder) Cleanup() error {
	f.cleaned = true
	return nil
}

func testService(t *testing.T) (Service, *fakeRecorder, *config.Config) {
	t.Helper()
	cfg := &config.Config{
		Audio:   config.AudioConfig{SampleRate: 48000, Channels: 2},
		Capture: config.CaptureConfig{MicDevice: "default", SystemAudio: true},
		Output:  config.OutputConfig{Directory: filepath.Join(t.TempDir(), "recordings")},
	}
	rec := &fakeRecorder{}
	return NewWithRecorder(cfg, rec), rec, cfg
}

func TestStartRecording_DefaultName(t *testing.T) {
	svc, rec, cfg := testService(t)

	path, err := svc.StartRecording("")
	if err != nil {
		t.Fatalf("StartRecording: %v", err)
	}

	base := filepath.Base(path)
	if !strings.HasPrefix(base, "recording_") || !strings.HasSuffix(base, ".wav") {
		t.Errorf("default name = %q, expected recording_<timestamp>.wav", base)
	}
	if filepath.Dir(path) != cfg.Output.Directory {
		t.Errorf("output dir = %q, expected %q", filepath.Dir(path), cfg.Output.Directory)
	}
	if _, err := os.Stat(cfg.Output.Directory); err != nil {
		t.Errorf("recordings directory not created: %v", err)
	}

	if len(rec.started) != 1 {
		t.Fatalf("recorder started %d times, expected 1", len(rec.started))
	}
	opts := rec.started[0]
	if opts.MicDevice != "default" || !opts.SystemAudio {
		t.Errorf("start options = %+v, expected capture config applied", opts)
	}
}

func TestStartRecording_NamePolicy(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"take one", "take_one.wav"},
		{"session.wav", "session.wav"},
		{"band/demo", "demo.wav"},
		{"../../escape", "escape.wav"},
		{"weird!@#chars", "weirdchars.wav"},
	}

	for _, tc := range cases {
		svc, _, _ := testService(t)
		path, err := svc.StartRecording(tc.in)
		if err != nil {
			t.Fatalf("StartRecording(%q): %v", tc.in, err)
		}
		if got := filepath.Base(path); got != tc.want {
			t.Errorf("StartRecording(%q) file = %q, expected %q", tc.in, got, tc.want)
		}
	}
}

func TestStartRecording_ErrorSetsLastError(t *testing.T) {
	svc, rec, _ := testService(t)
	rec.startErr = audio.ErrDeviceOpen

	if _, err := svc.StartRecording("take"); !errors.Is(err, audio.ErrDeviceOpen) {
		t.Fatalf("StartRecording error = %v, expected ErrDeviceOpen", err)
	}
	if svc.GetLastError() == "" {
		t.Error("last error not recorded after failed start")
	}

	// A following successful start clears it.
	rec.startErr = nil
	if _, err := svc.StartRecording("take"); err != nil {
		t.Fatalf("StartRecording: %v", err)
	}
	if svc.GetLastError() != "" {
		t.Errorf("last error = %q after successful start, expected empty", svc.GetLastError())
	}
}

func TestStopRecording_Result(t *testing.T) {
	svc, _, cfg := testService(t)
	path, err := svc.StartRecording("take")
	if err != nil {
		t.Fatalf("StartRecording: %v", err)
	}

	result, err := svc.StopRecording()
	if err != nil {
		t.Fatalf("StopRecording: %v", err)
	}
	if result.FilePath != path {
		t.Errorf("file path = %q, expected %q", result.FilePath, path)
	}
	if result.FolderPath != cfg.Output.Directory {
		t.Errorf("folder path = %q, expected %q", result.FolderPath, cfg.Output.Directory)
	}
	if result.DurationSec != 3 {
		t.Errorf("duration = %v, expected 3", result.DurationSec)
	}
}

func TestPauseResume_RequireActiveSession(t *testing.T) {
	svc, rec, _ := testService(t)

	if err := svc.PauseRecording(); !errors.Is(err, audio.ErrInvalidState) {
		t.Errorf("pause while idle = %v, expected ErrInvalidState", err)
	}
	if err := svc.ResumeRecording(); !errors.Is(err, audio.ErrInvalidState) {
		t.Errorf("resume while idle = %v, expected ErrInvalidState", err)
	}

	if _, err := svc.StartRecording("take"); err != nil {
		t.Fatalf("StartRecording: %v", err)
	}
	if err := svc.PauseRecording(); err != nil {
		t.Fatalf("PauseRecording: %v", err)
	}
	if !rec.paused {
		t.Error("recorder not paused")
	}
	if err := svc.ResumeRecording(); err != nil {
		t.Fatalf("ResumeRecording: %v", err)
	}
	if rec.paused {
		t.Error("recorder still paused after resume")
	}
}

func TestListRecordings(t *testing.T) {
	svc, _, cfg := testService(t)
	if err := os.MkdirAll(cfg.Output.Directory, 0755); err != nil {
		t.Fatal(err)
	}

	old := filepath.Join(cfg.Output.Directory, "old.wav")
	if err := os.WriteFile(old, []byte("not a real wav"), 0644); err != nil {
		t.Fatal(err)
	}
	// Backdate so ordering is deterministic.
	past := time.Now().Add(-time.Hour)
	os.Chtimes(old, past, past)

	if err := os.WriteFile(filepath.Join(cfg.Output.Directory, "new.wav"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	// Non-WAV files are ignored.
	if err := os.WriteFile(filepath.Join(cfg.Output.Directory, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	recordings, err := svc.ListRecordings()
	if err != nil {
		t.Fatalf("ListRecordings: %v", err)
	}
	if len(recordings) != 2 {
		t.Fatalf("got %d recordings, expected 2", len(recordings))
	}
	if recordings[0].Name != "new.wav" || recordings[1].Name != "old.wav" {
		t.Errorf("order = [%s, %s], expected newest first", recordings[0].Name, recordings[1].Name)
	}
	if recordings[0].SizeHuman == "" || recordings[0].StreamURL == "" {
		t.Errorf("incomplete recording info: %+v", recordings[0])
	}
}

func TestClose_ReleasesRecorder(t *testing.T) {
	svc, rec, _ := testService(t)
	if err := svc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !rec.cleaned {
		t.Error("recorder cleanup not invoked")
	}
}

func TestCleanFileName(t *testing.T) {
	cases := map[string]string{
		"My Song":        "My_Song",
		"  spaced  ":     "spaced",
		"a/b/c":          "c",
		"..":             "",
		"___":            "",
		"mix.final.wav":  "mix.final.wav",
	}
	for in, want := range cases {
		if got := cleanFileName(in); got != want {
			t.Errorf("cleanFileName(%q) = %q, expected %q", in, got, want)
		}
	}
}
