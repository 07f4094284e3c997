package service

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-audio/wav"
	"github.com/rishikanthc/scriberr-desktop/internal/audio"
	"github.com/rishikanthc/scriberr-desktop/internal/config"
)

// Service is the application-facing recording API. It owns filename
// policy and the output directory; the recorder underneath only knows
// about full paths.
type Service interface {
	// StartRecording begins a new session and returns the output file path.
	// An empty name gets a timestamped default; the .wav extension is
	// appended when missing.
	StartRecording(name string) (string, error)
	StopRecording() (*RecordingResult, error)
	PauseRecording() error
	ResumeRecording() error
	SwitchMicrophone(name string) error

	ListMicrophones() ([]audio.Device, error)
	GetStatus() (audio.Status, *audio.SessionInfo)
	GetLevel() float64
	ListRecordings() ([]RecordingInfo, error)
	GetLastError() string

	// Close stops any active session and releases the audio backend.
	Close() error
}

// RecordingResult describes a finished recording.
type RecordingResult struct {
	FilePath    string  `json:"file_path"`
	FolderPath  string  `json:"folder_path"`
	DurationSec float64 `json:"duration_sec"`
}

// RecordingInfo describes one file in the recordings directory.
type RecordingInfo struct {
	Name         string    `json:"name"`
	Path         string    `json:"path"`
	Size         int64     `json:"size"`
	SizeHuman    string    `json:"size_human"`
	ModTime      time.Time `json:"mod_time"`
	ModTimeHuman string    `json:"mod_time_human"`
	DurationSec  float64   `json:"duration_sec"`
	StreamURL    string    `json:"stream_url"`
	DownloadURL  string    `json:"download_url"`
}

// RecorderService is the main service implementation.
type RecorderService struct {
	cfg      *config.Config
	recorder audio.Recorder

	lastError      string
	lastErrorMutex sync.RWMutex
}

// New creates a service backed by the platform audio facility.
func New(cfg *config.Config) (Service, error) {
	recorder, err := audio.NewRecorder()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio backend: %w", err)
	}
	return NewWithRecorder(cfg, recorder), nil
}

// NewWithRecorder creates a service around an existing recorder.
func NewWithRecorder(cfg *config.Config, recorder audio.Recorder) Service {
	return &RecorderService{
		cfg:      cfg,
		recorder: recorder,
	}
}

func (s *RecorderService) StartRecording(name string) (string, error) {
	slog.Debug("Service.StartRecording called", "name", name)
	s.clearLastError()

	outputPath, err := s.resolveOutputPath(name)
	if err != nil {
		s.setLastError(fmt.Sprintf("Failed to prepare output: %v", err))
		return "", err
	}

	err = s.recorder.Start(audio.StartOptions{
		OutputPath:  outputPath,
		MicDevice:   s.cfg.Capture.MicDevice,
		SystemAudio: s.cfg.Capture.SystemAudio,
	})
	if err != nil {
		s.setLastError(fmt.Sprintf("Failed to start recording: %v", err))
		return "", err
	}
	return outputPath, nil
}

// resolveOutputPath applies the filename policy: sanitize, default to a
// timestamped name, force the .wav extension and make sure the output
// directory exists.
func (s *RecorderService) resolveOutputPath(name string) (string, error) {
	name = cleanFileName(name)
	if name == "" {
		name = "recording_" + time.Now().Format("2006-01-02_15-04-05")
	}
	if !strings.HasSuffix(strings.ToLower(name), ".wav") {
		name += ".wav"
	}

	dir := s.cfg.Output.Directory
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create recordings directory: %w", err)
	}
	return filepath.Join(dir, name), nil
}

func (s *RecorderService) StopRecording() (*RecordingResult, error) {
	stop, err := s.recorder.Stop()
	if err != nil {
		s.setLastError(fmt.Sprintf("Failed to stop recording: %v", err))
		return nil, err
	}
	s.clearLastError()

	return &RecordingResult{
		FilePath:    stop.Path,
		FolderPath:  filepath.Dir(stop.Path),
		DurationSec: stop.Duration.Seconds(),
	}, nil
}

func (s *RecorderService) PauseRecording() error {
	if status, _ := s.recorder.Status(); status != audio.StatusRecording {
		return fmt.Errorf("%w: no active recording session", audio.ErrInvalidState)
	}
	s.recorder.Pause()
	slog.Debug("recording paused")
	return nil
}

func (s *RecorderService) ResumeRecording() error {
	if status, _ := s.recorder.Status(); status != audio.StatusRecording {
		return fmt.Errorf("%w: no active recording session", audio.ErrInvalidState)
	}
	s.recorder.Resume()
	slog.Debug("recording resumed")
	return nil
}

func (s *RecorderService) SwitchMicrophone(name string) error {
	err := s.recorder.SwitchMicrophone(name)
	if err != nil {
		s.setLastError(fmt.Sprintf("Failed to switch microphone: %v", err))
	}
	return err
}

func (s *RecorderService) ListMicrophones() ([]audio.Device, error) {
	return s.recorder.ListMicrophones()
}

func (s *RecorderService) GetStatus() (audio.Status, *audio.SessionInfo) {
	return s.recorder.Status()
}

func (s *RecorderService) GetLevel() float64 {
	return s.recorder.Level()
}

// ListRecordings returns every WAV file in the recordings directory,
// newest first.
func (s *RecorderService) ListRecordings() ([]RecordingInfo, error) {
	dir := s.cfg.Output.Directory
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create recordings directory: %w", err)
	}

	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read recordings directory: %w", err)
	}

	var recordings []RecordingInfo
	for _, file := range files {
		if file.IsDir() || strings.ToLower(filepath.Ext(file.Name())) != ".wav" {
			continue
		}

		info, err := file.Info()
		if err != nil {
			slog.Warn("Failed to get file info", "file", file.Name(), "error", err)
			continue
		}

		filePath := filepath.Join(dir, file.Name())
		recordings = append(recordings, RecordingInfo{
			Name:         file.Name(),
			Path:         filePath,
			Size:         info.Size(),
			SizeHuman:    formatBytes(info.Size()),
			ModTime:      info.ModTime(),
			ModTimeHuman: info.ModTime().Format("2006-01-02 15:04:05"),
			DurationSec:  wavDuration(filePath),
			StreamURL:    fmt.Sprintf("/api/recordings/stream/%s", file.Name()),
			DownloadURL:  fmt.Sprintf("/api/recordings/download/%s", file.Name()),
		})
	}

	sort.Slice(recordings, func(i, j int) bool {
		return recordings[i].ModTime.After(recordings[j].ModTime)
	})
	return recordings, nil
}

// wavDuration reads the duration from a WAV header, 0 when the file is
// unreadable (e.g. the session currently being written).
func wavDuration(path string) float64 {
	f, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()

	d, err := wav.NewDecoder(f).Duration()
	if err != nil {
		slog.Debug("could not read WAV duration", "file", path, "error", err)
		return 0
	}
	return d.Seconds()
}

func (s *RecorderService) Close() error {
	return s.recorder.Cleanup()
}

// GetLastError returns the last error message (thread-safe).
func (s *RecorderService) GetLastError() string {
	s.lastErrorMutex.RLock()
	defer s.lastErrorMutex.RUnlock()
	return s.lastError
}

func (s *RecorderService) setLastError(err string) {
	s.lastErrorMutex.Lock()
	defer s.lastErrorMutex.Unlock()
	s.lastError = err

	slog.Error("Service error occurred", "error_message", err)
}

func (s *RecorderService) clearLastError() {
	s.lastErrorMutex.Lock()
	defer s.lastErrorMutex.Unlock()
	s.lastError = ""
}

// cleanFileName strips characters that are unsafe in file names while
// keeping something recognizable of the requested name.
func cleanFileName(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "." || name == string(filepath.Separator) {
		return ""
	}

	var result strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			result.WriteRune(r)
		case r == '-' || r == '_' || r == '.':
			result.WriteRune(r)
		case r == ' ':
			result.WriteRune('_')
		}
	}
	return strings.Trim(result.String(), "._")
}

// formatBytes formats bytes in human readable format.
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
