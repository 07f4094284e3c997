package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/rishikanthc/scriberr-desktop/internal/audio"
	"github.com/rishikanthc/scriberr-desktop/internal/config"
	"github.com/rishikanthc/scriberr-desktop/internal/service"
)

// Server exposes the recording service over a JSON HTTP API.
type Server struct {
	service service.Service
	cfg     *config.Config
	mux     *http.ServeMux
}

// StatusResponse represents the JSON response for the status endpoint.
type StatusResponse struct {
	Status    string             `json:"status"`
	Session   *audio.SessionInfo `json:"session,omitempty"`
	LastError string             `json:"last_error,omitempty"`
}

// StartRequest represents a request to start a recording.
type StartRequest struct {
	Name string `json:"name"`
}

// StartResponse represents the JSON response for a started recording.
type StartResponse struct {
	Success  bool   `json:"success"`
	FilePath string `json:"file_path"`
}

// SwitchRequest represents a request to switch the active microphone.
type SwitchRequest struct {
	Name string `json:"name"`
}

// MicrophonesResponse represents the JSON response for the microphones endpoint.
type MicrophonesResponse struct {
	Microphones []audio.Device `json:"microphones"`
}

// LevelResponse represents the JSON response for the level endpoint.
type LevelResponse struct {
	Level float64 `json:"level"`
}

// RecordingsResponse represents the JSON response for the recordings endpoint.
type RecordingsResponse struct {
	Recordings      []service.RecordingInfo `json:"recordings"`
	TotalCount      int                     `json:"total_count"`
	OutputDirectory string                  `json:"output_directory"`
}

// GenericResponse represents a generic API response.
type GenericResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// New creates a new web server instance around an existing service.
func New(svc service.Service, cfg *config.Config) *Server {
	s := &Server{
		service: svc,
		cfg:     cfg,
		mux:     http.NewServeMux(),
	}

	s.mux.HandleFunc("/api/status", s.handleStatus)
	s.mux.HandleFunc("/api/record/start", s.handleStart)
	s.mux.HandleFunc("/api/record/stop", s.handleStop)
	s.mux.HandleFunc("/api/record/pause", s.handlePause)
	s.mux.HandleFunc("/api/record/resume", s.handleResume)
	s.mux.HandleFunc("/api/record/microphone", s.handleSwitchMicrophone)
	s.mux.HandleFunc("/api/microphones", s.handleMicrophones)
	s.mux.HandleFunc("/api/level", s.handleLevel)
	s.mux.HandleFunc("/api/recordings", s.handleRecordings)
	s.mux.HandleFunc("/api/recordings/stream/", s.handleRecordingStream)
	s.mux.HandleFunc("/api/recordings/download/", s.handleRecordingDownload)

	return s
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start starts the web server and blocks until it exits.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)

	localIP := getLocalIP()
	slog.Info("Starting recording server",
		"addr", addr,
		"local_url", fmt.Sprintf("http://%s:%d", localIP, s.cfg.Server.Port),
		"localhost_url", fmt.Sprintf("http://localhost:%d", s.cfg.Server.Port))

	return http.ListenAndServe(addr, s.mux)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status, session := s.service.GetStatus()
	writeJSON(w, http.StatusOK, StatusResponse{
		Status:    string(status),
		Session:   session,
		LastError: s.service.GetLastError(),
	})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// An empty body means "use the default name".
	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, GenericResponse{Error: "invalid request body"})
		return
	}

	path, err := s.service.StartRecording(req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StartResponse{Success: true, FilePath: path})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	result, err := s.service.StopRecording()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := s.service.PauseRecording(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, GenericResponse{Success: true, Message: "Recording paused"})
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := s.service.ResumeRecording(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, GenericResponse{Success: true, Message: "Recording resumed"})
}

func (s *Server) handleSwitchMicrophone(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req SwitchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, GenericResponse{Error: "invalid request body"})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, GenericResponse{Error: "microphone name is required"})
		return
	}

	if err := s.service.SwitchMicrophone(req.Name); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, GenericResponse{Success: true, Message: "Microphone switched"})
}

func (s *Server) handleMicrophones(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	devices, err := s.service.ListMicrophones()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MicrophonesResponse{Microphones: devices})
}

func (s *Server) handleLevel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, LevelResponse{Level: s.service.GetLevel()})
}

func (s *Server) handleRecordings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	recordings, err := s.service.ListRecordings()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, RecordingsResponse{
		Recordings:      recordings,
		TotalCount:      len(recordings),
		OutputDirectory: s.cfg.Output.Directory,
	})
}

func (s *Server) handleRecordingStream(w http.ResponseWriter, r *http.Request) {
	s.serveRecording(w, r, "/api/recordings/stream/", false)
}

func (s *Server) handleRecordingDownload(w http.ResponseWriter, r *http.Request) {
	s.serveRecording(w, r, "/api/recordings/download/", true)
}

func (s *Server) serveRecording(w http.ResponseWriter, r *http.Request, prefix string, download bool) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// filepath.Base keeps requests inside the recordings directory.
	name := filepath.Base(strings.TrimPrefix(r.URL.Path, prefix))
	if name == "." || name == "/" || strings.ToLower(filepath.Ext(name)) != ".wav" {
		http.Error(w, "Invalid file name", http.StatusBadRequest)
		return
	}

	path := filepath.Join(s.cfg.Output.Directory, name)
	if _, err := os.Stat(path); err != nil {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "audio/wav")
	if download {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	}
	http.ServeFile(w, r, path)
}

// writeError maps service errors to HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, audio.ErrInvalidState):
		code = http.StatusConflict
	case errors.Is(err, audio.ErrTargetNotFound):
		code = http.StatusNotFound
	}
	writeJSON(w, code, GenericResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}

// getLocalIP returns the first non-loopback IPv4 address, for the startup
// log line.
func getLocalIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "localhost"
	}
	for _, addr := range addrs {
		if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() && ipnet.IP.To4() != nil {
			return ipnet.IP.String()
		}
	}
	return "localhost"
}
