package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tambourinehq/tambourine/pkg/logging"
	"github.com/tambourinehq/tambourine/pkg/prompt"
	"github.com/tambourinehq/tambourine/pkg/providers"
	"github.com/tambourinehq/tambourine/pkg/transports"
	wstransport "github.com/tambourinehq/tambourine/pkg/transports/websocket"
)

// AttachFunc binds a transport to a new session and returns the session id.
type AttachFunc func(t transports.Transport) (string, error)

// Server exposes the websocket endpoint plus a small JSON API for clients to
// discover configured providers and the default prompt sections.
type Server struct {
	addr     string
	attach   AttachFunc
	avail    *providers.Availability
	upgrader websocket.Upgrader
	srv      *http.Server
	logger   *slog.Logger
}

func NewServer(addr string, attach AttachFunc, avail *providers.Availability) *Server {
	s := &Server{
		addr:   addr,
		attach: attach,
		avail:  avail,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// dictation clients run on local apps and web origins alike
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logging.NewComponentLogger(slog.Default(), "api"),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/providers/available", s.handleProviders)
	mux.HandleFunc("GET /api/prompt/sections/default", s.handleDefaultSections)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("/ws", s.handleWebsocket)
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http_listening", slog.String("addr", s.addr))
	err := s.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// providerEntry is the wire shape dictation clients bind their provider
// dropdowns to: "value" is the id sent back in set-*-provider commands.
type providerEntry struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	var sttList []providerEntry
	for _, id := range s.avail.AvailableSTT() {
		sttList = append(sttList, providerEntry{Value: string(id), Label: id.Label()})
	}
	var llmList []providerEntry
	for _, id := range s.avail.AvailableLLM() {
		llmList = append(llmList, providerEntry{Value: string(id), Label: id.Label()})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"stt": sttList,
		"llm": llmList,
	})
}

func (s *Server) handleDefaultSections(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"main":       prompt.DefaultMain,
		"advanced":   prompt.DefaultAdvanced,
		"dictionary": prompt.DefaultDictionary,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("ws_upgrade_failed", slog.String("error", err.Error()))
		return
	}
	// the engine mints session and stream ids and stamps them onto the
	// transport before starting it
	transport := wstransport.New(conn, wstransport.Config{})
	sessionID, err := s.attach(transport)
	if err != nil {
		s.logger.Warn("session_attach_failed", slog.String("error", err.Error()))
		_ = conn.Close()
		return
	}
	s.logger.Info("ws_session_started",
		slog.String("session_id", sessionID),
		slog.String("remote", r.RemoteAddr))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
