package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/regime-watch/internal/ratelimit"
	"github.com/selivandex/regime-watch/internal/regime"
	"github.com/selivandex/regime-watch/internal/transport"
	"github.com/selivandex/regime-watch/pkg/logger"
)

// Server exposes liveness plus the degraded-state signal over HTTP
type Server struct {
	server     *http.Server
	tm         *transport.Manager
	classifier *regime.Classifier
	limiter    *ratelimit.Limiter
	startTime  time.Time
}

// Status represents system health
type Status struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Uptime    string `json:"uptime"`
}

// Readiness reports transport mode, regime and rate budget
type Readiness struct {
	Ready         bool   `json:"ready"`
	Degraded      bool   `json:"degraded"`
	TransportMode string `json:"transport_mode"`
	ChannelState  string `json:"channel_state"`
	Regime        string `json:"regime"`
	RateMinute    int    `json:"rate_minute"`
	RateHour      int    `json:"rate_hour"`
	Timestamp     string `json:"timestamp"`
}

// NewServer creates new health check server
func NewServer(port string, tm *transport.Manager, classifier *regime.Classifier, limiter *ratelimit.Limiter) *Server {
	mux := http.NewServeMux()

	s := &Server{
		server: &http.Server{
			Addr:    ":" + port,
			Handler: mux,
		},
		tm:         tm,
		classifier: classifier,
		limiter:    limiter,
		startTime:  time.Now(),
	}

	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)

	return s
}

// Start serves until the listener fails or Stop is called
func (s *Server) Start() {
	go func() {
		logger.Info("health server listening", zap.String("addr", s.server.Addr))
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("health server failed", zap.Error(err))
		}
	}()
}

// Stop shuts the server down gracefully
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Status{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	minute, hour := s.limiter.Stats()
	degraded := s.tm.Degraded()

	resp := Readiness{
		Ready:         !degraded,
		Degraded:      degraded,
		TransportMode: s.tm.Mode().String(),
		ChannelState:  s.tm.State().String(),
		Regime:        string(s.classifier.Current()),
		RateMinute:    minute,
		RateHour:      hour,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	}

	code := http.StatusOK
	if degraded {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
