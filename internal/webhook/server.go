package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"chikabot/internal/domain"
)

// ServerConfig configures the webhook HTTP server.
type ServerConfig struct {
	Addr        string
	Path        string // webhook URL path (default: /webhook)
	VerifyToken string // handshake secret
	AppSecret   string // optional: enables X-Hub-Signature-256 verification
	Metrics     http.Handler
	Logger      *slog.Logger
}

// Server accepts the platform's verification handshake and event
// deliveries. Events are acknowledged first and queued for processing
// after; the platform always sees a generic success at the transport
// level regardless of what processing later does with the event.
type Server struct {
	addr        string
	path        string
	verifyToken string
	appSecret   string
	metrics     http.Handler
	bus         domain.EventBus
	logger      *slog.Logger
	server      *http.Server
}

// NewServer creates a new webhook server.
func NewServer(cfg ServerConfig) *Server {
	if cfg.Path == "" {
		cfg.Path = "/webhook"
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	return &Server{
		addr:        cfg.Addr,
		path:        cfg.Path,
		verifyToken: cfg.VerifyToken,
		appSecret:   cfg.AppSecret,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger,
	}
}

// Start runs the HTTP server until ctx is cancelled.
func (s *Server) Start(ctx context.Context, bus domain.EventBus) error {
	s.bus = bus

	mux := http.NewServeMux()
	mux.HandleFunc(s.path, s.handleWebhook)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics)
	}

	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	s.logger.Info("webhook server starting", "addr", s.addr, "path", s.path)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("webhook server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("webhook server: %w", err)
	}
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleVerify(w, r)
	case http.MethodPost:
		s.handleEvent(w, r)
	default:
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	}
}

// handleVerify answers the registration-time handshake: echo the caller's
// challenge iff the mode is "subscribe" and the token matches.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode := q.Get("hub.mode")
	token := q.Get("hub.verify_token")
	challenge := q.Get("hub.challenge")

	if mode != "subscribe" || !tokenMatches(token, s.verifyToken) {
		s.logger.Warn("webhook verification rejected", "mode", mode)
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	s.logger.Info("webhook verified")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, challenge)
}

// handleEvent acknowledges an event delivery and enqueues it. The 200 is
// written before the event is published so processing never delays the
// platform's sub-second acknowledgment deadline.
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20)) // 1MB max
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if s.appSecret != "" {
		sig := r.Header.Get("X-Hub-Signature-256")
		if sig == "" {
			http.Error(w, "Missing signature", http.StatusUnauthorized)
			return
		}
		if !verifyHMAC(body, s.appSecret, sig) {
			http.Error(w, "Invalid signature", http.StatusForbidden)
			return
		}
	}

	evt := domain.InboundEvent{
		ID:         uuid.NewString(),
		ReceivedAt: time.Now(),
		Payload:    body,
	}

	w.WriteHeader(http.StatusOK)
	io.WriteString(w, "EVENT_RECEIVED")
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}

	s.logger.Debug("webhook event received", "event_id", evt.ID, "bytes", len(body))
	s.bus.Publish(evt)
}

// tokenMatches compares the supplied token against the configured secret.
// Both sides are hashed first so the comparison time is independent of
// where the first mismatching character occurs and of length differences.
func tokenMatches(supplied, secret string) bool {
	a := sha256.Sum256([]byte(supplied))
	b := sha256.Sum256([]byte(secret))
	return hmac.Equal(a[:], b[:])
}

// verifyHMAC verifies the HMAC-SHA256 signature of the body.
func verifyHMAC(body []byte, secret, signature string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
