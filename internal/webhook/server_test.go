package webhook

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"sync"
	"testing"

	"chikabot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

// captureBus records published events for assertions.
type captureBus struct {
	mu     sync.Mutex
	events []domain.InboundEvent
}

func (b *captureBus) Publish(evt domain.InboundEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, evt)
}

func (b *captureBus) Subscribe() <-chan domain.InboundEvent { return nil }
func (b *captureBus) Close()                                {}

func (b *captureBus) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

func newTestServer(verifyToken, appSecret string) (*Server, *captureBus) {
	b := &captureBus{}
	s := NewServer(ServerConfig{
		VerifyToken: verifyToken,
		AppSecret:   appSecret,
		Logger:      testLogger(),
	})
	s.bus = b
	return s, b
}

func verifyRequest(mode, token, challenge string) *http.Request {
	q := url.Values{}
	q.Set("hub.mode", mode)
	q.Set("hub.verify_token", token)
	q.Set("hub.challenge", challenge)
	return httptest.NewRequest("GET", "/webhook?"+q.Encode(), nil)
}

func TestVerify_EchoesChallenge(t *testing.T) {
	s, _ := newTestServer("sekrit", "")
	rr := httptest.NewRecorder()

	s.handleWebhook(rr, verifyRequest("subscribe", "sekrit", "challenge-123"))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if body := rr.Body.String(); body != "challenge-123" {
		t.Errorf("expected challenge echoed, got %q", body)
	}
}

func TestVerify_Rejects(t *testing.T) {
	cases := []struct {
		name  string
		mode  string
		token string
	}{
		{"wrong token", "subscribe", "wrong"},
		{"wrong mode", "unsubscribe", "sekrit"},
		{"empty token", "subscribe", ""},
		{"shorter token", "subscribe", "sek"},
		{"longer token", "subscribe", "sekrit-and-then-some"},
		{"empty mode", "", "sekrit"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, _ := newTestServer("sekrit", "")
			rr := httptest.NewRecorder()

			s.handleWebhook(rr, verifyRequest(tc.mode, tc.token, "c"))

			if rr.Code != http.StatusForbidden {
				t.Errorf("expected 403, got %d", rr.Code)
			}
			if rr.Body.String() == "c" {
				t.Error("challenge must not be echoed on rejection")
			}
		})
	}
}

func TestTokenMatches_DifferingLengths(t *testing.T) {
	if tokenMatches("short", "a-much-longer-secret") {
		t.Error("different lengths must not match")
	}
	if !tokenMatches("same", "same") {
		t.Error("equal tokens must match")
	}
}

func TestEvent_AcksAndPublishes(t *testing.T) {
	s, b := newTestServer("sekrit", "")
	body := `{"entry":[{"messaging":[{"sender":{"id":"U1"},"message":{"mid":"m1","text":"hi"}}]}]}`
	req := httptest.NewRequest("POST", "/webhook", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()

	s.handleWebhook(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if rr.Body.String() != "EVENT_RECEIVED" {
		t.Errorf("unexpected ack body %q", rr.Body.String())
	}
	if b.count() != 1 {
		t.Fatalf("expected 1 published event, got %d", b.count())
	}
	evt := b.events[0]
	if evt.ID == "" {
		t.Error("event id must be assigned")
	}
	if string(evt.Payload) != body {
		t.Error("payload must be passed through untouched")
	}
}

func TestEvent_MalformedBodyStillAcked(t *testing.T) {
	// Transport-level success is unconditional; garbage is the parser's
	// problem, later, on the pipeline side.
	s, b := newTestServer("sekrit", "")
	req := httptest.NewRequest("POST", "/webhook", bytes.NewBufferString("not json"))
	rr := httptest.NewRecorder()

	s.handleWebhook(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected 200 even for garbage, got %d", rr.Code)
	}
	if b.count() != 1 {
		t.Errorf("garbage still gets queued, got %d events", b.count())
	}
}

func TestEvent_MethodNotAllowed(t *testing.T) {
	s, _ := newTestServer("sekrit", "")
	req := httptest.NewRequest("PUT", "/webhook", nil)
	rr := httptest.NewRecorder()

	s.handleWebhook(rr, req)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rr.Code)
	}
}

func TestEvent_SignatureRequired(t *testing.T) {
	s, b := newTestServer("sekrit", "app-secret")
	req := httptest.NewRequest("POST", "/webhook", bytes.NewBufferString(`{}`))
	rr := httptest.NewRecorder()

	s.handleWebhook(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without signature, got %d", rr.Code)
	}
	if b.count() != 0 {
		t.Error("unsigned event must not be published")
	}
}

func TestEvent_InvalidSignature(t *testing.T) {
	s, b := newTestServer("sekrit", "app-secret")
	req := httptest.NewRequest("POST", "/webhook", bytes.NewBufferString(`{}`))
	req.Header.Set("X-Hub-Signature-256", "sha256=deadbeef")
	rr := httptest.NewRecorder()

	s.handleWebhook(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rr.Code)
	}
	if b.count() != 0 {
		t.Error("badly signed event must not be published")
	}
}

func TestEvent_ValidSignature(t *testing.T) {
	s, b := newTestServer("sekrit", "app-secret")
	body := []byte(`{"entry":[]}`)

	mac := hmac.New(sha256.New, []byte("app-secret"))
	mac.Write(body)
	sig := "sha256=" + hex.EncodeToString(mac.Sum(nil))

	req := httptest.NewRequest("POST", "/webhook", bytes.NewReader(body))
	req.Header.Set("X-Hub-Signature-256", sig)
	rr := httptest.NewRecorder()

	s.handleWebhook(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rr.Code)
	}
	if b.count() != 1 {
		t.Errorf("expected event published, got %d", b.count())
	}
}

func TestVerifyHMAC(t *testing.T) {
	secret := "test-secret"
	body := []byte(`{"content":"hello"}`)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	sig := "sha256=" + hex.EncodeToString(mac.Sum(nil))

	if !verifyHMAC(body, secret, sig) {
		t.Error("valid HMAC should verify")
	}
	if verifyHMAC(body, secret, "sha256=invalid") {
		t.Error("invalid HMAC should not verify")
	}
	if verifyHMAC(body, secret, "") {
		t.Error("empty signature should not verify")
	}
}
