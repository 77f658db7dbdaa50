package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/Dmann24/quantina-core/internal/models"
	"github.com/Dmann24/quantina-core/internal/pipeline"
	"github.com/Dmann24/quantina-core/internal/registry"
	"github.com/Dmann24/quantina-core/internal/store"
	"github.com/Dmann24/quantina-core/internal/transcribe/mock"
)

type scriptedLanguage struct {
	detect    string
	detectErr error
}

func (s scriptedLanguage) Detect(context.Context, string) (string, error) {
	return s.detect, s.detectErr
}

func (s scriptedLanguage) Translate(_ context.Context, text, _, to string) (string, error) {
	return "[" + to + "] " + text, nil
}

type testEnv struct {
	server *httptest.Server
	stores *store.InMemoryManager
	stt    *mock.Provider
}

func newTestEnv(t *testing.T, jwtSecret []byte) *testEnv {
	t.Helper()

	stores := store.NewInMemoryManager("English")
	stt := mock.New()
	p := pipeline.New(pipeline.Config{
		Language:        scriptedLanguage{detect: "French"},
		Transcriber:     stt,
		Preferences:     stores.Preferences(),
		MessageLog:      stores.Messages(),
		Delivery:        registry.New(),
		DefaultLanguage: "English",
	})

	router := NewRouter(RouterConfig{
		Pipeline:      p,
		Messages:      stores.Messages(),
		Preferences:   stores.Preferences(),
		JWTSecret:     jwtSecret,
		TokenValidity: time.Hour,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testEnv{server: srv, stores: stores, stt: stt}
}

func postJSON(t *testing.T, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	raw, _ := json.Marshal(body)
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, decoded
}

func TestPeerMessage_TextJSON(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, body := postJSON(t, env.server.URL+"/api/peer-message", map[string]string{
		"sender_id":   "alice",
		"receiver_id": "bob",
		"mode":        "text",
		"text":        "Bonjour",
	})

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if body["success"] != true {
		t.Errorf("expected success, got %v", body)
	}
	if body["sender_language"] != "French" || body["receiver_language"] != "English" {
		t.Errorf("unexpected languages: %v", body)
	}
	if body["translated"] != "[English] Bonjour" {
		t.Errorf("unexpected translation: %v", body)
	}

	msgs, _ := env.stores.Messages().Recent(context.Background(), 10)
	if len(msgs) != 1 {
		t.Errorf("expected 1 persisted message, got %d", len(msgs))
	}
}

func TestPeerMessage_MissingIdentities(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, body := postJSON(t, env.server.URL+"/api/peer-message", map[string]string{
		"mode": "text",
		"text": "hi",
	})

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if body["success"] != false || body["error"] == "" {
		t.Errorf("expected error payload, got %v", body)
	}
}

func TestPeerMessage_EmptyTextSoftSuccess(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, body := postJSON(t, env.server.URL+"/api/peer-message", map[string]string{
		"sender_id":   "alice",
		"receiver_id": "bob",
		"mode":        "text",
		"text":        "   ",
	})

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("empty text is a soft success, got %d", resp.StatusCode)
	}
	if body["success"] != true || body["sender_language"] != models.LanguageUnknown {
		t.Errorf("unexpected soft-success payload: %v", body)
	}
	if body["original"] != "" || body["translated"] != "" {
		t.Errorf("expected empty payload fields: %v", body)
	}
}

func multipartVoice(t *testing.T, mimeType string, audio []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	w.WriteField("sender_id", "alice")
	w.WriteField("receiver_id", "bob")
	w.WriteField("mode", "voice")

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="audio"; filename="voice.webm"`)
	header.Set("Content-Type", mimeType)
	part, err := w.CreatePart(header)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	part.Write(audio)
	w.Close()
	return &buf, w.FormDataContentType()
}

func TestPeerMessage_VoiceMultipart(t *testing.T) {
	env := newTestEnv(t, nil)
	env.stt.Script("Bonjour tout le monde")

	buf, contentType := multipartVoice(t, "audio/webm", []byte{0x1a, 0x45, 0xdf, 0xa3})
	resp, err := http.Post(env.server.URL+"/api/peer-message", contentType, buf)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body map[string]any
	json.NewDecoder(resp.Body).Decode(&body)
	if body["original"] != "Bonjour tout le monde" {
		t.Errorf("expected transcript as original, got %v", body)
	}
	if env.stt.Calls() != 1 || env.stt.LastMIMEType() != "audio/webm" {
		t.Errorf("transcriber saw %d calls, mime %s", env.stt.Calls(), env.stt.LastMIMEType())
	}
}

func TestPeerMessage_RejectsVoiceInJSONBody(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, body := postJSON(t, env.server.URL+"/api/peer-message", map[string]string{
		"sender_id":   "alice",
		"receiver_id": "bob",
		"mode":        "voice",
	})

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("voice without an audio part is a boundary rejection, got %d", resp.StatusCode)
	}
	if body["success"] != false {
		t.Errorf("expected error payload, got %v", body)
	}
	if env.stt.Calls() != 0 {
		t.Error("rejected request must not reach the transcriber")
	}
}

func TestPeerMessage_RejectsUnsupportedAudioType(t *testing.T) {
	env := newTestEnv(t, nil)

	buf, contentType := multipartVoice(t, "video/mp4", []byte{1, 2, 3})
	resp, err := http.Post(env.server.URL+"/api/peer-message", contentType, buf)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for unsupported audio, got %d", resp.StatusCode)
	}
	if env.stt.Calls() != 0 {
		t.Error("rejected upload must not reach the transcriber")
	}
}

func TestPeerMessage_TranscriptionFailureIs502(t *testing.T) {
	env := newTestEnv(t, nil)
	env.stt.Fail(errors.New("whisper down"))

	buf, contentType := multipartVoice(t, "audio/webm", []byte{1})
	resp, err := http.Post(env.server.URL+"/api/peer-message", contentType, buf)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", resp.StatusCode)
	}
}

func TestHistory(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	for _, text := range []string{"one", "two", "three"} {
		env.stores.Messages().Append(ctx, &models.Message{
			SenderID: "a", ReceiverID: "b", Mode: models.ModeText,
			Original: text, Translated: text,
			SenderLanguage: "English", ReceiverLanguage: "English",
		})
	}

	resp, err := http.Get(env.server.URL + "/api/history?limit=2")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	var msgs []models.Message
	json.NewDecoder(resp.Body).Decode(&msgs)
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Original != "two" || msgs[1].Original != "three" {
		t.Errorf("expected newest-last order, got %v", msgs)
	}
}

func TestHistory_BadLimit(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, err := http.Get(env.server.URL + "/api/history?limit=zero")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestPreferenceEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)

	// Unknown user reads back the default.
	resp, err := http.Get(env.server.URL + "/api/preference/carol")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var body map[string]string
	json.NewDecoder(resp.Body).Decode(&body)
	resp.Body.Close()
	if body["language"] != "English" {
		t.Errorf("expected default 'English', got %v", body)
	}

	// Update and read back.
	req, _ := http.NewRequest(http.MethodPut, env.server.URL+"/api/preference/carol",
		strings.NewReader(`{"language":"Hindi"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	lang, _ := env.stores.Preferences().Get(context.Background(), "carol")
	if lang != "Hindi" {
		t.Errorf("expected 'Hindi', got %s", lang)
	}
}

func TestPreference_RejectsEmptyLanguage(t *testing.T) {
	env := newTestEnv(t, nil)

	req, _ := http.NewRequest(http.MethodPut, env.server.URL+"/api/preference/carol",
		strings.NewReader(`{"language":"  "}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t, []byte("secret"))

	resp, body := postJSON(t, env.server.URL+"/api/login", map[string]string{
		"user_id": "alice", "name": "Alice",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if body["token"] == "" || body["user_id"] != "alice" {
		t.Errorf("unexpected login response: %v", body)
	}
}

func TestLogin_DisabledWithoutSecret(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, _ := postJSON(t, env.server.URL+"/api/login", map[string]string{"user_id": "alice"})
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", resp.StatusCode)
	}
}
