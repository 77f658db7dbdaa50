package http

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Dmann24/quantina-core/internal/auth"
	"github.com/Dmann24/quantina-core/internal/models"
	"github.com/Dmann24/quantina-core/internal/observability/logging"
	"github.com/Dmann24/quantina-core/internal/pipeline"
	"github.com/Dmann24/quantina-core/internal/store"
	"github.com/Dmann24/quantina-core/internal/transcribe"
)

// maxUploadBytes bounds one voice upload.
const maxUploadBytes = 10 << 20

// defaultHistoryLimit is used when the history query omits limit.
const defaultHistoryLimit = 50

type handlers struct {
	pipeline      *pipeline.Pipeline
	messages      store.MessageLog
	preferences   store.PreferenceStore
	jwtSecret     []byte
	tokenValidity time.Duration
}

// peerMessageRequest is the JSON body variant of the submit endpoint.
// Voice uploads arrive as multipart instead.
type peerMessageRequest struct {
	SenderID   string `json:"sender_id"`
	ReceiverID string `json:"receiver_id"`
	Mode       string `json:"mode"`
	Text       string `json:"text"`
}

func (h *handlers) peerMessageHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "msg": "peer-message route active"})
}

// peerMessage accepts a text or voice message and runs the pipeline.
func (h *handlers) peerMessage(w http.ResponseWriter, r *http.Request) {
	req, err := h.parsePeerMessage(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	ack, err := h.pipeline.Process(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, pipeline.ErrValidation):
			writeError(w, http.StatusBadRequest, err)
		case errors.Is(err, pipeline.ErrTranscription):
			writeError(w, http.StatusBadGateway, err)
		default:
			logger := logging.WithComponent("http")
			logger.Error().Err(err).Msg("Pipeline failure")
			writeError(w, http.StatusInternalServerError, err)
		}
		return
	}

	writeJSON(w, http.StatusOK, ack)
}

// parsePeerMessage builds the pipeline request from either a multipart
// form (voice, or text posted by the widget) or a JSON body.
func (h *handlers) parsePeerMessage(r *http.Request) (pipeline.Request, error) {
	contentType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if contentType == "application/json" {
		var body peerMessageRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, maxUploadBytes)).Decode(&body); err != nil {
			return pipeline.Request{}, errors.New("malformed JSON body")
		}
		mode := modeOrDefault(body.Mode)
		if mode == models.ModeVoice {
			// Audio can only travel in a multipart body.
			return pipeline.Request{}, errors.New("voice messages require a multipart form with an audio part")
		}
		return pipeline.Request{
			SenderID:   body.SenderID,
			ReceiverID: body.ReceiverID,
			Mode:       mode,
			Text:       body.Text,
		}, nil
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return pipeline.Request{}, errors.New("malformed form body")
	}

	req := pipeline.Request{
		SenderID:   r.FormValue("sender_id"),
		ReceiverID: r.FormValue("receiver_id"),
		Mode:       modeOrDefault(r.FormValue("mode")),
		Text:       r.FormValue("text"),
	}

	if req.Mode == models.ModeVoice {
		file, header, err := r.FormFile("audio")
		if err != nil {
			return pipeline.Request{}, errors.New("voice message is missing the audio part")
		}
		defer file.Close()

		mimeType, _, _ := mime.ParseMediaType(header.Header.Get("Content-Type"))
		if !transcribe.SupportedMIMETypes[mimeType] {
			return pipeline.Request{}, errors.New("unsupported audio format: " + mimeType)
		}

		audio, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
		if err != nil {
			return pipeline.Request{}, errors.New("failed to read audio upload")
		}
		req.Audio = audio
		req.AudioMIMEType = mimeType
	}

	return req, nil
}

// history returns the most recent persisted messages, newest-last.
func (h *handlers) history(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, errors.New("limit must be a positive integer"))
			return
		}
		limit = n
	}

	msgs, err := h.messages.Recent(r.Context(), limit)
	if err != nil {
		logger := logging.WithComponent("http")
		logger.Error().Err(err).Msg("History query failed")
		writeError(w, http.StatusInternalServerError, errors.New("history unavailable"))
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (h *handlers) getPreference(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	language, err := h.preferences.Get(r.Context(), userID)
	if err != nil {
		logger := logging.WithComponent("http")
		logger.Error().Err(err).Msg("Preference read failed")
		writeError(w, http.StatusInternalServerError, errors.New("preference unavailable"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"user_id": userID, "language": language})
}

func (h *handlers) putPreference(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var body struct {
		Language string `json:"language"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.Language) == "" {
		writeError(w, http.StatusBadRequest, errors.New("language is required"))
		return
	}

	if err := h.preferences.Set(r.Context(), userID, strings.TrimSpace(body.Language)); err != nil {
		logger := logging.WithComponent("http")
		logger.Error().Err(err).Msg("Preference update failed")
		writeError(w, http.StatusInternalServerError, errors.New("preference update failed"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"user_id": userID, "language": body.Language})
}

// login exchanges a user identity for a signed live-channel token.
func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	if len(h.jwtSecret) == 0 {
		writeError(w, http.StatusServiceUnavailable, errors.New("authentication is disabled"))
		return
	}

	var body struct {
		UserID string `json:"user_id"`
		Name   string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.UserID == "" {
		writeError(w, http.StatusBadRequest, errors.New("user_id is required"))
		return
	}

	token, err := auth.GenerateToken(body.UserID, body.Name, h.jwtSecret, h.tokenValidity)
	if err != nil {
		writeError(w, http.StatusInternalServerError, errors.New("token generation failed"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token, "user_id": body.UserID})
}

// modeOrDefault normalizes the submitted mode; anything but "voice" is text.
func modeOrDefault(mode string) models.Mode {
	if strings.EqualFold(strings.TrimSpace(mode), string(models.ModeVoice)) {
		return models.ModeVoice
	}
	return models.ModeText
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"success": false, "error": err.Error()})
}
