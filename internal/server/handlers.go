package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"codeberg.org/snonux/lexilive/internal/ai"
	"codeberg.org/snonux/lexilive/internal/vocab"
)

var errBadRequest = errors.New("bad request")

type errorResponse struct {
	Error string `json:"error"`
}

type speechRequest struct {
	Text string `json:"text"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// statusFor maps domain errors onto HTTP status codes
func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errBadRequest),
		errors.Is(err, vocab.ErrInvalidWord),
		errors.Is(err, vocab.ErrInvalidImage):
		return http.StatusBadRequest
	case errors.Is(err, vocab.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ai.ErrUnsupported):
		return http.StatusNotImplemented
	case errors.Is(err, ai.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, vocab.ErrCorrupt):
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= 500 {
		s.requestLogger(r).Errorw("request error", "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	record, err := s.words.Lookup(r.Context(), r.URL.Query().Get("word"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleListWords(w http.ResponseWriter, r *http.Request) {
	words, err := s.words.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.metrics.SetSavedWords(len(words))
	writeJSON(w, http.StatusOK, words)
}

func (s *Server) handleSaveWord(w http.ResponseWriter, r *http.Request) {
	var record vocab.WordRecord
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: invalid word record: %v", errBadRequest, err))
		return
	}

	saved, created, err := s.words.Save(r.Context(), record)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
		s.requestLogger(r).Infow("word saved", "id", saved.ID, "word", saved.Word)
	}
	writeJSON(w, status, saved)
}

func (s *Server) handleGetWord(w http.ResponseWriter, r *http.Request) {
	word, err := s.words.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, word)
}

func (s *Server) handleDeleteWord(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.words.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.requestLogger(r).Infow("word deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGenerate(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		generate := s.words.GenerateImage
		if kind == vocab.KindVideo {
			generate = s.words.GenerateVideo
		}

		word, err := generate(r.Context(), id)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.requestLogger(r).Infow("media generated", "id", id, "kind", kind)
		writeJSON(w, http.StatusOK, word)
	}
}

func (s *Server) handleMedia(w http.ResponseWriter, r *http.Request) {
	if s.media == nil {
		s.writeError(w, r, fmt.Errorf("%w: media is not served", vocab.ErrNotFound))
		return
	}

	word, err := s.words.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var ref string
	switch kind := chi.URLParam(r, "kind"); kind {
	case vocab.KindImage:
		ref = word.ImageRef
	case vocab.KindVideo:
		ref = word.VideoRef
	default:
		s.writeError(w, r, fmt.Errorf("%w: unknown media kind %q", errBadRequest, kind))
		return
	}

	path := s.media.Path(ref)
	if path == "" {
		s.writeError(w, r, fmt.Errorf("%w: no %s for %q", vocab.ErrNotFound, chi.URLParam(r, "kind"), word.Word))
		return
	}
	if _, err := os.Stat(path); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: media file missing for %q", vocab.ErrNotFound, word.Word))
		return
	}
	http.ServeFile(w, r, path)
}

func (s *Server) handleDeck(w http.ResponseWriter, r *http.Request) {
	shuffle := false
	if v := r.URL.Query().Get("shuffle"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			s.writeError(w, r, fmt.Errorf("%w: shuffle must be a boolean", errBadRequest))
			return
		}
		shuffle = b
	}

	words, err := s.words.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, vocab.NewDeck(words, shuffle, s.deckRand()).Cards())
}

func (s *Server) handleSpeech(w http.ResponseWriter, r *http.Request) {
	var req speechRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: invalid speech request: %v", errBadRequest, err))
		return
	}

	speech, err := s.words.Speak(r.Context(), req.Text)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	contentType := speech.MIMEType
	if contentType == "" {
		contentType = "audio/wav"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(speech.Data)))
	w.WriteHeader(http.StatusOK)
	w.Write(speech.Data)
}

func (s *Server) handleLabel(w http.ResponseWriter, r *http.Request) {
	mimeType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: missing or invalid Content-Type", vocab.ErrInvalidImage))
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes))
	if err != nil {
		s.writeError(w, r, fmt.Errorf("failed to read image: %w", err))
		return
	}

	labels, err := s.words.Label(r.Context(), data, strings.ToLower(mimeType))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, labels)
}
