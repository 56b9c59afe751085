package handlers

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/facewatch/facewatch/internal/embedding"
	"github.com/facewatch/facewatch/internal/recognition"
	"github.com/facewatch/facewatch/internal/store"
)

// RecognizeHandler handles one-shot face recognition requests.
type RecognizeHandler struct {
	recognizer *recognition.Recognizer
	operators  store.OperatorStore
	extractor  EmbeddingExtractor
}

// NewRecognizeHandler creates a new recognize handler.
func NewRecognizeHandler(recognizer *recognition.Recognizer, operators store.OperatorStore, extractor EmbeddingExtractor) *RecognizeHandler {
	return &RecognizeHandler{
		recognizer: recognizer,
		operators:  operators,
		extractor:  extractor,
	}
}

// RecognizeResponse is the API shape of a recognition attempt.
type RecognizeResponse struct {
	Matched      bool    `json:"matched"`
	IdentityID   string  `json:"identity_id,omitempty"`
	IdentityName string  `json:"identity_name,omitempty"`
	Method       string  `json:"method"`
	Score        float64 `json:"score"`
	NewlyLogged  bool    `json:"newly_logged"`
}

// Recognize extracts an embedding from the uploaded image and matches it
// against the gallery.
func (h *RecognizeHandler) Recognize(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		respondError(w, http.StatusBadRequest, "image file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read image")
		return
	}

	resized, err := embedding.ResizeImage(data, embedding.MaxImageSize)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid image data")
		return
	}

	query, err := h.extractor.Extract(r.Context(), resized)
	if err != nil {
		if errors.Is(err, embedding.ErrNoFaceDetected) {
			respondError(w, http.StatusUnprocessableEntity, fmt.Sprintf("no face detected in %s", header.Filename))
			return
		}
		log.Printf("Failed to extract embedding: %v", err)
		respondError(w, http.StatusBadGateway, "failed to extract embedding")
		return
	}

	actor := recognition.Actor{Name: "anonymous"}
	if operator := operatorFromRequest(r, h.operators); operator != nil {
		actor = recognition.Actor{ID: operator.ID, Name: operator.Name}
	}

	result, err := h.recognizer.Recognize(r.Context(), query, actor)
	if err != nil {
		if errors.Is(err, recognition.ErrInvalidInput) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		// A match with a failed ledger write still reports the match;
		// the cooldown window already started.
		if result == nil || !result.Matched() {
			log.Printf("Recognition failed: %v", err)
			respondError(w, http.StatusInternalServerError, "recognition failed")
			return
		}
		log.Printf("Recognition matched but ledger write failed: %v", err)
	}

	respondJSON(w, http.StatusOK, RecognizeResponse{
		Matched:      result.Matched(),
		IdentityID:   result.IdentityID,
		IdentityName: result.IdentityName,
		Method:       result.Method,
		Score:        result.Score,
		NewlyLogged:  result.NewlyLogged,
	})
}
