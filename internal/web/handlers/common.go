package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/facewatch/facewatch/internal/store"
	"github.com/facewatch/facewatch/internal/web/middleware"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// maxUploadSize caps multipart image uploads.
const maxUploadSize = 20 << 20 // 20 MB

// EmbeddingExtractor turns a face image into an embedding vector.
type EmbeddingExtractor interface {
	Extract(ctx context.Context, imageData []byte) ([]float32, error)
}

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// operatorFromRequest resolves the operator behind the request's session.
// Returns nil for unauthenticated requests or lookup failures.
func operatorFromRequest(r *http.Request, operators store.OperatorStore) *store.Operator {
	session := middleware.GetSessionFromContext(r.Context())
	if session == nil || operators == nil {
		return nil
	}
	operator, err := operators.Get(r.Context(), session.OperatorID)
	if err != nil {
		return nil
	}
	return operator
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
