package handlers

import (
	"log"
	"net/http"

	"github.com/facewatch/facewatch/internal/store"
)

// OperatorsHandler serves operator account listings.
type OperatorsHandler struct {
	operators store.OperatorStore
}

// NewOperatorsHandler creates a new operators handler.
func NewOperatorsHandler(operators store.OperatorStore) *OperatorsHandler {
	return &OperatorsHandler{operators: operators}
}

// List returns every operator account. Password hashes never serialize.
func (h *OperatorsHandler) List(w http.ResponseWriter, r *http.Request) {
	operators, err := h.operators.List(r.Context())
	if err != nil {
		log.Printf("Failed to list operators: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list operators")
		return
	}
	if operators == nil {
		operators = []store.Operator{}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"operators": operators,
		"count":     len(operators),
	})
}
