package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/facewatch/facewatch/internal/store"
)

const defaultRecentLimit = 50

// RecordsHandler serves the match record ledger.
type RecordsHandler struct {
	ledger store.Ledger
}

// NewRecordsHandler creates a new records handler.
func NewRecordsHandler(ledger store.Ledger) *RecordsHandler {
	return &RecordsHandler{ledger: ledger}
}

// List returns the full match ledger, newest first.
func (h *RecordsHandler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.ledger.All(r.Context())
	if err != nil {
		log.Printf("Failed to load records: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load records")
		return
	}
	if records == nil {
		records = []store.MatchRecord{}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"records": records,
		"count":   len(records),
	})
}

// Recent returns the newest match records.
func (h *RecordsHandler) Recent(w http.ResponseWriter, r *http.Request) {
	limit := defaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 1000 {
			respondError(w, http.StatusBadRequest, "limit must be between 1 and 1000")
			return
		}
		limit = parsed
	}

	records, err := h.ledger.Recent(r.Context(), limit)
	if err != nil {
		log.Printf("Failed to load recent records: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load records")
		return
	}
	if records == nil {
		records = []store.MatchRecord{}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"records": records,
		"count":   len(records),
	})
}

// Daily returns per-day match record counts.
func (h *RecordsHandler) Daily(w http.ResponseWriter, r *http.Request) {
	counts, err := h.ledger.DailyCounts(r.Context())
	if err != nil {
		log.Printf("Failed to load daily counts: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load daily counts")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"daily": counts,
	})
}
