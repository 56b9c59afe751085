package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/facewatch/facewatch/internal/recognition"
	"github.com/facewatch/facewatch/internal/store"
)

// StatsHandler serves engine statistics.
type StatsHandler struct {
	gallery    store.IdentityReader
	ledger     store.Ledger
	operators  store.OperatorStore
	recognizer *recognition.Recognizer
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(gallery store.IdentityReader, ledger store.Ledger, operators store.OperatorStore, recognizer *recognition.Recognizer) *StatsHandler {
	return &StatsHandler{
		gallery:    gallery,
		ledger:     ledger,
		operators:  operators,
		recognizer: recognizer,
	}
}

// topIdentitiesLimit caps how many frequently recognized identities the
// stats response reports.
const topIdentitiesLimit = 10

// StatsResponse summarizes gallery and ledger state.
type StatsResponse struct {
	Identities        int                   `json:"identities"`
	RecordsTotal      int                   `json:"records_total"`
	RecordsToday      int                   `json:"records_today"`
	MyRecordsToday    int                   `json:"my_records_today"`
	CooldownEntries   int                   `json:"cooldown_entries"`
	ActiveObservers   int                   `json:"active_observers"`
	TopIdentities     []store.IdentityCount `json:"top_identities"`
	RecordsByOperator map[string]int        `json:"records_by_operator"`
	GeneratedAt       string                `json:"generated_at"`
}

// Get returns engine statistics.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identities, err := h.gallery.Count(ctx)
	if err != nil {
		log.Printf("Failed to count identities: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}

	daily, err := h.ledger.DailyCounts(ctx)
	if err != nil {
		log.Printf("Failed to load daily counts: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}

	top, err := h.ledger.TopIdentities(ctx, topIdentitiesLimit)
	if err != nil {
		log.Printf("Failed to load top identities: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	byOperator, err := h.ledger.CountsByOperator(ctx)
	if err != nil {
		log.Printf("Failed to load operator counts: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}

	now := time.Now()
	today := now.Format("2006-01-02")
	total := 0
	for _, count := range daily {
		total += count
	}

	resp := StatsResponse{
		Identities:        identities,
		RecordsTotal:      total,
		RecordsToday:      daily[today],
		CooldownEntries:   h.recognizer.CooldownSize(),
		ActiveObservers:   h.recognizer.Hub().Count(),
		TopIdentities:     top,
		RecordsByOperator: byOperator,
		GeneratedAt:       now.Format(time.RFC3339),
	}

	if operator := operatorFromRequest(r, h.operators); operator != nil {
		startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		mine, err := h.ledger.CountByOperatorSince(ctx, operator.ID, startOfDay)
		if err != nil {
			log.Printf("Failed to count operator records: %v", err)
		} else {
			resp.MyRecordsToday = mine
		}
	}

	respondJSON(w, http.StatusOK, resp)
}
