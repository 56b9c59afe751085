package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/facewatch/facewatch/internal/embedding"
	"github.com/facewatch/facewatch/internal/store"
)

const (
	maxEnrollImages = 5

	// Cosine similarity above which a new embedding is flagged as a
	// likely duplicate of an already enrolled identity.
	duplicateWarnThreshold = 0.95
)

// IdentitiesHandler handles identity enrollment endpoints.
type IdentitiesHandler struct {
	gallery   store.IdentityWriter
	operators store.OperatorStore
	extractor EmbeddingExtractor
	dupIndex  *store.DuplicateIndex
	dim       int
}

// NewIdentitiesHandler creates a new identities handler.
func NewIdentitiesHandler(gallery store.IdentityWriter, operators store.OperatorStore, extractor EmbeddingExtractor, dupIndex *store.DuplicateIndex, dim int) *IdentitiesHandler {
	return &IdentitiesHandler{
		gallery:   gallery,
		operators: operators,
		extractor: extractor,
		dupIndex:  dupIndex,
		dim:       dim,
	}
}

// IdentitySummary is the list representation of an identity.
type IdentitySummary struct {
	ExternalID     string `json:"external_id"`
	Name           string `json:"name"`
	EmbeddingCount int    `json:"embedding_count"`
	RegisteredBy   string `json:"registered_by,omitempty"`
}

// DuplicateWarning flags an enrolled identity close to an uploaded image.
type DuplicateWarning struct {
	Filename   string  `json:"filename"`
	ExternalID string  `json:"external_id"`
	Name       string  `json:"name"`
	Similarity float64 `json:"similarity"`
}

// EnrollResponse is returned from identity creation.
type EnrollResponse struct {
	Identity   IdentitySummary    `json:"identity"`
	Duplicates []DuplicateWarning `json:"duplicates,omitempty"`
}

// List returns enrolled identities, optionally filtered by a name query.
func (h *IdentitiesHandler) List(w http.ResponseWriter, r *http.Request) {
	identities, err := h.gallery.ScanAll(r.Context())
	if err != nil {
		log.Printf("Failed to scan identities: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list identities")
		return
	}

	query := r.URL.Query().Get("q")
	summaries := make([]IdentitySummary, 0, len(identities))
	for i := range identities {
		identity := &identities[i]
		if !store.MatchesName(identity.Name, query) {
			continue
		}
		summaries = append(summaries, IdentitySummary{
			ExternalID:     identity.ExternalID,
			Name:           identity.Name,
			EmbeddingCount: len(identity.Embeddings),
			RegisteredBy:   identity.RegisteredBy,
		})
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"identities": summaries,
		"count":      len(summaries),
	})
}

// Get returns a single identity.
func (h *IdentitiesHandler) Get(w http.ResponseWriter, r *http.Request) {
	externalID := chi.URLParam(r, "id")

	identity, err := h.gallery.GetByExternalID(r.Context(), externalID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "identity not found")
			return
		}
		log.Printf("Failed to get identity %s: %v", sanitizeForLog(externalID), err)
		respondError(w, http.StatusInternalServerError, "failed to get identity")
		return
	}

	embeddings := make([]map[string]any, 0, len(identity.Embeddings))
	for _, emb := range identity.Embeddings {
		embeddings = append(embeddings, map[string]any{
			"filename":   emb.Filename,
			"dimensions": len(emb.Vector),
			"created_at": emb.CreatedAt,
		})
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"external_id":   identity.ExternalID,
		"name":          identity.Name,
		"registered_by": identity.RegisteredBy,
		"created_at":    identity.CreatedAt,
		"embeddings":    embeddings,
	})
}

// Create enrolls a new identity from uploaded face images.
func (h *IdentitiesHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	externalID := strings.TrimSpace(r.FormValue("external_id"))
	name := strings.TrimSpace(r.FormValue("name"))
	if externalID == "" || name == "" {
		respondError(w, http.StatusBadRequest, "external_id and name are required")
		return
	}

	files := r.MultipartForm.File["images"]
	if len(files) == 0 {
		respondError(w, http.StatusBadRequest, "at least one image is required")
		return
	}
	if len(files) > maxEnrollImages {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("at most %d images are allowed", maxEnrollImages))
		return
	}

	identity := &store.Identity{
		ExternalID: externalID,
		Name:       name,
	}
	if operator := operatorFromRequest(r, h.operators); operator != nil {
		identity.RegisteredBy = operator.ID
	}

	var warnings []DuplicateWarning
	for _, fh := range files {
		vector, warning, err := h.extractFromUpload(r, fh)
		if err != nil {
			h.respondExtractionError(w, fh.Filename, err)
			return
		}
		if warning != nil {
			warnings = append(warnings, *warning)
		}
		identity.Embeddings = append(identity.Embeddings, store.Embedding{
			Vector:   vector,
			Filename: fh.Filename,
		})
	}

	if err := h.gallery.Create(r.Context(), identity); err != nil {
		if errors.Is(err, store.ErrDuplicateID) {
			respondError(w, http.StatusConflict, "identity already enrolled")
			return
		}
		log.Printf("Failed to create identity %s: %v", sanitizeForLog(externalID), err)
		respondError(w, http.StatusInternalServerError, "failed to create identity")
		return
	}

	if h.dupIndex != nil {
		for _, emb := range identity.Embeddings {
			h.dupIndex.Add(identity.ExternalID, identity.Name, emb.Vector)
		}
	}

	log.Printf("Enrolled identity %s with %d embeddings", sanitizeForLog(externalID), len(identity.Embeddings))

	respondJSON(w, http.StatusCreated, EnrollResponse{
		Identity: IdentitySummary{
			ExternalID:     identity.ExternalID,
			Name:           identity.Name,
			EmbeddingCount: len(identity.Embeddings),
			RegisteredBy:   identity.RegisteredBy,
		},
		Duplicates: warnings,
	})
}

// AddImage appends an embedding from one more face image to an identity.
func (h *IdentitiesHandler) AddImage(w http.ResponseWriter, r *http.Request) {
	externalID := chi.URLParam(r, "id")

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	files := r.MultipartForm.File["images"]
	if len(files) != 1 {
		respondError(w, http.StatusBadRequest, "exactly one image is required")
		return
	}
	fh := files[0]

	vector, warning, err := h.extractFromUpload(r, fh)
	if err != nil {
		h.respondExtractionError(w, fh.Filename, err)
		return
	}

	identity, err := h.gallery.GetByExternalID(r.Context(), externalID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "identity not found")
			return
		}
		log.Printf("Failed to get identity %s: %v", sanitizeForLog(externalID), err)
		respondError(w, http.StatusInternalServerError, "failed to get identity")
		return
	}

	err = h.gallery.AddEmbedding(r.Context(), externalID, store.Embedding{
		Vector:   vector,
		Filename: fh.Filename,
	})
	if err != nil {
		log.Printf("Failed to add embedding to %s: %v", sanitizeForLog(externalID), err)
		respondError(w, http.StatusInternalServerError, "failed to add embedding")
		return
	}

	if h.dupIndex != nil {
		h.dupIndex.Add(identity.ExternalID, identity.Name, vector)
	}

	resp := map[string]any{"success": true}
	if warning != nil {
		resp["duplicates"] = []DuplicateWarning{*warning}
	}
	respondJSON(w, http.StatusOK, resp)
}

// UpdateRequest carries the mutable identity fields.
type UpdateRequest struct {
	Name string `json:"name"`
}

// Update changes an identity's display name.
func (h *IdentitiesHandler) Update(w http.ResponseWriter, r *http.Request) {
	externalID := chi.URLParam(r, "id")

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	if err := h.gallery.UpdateName(r.Context(), externalID, name); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "identity not found")
			return
		}
		log.Printf("Failed to update identity %s: %v", sanitizeForLog(externalID), err)
		respondError(w, http.StatusInternalServerError, "failed to update identity")
		return
	}

	if h.dupIndex != nil {
		h.dupIndex.Rename(externalID, name)
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"external_id": externalID,
		"name":        name,
	})
}

// Delete removes an identity from the gallery.
func (h *IdentitiesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	externalID := chi.URLParam(r, "id")

	if err := h.gallery.Delete(r.Context(), externalID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "identity not found")
			return
		}
		log.Printf("Failed to delete identity %s: %v", sanitizeForLog(externalID), err)
		respondError(w, http.StatusInternalServerError, "failed to delete identity")
		return
	}

	if h.dupIndex != nil {
		h.dupIndex.Remove(externalID)
	}

	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// extractFromUpload reads one uploaded image, downsizes it and extracts the
// face embedding. Returns a duplicate warning when the embedding lands close
// to an already enrolled one.
func (h *IdentitiesHandler) extractFromUpload(r *http.Request, fh *multipart.FileHeader) ([]float32, *DuplicateWarning, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("opening upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, nil, fmt.Errorf("reading upload: %w", err)
	}

	resized, err := embedding.ResizeImage(data, embedding.MaxImageSize)
	if err != nil {
		return nil, nil, fmt.Errorf("decoding image: %w", err)
	}

	vector, err := h.extractor.Extract(r.Context(), resized)
	if err != nil {
		return nil, nil, err
	}
	if h.dim > 0 && len(vector) != h.dim {
		return nil, nil, fmt.Errorf("unexpected embedding dimensions: got %d, want %d", len(vector), h.dim)
	}

	var warning *DuplicateWarning
	if h.dupIndex != nil {
		if match := h.dupIndex.Nearest(vector); match != nil && match.Similarity >= duplicateWarnThreshold {
			warning = &DuplicateWarning{
				Filename:   fh.Filename,
				ExternalID: match.ExternalID,
				Name:       match.Name,
				Similarity: match.Similarity,
			}
		}
	}

	return vector, warning, nil
}

func (h *IdentitiesHandler) respondExtractionError(w http.ResponseWriter, filename string, err error) {
	if errors.Is(err, embedding.ErrNoFaceDetected) {
		respondError(w, http.StatusUnprocessableEntity, fmt.Sprintf("no face detected in %s", filename))
		return
	}
	log.Printf("Failed to extract embedding from %s: %v", sanitizeForLog(filename), err)
	respondError(w, http.StatusBadGateway, "failed to extract embedding")
}

