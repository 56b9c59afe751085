package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/facewatch/facewatch/internal/activity"
	"github.com/facewatch/facewatch/internal/config"
	"github.com/facewatch/facewatch/internal/recognition"
	"github.com/facewatch/facewatch/internal/store"
	"github.com/facewatch/facewatch/internal/store/memory"
)

type stubExtractor struct{}

func (stubExtractor) Extract(ctx context.Context, imageData []byte) ([]float32, error) {
	return []float32{1, 0, 0, 0}, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	gallery := memory.NewGallery()
	ledger := memory.NewLedger()
	operators := memory.NewOperators()
	recognizer := recognition.NewRecognizer(gallery, ledger, activity.NewHub(), 4, config.RecognitionConfig{
		CosineThreshold:    0.85,
		EuclideanThreshold: 0.6,
		Cooldown:           30 * time.Second,
	})

	server := NewServer(Deps{
		Gallery:      gallery,
		Ledger:       ledger,
		Operators:    operators,
		Recognizer:   recognizer,
		Extractor:    stubExtractor{},
		DupIndex:     store.NewDuplicateIndex(),
		EmbeddingDim: 4,
	}, "127.0.0.1", 0, "test-secret")
	t.Cleanup(func() {
		server.sessionManager.Stop()
	})
	return server
}

func TestServer_HealthNoAuth(t *testing.T) {
	server := newTestServer(t)

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	recorder := httptest.NewRecorder()
	server.Router().ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", recorder.Code)
	}
}

func TestServer_ProtectedRoutesRequireAuth(t *testing.T) {
	server := newTestServer(t)

	paths := []struct {
		method string
		path   string
	}{
		{"GET", "/api/v1/identities"},
		{"PATCH", "/api/v1/identities/emp-001"},
		{"GET", "/api/v1/operators"},
		{"POST", "/api/v1/recognize"},
		{"GET", "/api/v1/records"},
		{"GET", "/api/v1/records/recent"},
		{"GET", "/api/v1/stats"},
		{"GET", "/api/v1/activity/events"},
		{"GET", "/api/v1/auth/me"},
	}

	for _, tt := range paths {
		req := httptest.NewRequest(tt.method, tt.path, nil)
		recorder := httptest.NewRecorder()
		server.Router().ServeHTTP(recorder, req)

		if recorder.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: expected 401, got %d", tt.method, tt.path, recorder.Code)
		}
	}
}

func TestServer_LoginFlow(t *testing.T) {
	server := newTestServer(t)

	register := bytes.NewBufferString(`{"name": "Gate Operator", "email": "gate@example.com", "password": "super-secret"}`)
	req := httptest.NewRequest("POST", "/api/v1/auth/register", register)
	recorder := httptest.NewRecorder()
	server.Router().ServeHTTP(recorder, req)
	if recorder.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d\n%s", recorder.Code, recorder.Body.String())
	}

	login := bytes.NewBufferString(`{"email": "gate@example.com", "password": "super-secret"}`)
	req = httptest.NewRequest("POST", "/api/v1/auth/login", login)
	recorder = httptest.NewRecorder()
	server.Router().ServeHTTP(recorder, req)
	if recorder.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d\n%s", recorder.Code, recorder.Body.String())
	}

	var response struct {
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse login response: %v", err)
	}

	req = httptest.NewRequest("GET", "/api/v1/stats", nil)
	req.Header.Set("Authorization", "Bearer "+response.SessionID)
	recorder = httptest.NewRecorder()
	server.Router().ServeHTTP(recorder, req)
	if recorder.Code != http.StatusOK {
		t.Errorf("stats with session: expected 200, got %d\n%s", recorder.Code, recorder.Body.String())
	}
}
