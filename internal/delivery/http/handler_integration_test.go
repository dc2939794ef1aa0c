package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/scentmatch/backend/config"
	"github.com/scentmatch/backend/internal/domain"
	"github.com/scentmatch/backend/internal/usecase"
)

// TestMain sets up test environment before running tests
func TestMain(m *testing.M) {
	// Set Gin to test mode once for all tests
	gin.SetMode(gin.TestMode)

	exitCode := m.Run()

	os.Exit(exitCode)
}

func newTestService() *usecase.AnalysisService {
	normalizer := usecase.NewNormalizer(config.DefaultSynonyms)
	extractor := usecase.NewExtractor(normalizer, usecase.Lexicon{
		Brands:         config.DefaultBrands,
		SampleKeywords: config.DefaultSampleKeywords,
		TesterKeywords: config.DefaultTesterKeywords,
		SetKeywords:    config.DefaultSetKeywords,
		MaleKeywords:   config.DefaultMaleKeywords,
		FemaleKeywords: config.DefaultFemaleKeywords,
	})
	// nil oracle: ambiguous rows take the fallback path
	return usecase.NewAnalysisService(normalizer, extractor, nil, usecase.AnalysisConfig{})
}

// setupTestRouter creates a test router with default configuration
func setupTestRouter(history domain.HistoryRepository, notifier domain.Notifier) *gin.Engine {
	cfg := &config.Config{
		Server: config.ServerConfig{
			Port:           "8080",
			Environment:    "test",
			AllowedOrigins: []string{"http://localhost:*", "https://dashboard.example.com"},
		},
	}

	handler := NewHandler(newTestService(), NewRegistry(), history, notifier)
	router := SetupRouter(cfg, handler)
	if router == nil {
		panic("setupTestRouter: SetupRouter returned nil *gin.Engine")
	}
	return router
}

// uploadBody builds a multipart request body with one merchant CSV and the
// given competitor CSVs.
func uploadBody(t *testing.T, merchantCSV string, competitorCSVs map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fw, err := w.CreateFormFile("merchant", "merchant.csv")
	if err != nil {
		t.Fatalf("CreateFormFile error = %v", err)
	}
	fmt.Fprint(fw, merchantCSV)

	for name, content := range competitorCSVs {
		fw, err := w.CreateFormFile("competitors", name)
		if err != nil {
			t.Fatalf("CreateFormFile error = %v", err)
		}
		fmt.Fprint(fw, content)
	}

	if err := w.Close(); err != nil {
		t.Fatalf("multipart close error = %v", err)
	}
	return &buf, w.FormDataContentType()
}

// startRun uploads the given catalogs and waits for the background run to
// finish, returning its ID.
func startRun(t *testing.T, router *gin.Engine, merchantCSV string, competitorCSVs map[string]string) string {
	t.Helper()

	body, contentType := uploadBody(t, merchantCSV, competitorCSVs)
	req, _ := http.NewRequest("POST", "/api/v1/analysis", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("Status = %d, want %d (body %s)", w.Code, http.StatusAccepted, w.Body.String())
	}

	var response map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	runID, _ := response["runId"].(string)
	if runID == "" {
		t.Fatal("expected runId in response")
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		req, _ := http.NewRequest("GET", "/api/v1/analysis/"+runID, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		var status RunStatus
		if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
			t.Fatalf("Failed to unmarshal status: %v", err)
		}
		if status.Status == StatusCompleted {
			return runID
		}
		if status.Status == StatusFailed {
			t.Fatalf("run failed: %s", status.Error)
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("run did not complete in time")
	return ""
}

const merchantCSV = "المنتج,السعر\n" +
	"Dior Sauvage EDP 100ml,450\n" +
	"Chanel Bleu de Chanel EDT 100ml,380\n"

var competitorCSVs = map[string]string{
	"shop-a.csv": "product,price\n" +
		"Sauvage Dior Eau de Parfum 100 ml,430\n" +
		"Armani Acqua di Gio EDT 100ml,320\n",
}

// TestHealthCheckEndpoint tests the health check endpoint
func TestHealthCheckEndpoint(t *testing.T) {
	t.Run("returns healthy status", func(t *testing.T) {
		router := setupTestRouter(nil, nil)

		req, _ := http.NewRequest("GET", "/health", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
		}

		var response map[string]interface{}
		err := json.Unmarshal(w.Body.Bytes(), &response)
		if err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}

		if response["status"] != "healthy" {
			t.Errorf("status = %v, want healthy", response["status"])
		}
		if response["service"] != "scentmatch-backend" {
			t.Errorf("service = %v, want scentmatch-backend", response["service"])
		}
	})

	t.Run("accepts GET requests only", func(t *testing.T) {
		router := setupTestRouter(nil, nil)

		methods := []string{"POST", "PUT", "DELETE", "PATCH"}

		for _, method := range methods {
			req, _ := http.NewRequest(method, "/health", nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != http.StatusNotFound {
				t.Errorf("Method %s: Status = %d, want %d", method, w.Code, http.StatusNotFound)
			}
		}
	})
}

// TestAnalysisLifecycle covers upload, polling and result retrieval
func TestAnalysisLifecycle(t *testing.T) {
	t.Run("full run produces classified rows", func(t *testing.T) {
		router := setupTestRouter(nil, nil)

		runID := startRun(t, router, merchantCSV, competitorCSVs)

		req, _ := http.NewRequest("GET", "/api/v1/analysis/"+runID+"/results", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
		}

		var response struct {
			RunID   string                  `json:"runId"`
			Summary domain.AnalysisSummary  `json:"summary"`
			Rows    []domain.ClassifiedRow  `json:"rows"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}

		if response.RunID != runID {
			t.Errorf("runId = %s, want %s", response.RunID, runID)
		}
		if response.Summary.Total != 2 {
			t.Errorf("summary total = %d, want 2", response.Summary.Total)
		}
		if len(response.Rows) != 2 {
			t.Fatalf("rows = %d, want 2", len(response.Rows))
		}

		// The Sauvage listing has a clear counterpart at the competitor.
		var sauvage *domain.ClassifiedRow
		for i := range response.Rows {
			if strings.Contains(strings.ToLower(response.Rows[i].Product.Name), "sauvage") {
				sauvage = &response.Rows[i]
			}
		}
		if sauvage == nil {
			t.Fatal("expected a row for the Sauvage listing")
		}
		if sauvage.Decision == domain.DecisionMissing {
			t.Errorf("sauvage decision = %s, want a matched decision", sauvage.Decision)
		}
	})

	t.Run("missing endpoint lists unmatched competitor items", func(t *testing.T) {
		router := setupTestRouter(nil, nil)

		runID := startRun(t, router, merchantCSV, competitorCSVs)

		req, _ := http.NewRequest("GET", "/api/v1/analysis/"+runID+"/missing", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
		}

		var response struct {
			Missing []domain.MissingRecord `json:"missing"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}

		// Acqua di Gio is not in the merchant catalog
		found := false
		for _, m := range response.Missing {
			if strings.Contains(strings.ToLower(m.Product.Name), "acqua") {
				found = true
			}
		}
		if !found {
			t.Errorf("expected Acqua di Gio in missing list, got %v", response.Missing)
		}
	})

	t.Run("results filter by decision", func(t *testing.T) {
		router := setupTestRouter(nil, nil)

		runID := startRun(t, router, merchantCSV, competitorCSVs)

		req, _ := http.NewRequest("GET", "/api/v1/analysis/"+runID+"/results?decision=missing", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		var response struct {
			Rows []domain.ClassifiedRow `json:"rows"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		for _, row := range response.Rows {
			if row.Decision != domain.DecisionMissing {
				t.Errorf("filtered row decision = %s, want missing", row.Decision)
			}
		}
	})

	t.Run("unknown run returns 404", func(t *testing.T) {
		router := setupTestRouter(nil, nil)

		for _, path := range []string{
			"/api/v1/analysis/no-such-run",
			"/api/v1/analysis/no-such-run/results",
			"/api/v1/analysis/no-such-run/missing",
		} {
			req, _ := http.NewRequest("GET", path, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != http.StatusNotFound {
				t.Errorf("Path %s: Status = %d, want %d", path, w.Code, http.StatusNotFound)
			}
		}
	})

	t.Run("rejects upload without merchant file", func(t *testing.T) {
		router := setupTestRouter(nil, nil)

		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		fw, _ := w.CreateFormFile("competitors", "shop-a.csv")
		fmt.Fprint(fw, "product,price\nSauvage,430\n")
		w.Close()

		req, _ := http.NewRequest("POST", "/api/v1/analysis", &buf)
		req.Header.Set("Content-Type", w.FormDataContentType())
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", rec.Code, http.StatusBadRequest)
		}
	})

	t.Run("rejects unsupported file format", func(t *testing.T) {
		router := setupTestRouter(nil, nil)

		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		fw, _ := w.CreateFormFile("merchant", "catalog.pdf")
		fmt.Fprint(fw, "not tabular")
		fw2, _ := w.CreateFormFile("competitors", "shop-a.csv")
		fmt.Fprint(fw2, "product,price\nSauvage,430\n")
		w.Close()

		req, _ := http.NewRequest("POST", "/api/v1/analysis", &buf)
		req.Header.Set("Content-Type", w.FormDataContentType())
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", rec.Code, http.StatusBadRequest)
		}
	})
}

// stubNotifier records webhook sends
type stubNotifier struct {
	priceRows []domain.ClassifiedRow
	missing   []domain.MissingRecord
}

func (s *stubNotifier) SendPriceUpdates(ctx context.Context, rows []domain.ClassifiedRow) error {
	s.priceRows = rows
	return nil
}

func (s *stubNotifier) SendMissingProducts(ctx context.Context, missing []domain.MissingRecord) error {
	s.missing = missing
	return nil
}

// TestNotifyEndpoint tests webhook dispatch for completed runs
func TestNotifyEndpoint(t *testing.T) {
	t.Run("dispatches missing products", func(t *testing.T) {
		notifier := &stubNotifier{}
		router := setupTestRouter(nil, notifier)

		runID := startRun(t, router, merchantCSV, competitorCSVs)

		payload := `{"target":"missing_products"}`
		req, _ := http.NewRequest("POST", "/api/v1/analysis/"+runID+"/notify", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d (body %s)", w.Code, http.StatusOK, w.Body.String())
		}
		if len(notifier.missing) == 0 {
			t.Error("expected missing products to be dispatched")
		}
	})

	t.Run("rejects unknown target", func(t *testing.T) {
		notifier := &stubNotifier{}
		router := setupTestRouter(nil, notifier)

		runID := startRun(t, router, merchantCSV, competitorCSVs)

		payload := `{"target":"everything"}`
		req, _ := http.NewRequest("POST", "/api/v1/analysis/"+runID+"/notify", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("returns 503 when webhooks not configured", func(t *testing.T) {
		router := setupTestRouter(nil, nil)

		runID := startRun(t, router, merchantCSV, competitorCSVs)

		payload := `{"target":"missing_products"}`
		req, _ := http.NewRequest("POST", "/api/v1/analysis/"+runID+"/notify", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusServiceUnavailable)
		}
	})
}

// TestHistoryEndpoints tests the degraded behavior without a store
func TestHistoryEndpoints(t *testing.T) {
	t.Run("return 503 when history not configured", func(t *testing.T) {
		router := setupTestRouter(nil, nil)

		paths := []struct {
			method string
			path   string
		}{
			{"GET", "/api/v1/history/runs"},
			{"GET", "/api/v1/history/decisions"},
			{"GET", "/api/v1/history/events"},
		}

		for _, p := range paths {
			req, _ := http.NewRequest(p.method, p.path, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != http.StatusServiceUnavailable {
				t.Errorf("%s %s: Status = %d, want %d", p.method, p.path, w.Code, http.StatusServiceUnavailable)
			}
		}
	})
}

// TestCORSIntegration tests CORS headers work end-to-end with full router
func TestCORSIntegration(t *testing.T) {
	t.Run("health endpoint has CORS for wildcard origin", func(t *testing.T) {
		router := setupTestRouter(nil, nil)

		req, _ := http.NewRequest("GET", "/health", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
		}

		gotOrigin := w.Header().Get("Access-Control-Allow-Origin")
		if gotOrigin != "http://localhost:5173" {
			t.Errorf("Access-Control-Allow-Origin = %q, want %q", gotOrigin, "http://localhost:5173")
		}
	})

	t.Run("exact allowed origin is echoed", func(t *testing.T) {
		router := setupTestRouter(nil, nil)

		req, _ := http.NewRequest("GET", "/health", nil)
		req.Header.Set("Origin", "https://dashboard.example.com")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		gotOrigin := w.Header().Get("Access-Control-Allow-Origin")
		if gotOrigin != "https://dashboard.example.com" {
			t.Errorf("Access-Control-Allow-Origin = %q, want %q", gotOrigin, "https://dashboard.example.com")
		}
	})
}

// TestRecoveryMiddleware tests panic recovery
func TestRecoveryMiddleware(t *testing.T) {
	t.Run("recovers from panic without crashing server", func(t *testing.T) {
		router := setupTestRouter(nil, nil)

		router.GET("/panic", func(c *gin.Context) {
			panic("test panic")
		})

		req, _ := http.NewRequest("GET", "/panic", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		// Gin's default recovery returns 500
		if w.Code != http.StatusInternalServerError {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusInternalServerError)
		}
	})
}

// TestAPIVersioning tests that API v1 routes are correctly versioned
func TestAPIVersioning(t *testing.T) {
	t.Run("non-versioned routes return 404", func(t *testing.T) {
		router := setupTestRouter(nil, nil)

		req, _ := http.NewRequest("POST", "/api/analysis", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusNotFound)
		}
	})
}
