package http

import (
	"context"
	"errors"
	"fmt"
	"log"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/scentmatch/backend/internal/domain"
	"github.com/scentmatch/backend/internal/infrastructure/tabular"
	"github.com/scentmatch/backend/internal/usecase"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	service  *usecase.AnalysisService
	registry *Registry
	history  domain.HistoryRepository // nil disables history endpoints' writes
	notifier domain.Notifier          // nil disables webhook dispatch
}

// NewHandler creates a new HTTP handler
func NewHandler(
	service *usecase.AnalysisService,
	registry *Registry,
	history domain.HistoryRepository,
	notifier domain.Notifier,
) *Handler {
	return &Handler{
		service:  service,
		registry: registry,
		history:  history,
		notifier: notifier,
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "scentmatch-backend",
		"version": "1.0.0",
	})
}

// StartAnalysis accepts a multipart upload (one merchant file plus one or
// more competitor files), kicks off a background run and returns its ID.
func (h *Handler) StartAnalysis(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form: " + err.Error()})
		return
	}

	merchantFiles := form.File["merchant"]
	if len(merchantFiles) != 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "exactly one merchant file is required"})
		return
	}
	competitorFiles := form.File["competitors"]
	if len(competitorFiles) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one competitor file is required"})
		return
	}

	merchantRecords, err := readUpload(merchantFiles[0])
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("merchant file: %v", err)})
		return
	}
	merchant := usecase.Catalog{Name: merchantFiles[0].Filename, Records: merchantRecords}

	var competitors []usecase.Catalog
	var competitorNames []string
	for _, fh := range competitorFiles {
		records, err := readUpload(fh)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("competitor file %s: %v", fh.Filename, err)})
			return
		}
		competitors = append(competitors, usecase.Catalog{Name: fh.Filename, Records: records})
		competitorNames = append(competitorNames, fh.Filename)
	}

	run := h.registry.Create(merchant.Name, competitorNames)
	go h.execute(run, merchant, competitors)

	c.JSON(http.StatusAccepted, gin.H{"runId": run.ID, "status": StatusRunning})
}

// execute drives one analysis in the background and records the outcome
func (h *Handler) execute(run *Run, merchant usecase.Catalog, competitors []usecase.Catalog) {
	ctx := context.Background()

	result, err := h.service.Run(ctx, merchant, competitors, run.SetProgress)
	if err != nil {
		log.Printf("[RUN] %s failed: %v", run.ID, err)
		run.Fail(err)
		return
	}
	run.Complete(result)

	if h.history != nil {
		record := domain.RunRecord{
			ID:           run.ID,
			Timestamp:    run.StartedAt,
			MerchantFile: run.MerchantFile,
			Competitors:  run.Competitors,
			Summary:      result.Summary(),
		}
		if err := h.history.SaveRun(ctx, record); err != nil {
			// History is best effort; a storage error never fails the run
			log.Printf("[RUN] %s history save failed: %v", run.ID, err)
		}
	}

	summary := result.Summary()
	log.Printf("[RUN] %s completed: %d rows, %d approved, %d review, %d missing",
		run.ID, summary.Total, summary.Approved, summary.NeedsReview, summary.MissingAtMerchant)
}

// GetRunStatus reports progress for one run
func (h *Handler) GetRunStatus(c *gin.Context) {
	run, ok := h.registry.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": domain.ErrRunNotFound.Error()})
		return
	}
	c.JSON(http.StatusOK, run.Snapshot())
}

// GetRunResults returns the classified rows of a completed run
func (h *Handler) GetRunResults(c *gin.Context) {
	run, ok := h.registry.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": domain.ErrRunNotFound.Error()})
		return
	}

	result, done := run.Result()
	if !done {
		c.JSON(http.StatusConflict, gin.H{"error": domain.ErrRunInProgress.Error()})
		return
	}

	rows := result.Rows
	if decision := c.Query("decision"); decision != "" {
		rows = filterRows(rows, domain.Decision(decision))
	}

	c.JSON(http.StatusOK, gin.H{
		"runId":   run.ID,
		"summary": result.Summary(),
		"rows":    rows,
	})
}

// GetRunMissing returns competitor products absent from the merchant catalog
func (h *Handler) GetRunMissing(c *gin.Context) {
	run, ok := h.registry.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": domain.ErrRunNotFound.Error()})
		return
	}

	result, done := run.Result()
	if !done {
		c.JSON(http.StatusConflict, gin.H{"error": domain.ErrRunInProgress.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"runId": run.ID, "missing": result.Missing})
}

// NotifyRun pushes a completed run's outcomes to the configured webhooks
func (h *Handler) NotifyRun(c *gin.Context) {
	if h.notifier == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "webhooks not configured"})
		return
	}

	run, ok := h.registry.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": domain.ErrRunNotFound.Error()})
		return
	}

	result, done := run.Result()
	if !done {
		c.JSON(http.StatusConflict, gin.H{"error": domain.ErrRunInProgress.Error()})
		return
	}

	var req struct {
		Target string `json:"target"` // "price_updates" or "missing_products"
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": domain.ErrInvalidRequest.Error()})
		return
	}

	switch req.Target {
	case "price_updates":
		rows := filterRows(result.Rows, domain.DecisionPriceHigher)
		rows = append(rows, filterRows(result.Rows, domain.DecisionPriceLower)...)
		if err := h.notifier.SendPriceUpdates(c.Request.Context(), rows); err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"sent": len(rows)})
	case "missing_products":
		if err := h.notifier.SendMissingProducts(c.Request.Context(), result.Missing); err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"sent": len(result.Missing)})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "target must be 'price_updates' or 'missing_products'"})
	}
}

// ListRuns returns recent run summaries from the history store
func (h *Handler) ListRuns(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "history not configured"})
		return
	}

	runs, err := h.history.ListRuns(c.Request.Context(), queryLimit(c, 10))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// LogDecision records a manual status change for a product
func (h *Handler) LogDecision(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "history not configured"})
		return
	}

	var d domain.DecisionRecord
	if err := c.ShouldBindJSON(&d); err != nil || d.ProductName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": domain.ErrInvalidRequest.Error()})
		return
	}

	if err := h.history.LogDecision(c.Request.Context(), d); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"logged": true})
}

// ListDecisions returns recent decisions, optionally filtered by product name
func (h *Handler) ListDecisions(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "history not configured"})
		return
	}

	decisions, err := h.history.ListDecisions(c.Request.Context(), c.Query("product"), queryLimit(c, 50))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"decisions": decisions})
}

// ListEvents returns recent audit events, optionally filtered by page
func (h *Handler) ListEvents(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "history not configured"})
		return
	}

	events, err := h.history.ListEvents(c.Request.Context(), c.Query("page"), queryLimit(c, 50))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

func readUpload(fh *multipart.FileHeader) ([]domain.ProductRecord, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := tabular.ReadCatalog(f, fh.Filename)
	if err != nil {
		if errors.Is(err, domain.ErrUnsupportedFormat) {
			return nil, err
		}
		return nil, fmt.Errorf("parse failed: %w", err)
	}
	return records, nil
}

func filterRows(rows []domain.ClassifiedRow, decision domain.Decision) []domain.ClassifiedRow {
	var out []domain.ClassifiedRow
	for _, row := range rows {
		if row.Decision == decision {
			out = append(out, row)
		}
	}
	return out
}

func queryLimit(c *gin.Context, fallback int) int {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit <= 0 {
		return fallback
	}
	return limit
}
