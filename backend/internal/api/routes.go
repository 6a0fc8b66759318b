// Package api exposes the reconciliation service over HTTP.
package api

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"sort"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"gst-graph/backend/internal/graph"
	"gst-graph/backend/internal/ingest"
	"gst-graph/backend/internal/reconcile"
	"gst-graph/backend/internal/risk"
	"gst-graph/backend/pkg/config"
	apperrors "gst-graph/backend/pkg/errors"
	"gst-graph/backend/pkg/logger"
)

// scoreConcurrency bounds parallel vendor scoring. Scoring is read-only and
// safe to run concurrently with other reads.
const scoreConcurrency = 8

// Handler wires the store and both engines into gin routes. The store handle
// is injected explicitly; there is no package-level state.
type Handler struct {
	cfg       *config.Config
	store     graph.Store
	reconcile *reconcile.Engine
	scorer    *risk.Engine
	logger    *zap.Logger
}

// NewHandler creates the API handler.
func NewHandler(cfg *config.Config, store graph.Store, rec *reconcile.Engine, scorer *risk.Engine) *Handler {
	return &Handler{
		cfg:       cfg,
		store:     store,
		reconcile: rec,
		scorer:    scorer,
		logger:    logger.Named("api"),
	}
}

// Register mounts all routes on the router.
func (h *Handler) Register(router *gin.Engine) {
	router.GET("/health", h.health)
	router.POST("/ingest", h.ingestDefaults)
	router.GET("/graph/summary", h.graphSummary)
	router.GET("/graph", h.graphData)
	router.GET("/reconcile/invoices", h.reconcileInvoices)
	router.GET("/reconcile/invoice/:id", h.reconcileInvoice)
	router.GET("/vendors", h.vendors)
	router.GET("/vendors/:gstin", h.vendorDetail)
	router.GET("/vendors/:gstin/risk", h.vendorRisk)
	router.POST("/realtime/upload-csv", h.uploadCSV)
}

// fail logs the error and writes the matching status: capability gaps map to
// 501 so clients can tell them from backend failures.
func (h *Handler) fail(c *gin.Context, err error, msg string) {
	if errors.Is(err, apperrors.ErrUnsupportedOperation) {
		c.JSON(http.StatusNotImplemented, gin.H{"error": err.Error()})
		return
	}
	h.logger.Error(msg, zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}

func (h *Handler) health(c *gin.Context) {
	summary, err := h.store.Summary(c.Request.Context())
	if err != nil {
		h.fail(c, err, "Failed to read graph summary")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"graph_backend": h.cfg.GraphBackend,
		"vendor_count":  summary.VendorCount,
		"invoice_count": summary.InvoiceCount,
	})
}

// ingestDefaults resets the graph to the static seed data. Previously
// uploaded CSVs are removed so they no longer contribute.
func (h *Handler) ingestDefaults(c *gin.Context) {
	ctx := c.Request.Context()

	uploads, _ := filepath.Glob(filepath.Join(h.cfg.UploadsDir, "*.csv"))
	for _, f := range uploads {
		if err := os.Remove(f); err != nil {
			h.logger.Warn("Failed to remove uploaded CSV", zap.String("file", f), zap.Error(err))
		}
	}

	if err := h.store.Clear(ctx); err != nil {
		h.fail(c, err, "Failed to clear graph")
		return
	}
	if err := h.store.CreateConstraints(ctx); err != nil {
		h.fail(c, err, "Failed to create constraints")
		return
	}
	vendors, invoices, err := ingest.LoadDir(ctx, h.cfg.DataDir, h.store)
	if err != nil {
		h.fail(c, err, "Failed to load seed data")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":          "ok",
		"vendors_loaded":  vendors,
		"invoices_loaded": invoices,
	})
}

func (h *Handler) graphSummary(c *gin.Context) {
	ctx := c.Request.Context()

	summary, err := h.store.Summary(ctx)
	if err != nil {
		h.fail(c, err, "Failed to read graph summary")
		return
	}
	circular := h.reconcile.CircularGSTINs(ctx)
	assessments, err := h.scoreAllVendors(c, circular)
	if err != nil {
		h.fail(c, err, "Failed to score vendors")
		return
	}
	if len(assessments) > 10 {
		assessments = assessments[:10]
	}
	c.JSON(http.StatusOK, gin.H{
		"vendor_count":      summary.VendorCount,
		"invoice_count":     summary.InvoiceCount,
		"mismatch_count":    summary.MismatchCount,
		"suspicious_count":  summary.SuspiciousCount,
		"circular_chains":   len(circular) > 0,
		"top_risky_vendors": assessments,
	})
}

func (h *Handler) reconcileInvoices(c *gin.Context) {
	results, err := h.reconcile.ReconcileAll(c.Request.Context())
	if err != nil {
		h.fail(c, err, "Failed to reconcile invoices")
		return
	}
	c.JSON(http.StatusOK, results)
}

func (h *Handler) reconcileInvoice(c *gin.Context) {
	trail, ok, err := h.reconcile.InvoiceAuditTrail(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "Failed to build audit trail")
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Invoice not found"})
		return
	}
	c.JSON(http.StatusOK, trail)
}

func (h *Handler) vendors(c *gin.Context) {
	circular := h.reconcile.CircularGSTINs(c.Request.Context())
	assessments, err := h.scoreAllVendors(c, circular)
	if err != nil {
		h.fail(c, err, "Failed to score vendors")
		return
	}
	c.JSON(http.StatusOK, assessments)
}

func (h *Handler) vendorDetail(c *gin.Context) {
	ctx := c.Request.Context()
	gstin := c.Param("gstin")

	_, ok, err := h.store.Vendor(ctx, gstin)
	if err != nil {
		h.fail(c, err, "Failed to fetch vendor")
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Vendor not found"})
		return
	}

	circular := h.reconcile.CircularGSTINs(ctx)
	assessment, err := h.scorer.ScoreVendor(ctx, gstin, circular)
	if err != nil {
		h.fail(c, err, "Failed to score vendor")
		return
	}

	vi, err := h.store.VendorInvoices(ctx, gstin)
	if err != nil {
		h.fail(c, err, "Failed to fetch vendor invoices")
		return
	}
	suspicious := []graph.Invoice{}
	for _, inv := range vi.Purchased {
		if inv.IsSuspicious() {
			suspicious = append(suspicious, inv)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"gstin":                       assessment.GSTIN,
		"name":                        assessment.Name,
		"risk_score":                  assessment.Score,
		"risk_level":                  assessment.Level,
		"missed_filings":              assessment.MissedFilings,
		"total_incoming":              assessment.TotalIncoming,
		"total_outgoing":              assessment.TotalOutgoing,
		"suspicious_invoice_count":    assessment.SuspiciousInvoiceCount,
		"compliance_score":            assessment.ComplianceScore,
		"reasons":                     assessment.Reasons,
		"possible_circular_trading":   assessment.PossibleCircularTrading,
		"high_risk_neighbours":        assessment.HighRiskNeighbours,
		"suspicious_invoices_details": suspicious,
	})
}

func (h *Handler) vendorRisk(c *gin.Context) {
	ctx := c.Request.Context()
	gstin := c.Param("gstin")

	_, ok, err := h.store.Vendor(ctx, gstin)
	if err != nil {
		h.fail(c, err, "Failed to fetch vendor")
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Vendor not found"})
		return
	}

	assessment, err := h.scorer.ScoreVendor(ctx, gstin, h.reconcile.CircularGSTINs(ctx))
	if err != nil {
		h.fail(c, err, "Failed to score vendor")
		return
	}
	c.JSON(http.StatusOK, assessment)
}

// graphData returns nodes and edges for visualization, with vendor nodes
// enriched by their current risk assessment.
func (h *Handler) graphData(c *gin.Context) {
	ctx := c.Request.Context()

	data, err := h.store.GraphData(ctx)
	if err != nil {
		h.fail(c, err, "Failed to export graph data")
		return
	}
	circular := h.reconcile.CircularGSTINs(ctx)
	for _, node := range data.Nodes {
		if node["type"] != "vendor" {
			continue
		}
		gstin, _ := node["id"].(string)
		assessment, err := h.scorer.ScoreVendor(ctx, gstin, circular)
		if err != nil {
			h.fail(c, err, "Failed to score vendor")
			return
		}
		node["risk_level"] = assessment.Level
		node["risk_score"] = assessment.Score
		node["suspicious_count"] = assessment.SuspiciousInvoiceCount
	}
	c.JSON(http.StatusOK, data)
}

// uploadCSV accepts a raw vendors or invoices CSV, saves it to the uploads
// directory (never touching the static defaults) and appends its rows to the
// live graph without clearing existing data.
func (h *Handler) uploadCSV(c *gin.Context) {
	ctx := c.Request.Context()

	kind := c.PostForm("type")
	if kind != "vendors" && kind != "invoices" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "'type' must be 'vendors' or 'invoices'"})
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "'file' is required"})
		return
	}

	if err := os.MkdirAll(h.cfg.UploadsDir, 0o755); err != nil {
		h.fail(c, err, "Failed to prepare uploads directory")
		return
	}
	dest := filepath.Join(h.cfg.UploadsDir, kind+".csv")
	if err := c.SaveUploadedFile(file, dest); err != nil {
		h.fail(c, err, "Failed to save uploaded file")
		return
	}

	// Append-only: load the uploads directory without clearing. Upserts are
	// idempotent, so duplicates are handled safely.
	vendors, invoices, err := ingest.LoadDir(ctx, h.cfg.UploadsDir, h.store)
	if err != nil {
		if apperrors.IsMalformedRow(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.fail(c, err, "Failed to ingest uploaded CSV")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":          "ok",
		"file_saved":      kind + ".csv",
		"vendors_loaded":  vendors,
		"invoices_loaded": invoices,
	})
}

// scoreAllVendors scores every vendor against one shared circular membership
// set, in parallel, and returns them sorted by risk descending (stable).
func (h *Handler) scoreAllVendors(c *gin.Context, circular map[string]bool) ([]risk.VendorAssessment, error) {
	ctx := c.Request.Context()

	vendors, err := h.store.AllVendors(ctx)
	if err != nil {
		return nil, err
	}

	assessments := make([]risk.VendorAssessment, len(vendors))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(scoreConcurrency)
	for i, v := range vendors {
		i, v := i, v
		g.Go(func() error {
			a, err := h.scorer.ScoreVendor(gctx, v.GSTIN, circular)
			if err != nil {
				return err
			}
			assessments[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(assessments, func(i, j int) bool {
		return assessments[i].Score > assessments[j].Score
	})
	return assessments, nil
}
