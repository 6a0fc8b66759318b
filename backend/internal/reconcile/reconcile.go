// Package reconcile classifies invoice mismatches and assembles explainable
// audit trails over any graph.Store backend.
package reconcile

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"gst-graph/backend/internal/graph"
	"gst-graph/backend/internal/risk"
	"gst-graph/backend/pkg/logger"
)

// Engine runs reconciliation queries against a store and delegates scoring.
type Engine struct {
	store         graph.Store
	scorer        *risk.Engine
	maxCycleDepth int
	logger        *zap.Logger
}

// NewEngine creates a reconciliation engine over the given store.
func NewEngine(store graph.Store, scorer *risk.Engine, maxCycleDepth int) *Engine {
	if maxCycleDepth <= 0 {
		maxCycleDepth = graph.DefaultMaxCycleDepth
	}
	return &Engine{
		store:         store,
		scorer:        scorer,
		maxCycleDepth: maxCycleDepth,
		logger:        logger.Named("reconcile"),
	}
}

// MismatchedInvoice is an invoice annotated with its classification and risk.
type MismatchedInvoice struct {
	graph.Invoice
	MismatchType graph.MismatchType `json:"mismatch_type"`
	RiskScore    int                `json:"risk_score"`
	RiskLevel    risk.Level         `json:"risk_level"`
}

// CircularGSTINs detects current trading cycles and flattens them into a
// membership set. Detection failures degrade to an empty set: reconciliation
// must still work on backends that cannot enumerate cycles.
func (e *Engine) CircularGSTINs(ctx context.Context) map[string]bool {
	cycles, err := e.store.DetectCircularTrading(ctx, e.maxCycleDepth)
	if err != nil {
		e.logger.Warn("circular trading detection unavailable", zap.Error(err))
		return map[string]bool{}
	}
	return graph.CircularGSTINs(cycles)
}

// ReconcileAll classifies every mismatched invoice, attaches a risk score and
// returns the lot sorted by score descending. The circular membership set is
// computed once for the whole batch, not per invoice.
func (e *Engine) ReconcileAll(ctx context.Context) ([]MismatchedInvoice, error) {
	mismatches, err := e.store.MismatchedInvoices(ctx)
	if err != nil {
		return nil, err
	}
	circular := e.CircularGSTINs(ctx)

	results := make([]MismatchedInvoice, 0, len(mismatches))
	for _, inv := range mismatches {
		assessment, err := e.scorer.ScoreInvoice(ctx, inv, circular)
		if err != nil {
			return nil, err
		}
		results = append(results, MismatchedInvoice{
			Invoice:      inv,
			MismatchType: inv.Mismatch(),
			RiskScore:    assessment.Score,
			RiskLevel:    assessment.Level,
		})
	}
	// Ties keep the store's (tax-descending) order.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].RiskScore > results[j].RiskScore
	})
	return results, nil
}

// TrailStep is one numbered entry in an invoice audit trail.
type TrailStep struct {
	Step        int    `json:"step"`
	Description string `json:"description"`
	Status      string `json:"status"` // "ok", "warning", "error"
}

// AuditTrail is the full explainable record for one invoice.
type AuditTrail struct {
	InvoiceID        string             `json:"invoice_id"`
	SellerGSTIN      string             `json:"seller_gstin"`
	SellerName       string             `json:"seller_name"`
	BuyerGSTIN       string             `json:"buyer_gstin"`
	BuyerName        string             `json:"buyer_name"`
	Amount           decimal.Decimal    `json:"amount"`
	Tax              decimal.Decimal    `json:"tax"`
	ReportedBySeller bool               `json:"reported_by_seller"`
	ClaimedByBuyer   bool               `json:"claimed_by_buyer"`
	MismatchType     graph.MismatchType `json:"mismatch_type"`
	RiskScore        int                `json:"risk_score"`
	RiskLevel        risk.Level         `json:"risk_level"`
	Trail            []TrailStep        `json:"trail"`
	Explanation      string             `json:"explanation"`
}

// InvoiceAuditTrail builds the step-by-step trail for one invoice. The second
// return is false when the invoice does not exist.
func (e *Engine) InvoiceAuditTrail(ctx context.Context, invoiceID string) (AuditTrail, bool, error) {
	trail, ok, err := e.store.InvoiceTrail(ctx, invoiceID)
	if err != nil || !ok {
		return AuditTrail{}, ok, err
	}

	mtype := graph.ClassifyMismatch(trail.ReportedBySeller, trail.ClaimedByBuyer)
	circular := e.CircularGSTINs(ctx)
	inCircular := circular[trail.SellerGSTIN] || circular[trail.BuyerGSTIN]

	assessment, err := e.scorer.ScoreInvoice(ctx, graph.Invoice{
		ID:               trail.InvoiceID,
		SellerGSTIN:      trail.SellerGSTIN,
		BuyerGSTIN:       trail.BuyerGSTIN,
		Amount:           trail.Amount,
		Tax:              trail.Tax,
		ReportedBySeller: trail.ReportedBySeller,
		ClaimedByBuyer:   trail.ClaimedByBuyer,
	}, circular)
	if err != nil {
		return AuditTrail{}, false, err
	}

	steps := buildSteps(trail, inCircular)

	return AuditTrail{
		InvoiceID:        trail.InvoiceID,
		SellerGSTIN:      trail.SellerGSTIN,
		SellerName:       trail.SellerName,
		BuyerGSTIN:       trail.BuyerGSTIN,
		BuyerName:        trail.BuyerName,
		Amount:           trail.Amount,
		Tax:              trail.Tax,
		ReportedBySeller: trail.ReportedBySeller,
		ClaimedByBuyer:   trail.ClaimedByBuyer,
		MismatchType:     mtype,
		RiskScore:        assessment.Score,
		RiskLevel:        assessment.Level,
		Trail:            steps,
		Explanation:      explanation(trail, mtype, assessment, inCircular),
	}, true, nil
}

// buildSteps emits the trail steps in order. Step numbers increment only for
// steps actually emitted; conditional steps are skipped, not left blank.
func buildSteps(trail graph.Trail, inCircular bool) []TrailStep {
	var steps []TrailStep
	add := func(description, status string) {
		steps = append(steps, TrailStep{Step: len(steps) + 1, Description: description, Status: status})
	}

	add(fmt.Sprintf("Invoice %s: ₹%s (tax ₹%s) from %s → %s",
		trail.InvoiceID, risk.Rupees(trail.Amount), risk.Rupees(trail.Tax),
		trail.SellerName, trail.BuyerName), "ok")

	if trail.ReportedBySeller {
		add(fmt.Sprintf("Seller (%s) filed GSTR-1 — invoice reported ✓", trail.SellerGSTIN), "ok")
	} else {
		add(fmt.Sprintf("Seller (%s) did NOT file GSTR-1 — invoice NOT reported ✗", trail.SellerGSTIN), "error")
	}

	claimStatus := "ok"
	if trail.ClaimedByBuyer && !trail.ReportedBySeller {
		claimStatus = "warning"
	}
	if trail.ClaimedByBuyer {
		add(fmt.Sprintf("Buyer (%s) claimed ITC in GSTR-2B ✓", trail.BuyerGSTIN), claimStatus)
	} else {
		add(fmt.Sprintf("Buyer (%s) did NOT claim ITC in GSTR-2B", trail.BuyerGSTIN), claimStatus)
	}

	if trail.SellerMissedFilings > 0 {
		add(fmt.Sprintf("Seller has %d missed return filings — compliance concern",
			trail.SellerMissedFilings), "warning")
	}

	if inCircular {
		add("⚠ Parties involved in circular trading pattern", "error")
	}

	return steps
}

// explanation synthesizes the natural-language audit narrative from fixed
// templates selected by mismatch type, compliance history and circularity.
func explanation(trail graph.Trail, mtype graph.MismatchType, assessment risk.InvoiceAssessment, inCircular bool) string {
	parts := []string{fmt.Sprintf(
		"Invoice %s records a transaction of ₹%s (GST ₹%s) from %s to %s.",
		trail.InvoiceID, risk.Rupees(trail.Amount), risk.Rupees(trail.Tax),
		trail.SellerName, trail.BuyerName)}

	switch mtype {
	case graph.MismatchClaimedNotReported:
		parts = append(parts,
			"The buyer has claimed Input Tax Credit (ITC) in their GSTR-2B, "+
				"but the seller has NOT reported this invoice in their GSTR-1. "+
				"This is a red flag — the buyer may be claiming fraudulent ITC.")
	case graph.MismatchReportedNotClaimed:
		parts = append(parts,
			"The seller reported this invoice in GSTR-1, but the buyer "+
				"has not claimed the ITC in GSTR-2B. This may indicate the buyer "+
				"is unaware of the transaction or the invoice is disputed.")
	case graph.MismatchBothMissing:
		parts = append(parts,
			"Neither party has reported this invoice — it is not in GSTR-1 "+
				"or GSTR-2B. This could indicate off-the-books transactions.")
	}

	if trail.SellerMissedFilings > 0 {
		parts = append(parts, fmt.Sprintf(
			"The seller has %d missed GST return filings, raising further compliance concerns.",
			trail.SellerMissedFilings))
	}

	if inCircular {
		parts = append(parts,
			"Additionally, one or both parties are involved in a circular "+
				"trading pattern (A→B→C→A), which is a common indicator of "+
				"fraudulent ITC chains.")
	}

	parts = append(parts, fmt.Sprintf("Overall risk score: %d/100 (%s).",
		assessment.Score, assessment.Level))

	return strings.Join(parts, " ")
}
