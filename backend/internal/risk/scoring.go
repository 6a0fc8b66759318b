// Package risk computes deterministic, additive, explainable 0-100 risk
// scores for invoices and vendors. Every contributing factor appends one
// human-readable reason string.
package risk

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"gst-graph/backend/internal/graph"
)

// Level buckets a score for display.
type Level string

const (
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
)

// LevelFor maps a clamped score to its level.
func LevelFor(score int) Level {
	switch {
	case score >= 70:
		return LevelCritical
	case score >= 50:
		return LevelHigh
	case score >= 25:
		return LevelMedium
	default:
		return LevelLow
	}
}

// Scoring weights.
const (
	missedFilingsFactor = 8  // points per missed return filing
	circularBonus       = 20 // either party in a detected trading cycle
	neighbourFactor     = 5  // per counterparty with missed_filings >= 2
	suspiciousFactor    = 25 // per suspicious incoming invoice
	suspiciousCap       = 50
)

var mismatchWeights = map[graph.MismatchType]int{
	graph.MismatchClaimedNotReported: 35,
	graph.MismatchBothMissing:        25,
	graph.MismatchReportedNotClaimed: 15,
	graph.MismatchMatched:            0,
}

// taxTiers are inclusive lower bounds evaluated top-down, first match wins.
// The final >= 0 tier means any tax line item contributes at least +5, zero
// included.
var taxTiers = []struct {
	threshold decimal.Decimal
	points    int
}{
	{decimal.NewFromInt(100_000), 20},
	{decimal.NewFromInt(50_000), 15},
	{decimal.NewFromInt(20_000), 10},
	{decimal.Zero, 5},
}

func taxPoints(tax decimal.Decimal) int {
	for _, tier := range taxTiers {
		if tax.GreaterThanOrEqual(tier.threshold) {
			return tier.points
		}
	}
	return 0
}

// InvoiceAssessment is the scoring result for one invoice.
type InvoiceAssessment struct {
	Score   int      `json:"risk_score"`
	Level   Level    `json:"risk_level"`
	Reasons []string `json:"reasons"`
}

// VendorAssessment is the scoring result for one vendor.
type VendorAssessment struct {
	GSTIN                   string   `json:"gstin"`
	Name                    string   `json:"name"`
	Score                   int      `json:"risk_score"`
	Level                   Level    `json:"risk_level"`
	MissedFilings           int      `json:"missed_filings"`
	TotalIncoming           int      `json:"total_incoming"`
	TotalOutgoing           int      `json:"total_outgoing"`
	SuspiciousInvoiceCount  int      `json:"suspicious_invoice_count"`
	ComplianceScore         int      `json:"compliance_score"`
	Reasons                 []string `json:"reasons"`
	PossibleCircularTrading bool     `json:"possible_circular_trading"`
	HighRiskNeighbours      int      `json:"high_risk_neighbours"`
}

// Engine scores invoices and vendors against the current store state. It is
// read-only and safe to use concurrently with other reads.
type Engine struct {
	store graph.Store
}

// NewEngine creates a scoring engine over the given store.
func NewEngine(store graph.Store) *Engine {
	return &Engine{store: store}
}

// ScoreInvoice scores a single invoice. The circular membership set is
// precomputed by the caller so a batch of invoices shares one detection pass.
func (e *Engine) ScoreInvoice(ctx context.Context, inv graph.Invoice, circular map[string]bool) (InvoiceAssessment, error) {
	reasons := []string{}
	score := 0

	mtype := inv.Mismatch()
	if pts := mismatchWeights[mtype]; pts > 0 {
		score += pts
		reasons = append(reasons, fmt.Sprintf("%s (+%d)", mtype, pts))
	}

	pts := taxPoints(inv.Tax)
	score += pts
	reasons = append(reasons, fmt.Sprintf("Tax amount ₹%s (+%d)", Rupees(inv.Tax), pts))

	if inv.SellerGSTIN != "" {
		seller, ok, err := e.store.Vendor(ctx, inv.SellerGSTIN)
		if err != nil {
			return InvoiceAssessment{}, err
		}
		if ok && seller.MissedFilings > 0 {
			pts := seller.MissedFilings * missedFilingsFactor
			score += pts
			reasons = append(reasons, fmt.Sprintf("Seller missed %d filings (+%d)", seller.MissedFilings, pts))
		}
	}

	if circular[inv.SellerGSTIN] || circular[inv.BuyerGSTIN] {
		score += circularBonus
		reasons = append(reasons, fmt.Sprintf("Circular trading involvement (+%d)", circularBonus))
	}

	score = clamp(score)
	return InvoiceAssessment{Score: score, Level: LevelFor(score), Reasons: reasons}, nil
}

// ScoreVendor computes a vendor-level risk and compliance score. An unknown
// GSTIN yields the zero assessment (score 0, "low", compliance 100), never an
// error.
func (e *Engine) ScoreVendor(ctx context.Context, gstin string, circular map[string]bool) (VendorAssessment, error) {
	vendor, ok, err := e.store.Vendor(ctx, gstin)
	if err != nil {
		return VendorAssessment{}, err
	}
	if !ok {
		return VendorAssessment{
			GSTIN:           gstin,
			Level:           LevelLow,
			ComplianceScore: 100,
			Reasons:         []string{},
		}, nil
	}

	reasons := []string{}
	score := 0

	if vendor.MissedFilings > 0 {
		pts := vendor.MissedFilings * missedFilingsFactor
		score += pts
		reasons = append(reasons, fmt.Sprintf("Missed %d filings (+%d)", vendor.MissedFilings, pts))
	}

	vi, err := e.store.VendorInvoices(ctx, gstin)
	if err != nil {
		return VendorAssessment{}, err
	}

	suspicious := 0
	for _, inv := range vi.Purchased {
		if inv.IsSuspicious() {
			suspicious++
		}
	}
	if suspicious > 0 {
		pts := suspicious * suspiciousFactor
		if pts > suspiciousCap {
			pts = suspiciousCap
		}
		score += pts
		reasons = append(reasons, fmt.Sprintf("%d suspicious incoming invoices (+%d)", suspicious, pts))
	}

	highRisk, err := e.countHighRiskNeighbours(ctx, gstin, vi)
	if err != nil {
		return VendorAssessment{}, err
	}
	if highRisk > 0 {
		pts := highRisk * neighbourFactor
		score += pts
		reasons = append(reasons, fmt.Sprintf("%d high-risk neighbouring vendor(s) (+%d)", highRisk, pts))
	}

	inCircle := circular[gstin]
	if inCircle {
		score += circularBonus
		reasons = append(reasons, fmt.Sprintf("Involved in circular trading (+%d)", circularBonus))
	}

	score = clamp(score)
	compliance := 100 - score
	if compliance < 0 {
		compliance = 0
	}

	return VendorAssessment{
		GSTIN:                   gstin,
		Name:                    vendor.Name,
		Score:                   score,
		Level:                   LevelFor(score),
		MissedFilings:           vendor.MissedFilings,
		TotalIncoming:           vendor.TotalIncoming,
		TotalOutgoing:           vendor.TotalOutgoing,
		SuspiciousInvoiceCount:  suspicious,
		ComplianceScore:         compliance,
		Reasons:                 reasons,
		PossibleCircularTrading: inCircle,
		HighRiskNeighbours:      highRisk,
	}, nil
}

// countHighRiskNeighbours counts distinct counterparty vendors, excluding the
// vendor itself, whose own missed_filings is at least 2.
func (e *Engine) countHighRiskNeighbours(ctx context.Context, gstin string, vi graph.VendorInvoices) (int, error) {
	neighbours := make(map[string]bool)
	for _, inv := range vi.Purchased {
		if inv.SellerGSTIN != "" && inv.SellerGSTIN != gstin {
			neighbours[inv.SellerGSTIN] = true
		}
	}
	for _, inv := range vi.Sold {
		if inv.BuyerGSTIN != "" && inv.BuyerGSTIN != gstin {
			neighbours[inv.BuyerGSTIN] = true
		}
	}
	if len(neighbours) == 0 {
		return 0, nil
	}

	all, err := e.store.AllVendors(ctx)
	if err != nil {
		return 0, err
	}
	byGSTIN := make(map[string]graph.Vendor, len(all))
	for _, v := range all {
		byGSTIN[v.GSTIN] = v
	}

	count := 0
	for g := range neighbours {
		if byGSTIN[g].MissedFilings >= 2 {
			count++
		}
	}
	return count, nil
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
