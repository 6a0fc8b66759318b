package reconcile

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gst-graph/backend/internal/graph"
	"gst-graph/backend/internal/risk"
)

func newTestEngine(t *testing.T) (*Engine, *graph.MemoryStore) {
	t.Helper()
	store := graph.NewMemoryStore()
	return NewEngine(store, risk.NewEngine(store), graph.DefaultMaxCycleDepth), store
}

func mkInvoice(id, seller, buyer string, tax int64, reported, claimed bool) graph.Invoice {
	return graph.Invoice{
		ID:               id,
		SellerGSTIN:      seller,
		BuyerGSTIN:       buyer,
		Amount:           decimal.NewFromInt(tax * 5),
		Tax:              decimal.NewFromInt(tax),
		ReportedBySeller: reported,
		ClaimedByBuyer:   claimed,
	}
}

func TestReconcileAll_SortedByRiskDescending(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t)
	require.NoError(t, store.UpsertVendor(ctx, "A", "Alpha", 0))
	require.NoError(t, store.UpsertVendor(ctx, "B", "Beta", 3))
	require.NoError(t, store.UpsertVendor(ctx, "C", "Gamma", 0))
	// Claimed-not-reported with risky seller outranks reported-not-claimed.
	require.NoError(t, store.UpsertInvoice(ctx, mkInvoice("LOW", "A", "C", 5_000, true, false)))
	require.NoError(t, store.UpsertInvoice(ctx, mkInvoice("HIGH", "B", "C", 150_000, false, true)))

	results, err := engine.ReconcileAll(ctx)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "HIGH", results[0].ID)
	assert.Equal(t, graph.MismatchClaimedNotReported, results[0].MismatchType)
	assert.Equal(t, "LOW", results[1].ID)
	assert.Equal(t, graph.MismatchReportedNotClaimed, results[1].MismatchType)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].RiskScore, results[i].RiskScore)
	}
}

func TestReconcileAll_MatchedInvoicesExcluded(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t)
	require.NoError(t, store.UpsertInvoice(ctx, mkInvoice("OK", "A", "B", 10_000, true, true)))

	results, err := engine.ReconcileAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestInvoiceAuditTrail_NotFound(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)

	_, ok, err := engine.InvoiceAuditTrail(ctx, "MISSING")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInvoiceAuditTrail_BaseSteps(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t)
	require.NoError(t, store.UpsertVendor(ctx, "S", "Seller Co", 0))
	require.NoError(t, store.UpsertVendor(ctx, "B", "Buyer Co", 0))
	require.NoError(t, store.UpsertInvoice(ctx, mkInvoice("INV1", "S", "B", 10_000, true, true)))

	trail, ok, err := engine.InvoiceAuditTrail(ctx, "INV1")
	require.NoError(t, err)
	require.True(t, ok)

	// No missed filings, no cycle: only the three unconditional steps.
	require.Len(t, trail.Trail, 3)
	for i, step := range trail.Trail {
		assert.Equal(t, i+1, step.Step)
	}
	assert.Equal(t, "ok", trail.Trail[0].Status)
	assert.Equal(t, "ok", trail.Trail[1].Status)
	assert.Equal(t, "ok", trail.Trail[2].Status)
	assert.Equal(t, graph.MismatchMatched, trail.MismatchType)
	assert.Contains(t, trail.Trail[0].Description, "Seller Co")
	assert.Contains(t, trail.Trail[0].Description, "Buyer Co")
}

func TestInvoiceAuditTrail_ConditionalSteps(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t)
	require.NoError(t, store.UpsertVendor(ctx, "S", "Seller Co", 2))
	require.NoError(t, store.UpsertVendor(ctx, "B", "Buyer Co", 0))
	require.NoError(t, store.UpsertVendor(ctx, "C", "Chain Co", 0))
	// S→B→C→S trading loop.
	require.NoError(t, store.UpsertInvoice(ctx, mkInvoice("INV1", "S", "B", 120_000, false, true)))
	require.NoError(t, store.UpsertInvoice(ctx, mkInvoice("INV2", "B", "C", 50_000, true, true)))
	require.NoError(t, store.UpsertInvoice(ctx, mkInvoice("INV3", "C", "S", 60_000, true, true)))

	trail, ok, err := engine.InvoiceAuditTrail(ctx, "INV1")
	require.NoError(t, err)
	require.True(t, ok)

	require.Len(t, trail.Trail, 5)
	for i, step := range trail.Trail {
		assert.Equal(t, i+1, step.Step, "steps must be numbered consecutively")
	}
	assert.Equal(t, "error", trail.Trail[1].Status)   // GSTR-1 not filed
	assert.Equal(t, "warning", trail.Trail[2].Status) // claimed but not reported
	assert.Equal(t, "warning", trail.Trail[3].Status) // missed filings
	assert.Contains(t, trail.Trail[3].Description, "2 missed return filings")
	assert.Equal(t, "error", trail.Trail[4].Status) // circular trading
	assert.Equal(t, graph.MismatchClaimedNotReported, trail.MismatchType)

	// 35 + 20 + 16 + 20 = 91
	assert.Equal(t, 91, trail.RiskScore)
	assert.Equal(t, risk.LevelCritical, trail.RiskLevel)
}

func TestInvoiceAuditTrail_Explanation(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t)
	require.NoError(t, store.UpsertVendor(ctx, "S", "Seller Co", 1))
	require.NoError(t, store.UpsertVendor(ctx, "B", "Buyer Co", 0))
	require.NoError(t, store.UpsertInvoice(ctx, mkInvoice("INV1", "S", "B", 30_000, false, true)))

	trail, ok, err := engine.InvoiceAuditTrail(ctx, "INV1")
	require.NoError(t, err)
	require.True(t, ok)

	assert.True(t, strings.HasPrefix(trail.Explanation, "Invoice INV1 records a transaction"))
	assert.Contains(t, trail.Explanation, "claiming fraudulent ITC")
	assert.Contains(t, trail.Explanation, "1 missed GST return filings")
	assert.True(t, strings.HasSuffix(trail.Explanation,
		fmt.Sprintf("Overall risk score: %d/100 (%s).", trail.RiskScore, trail.RiskLevel)))
}

func TestCircularGSTINs_MembershipFromStore(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t)
	require.NoError(t, store.UpsertInvoice(ctx, mkInvoice("I1", "A", "B", 100, true, true)))
	require.NoError(t, store.UpsertInvoice(ctx, mkInvoice("I2", "B", "A", 100, true, true)))
	require.NoError(t, store.UpsertInvoice(ctx, mkInvoice("I3", "A", "C", 100, true, true)))

	members := engine.CircularGSTINs(ctx)
	assert.Equal(t, map[string]bool{"A": true, "B": true}, members)
}
