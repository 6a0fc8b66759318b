package graph

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func inv(id, seller, buyer string, tax int64, reported, claimed bool) Invoice {
	return Invoice{
		ID:               id,
		SellerGSTIN:      seller,
		BuyerGSTIN:       buyer,
		Amount:           decimal.NewFromInt(tax * 5),
		Tax:              decimal.NewFromInt(tax),
		ReportedBySeller: reported,
		ClaimedByBuyer:   claimed,
	}
}

func seedStore(t *testing.T) *MemoryStore {
	t.Helper()
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.UpsertVendor(ctx, "A", "Alpha Traders", 0))
	require.NoError(t, s.UpsertVendor(ctx, "B", "Beta Suppliers", 2))
	require.NoError(t, s.UpsertVendor(ctx, "C", "Gamma Enterprises", 1))
	require.NoError(t, s.UpsertInvoice(ctx, inv("INV1", "A", "B", 50_000, false, true)))
	require.NoError(t, s.UpsertInvoice(ctx, inv("INV2", "B", "C", 20_000, true, true)))
	require.NoError(t, s.UpsertInvoice(ctx, inv("INV3", "C", "A", 80_000, true, false)))
	return s
}

func TestMemoryStore_VendorCounts(t *testing.T) {
	ctx := context.Background()
	s := seedStore(t)

	v, ok, err := s.Vendor(ctx, "A")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Alpha Traders", v.Name)
	assert.Equal(t, 1, v.TotalOutgoing)
	assert.Equal(t, 1, v.TotalIncoming)
}

func TestMemoryStore_AbsentReadsAreNotErrors(t *testing.T) {
	ctx := context.Background()
	s := seedStore(t)

	_, ok, err := s.Vendor(ctx, "UNKNOWN")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = s.Invoice(ctx, "NOPE")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = s.InvoiceTrail(ctx, "NOPE")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_UpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := seedStore(t)

	before, err := s.Summary(ctx)
	require.NoError(t, err)

	// Re-ingest identical rows.
	require.NoError(t, s.UpsertVendor(ctx, "A", "Alpha Traders", 0))
	require.NoError(t, s.UpsertInvoice(ctx, inv("INV1", "A", "B", 50_000, false, true)))

	after, err := s.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestMemoryStore_UpsertOverwrites(t *testing.T) {
	ctx := context.Background()
	s := seedStore(t)

	require.NoError(t, s.UpsertVendor(ctx, "A", "Alpha Traders Pvt Ltd", 4))
	v, ok, err := s.Vendor(ctx, "A")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Alpha Traders Pvt Ltd", v.Name)
	assert.Equal(t, 4, v.MissedFilings)

	sum, err := s.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.VendorCount)
}

func TestMemoryStore_Summary(t *testing.T) {
	ctx := context.Background()
	s := seedStore(t)

	sum, err := s.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.VendorCount)
	assert.Equal(t, 3, sum.InvoiceCount)
	assert.Equal(t, 2, sum.MismatchCount)   // INV1, INV3
	assert.Equal(t, 1, sum.SuspiciousCount) // INV1 claimed but not reported
}

func TestMemoryStore_MismatchedInvoicesOrderedByTaxDesc(t *testing.T) {
	ctx := context.Background()
	s := seedStore(t)

	mismatched, err := s.MismatchedInvoices(ctx)
	require.NoError(t, err)
	require.Len(t, mismatched, 2)
	for i := 1; i < len(mismatched); i++ {
		assert.True(t, mismatched[i-1].Tax.GreaterThanOrEqual(mismatched[i].Tax),
			"tax must be non-increasing")
	}
	assert.Equal(t, "INV3", mismatched[0].ID)

	// Stable across repeated calls on unchanged data.
	again, err := s.MismatchedInvoices(ctx)
	require.NoError(t, err)
	assert.Equal(t, mismatched, again)
}

func TestMemoryStore_VendorInvoices(t *testing.T) {
	ctx := context.Background()
	s := seedStore(t)

	vi, err := s.VendorInvoices(ctx, "B")
	require.NoError(t, err)
	require.Len(t, vi.Sold, 1)
	require.Len(t, vi.Purchased, 1)
	assert.Equal(t, "INV2", vi.Sold[0].ID)
	assert.Equal(t, "INV1", vi.Purchased[0].ID)
}

func TestMemoryStore_InvoiceTrail(t *testing.T) {
	ctx := context.Background()
	s := seedStore(t)

	trail, ok, err := s.InvoiceTrail(ctx, "INV1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Alpha Traders", trail.SellerName)
	assert.Equal(t, "Beta Suppliers", trail.BuyerName)
	assert.Equal(t, 0, trail.SellerMissedFilings)
	assert.Equal(t, 2, trail.BuyerMissedFilings)
	assert.False(t, trail.GSTR1Filed)
	assert.True(t, trail.GSTR2BFiled)
}

func TestMemoryStore_InvoiceTrailUnknownParties(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.UpsertInvoice(ctx, inv("INVX", "X", "Y", 1000, true, true)))

	trail, ok, err := s.InvoiceTrail(ctx, "INVX")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Unknown", trail.SellerName)
	assert.Equal(t, "Unknown", trail.BuyerName)
}

func TestMemoryStore_GraphData(t *testing.T) {
	ctx := context.Background()
	s := seedStore(t)

	data, err := s.GraphData(ctx)
	require.NoError(t, err)
	assert.Len(t, data.Nodes, 6)
	assert.Len(t, data.Edges, 6) // two edges per invoice

	var suspicious int
	for _, node := range data.Nodes {
		switch node["type"] {
		case "vendor":
			assert.Contains(t, node, "name")
			assert.Contains(t, node, "missed_filings")
		case "invoice":
			assert.Contains(t, node, "is_suspicious")
			if node["is_suspicious"] == true {
				suspicious++
			}
		default:
			t.Fatalf("unexpected node type %v", node["type"])
		}
	}
	assert.Equal(t, 1, suspicious)
}

func TestMemoryStore_Clear(t *testing.T) {
	ctx := context.Background()
	s := seedStore(t)

	require.NoError(t, s.Clear(ctx))
	sum, err := s.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, Summary{}, sum)

	data, err := s.GraphData(ctx)
	require.NoError(t, err)
	assert.Empty(t, data.Nodes)
	assert.Empty(t, data.Edges)
}

func TestMemoryStore_DetectCircularTrading(t *testing.T) {
	ctx := context.Background()
	s := seedStore(t) // A→B→C→A

	cycles, err := s.DetectCircularTrading(ctx, 5)
	require.NoError(t, err)
	require.Len(t, cycles, 1)
	assert.ElementsMatch(t, []string{"A", "B", "C"}, cycles[0])
}

func TestMemoryStore_NoCycleWhenEdgeMissing(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.UpsertInvoice(ctx, inv("I1", "A", "B", 100, true, true)))
	require.NoError(t, s.UpsertInvoice(ctx, inv("I2", "B", "C", 100, true, true)))

	cycles, err := s.DetectCircularTrading(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, cycles)
}

func TestMemoryStore_SelfLoopSkipped(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.UpsertInvoice(ctx, inv("I1", "A", "A", 100, true, true)))

	cycles, err := s.DetectCircularTrading(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, cycles)
}
