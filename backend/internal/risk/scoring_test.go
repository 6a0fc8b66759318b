package risk

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gst-graph/backend/internal/graph"
)

func newTestEngine(t *testing.T) (*Engine, *graph.MemoryStore) {
	t.Helper()
	store := graph.NewMemoryStore()
	return NewEngine(store), store
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

func TestLevelFor(t *testing.T) {
	assert.Equal(t, LevelLow, LevelFor(0))
	assert.Equal(t, LevelLow, LevelFor(24))
	assert.Equal(t, LevelMedium, LevelFor(25))
	assert.Equal(t, LevelMedium, LevelFor(49))
	assert.Equal(t, LevelHigh, LevelFor(50))
	assert.Equal(t, LevelHigh, LevelFor(69))
	assert.Equal(t, LevelCritical, LevelFor(70))
	assert.Equal(t, LevelCritical, LevelFor(100))
}

// TestScoreInvoice_FraudScenario pins the composite: 35 (claimed-not-reported)
// + 20 (tax >= 100000) + 16 (2 missed filings x 8) + 20 (circular) = 91.
func TestScoreInvoice_FraudScenario(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t)
	require.NoError(t, store.UpsertVendor(ctx, "S", "Seller Co", 2))

	a, err := engine.ScoreInvoice(ctx,
		mkInvoice("INV1", "S", "B", 120_000, false, true),
		map[string]bool{"S": true},
	)
	require.NoError(t, err)
	assert.Equal(t, 91, a.Score)
	assert.Equal(t, LevelCritical, a.Level)
	assert.Len(t, a.Reasons, 4)
}

func TestScoreInvoice_MatchedLowTax(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t)
	require.NoError(t, store.UpsertVendor(ctx, "S", "Seller Co", 0))

	a, err := engine.ScoreInvoice(ctx, mkInvoice("INV1", "S", "B", 1_000, true, true), nil)
	require.NoError(t, err)
	assert.Equal(t, 5, a.Score) // tax floor only
	assert.Equal(t, LevelLow, a.Level)
}

// TestScoreInvoice_ZeroTaxStillScoresFloor pins the current tax-tier behavior:
// the final tier is an inclusive >= 0 bound, so a zero-tax invoice still
// accrues +5.
func TestScoreInvoice_ZeroTaxStillScoresFloor(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)

	a, err := engine.ScoreInvoice(ctx, mkInvoice("INV1", "S", "B", 0, true, true), nil)
	require.NoError(t, err)
	assert.Equal(t, 5, a.Score)
}

func TestScoreInvoice_TaxTiers(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)

	cases := []struct {
		tax  int64
		want int
	}{
		{0, 5}, {19_999, 5}, {20_000, 10}, {49_999, 10},
		{50_000, 15}, {99_999, 15}, {100_000, 20}, {5_000_000, 20},
	}
	for _, tc := range cases {
		// Matched invoice so the tax tier is the only contribution.
		a, err := engine.ScoreInvoice(ctx, mkInvoice("INV1", "S", "B", tc.tax, true, true), nil)
		require.NoError(t, err)
		assert.Equal(t, tc.want, a.Score, "tax %d", tc.tax)
	}
}

func TestScoreInvoice_UnknownSellerIgnored(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)

	a, err := engine.ScoreInvoice(ctx, mkInvoice("INV1", "GHOST", "B", 120_000, false, true), nil)
	require.NoError(t, err)
	assert.Equal(t, 55, a.Score) // 35 + 20, no filing history available
}

func TestScoreInvoice_ClampedAt100(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t)
	require.NoError(t, store.UpsertVendor(ctx, "S", "Seller Co", 10))

	a, err := engine.ScoreInvoice(ctx,
		mkInvoice("INV1", "S", "B", 200_000, false, true),
		map[string]bool{"S": true},
	)
	require.NoError(t, err)
	assert.Equal(t, 100, a.Score) // 35+20+80+20 clamped
	assert.Equal(t, LevelCritical, a.Level)
}

func TestScoreVendor_AbsentVendorZeroDefault(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)

	a, err := engine.ScoreVendor(ctx, "UNKNOWN", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, a.Score)
	assert.Equal(t, LevelLow, a.Level)
	assert.Equal(t, 100, a.ComplianceScore)
	assert.Empty(t, a.Reasons)
}

func TestScoreVendor_CompliantVendorScoresZero(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t)
	require.NoError(t, store.UpsertVendor(ctx, "V", "Clean Co", 0))
	require.NoError(t, store.UpsertVendor(ctx, "S", "Supplier", 0))
	require.NoError(t, store.UpsertInvoice(ctx, mkInvoice("INV1", "S", "V", 10_000, true, true)))

	a, err := engine.ScoreVendor(ctx, "V", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, a.Score)
	assert.Equal(t, LevelLow, a.Level)
	assert.Equal(t, 100, a.ComplianceScore)
}

func TestScoreVendor_SuspiciousIncomingCapped(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t)
	require.NoError(t, store.UpsertVendor(ctx, "V", "Buyer Co", 0))
	require.NoError(t, store.UpsertVendor(ctx, "S", "Supplier", 0))
	for _, id := range []string{"I1", "I2", "I3"} {
		require.NoError(t, store.UpsertInvoice(ctx, mkInvoice(id, "S", "V", 10_000, false, true)))
	}

	a, err := engine.ScoreVendor(ctx, "V", nil)
	require.NoError(t, err)
	// 3 suspicious x 25 capped at 50.
	assert.Equal(t, 50, a.Score)
	assert.Equal(t, 3, a.SuspiciousInvoiceCount)
	assert.Equal(t, 50, a.ComplianceScore)
}

func TestScoreVendor_HighRiskNeighbours(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t)
	require.NoError(t, store.UpsertVendor(ctx, "V", "Center Co", 0))
	require.NoError(t, store.UpsertVendor(ctx, "N1", "Risky One", 2))
	require.NoError(t, store.UpsertVendor(ctx, "N2", "Risky Two", 3))
	require.NoError(t, store.UpsertVendor(ctx, "N3", "Fine Co", 1))
	require.NoError(t, store.UpsertInvoice(ctx, mkInvoice("I1", "N1", "V", 1_000, true, true)))
	require.NoError(t, store.UpsertInvoice(ctx, mkInvoice("I2", "V", "N2", 1_000, true, true)))
	require.NoError(t, store.UpsertInvoice(ctx, mkInvoice("I3", "V", "N3", 1_000, true, true)))

	a, err := engine.ScoreVendor(ctx, "V", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, a.HighRiskNeighbours)
	assert.Equal(t, 10, a.Score)
}

func TestScoreVendor_CircularBonus(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t)
	require.NoError(t, store.UpsertVendor(ctx, "V", "Loop Co", 0))

	a, err := engine.ScoreVendor(ctx, "V", map[string]bool{"V": true})
	require.NoError(t, err)
	assert.Equal(t, 20, a.Score)
	assert.True(t, a.PossibleCircularTrading)
}

// Increasing missed_filings never decreases the vendor's score.
func TestScoreVendor_MissedFilingsMonotonic(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t)

	prev := -1
	for missed := 0; missed <= 15; missed++ {
		require.NoError(t, store.UpsertVendor(ctx, "V", "Mono Co", missed))
		a, err := engine.ScoreVendor(ctx, "V", nil)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, a.Score, prev)
		assert.GreaterOrEqual(t, a.Score, 0)
		assert.LessOrEqual(t, a.Score, 100)
		assert.Equal(t, 100-a.Score, a.ComplianceScore)
		prev = a.Score
	}
}

func TestRupees(t *testing.T) {
	assert.Equal(t, "0", Rupees(decimal.Zero))
	assert.Equal(t, "999", Rupees(decimal.NewFromInt(999)))
	assert.Equal(t, "1,000", Rupees(decimal.NewFromInt(1000)))
	assert.Equal(t, "120,000", Rupees(decimal.NewFromInt(120000)))
	assert.Equal(t, "1,234,568", Rupees(decimal.NewFromFloat(1234567.89)))
	assert.Equal(t, "-4,500", Rupees(decimal.NewFromInt(-4500)))
}
