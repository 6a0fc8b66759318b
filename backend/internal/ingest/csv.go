// Package ingest loads vendors.csv and invoices.csv into a graph store.
// Rows with missing or invalid fields are a hard failure, never silently
// skipped.
package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"gst-graph/backend/internal/graph"
	apperrors "gst-graph/backend/pkg/errors"
	"gst-graph/backend/pkg/logger"
)

// VendorsFile and InvoicesFile are the expected CSV names inside a data dir.
const (
	VendorsFile  = "vendors.csv"
	InvoicesFile = "invoices.csv"
)

// LoadDir loads vendors.csv then invoices.csv from dir into the store,
// returning how many rows of each were applied. A missing file is not an
// error; the count is simply zero.
func LoadDir(ctx context.Context, dir string, store graph.Store) (int, int, error) {
	log := logger.Named("ingest")

	vendors, err := loadFile(ctx, filepath.Join(dir, VendorsFile), store, applyVendorRow)
	if err != nil {
		return 0, 0, err
	}
	invoices, err := loadFile(ctx, filepath.Join(dir, InvoicesFile), store, applyInvoiceRow)
	if err != nil {
		return vendors, 0, err
	}

	log.Info("CSV data loaded",
		zap.String("dir", dir),
		zap.Int("vendors", vendors),
		zap.Int("invoices", invoices),
	)
	return vendors, invoices, nil
}

// row is a header-keyed CSV record with whitespace already trimmed.
type row map[string]string

func loadFile(ctx context.Context, path string, store graph.Store, apply func(context.Context, graph.Store, row) error) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return 0, nil
		}
		return 0, apperrors.NewMalformedRow(path, 1, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	count := 0
	line := 1
	for {
		record, err := reader.Read()
		line++
		if err == io.EOF {
			break
		}
		if err != nil {
			return count, apperrors.NewMalformedRow(path, line, err)
		}
		r := make(row, len(header))
		for i, col := range header {
			if i < len(record) {
				r[col] = strings.TrimSpace(record[i])
			}
		}
		if err := apply(ctx, store, r); err != nil {
			return count, apperrors.NewMalformedRow(path, line, err)
		}
		count++
	}
	return count, nil
}

func applyVendorRow(ctx context.Context, store graph.Store, r row) error {
	gstin := r["gstin"]
	name := r["name"]
	if gstin == "" || name == "" {
		return fmt.Errorf("gstin and name are required")
	}
	missed, err := strconv.Atoi(r["missed_filings"])
	if err != nil {
		return fmt.Errorf("invalid missed_filings %q: %w", r["missed_filings"], err)
	}
	if missed < 0 {
		return fmt.Errorf("missed_filings must be non-negative (got %d)", missed)
	}
	return store.UpsertVendor(ctx, gstin, name, missed)
}

func applyInvoiceRow(ctx context.Context, store graph.Store, r row) error {
	id := r["invoice_id"]
	seller := r["seller_gstin"]
	buyer := r["buyer_gstin"]
	if id == "" || seller == "" || buyer == "" {
		return fmt.Errorf("invoice_id, seller_gstin and buyer_gstin are required")
	}
	amount, err := parseAmount(r["amount"])
	if err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}
	tax, err := parseAmount(r["tax"])
	if err != nil {
		return fmt.Errorf("invalid tax: %w", err)
	}
	return store.UpsertInvoice(ctx, graph.Invoice{
		ID:               id,
		SellerGSTIN:      seller,
		BuyerGSTIN:       buyer,
		Amount:           amount,
		Tax:              tax,
		ReportedBySeller: parseBool(r["reported_by_seller"]),
		ClaimedByBuyer:   parseBool(r["claimed_by_buyer"]),
	})
}

func parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, fmt.Errorf("value is required")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("must be non-negative (got %s)", s)
	}
	return d, nil
}

// parseBool matches the tabular source convention: case-insensitive "true" is
// true, anything else is false.
func parseBool(s string) bool {
	return strings.EqualFold(s, "true")
}
