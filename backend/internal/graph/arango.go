package graph

import (
	"context"

	apperrors "gst-graph/backend/pkg/errors"
)

// ArangoStore is a stub Store for ArangoDB, interface shape only. A real
// implementation would run AQL against a named graph.
type ArangoStore struct {
	url      string
	db       string
	user     string
	password string
}

// NewArangoStore creates the ArangoDB stub.
func NewArangoStore(url, db, user, password string) *ArangoStore {
	return &ArangoStore{url: url, db: db, user: user, password: password}
}

// Connect fails fast when no server URL is configured.
func (s *ArangoStore) Connect(ctx context.Context) error {
	if s.url == "" {
		return apperrors.NewBackendUnavailable("arango", nil)
	}
	return nil
}

func (s *ArangoStore) Close(ctx context.Context) error { return nil }

func (s *ArangoStore) Clear(ctx context.Context) error {
	return apperrors.NewUnsupportedOperation("arango", "Clear")
}

func (s *ArangoStore) CreateConstraints(ctx context.Context) error { return nil }

func (s *ArangoStore) UpsertVendor(ctx context.Context, gstin, name string, missedFilings int) error {
	return apperrors.NewUnsupportedOperation("arango", "UpsertVendor")
}

func (s *ArangoStore) UpsertInvoice(ctx context.Context, inv Invoice) error {
	return apperrors.NewUnsupportedOperation("arango", "UpsertInvoice")
}

func (s *ArangoStore) Vendor(ctx context.Context, gstin string) (Vendor, bool, error) {
	return Vendor{}, false, apperrors.NewUnsupportedOperation("arango", "Vendor")
}

func (s *ArangoStore) Invoice(ctx context.Context, id string) (Invoice, bool, error) {
	return Invoice{}, false, apperrors.NewUnsupportedOperation("arango", "Invoice")
}

func (s *ArangoStore) AllVendors(ctx context.Context) ([]Vendor, error) {
	return nil, apperrors.NewUnsupportedOperation("arango", "AllVendors")
}

func (s *ArangoStore) AllInvoices(ctx context.Context) ([]Invoice, error) {
	return nil, apperrors.NewUnsupportedOperation("arango", "AllInvoices")
}

func (s *ArangoStore) VendorInvoices(ctx context.Context, gstin string) (VendorInvoices, error) {
	return VendorInvoices{}, apperrors.NewUnsupportedOperation("arango", "VendorInvoices")
}

func (s *ArangoStore) MismatchedInvoices(ctx context.Context) ([]Invoice, error) {
	return nil, apperrors.NewUnsupportedOperation("arango", "MismatchedInvoices")
}

func (s *ArangoStore) DetectCircularTrading(ctx context.Context, maxDepth int) ([][]string, error) {
	return nil, apperrors.NewUnsupportedOperation("arango", "DetectCircularTrading")
}

func (s *ArangoStore) InvoiceTrail(ctx context.Context, id string) (Trail, bool, error) {
	return Trail{}, false, apperrors.NewUnsupportedOperation("arango", "InvoiceTrail")
}

func (s *ArangoStore) Summary(ctx context.Context) (Summary, error) {
	return Summary{}, apperrors.NewUnsupportedOperation("arango", "Summary")
}

func (s *ArangoStore) GraphData(ctx context.Context) (GraphData, error) {
	return GraphData{}, apperrors.NewUnsupportedOperation("arango", "GraphData")
}

var _ Store = (*ArangoStore)(nil)
