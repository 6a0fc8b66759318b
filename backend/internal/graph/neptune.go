package graph

import (
	"context"

	apperrors "gst-graph/backend/pkg/errors"
)

// NeptuneStore is a stub Store for Amazon Neptune. It exposes the interface
// shape only: every data operation reports UnsupportedOperation so callers
// can tell a capability gap from "no data". A real implementation would speak
// Gremlin over Neptune's websocket endpoint.
type NeptuneStore struct {
	endpoint string
}

// NewNeptuneStore creates the Neptune stub.
func NewNeptuneStore(endpoint string) *NeptuneStore {
	return &NeptuneStore{endpoint: endpoint}
}

// Connect fails fast when no cluster endpoint is configured.
func (s *NeptuneStore) Connect(ctx context.Context) error {
	if s.endpoint == "" {
		return apperrors.NewBackendUnavailable("neptune", nil)
	}
	return nil
}

func (s *NeptuneStore) Close(ctx context.Context) error { return nil }

func (s *NeptuneStore) Clear(ctx context.Context) error {
	return apperrors.NewUnsupportedOperation("neptune", "Clear")
}

// CreateConstraints is a no-op: Neptune has no schema constraints.
func (s *NeptuneStore) CreateConstraints(ctx context.Context) error { return nil }

func (s *NeptuneStore) UpsertVendor(ctx context.Context, gstin, name string, missedFilings int) error {
	return apperrors.NewUnsupportedOperation("neptune", "UpsertVendor")
}

func (s *NeptuneStore) UpsertInvoice(ctx context.Context, inv Invoice) error {
	return apperrors.NewUnsupportedOperation("neptune", "UpsertInvoice")
}

func (s *NeptuneStore) Vendor(ctx context.Context, gstin string) (Vendor, bool, error) {
	return Vendor{}, false, apperrors.NewUnsupportedOperation("neptune", "Vendor")
}

func (s *NeptuneStore) Invoice(ctx context.Context, id string) (Invoice, bool, error) {
	return Invoice{}, false, apperrors.NewUnsupportedOperation("neptune", "Invoice")
}

func (s *NeptuneStore) AllVendors(ctx context.Context) ([]Vendor, error) {
	return nil, apperrors.NewUnsupportedOperation("neptune", "AllVendors")
}

func (s *NeptuneStore) AllInvoices(ctx context.Context) ([]Invoice, error) {
	return nil, apperrors.NewUnsupportedOperation("neptune", "AllInvoices")
}

func (s *NeptuneStore) VendorInvoices(ctx context.Context, gstin string) (VendorInvoices, error) {
	return VendorInvoices{}, apperrors.NewUnsupportedOperation("neptune", "VendorInvoices")
}

func (s *NeptuneStore) MismatchedInvoices(ctx context.Context) ([]Invoice, error) {
	return nil, apperrors.NewUnsupportedOperation("neptune", "MismatchedInvoices")
}

func (s *NeptuneStore) DetectCircularTrading(ctx context.Context, maxDepth int) ([][]string, error) {
	return nil, apperrors.NewUnsupportedOperation("neptune", "DetectCircularTrading")
}

func (s *NeptuneStore) InvoiceTrail(ctx context.Context, id string) (Trail, bool, error) {
	return Trail{}, false, apperrors.NewUnsupportedOperation("neptune", "InvoiceTrail")
}

func (s *NeptuneStore) Summary(ctx context.Context) (Summary, error) {
	return Summary{}, apperrors.NewUnsupportedOperation("neptune", "Summary")
}

func (s *NeptuneStore) GraphData(ctx context.Context) (GraphData, error) {
	return GraphData{}, apperrors.NewUnsupportedOperation("neptune", "GraphData")
}

var _ Store = (*NeptuneStore)(nil)
