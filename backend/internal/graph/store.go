package graph

import "context"

// DefaultMaxCycleDepth bounds circular-trading chain length unless the caller
// asks otherwise.
const DefaultMaxCycleDepth = 5

// Store is the contract every graph backend must satisfy. The reconciliation
// and risk engines only ever see this interface, so no core logic depends on
// backend identity.
//
// Read accessors signal absence with a false second return, never an error:
// errors are reserved for backend failures. Upserts are idempotent
// create-or-update and never fail on "not found".
type Store interface {
	// Lifecycle. Connect must return an error wrapping
	// errors.ErrBackendUnavailable when the backend cannot be reached.
	Connect(ctx context.Context) error
	Close(ctx context.Context) error

	// Clear atomically removes all vendors, invoices and relationships.
	Clear(ctx context.Context) error

	// CreateConstraints is best-effort uniqueness/index setup. It is
	// idempotent; "already exists" races are swallowed.
	CreateConstraints(ctx context.Context) error

	// UpsertVendor creates or updates a vendor keyed by GSTIN.
	UpsertVendor(ctx context.Context, gstin, name string, missedFilings int) error

	// UpsertInvoice creates or updates an invoice keyed by its ID and
	// materializes the SOLD / PURCHASED_BY relationships. Filing-event
	// annotations are recorded for true reported/claimed flags.
	UpsertInvoice(ctx context.Context, inv Invoice) error

	Vendor(ctx context.Context, gstin string) (Vendor, bool, error)
	Invoice(ctx context.Context, id string) (Invoice, bool, error)
	AllVendors(ctx context.Context) ([]Vendor, error)
	AllInvoices(ctx context.Context) ([]Invoice, error)

	// VendorInvoices returns the invoices a vendor sold and purchased.
	VendorInvoices(ctx context.Context, gstin string) (VendorInvoices, error)

	// MismatchedInvoices returns invoices whose reported/claimed flags
	// disagree, ordered by tax descending with a stable tie order.
	MismatchedInvoices(ctx context.Context) ([]Invoice, error)

	// DetectCircularTrading returns closed vendor trading chains of length
	// 2..maxDepth as ordered GSTIN sequences. Results are deterministic for
	// a given graph state and contain no rotation duplicates.
	DetectCircularTrading(ctx context.Context, maxDepth int) ([][]string, error)

	// InvoiceTrail returns the enriched invoice for audit-trail assembly,
	// or false when the invoice is absent.
	InvoiceTrail(ctx context.Context, id string) (Trail, bool, error)

	Summary(ctx context.Context) (Summary, error)
	GraphData(ctx context.Context) (GraphData, error)
}
