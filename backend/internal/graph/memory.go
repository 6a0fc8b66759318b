package graph

import (
	"context"
	"sort"
	"sync"

	"gst-graph/backend/pkg/logger"

	"go.uber.org/zap"
)

// MemoryStore is the reference Store implementation. It keeps the whole graph
// in process memory, guarded by a single RWMutex so ingestion can run while
// reads are in flight.
type MemoryStore struct {
	mu       sync.RWMutex
	vendors  map[string]*vendorRecord
	invoices map[string]*Invoice

	// Insertion order, so repeated reads present identical ordering.
	vendorOrder  []string
	invoiceOrder []string

	logger *zap.Logger
}

type vendorRecord struct {
	Name          string
	MissedFilings int
}

// NewMemoryStore creates an empty in-memory graph store.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{logger: logger.Named("memstore")}
	s.reset()
	return s
}

func (s *MemoryStore) reset() {
	s.vendors = make(map[string]*vendorRecord)
	s.invoices = make(map[string]*Invoice)
	s.vendorOrder = nil
	s.invoiceOrder = nil
}

// Connect is a no-op: the store is always available.
func (s *MemoryStore) Connect(ctx context.Context) error { return nil }

// Close is a no-op.
func (s *MemoryStore) Close(ctx context.Context) error { return nil }

// Clear wipes all vendors, invoices and relationships.
func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
	s.logger.Debug("graph cleared")
	return nil
}

// CreateConstraints is a no-op: uniqueness is inherent to the map keys.
func (s *MemoryStore) CreateConstraints(ctx context.Context) error { return nil }

// UpsertVendor creates or overwrites a vendor keyed by GSTIN.
func (s *MemoryStore) UpsertVendor(ctx context.Context, gstin, name string, missedFilings int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.vendors[gstin]; !ok {
		s.vendorOrder = append(s.vendorOrder, gstin)
	}
	s.vendors[gstin] = &vendorRecord{Name: name, MissedFilings: missedFilings}
	return nil
}

// UpsertInvoice creates or overwrites an invoice keyed by its ID. The SOLD and
// PURCHASED_BY relationships are derived from the invoice's own seller/buyer
// fields, so nothing beyond the node is stored.
func (s *MemoryStore) UpsertInvoice(ctx context.Context, inv Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.invoices[inv.ID]; !ok {
		s.invoiceOrder = append(s.invoiceOrder, inv.ID)
	}
	cp := inv
	s.invoices[inv.ID] = &cp
	return nil
}

// Vendor returns a vendor with its sold/purchased invoice counts, or false if
// the GSTIN is unknown.
func (s *MemoryStore) Vendor(ctx context.Context, gstin string) (Vendor, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vendorLocked(gstin)
	return v, ok, nil
}

// vendorLocked assembles a Vendor view. Callers hold at least a read lock.
func (s *MemoryStore) vendorLocked(gstin string) (Vendor, bool) {
	rec, ok := s.vendors[gstin]
	if !ok {
		return Vendor{}, false
	}
	v := Vendor{GSTIN: gstin, Name: rec.Name, MissedFilings: rec.MissedFilings}
	for _, id := range s.invoiceOrder {
		inv := s.invoices[id]
		if inv.SellerGSTIN == gstin {
			v.TotalOutgoing++
		}
		if inv.BuyerGSTIN == gstin {
			v.TotalIncoming++
		}
	}
	return v, true
}

// Invoice returns an invoice by ID, or false if absent.
func (s *MemoryStore) Invoice(ctx context.Context, id string) (Invoice, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.invoices[id]
	if !ok {
		return Invoice{}, false, nil
	}
	return *inv, true, nil
}

// AllVendors returns every vendor in insertion order.
func (s *MemoryStore) AllVendors(ctx context.Context) ([]Vendor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	vendors := make([]Vendor, 0, len(s.vendorOrder))
	for _, gstin := range s.vendorOrder {
		if v, ok := s.vendorLocked(gstin); ok {
			vendors = append(vendors, v)
		}
	}
	return vendors, nil
}

// AllInvoices returns every invoice in insertion order.
func (s *MemoryStore) AllInvoices(ctx context.Context) ([]Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	invoices := make([]Invoice, 0, len(s.invoiceOrder))
	for _, id := range s.invoiceOrder {
		invoices = append(invoices, *s.invoices[id])
	}
	return invoices, nil
}

// VendorInvoices returns the invoices a vendor sold and purchased, in
// insertion order.
func (s *MemoryStore) VendorInvoices(ctx context.Context, gstin string) (VendorInvoices, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	vi := VendorInvoices{Sold: []Invoice{}, Purchased: []Invoice{}}
	for _, id := range s.invoiceOrder {
		inv := s.invoices[id]
		if inv.SellerGSTIN == gstin {
			vi.Sold = append(vi.Sold, *inv)
		}
		if inv.BuyerGSTIN == gstin {
			vi.Purchased = append(vi.Purchased, *inv)
		}
	}
	return vi, nil
}

// MismatchedInvoices returns invoices whose reported/claimed flags disagree,
// ordered by tax descending. Ties keep insertion order, so repeated calls on
// unchanged data present identical results.
func (s *MemoryStore) MismatchedInvoices(ctx context.Context) ([]Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var mismatched []Invoice
	for _, id := range s.invoiceOrder {
		if inv := s.invoices[id]; inv.IsMismatched() {
			mismatched = append(mismatched, *inv)
		}
	}
	sort.SliceStable(mismatched, func(i, j int) bool {
		return mismatched[i].Tax.GreaterThan(mismatched[j].Tax)
	})
	return mismatched, nil
}

// DetectCircularTrading projects the bipartite vendor/invoice graph onto a
// vendor-only digraph (seller→buyer if any invoice links them, self-loops
// skipped) and enumerates its elementary cycles of length 2..maxDepth.
func (s *MemoryStore) DetectCircularTrading(ctx context.Context, maxDepth int) ([][]string, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxCycleDepth
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	adj := make(map[string]map[string]bool)
	for _, id := range s.invoiceOrder {
		inv := s.invoices[id]
		seller, buyer := inv.SellerGSTIN, inv.BuyerGSTIN
		if seller == "" || buyer == "" || seller == buyer {
			continue
		}
		if adj[seller] == nil {
			adj[seller] = make(map[string]bool)
		}
		adj[seller][buyer] = true
	}
	return elementaryCycles(adj, maxDepth, cycleResultCap), nil
}

// InvoiceTrail returns the invoice enriched with both parties' names and
// compliance counts, or false when the invoice is absent. Unknown parties
// (invoice ingested before its vendors) read as "Unknown" with zero filings.
func (s *MemoryStore) InvoiceTrail(ctx context.Context, id string) (Trail, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.invoices[id]
	if !ok {
		return Trail{}, false, nil
	}
	t := Trail{
		InvoiceID:        inv.ID,
		Amount:           inv.Amount,
		Tax:              inv.Tax,
		ReportedBySeller: inv.ReportedBySeller,
		ClaimedByBuyer:   inv.ClaimedByBuyer,
		SellerGSTIN:      inv.SellerGSTIN,
		SellerName:       "Unknown",
		BuyerGSTIN:       inv.BuyerGSTIN,
		BuyerName:        "Unknown",
		GSTR1Filed:       inv.ReportedBySeller,
		GSTR2BFiled:      inv.ClaimedByBuyer,
	}
	if seller, ok := s.vendors[inv.SellerGSTIN]; ok {
		t.SellerName = seller.Name
		t.SellerMissedFilings = seller.MissedFilings
	}
	if buyer, ok := s.vendors[inv.BuyerGSTIN]; ok {
		t.BuyerName = buyer.Name
		t.BuyerMissedFilings = buyer.MissedFilings
	}
	return t, true, nil
}

// Summary returns dashboard counts over the whole graph.
func (s *MemoryStore) Summary(ctx context.Context) (Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sum := Summary{
		VendorCount:  len(s.vendors),
		InvoiceCount: len(s.invoices),
	}
	for _, inv := range s.invoices {
		if inv.IsMismatched() {
			sum.MismatchCount++
		}
		if inv.IsSuspicious() {
			sum.SuspiciousCount++
		}
	}
	return sum, nil
}

// GraphData exports nodes and edges for visualization. Edges follow the
// seller→invoice→buyer direction of the underlying relationships.
func (s *MemoryStore) GraphData(ctx context.Context) (GraphData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data := GraphData{Nodes: []map[string]any{}, Edges: []Edge{}}
	for _, gstin := range s.vendorOrder {
		rec := s.vendors[gstin]
		data.Nodes = append(data.Nodes, VendorNode(Vendor{
			GSTIN:         gstin,
			Name:          rec.Name,
			MissedFilings: rec.MissedFilings,
		}))
	}
	for _, id := range s.invoiceOrder {
		inv := s.invoices[id]
		data.Nodes = append(data.Nodes, InvoiceNode(*inv))
		data.Edges = append(data.Edges,
			Edge{Source: inv.SellerGSTIN, Target: inv.ID},
			Edge{Source: inv.ID, Target: inv.BuyerGSTIN},
		)
	}
	return data, nil
}

var _ Store = (*MemoryStore)(nil)
