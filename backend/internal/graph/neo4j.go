package graph

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	apperrors "gst-graph/backend/pkg/errors"
	"gst-graph/backend/pkg/logger"
)

// Neo4jStore is the production Store backed by a Neo4j database. All graph
// state lives in Neo4j; every operation opens its own session.
type Neo4jStore struct {
	uri      string
	user     string
	password string
	driver   neo4j.DriverWithContext
	logger   *zap.Logger
}

// NewNeo4jStore creates a Neo4j-backed store. Connect must be called before
// any other operation.
func NewNeo4jStore(uri, user, password string) *Neo4jStore {
	return &Neo4jStore{
		uri:      uri,
		user:     user,
		password: password,
		logger:   logger.Named("neo4j"),
	}
}

// Connect creates the driver and verifies connectivity.
func (s *Neo4jStore) Connect(ctx context.Context) error {
	driver, err := neo4j.NewDriverWithContext(s.uri, neo4j.BasicAuth(s.user, s.password, ""))
	if err != nil {
		return apperrors.NewBackendUnavailable("neo4j", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return apperrors.NewBackendUnavailable("neo4j", err)
	}
	s.driver = driver
	s.logger.Info("Connected to Neo4j", zap.String("uri", s.uri))
	return nil
}

// Close closes the Neo4j driver connection.
func (s *Neo4jStore) Close(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}
	return s.driver.Close(ctx)
}

// run executes a query in its own session and returns all records.
func (s *Neo4jStore) run(ctx context.Context, mode neo4j.AccessMode, query string, params map[string]any) ([]*neo4j.Record, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode})
	defer session.Close(ctx)

	result, err := session.Run(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	return result.Collect(ctx)
}

func (s *Neo4jStore) read(ctx context.Context, query string, params map[string]any) ([]*neo4j.Record, error) {
	return s.run(ctx, neo4j.AccessModeRead, query, params)
}

func (s *Neo4jStore) write(ctx context.Context, query string, params map[string]any) error {
	_, err := s.run(ctx, neo4j.AccessModeWrite, query, params)
	return err
}

// Clear deletes every node and relationship.
func (s *Neo4jStore) Clear(ctx context.Context) error {
	return s.write(ctx, "MATCH (n) DETACH DELETE n", nil)
}

// CreateConstraints sets up uniqueness constraints and indexes. Failures are
// swallowed: a constraint that already exists must not fail the caller.
func (s *Neo4jStore) CreateConstraints(ctx context.Context) error {
	statements := []string{
		"CREATE CONSTRAINT vendor_gstin IF NOT EXISTS FOR (v:Vendor) REQUIRE v.gstin IS UNIQUE",
		"CREATE CONSTRAINT invoice_id IF NOT EXISTS FOR (i:Invoice) REQUIRE i.invoice_id IS UNIQUE",
		"CREATE INDEX vendor_name_idx IF NOT EXISTS FOR (v:Vendor) ON (v.name)",
		"CREATE INDEX invoice_seller_idx IF NOT EXISTS FOR (i:Invoice) ON (i.seller_gstin)",
		"CREATE INDEX invoice_buyer_idx IF NOT EXISTS FOR (i:Invoice) ON (i.buyer_gstin)",
	}
	for _, stmt := range statements {
		if err := s.write(ctx, stmt, nil); err != nil {
			s.logger.Debug("constraint statement skipped", zap.Error(err))
		}
	}
	return nil
}

// UpsertVendor creates or updates a Vendor node.
func (s *Neo4jStore) UpsertVendor(ctx context.Context, gstin, name string, missedFilings int) error {
	return s.write(ctx, `
		MERGE (v:Vendor {gstin: $gstin})
		SET v.name = $name,
		    v.missed_filings = $missed_filings
	`, map[string]any{
		"gstin":          gstin,
		"name":           name,
		"missed_filings": missedFilings,
	})
}

// UpsertInvoice creates or updates an Invoice node, its SOLD / PURCHASED_BY
// relationships, and Return nodes for filings that actually happened.
func (s *Neo4jStore) UpsertInvoice(ctx context.Context, inv Invoice) error {
	return s.write(ctx, `
		MERGE (seller:Vendor {gstin: $seller_gstin})
		MERGE (buyer:Vendor {gstin: $buyer_gstin})
		MERGE (inv:Invoice {invoice_id: $invoice_id})
		SET inv.seller_gstin = $seller_gstin,
		    inv.buyer_gstin = $buyer_gstin,
		    inv.amount = $amount,
		    inv.tax = $tax,
		    inv.reported_by_seller = $reported_by_seller,
		    inv.claimed_by_buyer = $claimed_by_buyer
		MERGE (seller)-[:SOLD]->(inv)
		MERGE (inv)-[:PURCHASED_BY]->(buyer)
		WITH inv, seller, buyer
		FOREACH (_ IN CASE WHEN $reported_by_seller THEN [1] ELSE [] END |
			MERGE (gstr1:Return {id: $invoice_id + '_GSTR1', type: 'GSTR-1'})
			MERGE (seller)-[:FILED]->(gstr1)
			MERGE (gstr1)-[:REPORTS]->(inv)
		)
		FOREACH (_ IN CASE WHEN $claimed_by_buyer THEN [1] ELSE [] END |
			MERGE (gstr2b:Return {id: $invoice_id + '_GSTR2B', type: 'GSTR-2B'})
			MERGE (buyer)-[:FILED]->(gstr2b)
			MERGE (gstr2b)-[:CLAIMS]->(inv)
		)
	`, map[string]any{
		"invoice_id":         inv.ID,
		"seller_gstin":       inv.SellerGSTIN,
		"buyer_gstin":        inv.BuyerGSTIN,
		"amount":             inv.Amount.InexactFloat64(),
		"tax":                inv.Tax.InexactFloat64(),
		"reported_by_seller": inv.ReportedBySeller,
		"claimed_by_buyer":   inv.ClaimedByBuyer,
	})
}

const vendorReturnClause = `
	RETURN v.gstin AS gstin,
	       v.name AS name,
	       v.missed_filings AS missed_filings,
	       count(DISTINCT sold) AS total_outgoing,
	       count(DISTINCT purchased) AS total_incoming
`

// Vendor returns a vendor with its invoice counts, or false if absent.
func (s *Neo4jStore) Vendor(ctx context.Context, gstin string) (Vendor, bool, error) {
	records, err := s.read(ctx, `
		MATCH (v:Vendor {gstin: $gstin})
		OPTIONAL MATCH (v)-[:SOLD]->(sold:Invoice)
		OPTIONAL MATCH (purchased:Invoice)-[:PURCHASED_BY]->(v)
	`+vendorReturnClause, map[string]any{"gstin": gstin})
	if err != nil {
		return Vendor{}, false, err
	}
	if len(records) == 0 {
		return Vendor{}, false, nil
	}
	return vendorFromRecord(records[0]), true, nil
}

// AllVendors returns every vendor with invoice counts.
func (s *Neo4jStore) AllVendors(ctx context.Context) ([]Vendor, error) {
	records, err := s.read(ctx, `
		MATCH (v:Vendor)
		OPTIONAL MATCH (v)-[:SOLD]->(sold:Invoice)
		OPTIONAL MATCH (purchased:Invoice)-[:PURCHASED_BY]->(v)
	`+vendorReturnClause+" ORDER BY gstin", nil)
	if err != nil {
		return nil, err
	}
	vendors := make([]Vendor, 0, len(records))
	for _, record := range records {
		vendors = append(vendors, vendorFromRecord(record))
	}
	return vendors, nil
}

const invoiceReturnClause = `
	RETURN inv.invoice_id AS invoice_id,
	       inv.seller_gstin AS seller_gstin,
	       inv.buyer_gstin AS buyer_gstin,
	       inv.amount AS amount,
	       inv.tax AS tax,
	       inv.reported_by_seller AS reported_by_seller,
	       inv.claimed_by_buyer AS claimed_by_buyer
`

// Invoice returns an invoice by ID, or false if absent.
func (s *Neo4jStore) Invoice(ctx context.Context, id string) (Invoice, bool, error) {
	records, err := s.read(ctx,
		"MATCH (inv:Invoice {invoice_id: $invoice_id})"+invoiceReturnClause,
		map[string]any{"invoice_id": id})
	if err != nil {
		return Invoice{}, false, err
	}
	if len(records) == 0 {
		return Invoice{}, false, nil
	}
	return invoiceFromRecord(records[0]), true, nil
}

// AllInvoices returns every invoice.
func (s *Neo4jStore) AllInvoices(ctx context.Context) ([]Invoice, error) {
	records, err := s.read(ctx,
		"MATCH (inv:Invoice)"+invoiceReturnClause+" ORDER BY invoice_id", nil)
	if err != nil {
		return nil, err
	}
	return invoicesFromRecords(records), nil
}

// VendorInvoices returns the invoices a vendor sold and purchased.
func (s *Neo4jStore) VendorInvoices(ctx context.Context, gstin string) (VendorInvoices, error) {
	sold, err := s.read(ctx,
		"MATCH (v:Vendor {gstin: $gstin})-[:SOLD]->(inv:Invoice)"+invoiceReturnClause+" ORDER BY invoice_id",
		map[string]any{"gstin": gstin})
	if err != nil {
		return VendorInvoices{}, err
	}
	purchased, err := s.read(ctx,
		"MATCH (inv:Invoice)-[:PURCHASED_BY]->(v:Vendor {gstin: $gstin})"+invoiceReturnClause+" ORDER BY invoice_id",
		map[string]any{"gstin": gstin})
	if err != nil {
		return VendorInvoices{}, err
	}
	return VendorInvoices{
		Sold:      invoicesFromRecords(sold),
		Purchased: invoicesFromRecords(purchased),
	}, nil
}

// MismatchedInvoices returns invoices whose flags disagree, by tax descending.
// Invoice ID breaks ties so repeated calls present identical ordering.
func (s *Neo4jStore) MismatchedInvoices(ctx context.Context) ([]Invoice, error) {
	records, err := s.read(ctx, `
		MATCH (inv:Invoice)
		WHERE inv.reported_by_seller <> inv.claimed_by_buyer
	`+invoiceReturnClause+" ORDER BY inv.tax DESC, invoice_id", nil)
	if err != nil {
		return nil, err
	}
	return invoicesFromRecords(records), nil
}

// DetectCircularTrading finds closed vendor chains with variable-length path
// matching, then canonicalizes rotations on the client so results match the
// in-memory engine's contract.
func (s *Neo4jStore) DetectCircularTrading(ctx context.Context, maxDepth int) ([][]string, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxCycleDepth
	}
	query := fmt.Sprintf(`
		MATCH (v:Vendor)-[:SOLD]->(:Invoice)-[:PURCHASED_BY]->(v2:Vendor)
		WHERE v <> v2
		WITH v, v2
		MATCH circular = (v2)-[:SOLD|PURCHASED_BY*1..%d]->(v)
		RETURN DISTINCT [n IN nodes(circular) WHERE n:Vendor | n.gstin] AS chain
		LIMIT %d
	`, (maxDepth-1)*2, cycleResultCap*4)
	records, err := s.read(ctx, query, nil)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var cycles [][]string
	for _, record := range records {
		chain := stringSliceFromRecord(record, "chain")
		if len(chain) < 2 || len(chain) > maxDepth {
			continue
		}
		canonical := canonicalRotation(chain)
		key := strings.Join(canonical, "\x00")
		if seen[key] {
			continue
		}
		seen[key] = true
		cycles = append(cycles, canonical)
		if len(cycles) >= cycleResultCap {
			break
		}
	}
	sort.Slice(cycles, func(i, j int) bool {
		return strings.Join(cycles[i], "\x00") < strings.Join(cycles[j], "\x00")
	})
	return cycles, nil
}

// canonicalRotation rotates a cycle so it starts at its smallest GSTIN,
// making rotation-equivalent chains comparable.
func canonicalRotation(cycle []string) []string {
	min := 0
	for i, g := range cycle {
		if g < cycle[min] {
			min = i
		}
	}
	out := make([]string, 0, len(cycle))
	out = append(out, cycle[min:]...)
	out = append(out, cycle[:min]...)
	return out
}

// InvoiceTrail returns the enriched invoice, or false if absent.
func (s *Neo4jStore) InvoiceTrail(ctx context.Context, id string) (Trail, bool, error) {
	records, err := s.read(ctx, `
		MATCH (inv:Invoice {invoice_id: $invoice_id})
		OPTIONAL MATCH (seller:Vendor)-[:SOLD]->(inv)
		OPTIONAL MATCH (inv)-[:PURCHASED_BY]->(buyer:Vendor)
		OPTIONAL MATCH (gstr1:Return {type: 'GSTR-1'})-[:REPORTS]->(inv)
		OPTIONAL MATCH (gstr2b:Return {type: 'GSTR-2B'})-[:CLAIMS]->(inv)
		RETURN inv.invoice_id AS invoice_id,
		       inv.amount AS amount,
		       inv.tax AS tax,
		       inv.reported_by_seller AS reported_by_seller,
		       inv.claimed_by_buyer AS claimed_by_buyer,
		       seller.gstin AS seller_gstin,
		       seller.name AS seller_name,
		       seller.missed_filings AS seller_missed_filings,
		       buyer.gstin AS buyer_gstin,
		       buyer.name AS buyer_name,
		       buyer.missed_filings AS buyer_missed_filings,
		       gstr1 IS NOT NULL AS gstr1_filed,
		       gstr2b IS NOT NULL AS gstr2b_filed
	`, map[string]any{"invoice_id": id})
	if err != nil {
		return Trail{}, false, err
	}
	if len(records) == 0 {
		return Trail{}, false, nil
	}
	record := records[0]
	return Trail{
		InvoiceID:           stringFromRecord(record, "invoice_id"),
		Amount:              decimalFromRecord(record, "amount"),
		Tax:                 decimalFromRecord(record, "tax"),
		ReportedBySeller:    boolFromRecord(record, "reported_by_seller"),
		ClaimedByBuyer:      boolFromRecord(record, "claimed_by_buyer"),
		SellerGSTIN:         stringFromRecord(record, "seller_gstin"),
		SellerName:          stringFromRecordDefault(record, "seller_name", "Unknown"),
		SellerMissedFilings: intFromRecord(record, "seller_missed_filings"),
		BuyerGSTIN:          stringFromRecord(record, "buyer_gstin"),
		BuyerName:           stringFromRecordDefault(record, "buyer_name", "Unknown"),
		BuyerMissedFilings:  intFromRecord(record, "buyer_missed_filings"),
		GSTR1Filed:          boolFromRecord(record, "gstr1_filed"),
		GSTR2BFiled:         boolFromRecord(record, "gstr2b_filed"),
	}, true, nil
}

// Summary returns dashboard counts in a single round trip.
func (s *Neo4jStore) Summary(ctx context.Context) (Summary, error) {
	records, err := s.read(ctx, `
		OPTIONAL MATCH (v:Vendor) WITH count(v) AS vendor_count
		OPTIONAL MATCH (i:Invoice) WITH vendor_count, count(i) AS invoice_count
		OPTIONAL MATCH (i2:Invoice) WHERE i2.reported_by_seller <> i2.claimed_by_buyer
		WITH vendor_count, invoice_count, count(i2) AS mismatch_count
		OPTIONAL MATCH (i3:Invoice) WHERE i3.claimed_by_buyer = true AND i3.reported_by_seller = false
		RETURN vendor_count, invoice_count, mismatch_count, count(i3) AS suspicious_count
	`, nil)
	if err != nil {
		return Summary{}, err
	}
	if len(records) == 0 {
		return Summary{}, nil
	}
	record := records[0]
	return Summary{
		VendorCount:     intFromRecord(record, "vendor_count"),
		InvoiceCount:    intFromRecord(record, "invoice_count"),
		MismatchCount:   intFromRecord(record, "mismatch_count"),
		SuspiciousCount: intFromRecord(record, "suspicious_count"),
	}, nil
}

// GraphData exports visualization nodes and edges.
func (s *Neo4jStore) GraphData(ctx context.Context) (GraphData, error) {
	data := GraphData{Nodes: []map[string]any{}, Edges: []Edge{}}

	vendorRecords, err := s.read(ctx, `
		MATCH (v:Vendor)
		RETURN v.gstin AS gstin, v.name AS name, v.missed_filings AS missed_filings
		ORDER BY gstin
	`, nil)
	if err != nil {
		return GraphData{}, err
	}
	for _, record := range vendorRecords {
		data.Nodes = append(data.Nodes, VendorNode(Vendor{
			GSTIN:         stringFromRecord(record, "gstin"),
			Name:          stringFromRecord(record, "name"),
			MissedFilings: intFromRecord(record, "missed_filings"),
		}))
	}

	invoiceRecords, err := s.read(ctx,
		"MATCH (inv:Invoice)"+invoiceReturnClause+" ORDER BY invoice_id", nil)
	if err != nil {
		return GraphData{}, err
	}
	for _, record := range invoiceRecords {
		inv := invoiceFromRecord(record)
		data.Nodes = append(data.Nodes, InvoiceNode(inv))
		data.Edges = append(data.Edges,
			Edge{Source: inv.SellerGSTIN, Target: inv.ID},
			Edge{Source: inv.ID, Target: inv.BuyerGSTIN},
		)
	}
	return data, nil
}

func vendorFromRecord(record *neo4j.Record) Vendor {
	return Vendor{
		GSTIN:         stringFromRecord(record, "gstin"),
		Name:          stringFromRecord(record, "name"),
		MissedFilings: intFromRecord(record, "missed_filings"),
		TotalOutgoing: intFromRecord(record, "total_outgoing"),
		TotalIncoming: intFromRecord(record, "total_incoming"),
	}
}

func invoiceFromRecord(record *neo4j.Record) Invoice {
	return Invoice{
		ID:               stringFromRecord(record, "invoice_id"),
		SellerGSTIN:      stringFromRecord(record, "seller_gstin"),
		BuyerGSTIN:       stringFromRecord(record, "buyer_gstin"),
		Amount:           decimalFromRecord(record, "amount"),
		Tax:              decimalFromRecord(record, "tax"),
		ReportedBySeller: boolFromRecord(record, "reported_by_seller"),
		ClaimedByBuyer:   boolFromRecord(record, "claimed_by_buyer"),
	}
}

func invoicesFromRecords(records []*neo4j.Record) []Invoice {
	invoices := make([]Invoice, 0, len(records))
	for _, record := range records {
		invoices = append(invoices, invoiceFromRecord(record))
	}
	return invoices
}

var _ Store = (*Neo4jStore)(nil)
