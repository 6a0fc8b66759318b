package graph

import "github.com/shopspring/decimal"

func init() {
	// Amounts serialize as JSON numbers, matching the tabular source data.
	decimal.MarshalJSONWithoutQuotes = true
}

// Vendor is a registered taxpayer node. GSTIN is the primary key.
type Vendor struct {
	GSTIN         string `json:"gstin"`
	Name          string `json:"name"`
	MissedFilings int    `json:"missed_filings"`
	TotalOutgoing int    `json:"total_outgoing"` // invoices sold
	TotalIncoming int    `json:"total_incoming"` // invoices purchased
}

// Invoice is a tax invoice node linking a seller vendor to a buyer vendor.
type Invoice struct {
	ID               string          `json:"invoice_id"`
	SellerGSTIN      string          `json:"seller_gstin"`
	BuyerGSTIN       string          `json:"buyer_gstin"`
	Amount           decimal.Decimal `json:"amount"`
	Tax              decimal.Decimal `json:"tax"`
	ReportedBySeller bool            `json:"reported_by_seller"` // present in seller's GSTR-1
	ClaimedByBuyer   bool            `json:"claimed_by_buyer"`   // present in buyer's GSTR-2B
}

// IsSuspicious reports whether the buyer claimed ITC on an invoice the seller
// never reported.
func (inv Invoice) IsSuspicious() bool {
	return inv.ClaimedByBuyer && !inv.ReportedBySeller
}

// IsMismatched reports whether the seller's and buyer's filings disagree.
func (inv Invoice) IsMismatched() bool {
	return inv.ReportedBySeller != inv.ClaimedByBuyer
}

// VendorInvoices groups a vendor's invoices by direction.
type VendorInvoices struct {
	Sold      []Invoice `json:"sold"`
	Purchased []Invoice `json:"purchased"`
}

// Trail is an invoice enriched with both parties' identity and compliance
// state, as needed by the reconciliation audit trail.
type Trail struct {
	InvoiceID           string          `json:"invoice_id"`
	Amount              decimal.Decimal `json:"amount"`
	Tax                 decimal.Decimal `json:"tax"`
	ReportedBySeller    bool            `json:"reported_by_seller"`
	ClaimedByBuyer      bool            `json:"claimed_by_buyer"`
	SellerGSTIN         string          `json:"seller_gstin"`
	SellerName          string          `json:"seller_name"`
	SellerMissedFilings int             `json:"seller_missed_filings"`
	BuyerGSTIN          string          `json:"buyer_gstin"`
	BuyerName           string          `json:"buyer_name"`
	BuyerMissedFilings  int             `json:"buyer_missed_filings"`
	GSTR1Filed          bool            `json:"gstr1_filed"`
	GSTR2BFiled         bool            `json:"gstr2b_filed"`
}

// Summary holds dashboard counts over the whole graph.
type Summary struct {
	VendorCount     int `json:"vendor_count"`
	InvoiceCount    int `json:"invoice_count"`
	MismatchCount   int `json:"mismatch_count"`
	SuspiciousCount int `json:"suspicious_count"` // claimed but not reported
}

// Edge is a plain source/target pair for visualization.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// GraphData is the visualization export: typed nodes plus edges. Nodes are
// open maps so the API layer can enrich vendor nodes with risk attributes.
type GraphData struct {
	Nodes []map[string]any `json:"nodes"`
	Edges []Edge           `json:"edges"`
}

// VendorNode builds the visualization node for a vendor.
func VendorNode(v Vendor) map[string]any {
	return map[string]any{
		"id":             v.GSTIN,
		"type":           "vendor",
		"name":           v.Name,
		"missed_filings": v.MissedFilings,
	}
}

// InvoiceNode builds the visualization node for an invoice.
func InvoiceNode(inv Invoice) map[string]any {
	return map[string]any{
		"id":                 inv.ID,
		"type":               "invoice",
		"amount":             inv.Amount,
		"tax":                inv.Tax,
		"seller_gstin":       inv.SellerGSTIN,
		"buyer_gstin":        inv.BuyerGSTIN,
		"reported_by_seller": inv.ReportedBySeller,
		"claimed_by_buyer":   inv.ClaimedByBuyer,
		"is_suspicious":      inv.IsSuspicious(),
	}
}
