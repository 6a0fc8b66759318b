package graph

// MismatchType classifies an invoice by whether the seller reported it and
// the buyer claimed it.
type MismatchType string

const (
	MismatchMatched            MismatchType = "Matched"
	MismatchClaimedNotReported MismatchType = "Claimed by buyer but not reported by seller"
	MismatchReportedNotClaimed MismatchType = "Reported by seller but not claimed by buyer"
	MismatchBothMissing        MismatchType = "Neither reported nor claimed"
)

// ClassifyMismatch is a pure function of the two filing flags.
func ClassifyMismatch(reportedBySeller, claimedByBuyer bool) MismatchType {
	switch {
	case reportedBySeller && claimedByBuyer:
		return MismatchMatched
	case claimedByBuyer:
		return MismatchClaimedNotReported
	case reportedBySeller:
		return MismatchReportedNotClaimed
	default:
		return MismatchBothMissing
	}
}

// Mismatch classifies the invoice.
func (inv Invoice) Mismatch() MismatchType {
	return ClassifyMismatch(inv.ReportedBySeller, inv.ClaimedByBuyer)
}
