package risk

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Rupees renders a monetary amount rounded to whole rupees with thousand
// separators, for reason strings and audit-trail text.
func Rupees(d decimal.Decimal) string {
	s := d.Round(0).StringFixed(0)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
