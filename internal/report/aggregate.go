package report

import "maon/internal/core"

// OtherBucket collects amounts from records missing a category or payment
// method.
const OtherBucket = "Other"

// Summary holds totals computed over a filtered record set. It is derived
// state, recomputed on every filter change and never persisted, so the
// numbers shown next to a list can never drift from the list itself.
type Summary struct {
	TotalCount    int              `json:"totalCount"`
	TotalCents    int64            `json:"totalCents"`
	CategoryCents map[string]int64 `json:"categoryBreakdown"`
	MethodCents   map[string]int64 `json:"methodBreakdown"`
}

// Aggregate computes summary totals over a record set in one pass.
// Missing amounts count as zero but the record still counts toward
// TotalCount. Output is independent of input order.
func Aggregate(records []core.Record) Summary {
	sum := Summary{
		TotalCount:    len(records),
		CategoryCents: make(map[string]int64),
		MethodCents:   make(map[string]int64),
	}
	for _, r := range records {
		cents := r.Amount.Cents
		if cents < 0 {
			cents = 0
		}
		sum.TotalCents += cents

		cat := r.Category
		if cat == "" {
			cat = OtherBucket
		}
		sum.CategoryCents[cat] += cents

		method := r.PaymentMethod
		if method == "" {
			method = OtherBucket
		}
		sum.MethodCents[method] += cents
	}
	return sum
}
