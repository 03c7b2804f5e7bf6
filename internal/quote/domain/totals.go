package domain

import "github.com/shopspring/decimal"

// RecalculateTotals derives line totals, subtotal and total from the quote's
// current items and tax. Line total = quantity x rate, rounded to cents.
func RecalculateTotals(q *Quote) {
	subtotal := decimal.Zero
	for i := range q.LineItems {
		item := &q.LineItems[i]
		item.Total = item.Rate.Mul(decimal.NewFromInt(item.Quantity)).Round(2)
		subtotal = subtotal.Add(item.Total)
	}
	q.Subtotal = subtotal
	q.Total = subtotal.Add(q.Tax).Round(2)
}
