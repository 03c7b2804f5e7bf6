package domain

import (
	"time"

	paymentdomain "github.com/owlbill/owlbill/internal/payment/domain"
	"github.com/shopspring/decimal"
)

// Reconcile recomputes BalanceDue and Status from the invoice's full payment
// set. It mutates the invoice in place, has no other side effects, and is
// idempotent for an unchanged payment set. The caller persists the result.
//
// Balance is clamped at zero; overpayment is rejected before it reaches the
// payment set, so the clamp only absorbs drift.
func Reconcile(inv *Invoice, payments []paymentdomain.Payment, today time.Time) {
	totalPaid := decimal.Zero
	for _, p := range payments {
		totalPaid = totalPaid.Add(p.Amount)
	}

	balance := inv.Total.Sub(totalPaid)
	if balance.IsNegative() {
		balance = decimal.Zero
	}
	inv.BalanceDue = balance

	if balance.IsZero() && inv.Total.IsPositive() {
		inv.Status = InvoiceStatusPaid
	} else if inv.Status == InvoiceStatusPaid {
		// A payment was removed or reduced below full settlement.
		inv.Status = InvoiceStatusSent
	}

	if inv.DueDate != nil && dateBefore(*inv.DueDate, today) && balance.IsPositive() {
		inv.Status = InvoiceStatusOverdue
	} else if inv.Status == InvoiceStatusOverdue {
		// Due date was pushed out or cleared; the flag is stale.
		inv.Status = InvoiceStatusSent
	}
}

// dateBefore compares calendar dates, ignoring time of day.
func dateBefore(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	if ay != by {
		return ay < by
	}
	if am != bm {
		return am < bm
	}
	return ad < bd
}
