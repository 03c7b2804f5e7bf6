// Package domain contains report shapes for business analytics.
package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Summary is the headline view of the business: collected revenue, open
// balances, and how the open balances break down.
type Summary struct {
	TotalRevenue       decimal.Decimal `json:"total_revenue"`
	OutstandingBalance decimal.Decimal `json:"outstanding_balance"`
	InvoiceCount       int64           `json:"invoice_count"`
	PaidCount          int64           `json:"paid_count"`
	OverdueCount       int64           `json:"overdue_count"`

	RevenueByMonth  []MonthlyRevenue   `json:"revenue_by_month"`
	RevenueByClient []ClientRevenue    `json:"revenue_by_client"`
	Aging           []AgingBucketTotal `json:"aging"`

	GeneratedAt time.Time `json:"generated_at"`
}

// MonthlyRevenue is collected payments grouped by calendar month (YYYY-MM).
type MonthlyRevenue struct {
	Month  string          `json:"month"`
	Amount decimal.Decimal `json:"amount"`
}

// ClientRevenue is collected payments attributed to the billed client.
type ClientRevenue struct {
	ClientID   string          `json:"client_id"`
	ClientName string          `json:"client_name"`
	Amount     decimal.Decimal `json:"amount"`
}

// AgingBucketTotal is the open balance falling into one configured bucket of
// days past due.
type AgingBucketTotal struct {
	Label  string          `json:"label"`
	Count  int64           `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

type Service interface {
	Summary(ctx context.Context) (Summary, error)
	// RevenueCSV renders the monthly revenue series as a CSV document.
	RevenueCSV(ctx context.Context) ([]byte, error)
}
