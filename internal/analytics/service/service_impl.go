package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/owlbill/owlbill/internal/analytics/domain"
	"github.com/owlbill/owlbill/internal/clock"
	"github.com/owlbill/owlbill/internal/config"
	invoicedomain "github.com/owlbill/owlbill/internal/invoice/domain"
	"github.com/owlbill/owlbill/internal/providers/cache"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	summaryCacheKey = "analytics:summary"
	summaryCacheTTL = time.Minute
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Clock   clock.Clock
	Cache   cache.Cache
	Reports *config.ReportConfigHolder
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	clock   clock.Clock
	cache   cache.Cache
	reports *config.ReportConfigHolder
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("analytics.service"),
		clock:   p.Clock,
		cache:   p.Cache,
		reports: p.Reports,
	}
}

func (s *Service) Summary(ctx context.Context) (domain.Summary, error) {
	if cached, err := s.cache.Get(ctx, summaryCacheKey); err == nil {
		var summary domain.Summary
		if err := json.Unmarshal(cached, &summary); err == nil {
			return summary, nil
		}
	} else if !errors.Is(err, cache.ErrMiss) {
		s.log.Warn("summary cache read failed", zap.Error(err))
	}

	summary, err := s.computeSummary(ctx)
	if err != nil {
		return domain.Summary{}, err
	}

	if encoded, err := json.Marshal(summary); err == nil {
		if err := s.cache.Set(ctx, summaryCacheKey, encoded, summaryCacheTTL); err != nil {
			s.log.Warn("summary cache write failed", zap.Error(err))
		}
	}
	return summary, nil
}

func (s *Service) computeSummary(ctx context.Context) (domain.Summary, error) {
	summary := domain.Summary{GeneratedAt: s.clock.Now()}
	stmt := s.db.WithContext(ctx)

	if err := stmt.Raw(`SELECT coalesce(sum(amount), 0) FROM payments`).
		Scan(&summary.TotalRevenue).Error; err != nil {
		return domain.Summary{}, err
	}
	if err := stmt.Raw(`SELECT coalesce(sum(balance_due), 0) FROM invoices WHERE status <> ?`,
		invoicedomain.InvoiceStatusPaid).
		Scan(&summary.OutstandingBalance).Error; err != nil {
		return domain.Summary{}, err
	}

	if err := stmt.Model(&invoicedomain.Invoice{}).Count(&summary.InvoiceCount).Error; err != nil {
		return domain.Summary{}, err
	}
	if err := stmt.Model(&invoicedomain.Invoice{}).
		Where("status = ?", invoicedomain.InvoiceStatusPaid).
		Count(&summary.PaidCount).Error; err != nil {
		return domain.Summary{}, err
	}
	if err := stmt.Model(&invoicedomain.Invoice{}).
		Where("status = ?", invoicedomain.InvoiceStatusOverdue).
		Count(&summary.OverdueCount).Error; err != nil {
		return domain.Summary{}, err
	}

	byMonth, err := s.revenueByMonth(ctx)
	if err != nil {
		return domain.Summary{}, err
	}
	summary.RevenueByMonth = byMonth

	byClient, err := s.revenueByClient(ctx)
	if err != nil {
		return domain.Summary{}, err
	}
	summary.RevenueByClient = byClient

	aging, err := s.agingBuckets(ctx)
	if err != nil {
		return domain.Summary{}, err
	}
	summary.Aging = aging

	return summary, nil
}

func (s *Service) revenueByMonth(ctx context.Context) ([]domain.MonthlyRevenue, error) {
	var rows []domain.MonthlyRevenue
	err := s.db.WithContext(ctx).
		Raw(`SELECT ` + s.monthExpr("paid_at") + ` AS month, coalesce(sum(amount), 0) AS amount
			FROM payments
			GROUP BY 1
			ORDER BY 1`).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Service) revenueByClient(ctx context.Context) ([]domain.ClientRevenue, error) {
	type row struct {
		ClientID   int64
		ClientName string
		Amount     decimal.Decimal
	}

	var rows []row
	err := s.db.WithContext(ctx).
		Raw(`SELECT c.id AS client_id, c.name AS client_name, coalesce(sum(p.amount), 0) AS amount
			FROM payments p
			JOIN invoices i ON i.id = p.invoice_id
			JOIN quotes q ON q.id = i.quote_id
			JOIN clients c ON c.id = q.client_id
			GROUP BY c.id, c.name
			ORDER BY amount DESC`).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]domain.ClientRevenue, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.ClientRevenue{
			ClientID:   strconv.FormatInt(r.ClientID, 10),
			ClientName: r.ClientName,
			Amount:     r.Amount,
		})
	}
	return out, nil
}

// agingBuckets groups open balances by days past due, using the configured
// bucket boundaries. Invoices without a due date are counted as current.
func (s *Service) agingBuckets(ctx context.Context) ([]domain.AgingBucketTotal, error) {
	type row struct {
		DueDate    *time.Time
		BalanceDue decimal.Decimal
	}

	var rows []row
	err := s.db.WithContext(ctx).
		Raw(`SELECT due_date, balance_due FROM invoices WHERE balance_due > 0`).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	buckets := s.reports.Get().AgingBuckets
	totals := make([]domain.AgingBucketTotal, len(buckets))
	for i, bucket := range buckets {
		totals[i] = domain.AgingBucketTotal{Label: bucket.Label, Amount: decimal.Zero}
	}

	today := s.clock.Now()
	for _, r := range rows {
		days := 0
		if r.DueDate != nil && r.DueDate.Before(today) {
			days = int(today.Sub(*r.DueDate).Hours() / 24)
		}
		for i, bucket := range buckets {
			if days < bucket.MinDays {
				continue
			}
			if bucket.MaxDays != nil && days > *bucket.MaxDays {
				continue
			}
			totals[i].Count++
			totals[i].Amount = totals[i].Amount.Add(r.BalanceDue)
			break
		}
	}
	return totals, nil
}

func (s *Service) RevenueCSV(ctx context.Context) ([]byte, error) {
	rows, err := s.revenueByMonth(ctx)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"month", "revenue"}); err != nil {
		return nil, err
	}
	for _, r := range rows {
		if err := w.Write([]string{r.Month, r.Amount.StringFixed(2)}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *Service) monthExpr(column string) string {
	if s.db.Dialector.Name() == "sqlite" {
		return `strftime('%Y-%m', ` + column + `)`
	}
	return `to_char(` + column + `, 'YYYY-MM')`
}
