package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/owlbill/owlbill/internal/clock"
	invoicedomain "github.com/owlbill/owlbill/internal/invoice/domain"
	"github.com/owlbill/owlbill/internal/payment/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        domain.Repository
	InvoiceRepo invoicedomain.Repository
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        domain.Repository
	invoiceRepo invoicedomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("payment.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		invoiceRepo: p.InvoiceRepo,
	}
}

// Create records a payment against an invoice. The invoice row is locked for
// the whole read-reconcile-write cycle so concurrent mutations serialize.
func (s *Service) Create(ctx context.Context, req domain.CreatePaymentRequest) (domain.Payment, error) {
	invoiceID, err := snowflake.ParseString(strings.TrimSpace(req.InvoiceID))
	if err != nil || invoiceID == 0 {
		return domain.Payment{}, domain.ErrInvalidID
	}
	// Amounts live in NUMERIC(10,2) columns; sub-cent input would reconcile
	// at full precision in Go but round on write, so the two could disagree.
	if !validAmount(req.Amount) {
		return domain.Payment{}, domain.ErrInvalidAmount
	}
	method := strings.TrimSpace(req.Method)
	if method == "" {
		return domain.Payment{}, domain.ErrInvalidMethod
	}

	now := s.clock.Now()
	paidAt := now
	if req.PaidAt != nil {
		paidAt = *req.PaidAt
	}
	payment := domain.Payment{
		ID:        s.genID.Generate(),
		InvoiceID: invoiceID,
		Amount:    req.Amount,
		Method:    method,
		Reference: strings.TrimSpace(req.Reference),
		PaidAt:    paidAt,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.invoiceRepo.FindByIDForUpdate(ctx, tx, invoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return domain.ErrInvoiceNotFound
		}

		existing, err := s.repo.FindByInvoiceID(ctx, tx, invoiceID)
		if err != nil {
			return err
		}
		if req.Amount.GreaterThan(remaining(invoice, existing)) {
			return domain.ErrOverpayment
		}

		if err := s.repo.Insert(ctx, tx, &payment); err != nil {
			return err
		}
		return s.reconcile(ctx, tx, invoice, append(existing, payment))
	})
	if err != nil {
		return domain.Payment{}, err
	}

	s.log.Info("payment recorded",
		zap.String("payment_id", payment.ID.String()),
		zap.String("invoice_id", invoiceID.String()),
		zap.String("amount", payment.Amount.StringFixed(2)),
	)
	return payment, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdatePaymentRequest) (domain.Payment, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return domain.Payment{}, err
	}
	if req.Amount != nil && !validAmount(*req.Amount) {
		return domain.Payment{}, domain.ErrInvalidAmount
	}

	var updated domain.Payment
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payment, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if payment == nil {
			return domain.ErrNotFound
		}

		invoice, err := s.invoiceRepo.FindByIDForUpdate(ctx, tx, payment.InvoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return domain.ErrInvoiceNotFound
		}

		if req.Amount != nil {
			payment.Amount = *req.Amount
		}
		if req.Method != nil {
			method := strings.TrimSpace(*req.Method)
			if method == "" {
				return domain.ErrInvalidMethod
			}
			payment.Method = method
		}
		if req.Reference != nil {
			payment.Reference = strings.TrimSpace(*req.Reference)
		}
		if req.PaidAt != nil {
			payment.PaidAt = *req.PaidAt
		}
		payment.UpdatedAt = s.clock.Now()

		existing, err := s.repo.FindByInvoiceID(ctx, tx, payment.InvoiceID)
		if err != nil {
			return err
		}
		others := withoutPayment(existing, payment.ID)
		if payment.Amount.GreaterThan(remaining(invoice, others)) {
			return domain.ErrOverpayment
		}

		if err := s.repo.Update(ctx, tx, payment); err != nil {
			return err
		}
		updated = *payment
		return s.reconcile(ctx, tx, invoice, append(others, *payment))
	})
	if err != nil {
		return domain.Payment{}, err
	}
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	parsed, err := parseID(id)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payment, err := s.repo.FindByID(ctx, tx, parsed)
		if err != nil {
			return err
		}
		if payment == nil {
			return domain.ErrNotFound
		}

		invoice, err := s.invoiceRepo.FindByIDForUpdate(ctx, tx, payment.InvoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return domain.ErrInvoiceNotFound
		}

		if err := s.repo.Delete(ctx, tx, parsed); err != nil {
			return err
		}

		existing, err := s.repo.FindByInvoiceID(ctx, tx, payment.InvoiceID)
		if err != nil {
			return err
		}
		return s.reconcile(ctx, tx, invoice, withoutPayment(existing, parsed))
	})
}

func (s *Service) reconcile(ctx context.Context, tx *gorm.DB, invoice *invoicedomain.Invoice, payments []domain.Payment) error {
	invoicedomain.Reconcile(invoice, payments, s.clock.Now())
	invoice.UpdatedAt = s.clock.Now()
	return s.invoiceRepo.Update(ctx, tx, invoice)
}

// remaining is the open balance before the mutation under consideration,
// computed from the payment rows rather than the cached BalanceDue.
func validAmount(amount decimal.Decimal) bool {
	return amount.IsPositive() && amount.Equal(amount.Round(2))
}

func remaining(invoice *invoicedomain.Invoice, payments []domain.Payment) decimal.Decimal {
	paid := decimal.Zero
	for _, p := range payments {
		paid = paid.Add(p.Amount)
	}
	return invoice.Total.Sub(paid)
}

func withoutPayment(payments []domain.Payment, id snowflake.ID) []domain.Payment {
	out := make([]domain.Payment, 0, len(payments))
	for _, p := range payments {
		if p.ID != id {
			out = append(out, p)
		}
	}
	return out
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
