package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	clientdomain "github.com/owlbill/owlbill/internal/client/domain"
	"github.com/owlbill/owlbill/internal/clock"
	"github.com/owlbill/owlbill/internal/config"
	"github.com/owlbill/owlbill/internal/invoice/domain"
	"github.com/owlbill/owlbill/internal/providers/pdf"
	quotedomain "github.com/owlbill/owlbill/internal/quote/domain"
	pkgdb "github.com/owlbill/owlbill/pkg/db"
	"github.com/owlbill/owlbill/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Config     config.Config
	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       domain.Repository
	QuoteRepo  quotedomain.Repository
	ClientRepo clientdomain.Repository
	PDF        pdf.Provider
}

type Service struct {
	cfg        config.Config
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       domain.Repository
	quoteRepo  quotedomain.Repository
	clientRepo clientdomain.Repository
	pdf        pdf.Provider
}

func New(p Params) domain.Service {
	return &Service{
		cfg:        p.Config,
		db:         p.DB,
		log:        p.Log.Named("invoice.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		quoteRepo:  p.QuoteRepo,
		clientRepo: p.ClientRepo,
		pdf:        p.PDF,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateInvoiceRequest) (domain.Invoice, error) {
	quoteID, err := snowflake.ParseString(strings.TrimSpace(req.QuoteID))
	if err != nil || quoteID == 0 {
		return domain.Invoice{}, domain.ErrInvalidID
	}
	if req.DueDate.IsZero() {
		return domain.Invoice{}, domain.ErrInvalidDue
	}

	quote, err := s.quoteRepo.FindByID(ctx, s.db, quoteID)
	if err != nil {
		return domain.Invoice{}, err
	}
	if quote == nil {
		return domain.Invoice{}, domain.ErrQuoteNotFound
	}
	if !quote.Invoiceable() {
		return domain.Invoice{}, domain.ErrQuoteNotFound
	}

	now := s.clock.Now()
	dueDate := req.DueDate
	invoice := domain.Invoice{
		ID:         s.genID.Generate(),
		QuoteID:    quote.ID,
		Status:     domain.InvoiceStatusSent,
		Subtotal:   quote.Subtotal,
		Tax:        quote.Tax,
		Total:      quote.Total,
		BalanceDue: quote.Total,
		DueDate:    &dueDate,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByQuoteID(ctx, tx, quote.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrAlreadyIssued
		}

		issued, err := s.repo.Count(ctx, tx)
		if err != nil {
			return err
		}
		invoice.InvoiceNumber = fmt.Sprintf("INV-%05d", issued+1)

		if err := s.repo.Insert(ctx, tx, &invoice); err != nil {
			if pkgdb.IsDuplicateKeyErr(err) {
				return domain.ErrAlreadyIssued
			}
			return err
		}
		return s.clientRepo.AddToTotalBilled(ctx, tx, quote.ClientID, invoice.Total)
	})
	if err != nil {
		return domain.Invoice{}, err
	}

	s.log.Info("invoice issued",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("quote_id", quote.ID.String()),
	)
	return invoice, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Invoice, error) {
	parsed, err := parseID(id)
	if err != nil {
		return domain.Invoice{}, err
	}

	invoice, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return domain.Invoice{}, err
	}
	if invoice == nil {
		return domain.Invoice{}, domain.ErrNotFound
	}
	return *invoice, nil
}

func (s *Service) List(ctx context.Context, req domain.ListInvoiceRequest) (domain.ListInvoiceResponse, error) {
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.repo.List(ctx, s.db, domain.ListInvoiceFilter{Status: req.Status}, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  pageSize,
	})
	if err != nil {
		return domain.ListInvoiceResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(invoice *domain.Invoice) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        invoice.ID.String(),
			CreatedAt: invoice.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo.HasMore && len(items) > pageSize {
		items = items[:pageSize]
	}

	invoices := make([]domain.Invoice, 0, len(items))
	for _, item := range items {
		invoices = append(invoices, *item)
	}

	return domain.ListInvoiceResponse{
		Invoices:      invoices,
		NextPageToken: pageInfo.NextPageToken,
		HasMore:       pageInfo.HasMore,
	}, nil
}

func (s *Service) Send(ctx context.Context, id string) (domain.Invoice, error) {
	parsed, err := parseID(id)
	if err != nil {
		return domain.Invoice{}, err
	}

	var sent domain.Invoice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.repo.FindByIDForUpdate(ctx, tx, parsed)
		if err != nil {
			return err
		}
		if invoice == nil {
			return domain.ErrNotFound
		}

		invoice.Status = domain.InvoiceStatusSent
		domain.Reconcile(invoice, invoice.Payments, s.clock.Now())
		invoice.UpdatedAt = s.clock.Now()

		if err := s.repo.Update(ctx, tx, invoice); err != nil {
			return err
		}
		sent = *invoice
		return nil
	})
	if err != nil {
		return domain.Invoice{}, err
	}
	return sent, nil
}

func (s *Service) RenderPDF(ctx context.Context, id string) (io.Reader, string, error) {
	parsed, err := parseID(id)
	if err != nil {
		return nil, "", err
	}

	invoice, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return nil, "", err
	}
	if invoice == nil {
		return nil, "", domain.ErrNotFound
	}

	quote, err := s.quoteRepo.FindByID(ctx, s.db, invoice.QuoteID)
	if err != nil {
		return nil, "", err
	}

	doc := pdf.InvoiceDocument{
		CompanyName:   s.cfg.CompanyName,
		CompanyEmail:  s.cfg.CompanyEmail,
		InvoiceNumber: invoice.InvoiceNumber,
		Status:        string(invoice.Status),
		IssueDate:     invoice.CreatedAt.Format("2006-01-02"),
		Subtotal:      invoice.Subtotal.StringFixed(2),
		Tax:           invoice.Tax.StringFixed(2),
		Total:         invoice.Total.StringFixed(2),
		BalanceDue:    invoice.BalanceDue.StringFixed(2),
	}
	if invoice.DueDate != nil {
		doc.DueDate = invoice.DueDate.Format("2006-01-02")
	}

	if quote != nil {
		for _, item := range quote.LineItems {
			doc.Items = append(doc.Items, pdf.LineItem{
				Description: item.Description,
				Quantity:    item.Quantity,
				Rate:        item.Rate.StringFixed(2),
				Amount:      item.Total.StringFixed(2),
			})
		}
		client, err := s.clientRepo.FindByID(ctx, s.db, quote.ClientID)
		if err != nil {
			return nil, "", err
		}
		if client != nil {
			doc.BillToName = client.Name
			doc.BillToEmail = client.Email
			doc.BillToPhone = client.Phone
		}
	}

	reader, err := s.pdf.GenerateInvoice(ctx, doc)
	if err != nil {
		return nil, "", err
	}
	return reader, fmt.Sprintf("%s.pdf", invoice.InvoiceNumber), nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
