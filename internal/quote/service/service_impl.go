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
	"github.com/owlbill/owlbill/internal/providers/pdf"
	"github.com/owlbill/owlbill/internal/quote/domain"
	"github.com/owlbill/owlbill/pkg/db/pagination"
	"github.com/shopspring/decimal"
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
	clientRepo clientdomain.Repository
	pdf        pdf.Provider
}

func New(p Params) domain.Service {
	return &Service{
		cfg:        p.Config,
		db:         p.DB,
		log:        p.Log.Named("quote.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		clientRepo: p.ClientRepo,
		pdf:        p.PDF,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateQuoteRequest) (domain.Quote, error) {
	clientID, err := snowflake.ParseString(strings.TrimSpace(req.ClientID))
	if err != nil || clientID == 0 {
		return domain.Quote{}, domain.ErrInvalidID
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return domain.Quote{}, domain.ErrInvalidTitle
	}

	items, err := s.buildLineItems(req.Items)
	if err != nil {
		return domain.Quote{}, err
	}

	client, err := s.clientRepo.FindByID(ctx, s.db, clientID)
	if err != nil {
		return domain.Quote{}, err
	}
	if client == nil {
		return domain.Quote{}, domain.ErrClientNotFound
	}

	now := s.clock.Now().UTC()
	quote := domain.Quote{
		ID:         s.genID.Generate(),
		ClientID:   clientID,
		Title:      title,
		Status:     domain.QuoteStatusDraft,
		Tax:        req.Tax,
		ExpiryDate: req.ExpiryDate,
		LineItems:  items,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	for i := range quote.LineItems {
		quote.LineItems[i].QuoteID = quote.ID
	}
	domain.RecalculateTotals(&quote)

	if err := s.repo.Insert(ctx, s.db, &quote); err != nil {
		return domain.Quote{}, err
	}

	s.log.Info("quote created",
		zap.String("quote_id", quote.ID.String()),
		zap.String("client_id", clientID.String()),
	)
	return quote, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Quote, error) {
	parsed, err := parseID(id)
	if err != nil {
		return domain.Quote{}, err
	}

	quote, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return domain.Quote{}, err
	}
	if quote == nil {
		return domain.Quote{}, domain.ErrNotFound
	}
	return *quote, nil
}

func (s *Service) List(ctx context.Context, req domain.ListQuoteRequest) (domain.ListQuoteResponse, error) {
	filter := domain.ListQuoteFilter{Status: req.Status}
	if req.ClientID != nil {
		clientID, err := snowflake.ParseString(strings.TrimSpace(*req.ClientID))
		if err != nil || clientID == 0 {
			return domain.ListQuoteResponse{}, domain.ErrInvalidID
		}
		filter.ClientID = &clientID
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.repo.List(ctx, s.db, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  pageSize,
	})
	if err != nil {
		return domain.ListQuoteResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(quote *domain.Quote) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        quote.ID.String(),
			CreatedAt: quote.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo.HasMore && len(items) > pageSize {
		items = items[:pageSize]
	}

	quotes := make([]domain.Quote, 0, len(items))
	for _, item := range items {
		quotes = append(quotes, *item)
	}

	return domain.ListQuoteResponse{
		Quotes:        quotes,
		NextPageToken: pageInfo.NextPageToken,
		HasMore:       pageInfo.HasMore,
	}, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateQuoteRequest) (domain.Quote, error) {
	parsed, err := parseID(req.ID)
	if err != nil {
		return domain.Quote{}, err
	}

	quote, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return domain.Quote{}, err
	}
	if quote == nil {
		return domain.Quote{}, domain.ErrNotFound
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return domain.Quote{}, domain.ErrInvalidTitle
		}
		quote.Title = title
	}
	if req.Tax != nil {
		quote.Tax = *req.Tax
	}
	if req.ExpiryDate != nil {
		quote.ExpiryDate = req.ExpiryDate
	}

	var replaced []domain.LineItem
	if req.Items != nil {
		replaced, err = s.buildLineItems(req.Items)
		if err != nil {
			return domain.Quote{}, err
		}
		for i := range replaced {
			replaced[i].QuoteID = quote.ID
		}
		quote.LineItems = replaced
	}

	domain.RecalculateTotals(quote)
	quote.UpdatedAt = s.clock.Now().UTC()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if replaced != nil {
			if err := s.repo.ReplaceLineItems(ctx, tx, quote.ID, replaced); err != nil {
				return err
			}
		}
		return s.repo.Update(ctx, tx, quote)
	})
	if err != nil {
		return domain.Quote{}, err
	}

	return *quote, nil
}

func (s *Service) Transition(ctx context.Context, id string, status domain.QuoteStatus) (domain.Quote, error) {
	switch status {
	case domain.QuoteStatusDraft, domain.QuoteStatusSent, domain.QuoteStatusAccepted, domain.QuoteStatusDeclined:
	default:
		return domain.Quote{}, domain.ErrInvalidStatus
	}

	parsed, err := parseID(id)
	if err != nil {
		return domain.Quote{}, err
	}

	quote, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return domain.Quote{}, err
	}
	if quote == nil {
		return domain.Quote{}, domain.ErrNotFound
	}

	// Declined and accepted quotes are settled; only drafts and sent
	// quotes may move.
	if quote.Status == domain.QuoteStatusAccepted || quote.Status == domain.QuoteStatusDeclined {
		if quote.Status != status {
			return domain.Quote{}, domain.ErrInvalidTransition
		}
		return *quote, nil
	}

	quote.Status = status
	quote.UpdatedAt = s.clock.Now().UTC()
	if err := s.repo.Update(ctx, s.db, quote); err != nil {
		return domain.Quote{}, err
	}
	return *quote, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	parsed, err := parseID(id)
	if err != nil {
		return err
	}

	quote, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return err
	}
	if quote == nil {
		return domain.ErrNotFound
	}

	return s.repo.Delete(ctx, s.db, parsed)
}

func (s *Service) RenderPDF(ctx context.Context, id string) (io.Reader, string, error) {
	parsed, err := parseID(id)
	if err != nil {
		return nil, "", err
	}

	quote, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return nil, "", err
	}
	if quote == nil {
		return nil, "", domain.ErrNotFound
	}

	doc := pdf.QuoteDocument{
		CompanyName:  s.cfg.CompanyName,
		CompanyEmail: s.cfg.CompanyEmail,
		Title:        quote.Title,
		Status:       string(quote.Status),
		IssueDate:    quote.CreatedAt.Format("2006-01-02"),
		Subtotal:     quote.Subtotal.StringFixed(2),
		Tax:          quote.Tax.StringFixed(2),
		Total:        quote.Total.StringFixed(2),
	}
	if quote.ExpiryDate != nil {
		doc.ExpiryDate = quote.ExpiryDate.Format("2006-01-02")
	}
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
		doc.ClientName = client.Name
		doc.ClientEmail = client.Email
	}

	reader, err := s.pdf.GenerateQuote(ctx, doc)
	if err != nil {
		return nil, "", err
	}
	return reader, fmt.Sprintf("quote-%s.pdf", quote.ID.String()), nil
}

func (s *Service) buildLineItems(inputs []domain.LineItemInput) ([]domain.LineItem, error) {
	items := make([]domain.LineItem, 0, len(inputs))
	now := s.clock.Now().UTC()
	for _, input := range inputs {
		description := strings.TrimSpace(input.Description)
		if description == "" || input.Quantity <= 0 || input.Rate.LessThan(decimal.Zero) {
			return nil, domain.ErrInvalidLineItem
		}
		items = append(items, domain.LineItem{
			ID:          s.genID.Generate(),
			Description: description,
			Quantity:    input.Quantity,
			Rate:        input.Rate,
			CreatedAt:   now,
		})
	}
	return items, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
