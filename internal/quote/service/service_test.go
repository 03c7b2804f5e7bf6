package service

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	clientdomain "github.com/owlbill/owlbill/internal/client/domain"
	clientrepo "github.com/owlbill/owlbill/internal/client/repository"
	"github.com/owlbill/owlbill/internal/clock"
	"github.com/owlbill/owlbill/internal/config"
	"github.com/owlbill/owlbill/internal/providers/pdf"
	"github.com/owlbill/owlbill/internal/quote/domain"
	"github.com/owlbill/owlbill/internal/quote/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type stubPDF struct {
	quoteCalls int
}

func (s *stubPDF) GenerateInvoice(ctx context.Context, doc pdf.InvoiceDocument) (io.Reader, error) {
	return bytes.NewReader([]byte("%PDF-stub")), nil
}

func (s *stubPDF) GenerateQuote(ctx context.Context, doc pdf.QuoteDocument) (io.Reader, error) {
	s.quoteCalls++
	return bytes.NewReader([]byte("%PDF-stub")), nil
}

type fixture struct {
	db    *gorm.DB
	svc   domain.Service
	genID *snowflake.Node
	clock *clock.FakeClock
	pdf   *stubPDF
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&clientdomain.Client{},
		&domain.Quote{},
		&domain.LineItem{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	stub := &stubPDF{}
	fakeClock := clock.NewFakeClock(time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC))
	svc := New(Params{
		Config:     config.Config{CompanyName: "Owlbill"},
		DB:         db,
		Log:        zap.NewNop(),
		GenID:      node,
		Clock:      fakeClock,
		Repo:       repository.Provide(),
		ClientRepo: clientrepo.Provide(),
		PDF:        stub,
	})
	return &fixture{db: db, svc: svc, genID: node, clock: fakeClock, pdf: stub}
}

func (f *fixture) seedClient(t *testing.T) clientdomain.Client {
	t.Helper()
	id := f.genID.Generate()
	cl := clientdomain.Client{
		ID:    id,
		Name:  "Acme",
		Email: "accounts+" + id.String() + "@acme.test",
	}
	require.NoError(t, f.db.Create(&cl).Error)
	return cl
}

func TestCreateQuoteComputesTotals(t *testing.T) {
	f := newFixture(t)
	cl := f.seedClient(t)

	created, err := f.svc.Create(context.Background(), domain.CreateQuoteRequest{
		ClientID: cl.ID.String(),
		Title:    "Site redesign",
		Tax:      decimal.RequireFromString("10.00"),
		Items: []domain.LineItemInput{
			{Description: "Design", Quantity: 10, Rate: decimal.RequireFromString("90.00")},
			{Description: "Build", Quantity: 2, Rate: decimal.RequireFromString("45.50")},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.QuoteStatusDraft, created.Status)
	assert.True(t, created.Subtotal.Equal(decimal.RequireFromString("991.00")), "subtotal %s", created.Subtotal)
	assert.True(t, created.Total.Equal(decimal.RequireFromString("1001.00")))
	require.Len(t, created.LineItems, 2)
	assert.True(t, created.LineItems[0].Total.Equal(decimal.RequireFromString("900.00")))
}

func TestCreateQuoteValidation(t *testing.T) {
	f := newFixture(t)
	cl := f.seedClient(t)

	_, err := f.svc.Create(context.Background(), domain.CreateQuoteRequest{
		ClientID: cl.ID.String(),
		Title:    "   ",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidTitle)

	_, err = f.svc.Create(context.Background(), domain.CreateQuoteRequest{
		ClientID: cl.ID.String(),
		Title:    "Quote",
		Items: []domain.LineItemInput{
			{Description: "Zero qty", Quantity: 0, Rate: decimal.RequireFromString("10.00")},
		},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidLineItem)

	_, err = f.svc.Create(context.Background(), domain.CreateQuoteRequest{
		ClientID: snowflake.ID(404).String(),
		Title:    "Quote",
	})
	assert.ErrorIs(t, err, domain.ErrClientNotFound)
}

func TestUpdateQuoteReplacesItems(t *testing.T) {
	f := newFixture(t)
	cl := f.seedClient(t)

	created, err := f.svc.Create(context.Background(), domain.CreateQuoteRequest{
		ClientID: cl.ID.String(),
		Title:    "Quote",
		Items: []domain.LineItemInput{
			{Description: "Old item", Quantity: 1, Rate: decimal.RequireFromString("10.00")},
		},
	})
	require.NoError(t, err)

	updated, err := f.svc.Update(context.Background(), domain.UpdateQuoteRequest{
		ID: created.ID.String(),
		Items: []domain.LineItemInput{
			{Description: "New item", Quantity: 3, Rate: decimal.RequireFromString("20.00")},
		},
	})
	require.NoError(t, err)
	require.Len(t, updated.LineItems, 1)
	assert.Equal(t, "New item", updated.LineItems[0].Description)
	assert.True(t, updated.Total.Equal(decimal.RequireFromString("60.00")))

	got, err := f.svc.GetByID(context.Background(), created.ID.String())
	require.NoError(t, err)
	require.Len(t, got.LineItems, 1)
	assert.Equal(t, "New item", got.LineItems[0].Description)
}

func TestTransitionRules(t *testing.T) {
	f := newFixture(t)
	cl := f.seedClient(t)

	created, err := f.svc.Create(context.Background(), domain.CreateQuoteRequest{
		ClientID: cl.ID.String(),
		Title:    "Quote",
	})
	require.NoError(t, err)

	sent, err := f.svc.Transition(context.Background(), created.ID.String(), domain.QuoteStatusSent)
	require.NoError(t, err)
	assert.Equal(t, domain.QuoteStatusSent, sent.Status)

	accepted, err := f.svc.Transition(context.Background(), created.ID.String(), domain.QuoteStatusAccepted)
	require.NoError(t, err)
	assert.Equal(t, domain.QuoteStatusAccepted, accepted.Status)
	assert.True(t, accepted.Invoiceable())

	// Accepted quotes are settled.
	_, err = f.svc.Transition(context.Background(), created.ID.String(), domain.QuoteStatusDraft)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = f.svc.Transition(context.Background(), created.ID.String(), domain.QuoteStatus("bogus"))
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}

func TestDeleteQuote(t *testing.T) {
	f := newFixture(t)
	cl := f.seedClient(t)

	created, err := f.svc.Create(context.Background(), domain.CreateQuoteRequest{
		ClientID: cl.ID.String(),
		Title:    "Quote",
		Items: []domain.LineItemInput{
			{Description: "Item", Quantity: 1, Rate: decimal.RequireFromString("10.00")},
		},
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(context.Background(), created.ID.String()))

	_, err = f.svc.GetByID(context.Background(), created.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestQuotePDFUsesProvider(t *testing.T) {
	f := newFixture(t)
	cl := f.seedClient(t)

	created, err := f.svc.Create(context.Background(), domain.CreateQuoteRequest{
		ClientID: cl.ID.String(),
		Title:    "Quote",
		Items: []domain.LineItemInput{
			{Description: "Item", Quantity: 1, Rate: decimal.RequireFromString("10.00")},
		},
	})
	require.NoError(t, err)

	reader, filename, err := f.svc.RenderPDF(context.Background(), created.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "quote-"+created.ID.String()+".pdf", filename)
	assert.Equal(t, 1, f.pdf.quoteCalls)

	body, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.NotEmpty(t, body)
}

func TestQuoteTimestampsFollowClock(t *testing.T) {
	f := newFixture(t)
	cl := f.seedClient(t)

	created, err := f.svc.Create(context.Background(), domain.CreateQuoteRequest{
		ClientID: cl.ID.String(),
		Title:    "Retainer",
		Items: []domain.LineItemInput{
			{Description: "Support", Quantity: 1, Rate: decimal.RequireFromString("250.00")},
		},
	})
	require.NoError(t, err)
	assert.True(t, created.CreatedAt.Equal(f.clock.Now().UTC()))

	f.clock.Advance(48 * time.Hour)

	sent, err := f.svc.Transition(context.Background(), created.ID.String(), domain.QuoteStatusSent)
	require.NoError(t, err)
	assert.True(t, sent.UpdatedAt.Equal(f.clock.Now().UTC()))
	assert.True(t, sent.UpdatedAt.After(created.CreatedAt))
}
