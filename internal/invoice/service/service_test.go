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
	"github.com/owlbill/owlbill/internal/invoice/domain"
	"github.com/owlbill/owlbill/internal/invoice/repository"
	paymentdomain "github.com/owlbill/owlbill/internal/payment/domain"
	"github.com/owlbill/owlbill/internal/providers/pdf"
	quotedomain "github.com/owlbill/owlbill/internal/quote/domain"
	quoterepo "github.com/owlbill/owlbill/internal/quote/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type stubPDF struct {
	invoiceCalls int
}

func (s *stubPDF) GenerateInvoice(ctx context.Context, doc pdf.InvoiceDocument) (io.Reader, error) {
	s.invoiceCalls++
	return bytes.NewReader([]byte("%PDF-stub")), nil
}

func (s *stubPDF) GenerateQuote(ctx context.Context, doc pdf.QuoteDocument) (io.Reader, error) {
	return bytes.NewReader([]byte("%PDF-stub")), nil
}

type fixture struct {
	db         *gorm.DB
	svc        domain.Service
	clock      *clock.FakeClock
	genID      *snowflake.Node
	clientRepo clientdomain.Repository
	quoteRepo  quotedomain.Repository
	pdf        *stubPDF
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&clientdomain.Client{},
		&quotedomain.Quote{},
		&quotedomain.LineItem{},
		&domain.Invoice{},
		&paymentdomain.Payment{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fakeClock := clock.NewFakeClock(time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC))
	clients := clientrepo.Provide()
	quotes := quoterepo.Provide()
	stub := &stubPDF{}

	svc := New(Params{
		Config:     config.Config{CompanyName: "Owlbill", CompanyEmail: "billing@owlbill.test"},
		DB:         db,
		Log:        zap.NewNop(),
		GenID:      node,
		Clock:      fakeClock,
		Repo:       repository.Provide(),
		QuoteRepo:  quotes,
		ClientRepo: clients,
		PDF:        stub,
	})

	return &fixture{
		db:         db,
		svc:        svc,
		clock:      fakeClock,
		genID:      node,
		clientRepo: clients,
		quoteRepo:  quotes,
		pdf:        stub,
	}
}

func (f *fixture) seedQuote(t *testing.T, status quotedomain.QuoteStatus) (clientdomain.Client, quotedomain.Quote) {
	t.Helper()
	ctx := context.Background()

	id := f.genID.Generate()
	cl := clientdomain.Client{
		ID:    id,
		Name:  "Acme Pty Ltd",
		Email: "accounts+" + id.String() + "@acme.test",
	}
	require.NoError(t, f.clientRepo.Insert(ctx, f.db, &cl))

	q := quotedomain.Quote{
		ID:       f.genID.Generate(),
		ClientID: cl.ID,
		Title:    "Site redesign",
		Status:   status,
		LineItems: []quotedomain.LineItem{
			{ID: f.genID.Generate(), Description: "Design", Quantity: 10, Rate: decimal.RequireFromString("90.00")},
		},
		Tax: decimal.RequireFromString("90.00"),
	}
	for i := range q.LineItems {
		q.LineItems[i].QuoteID = q.ID
	}
	quotedomain.RecalculateTotals(&q)
	require.NoError(t, f.quoteRepo.Insert(ctx, f.db, &q))
	return cl, q
}

func TestCreateInvoiceFromQuote(t *testing.T) {
	f := newFixture(t)
	cl, q := f.seedQuote(t, quotedomain.QuoteStatusAccepted)

	due := time.Date(2026, 4, 14, 0, 0, 0, 0, time.UTC)
	inv, err := f.svc.Create(context.Background(), domain.CreateInvoiceRequest{
		QuoteID: q.ID.String(),
		DueDate: due,
	})
	require.NoError(t, err)

	assert.Equal(t, "INV-00001", inv.InvoiceNumber)
	assert.Equal(t, domain.InvoiceStatusSent, inv.Status)
	assert.True(t, inv.Total.Equal(q.Total))
	assert.True(t, inv.BalanceDue.Equal(q.Total))
	require.NotNil(t, inv.DueDate)
	assert.Equal(t, due, inv.DueDate.UTC())

	// Issuing bumps the client's cached billed total in the same transaction.
	got, err := f.clientRepo.FindByID(context.Background(), f.db, cl.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.TotalBilled.Equal(q.Total), "total_billed %s", got.TotalBilled)
}

func TestCreateInvoiceRejectsSecondIssue(t *testing.T) {
	f := newFixture(t)
	_, q := f.seedQuote(t, quotedomain.QuoteStatusSent)

	due := time.Date(2026, 4, 14, 0, 0, 0, 0, time.UTC)
	_, err := f.svc.Create(context.Background(), domain.CreateInvoiceRequest{QuoteID: q.ID.String(), DueDate: due})
	require.NoError(t, err)

	_, err = f.svc.Create(context.Background(), domain.CreateInvoiceRequest{QuoteID: q.ID.String(), DueDate: due})
	assert.ErrorIs(t, err, domain.ErrAlreadyIssued)
}

func TestCreateInvoiceRequiresInvoiceableQuote(t *testing.T) {
	f := newFixture(t)
	_, draft := f.seedQuote(t, quotedomain.QuoteStatusDraft)

	due := time.Date(2026, 4, 14, 0, 0, 0, 0, time.UTC)
	_, err := f.svc.Create(context.Background(), domain.CreateInvoiceRequest{QuoteID: draft.ID.String(), DueDate: due})
	assert.ErrorIs(t, err, domain.ErrQuoteNotFound)

	_, err = f.svc.Create(context.Background(), domain.CreateInvoiceRequest{QuoteID: snowflake.ID(42).String(), DueDate: due})
	assert.ErrorIs(t, err, domain.ErrQuoteNotFound)

	_, err = f.svc.Create(context.Background(), domain.CreateInvoiceRequest{QuoteID: draft.ID.String()})
	assert.ErrorIs(t, err, domain.ErrInvalidDue)
}

func TestInvoiceNumbersAreSequential(t *testing.T) {
	f := newFixture(t)
	due := time.Date(2026, 4, 14, 0, 0, 0, 0, time.UTC)

	_, first := f.seedQuote(t, quotedomain.QuoteStatusAccepted)
	_, second := f.seedQuote(t, quotedomain.QuoteStatusAccepted)

	a, err := f.svc.Create(context.Background(), domain.CreateInvoiceRequest{QuoteID: first.ID.String(), DueDate: due})
	require.NoError(t, err)
	b, err := f.svc.Create(context.Background(), domain.CreateInvoiceRequest{QuoteID: second.ID.String(), DueDate: due})
	require.NoError(t, err)

	assert.Equal(t, "INV-00001", a.InvoiceNumber)
	assert.Equal(t, "INV-00002", b.InvoiceNumber)
}

func TestListInvoicesFiltersByStatus(t *testing.T) {
	f := newFixture(t)
	due := time.Date(2026, 4, 14, 0, 0, 0, 0, time.UTC)
	_, q := f.seedQuote(t, quotedomain.QuoteStatusAccepted)

	_, err := f.svc.Create(context.Background(), domain.CreateInvoiceRequest{QuoteID: q.ID.String(), DueDate: due})
	require.NoError(t, err)

	sent := domain.InvoiceStatusSent
	resp, err := f.svc.List(context.Background(), domain.ListInvoiceRequest{Status: &sent})
	require.NoError(t, err)
	assert.Len(t, resp.Invoices, 1)

	paid := domain.InvoiceStatusPaid
	resp, err = f.svc.List(context.Background(), domain.ListInvoiceRequest{Status: &paid})
	require.NoError(t, err)
	assert.Empty(t, resp.Invoices)
}

func TestRenderPDFUsesProvider(t *testing.T) {
	f := newFixture(t)
	due := time.Date(2026, 4, 14, 0, 0, 0, 0, time.UTC)
	_, q := f.seedQuote(t, quotedomain.QuoteStatusAccepted)

	inv, err := f.svc.Create(context.Background(), domain.CreateInvoiceRequest{QuoteID: q.ID.String(), DueDate: due})
	require.NoError(t, err)

	reader, filename, err := f.svc.RenderPDF(context.Background(), inv.ID.String())
	require.NoError(t, err)
	assert.Equal(t, inv.InvoiceNumber+".pdf", filename)
	assert.Equal(t, 1, f.pdf.invoiceCalls)

	body, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.NotEmpty(t, body)
}

func TestSendIsIdempotent(t *testing.T) {
	f := newFixture(t)
	due := time.Date(2026, 4, 14, 0, 0, 0, 0, time.UTC)
	_, q := f.seedQuote(t, quotedomain.QuoteStatusAccepted)

	inv, err := f.svc.Create(context.Background(), domain.CreateInvoiceRequest{QuoteID: q.ID.String(), DueDate: due})
	require.NoError(t, err)

	sent, err := f.svc.Send(context.Background(), inv.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusSent, sent.Status)

	again, err := f.svc.Send(context.Background(), inv.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusSent, again.Status)
}
