package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	clientdomain "github.com/owlbill/owlbill/internal/client/domain"
	"github.com/owlbill/owlbill/internal/clock"
	invoicedomain "github.com/owlbill/owlbill/internal/invoice/domain"
	invoicerepo "github.com/owlbill/owlbill/internal/invoice/repository"
	"github.com/owlbill/owlbill/internal/payment/domain"
	"github.com/owlbill/owlbill/internal/payment/repository"
	quotedomain "github.com/owlbill/owlbill/internal/quote/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db    *gorm.DB
	svc   domain.Service
	clock *clock.FakeClock
	repo  invoicedomain.Repository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&clientdomain.Client{},
		&quotedomain.Quote{},
		&quotedomain.LineItem{},
		&invoicedomain.Invoice{},
		&domain.Payment{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fakeClock := clock.NewFakeClock(time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC))
	invRepo := invoicerepo.Provide()

	svc := New(Params{
		DB:          db,
		Log:         zap.NewNop(),
		GenID:       node,
		Clock:       fakeClock,
		Repo:        repository.Provide(),
		InvoiceRepo: invRepo,
	})

	return &fixture{db: db, svc: svc, clock: fakeClock, repo: invRepo}
}

func (f *fixture) issueInvoice(t *testing.T, total string, dueDate time.Time) invoicedomain.Invoice {
	t.Helper()

	amount, err := decimal.NewFromString(total)
	require.NoError(t, err)

	inv := invoicedomain.Invoice{
		ID:            snowflake.ID(time.Now().UnixNano()),
		QuoteID:       snowflake.ID(time.Now().UnixNano() + 1),
		InvoiceNumber: "INV-" + snowflake.ID(time.Now().UnixNano()).String(),
		Status:        invoicedomain.InvoiceStatusSent,
		Subtotal:      amount,
		Total:         amount,
		BalanceDue:    amount,
		DueDate:       &dueDate,
		CreatedAt:     f.clock.Now(),
		UpdatedAt:     f.clock.Now(),
	}
	require.NoError(t, f.repo.Insert(context.Background(), f.db, &inv))
	return inv
}

func (f *fixture) reload(t *testing.T, id snowflake.ID) invoicedomain.Invoice {
	t.Helper()
	inv, err := f.repo.FindByID(context.Background(), f.db, id)
	require.NoError(t, err)
	require.NotNil(t, inv)
	return *inv
}

func TestCreatePartialPayment(t *testing.T) {
	f := newFixture(t)
	due := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	inv := f.issueInvoice(t, "100.00", due)

	payment, err := f.svc.Create(context.Background(), domain.CreatePaymentRequest{
		InvoiceID: inv.ID.String(),
		Amount:    decimal.RequireFromString("40.00"),
		Method:    "bank_transfer",
	})
	require.NoError(t, err)
	assert.Equal(t, inv.ID, payment.InvoiceID)

	got := f.reload(t, inv.ID)
	assert.True(t, got.BalanceDue.Equal(decimal.RequireFromString("60.00")), "balance %s", got.BalanceDue)
	assert.Equal(t, invoicedomain.InvoiceStatusSent, got.Status)
}

func TestCreatePaymentSettlesInvoice(t *testing.T) {
	f := newFixture(t)
	due := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	inv := f.issueInvoice(t, "100.00", due)

	_, err := f.svc.Create(context.Background(), domain.CreatePaymentRequest{
		InvoiceID: inv.ID.String(),
		Amount:    decimal.RequireFromString("60.00"),
		Method:    "card",
	})
	require.NoError(t, err)

	_, err = f.svc.Create(context.Background(), domain.CreatePaymentRequest{
		InvoiceID: inv.ID.String(),
		Amount:    decimal.RequireFromString("40.00"),
		Method:    "card",
	})
	require.NoError(t, err)

	got := f.reload(t, inv.ID)
	assert.True(t, got.BalanceDue.IsZero())
	assert.Equal(t, invoicedomain.InvoiceStatusPaid, got.Status)
}

func TestCreatePaymentRejectsOverpayment(t *testing.T) {
	f := newFixture(t)
	due := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	inv := f.issueInvoice(t, "100.00", due)

	_, err := f.svc.Create(context.Background(), domain.CreatePaymentRequest{
		InvoiceID: inv.ID.String(),
		Amount:    decimal.RequireFromString("100.01"),
		Method:    "card",
	})
	assert.ErrorIs(t, err, domain.ErrOverpayment)

	got := f.reload(t, inv.ID)
	assert.True(t, got.BalanceDue.Equal(decimal.RequireFromString("100.00")))
	assert.Empty(t, got.Payments)
}

func TestCreatePaymentValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), domain.CreatePaymentRequest{
		InvoiceID: "abc",
		Amount:    decimal.RequireFromString("1.00"),
		Method:    "card",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidID)

	due := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	inv := f.issueInvoice(t, "100.00", due)

	_, err = f.svc.Create(context.Background(), domain.CreatePaymentRequest{
		InvoiceID: inv.ID.String(),
		Amount:    decimal.Zero,
		Method:    "card",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = f.svc.Create(context.Background(), domain.CreatePaymentRequest{
		InvoiceID: inv.ID.String(),
		Amount:    decimal.RequireFromString("1.00"),
		Method:    "  ",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidMethod)

	_, err = f.svc.Create(context.Background(), domain.CreatePaymentRequest{
		InvoiceID: inv.ID.String(),
		Amount:    decimal.RequireFromString("99.999"),
		Method:    "card",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = f.svc.Create(context.Background(), domain.CreatePaymentRequest{
		InvoiceID: snowflake.ID(987654321).String(),
		Amount:    decimal.RequireFromString("1.00"),
		Method:    "card",
	})
	assert.ErrorIs(t, err, domain.ErrInvoiceNotFound)
}

func TestDeletePaymentRevertsSettlement(t *testing.T) {
	f := newFixture(t)
	due := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	inv := f.issueInvoice(t, "100.00", due)

	payment, err := f.svc.Create(context.Background(), domain.CreatePaymentRequest{
		InvoiceID: inv.ID.String(),
		Amount:    decimal.RequireFromString("100.00"),
		Method:    "card",
	})
	require.NoError(t, err)
	require.Equal(t, invoicedomain.InvoiceStatusPaid, f.reload(t, inv.ID).Status)

	require.NoError(t, f.svc.Delete(context.Background(), payment.ID.String()))

	got := f.reload(t, inv.ID)
	assert.True(t, got.BalanceDue.Equal(decimal.RequireFromString("100.00")))
	assert.Equal(t, invoicedomain.InvoiceStatusSent, got.Status)
}

func TestUpdatePaymentAmountReconciles(t *testing.T) {
	f := newFixture(t)
	due := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	inv := f.issueInvoice(t, "100.00", due)

	payment, err := f.svc.Create(context.Background(), domain.CreatePaymentRequest{
		InvoiceID: inv.ID.String(),
		Amount:    decimal.RequireFromString("40.00"),
		Method:    "card",
	})
	require.NoError(t, err)

	full := decimal.RequireFromString("100.00")
	updated, err := f.svc.Update(context.Background(), domain.UpdatePaymentRequest{
		ID:     payment.ID.String(),
		Amount: &full,
	})
	require.NoError(t, err)
	assert.True(t, updated.Amount.Equal(full))

	got := f.reload(t, inv.ID)
	assert.True(t, got.BalanceDue.IsZero())
	assert.Equal(t, invoicedomain.InvoiceStatusPaid, got.Status)

	over := decimal.RequireFromString("100.01")
	_, err = f.svc.Update(context.Background(), domain.UpdatePaymentRequest{
		ID:     payment.ID.String(),
		Amount: &over,
	})
	assert.ErrorIs(t, err, domain.ErrOverpayment)

	subCent := decimal.RequireFromString("59.995")
	_, err = f.svc.Update(context.Background(), domain.UpdatePaymentRequest{
		ID:     payment.ID.String(),
		Amount: &subCent,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestPaymentOnPastDueInvoice(t *testing.T) {
	f := newFixture(t)
	due := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) // before the fake clock
	inv := f.issueInvoice(t, "100.00", due)

	_, err := f.svc.Create(context.Background(), domain.CreatePaymentRequest{
		InvoiceID: inv.ID.String(),
		Amount:    decimal.RequireFromString("40.00"),
		Method:    "card",
	})
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.InvoiceStatusOverdue, f.reload(t, inv.ID).Status)

	_, err = f.svc.Create(context.Background(), domain.CreatePaymentRequest{
		InvoiceID: inv.ID.String(),
		Amount:    decimal.RequireFromString("60.00"),
		Method:    "card",
	})
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.InvoiceStatusPaid, f.reload(t, inv.ID).Status)
}

func TestDeleteUnknownPayment(t *testing.T) {
	f := newFixture(t)
	err := f.svc.Delete(context.Background(), snowflake.ID(123456789).String())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
