package domain

import (
	"context"
	"errors"
	"io"
	"time"
)

type CreateInvoiceRequest struct {
	QuoteID string
	DueDate time.Time
}

type ListInvoiceRequest struct {
	Status    *InvoiceStatus
	PageToken string
	PageSize  int
}

type ListInvoiceResponse struct {
	Invoices      []Invoice `json:"invoices"`
	NextPageToken string    `json:"next_page_token,omitempty"`
	HasMore       bool      `json:"has_more"`
}

type Service interface {
	Create(ctx context.Context, req CreateInvoiceRequest) (Invoice, error)
	GetByID(ctx context.Context, id string) (Invoice, error)
	List(ctx context.Context, req ListInvoiceRequest) (ListInvoiceResponse, error)
	// Send marks the invoice as sent. Re-sending is a no-op. Invoices are
	// never deleted directly; they go away with their owning quote.
	Send(ctx context.Context, id string) (Invoice, error)
	RenderPDF(ctx context.Context, id string) (io.Reader, string, error)
}

var (
	ErrNotFound      = errors.New("not_found")
	ErrInvalidID     = errors.New("invalid_id")
	ErrQuoteNotFound = errors.New("quote_not_found")
	ErrAlreadyIssued = errors.New("invoice_already_issued")
	ErrInvalidDue    = errors.New("invalid_due_date")
)
