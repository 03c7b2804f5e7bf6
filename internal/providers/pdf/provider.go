// Package pdf renders printable documents for quotes and invoices.
package pdf

import (
	"context"
	"io"
)

type InvoiceDocument struct {
	CompanyName  string
	CompanyEmail string

	InvoiceNumber string
	Status        string
	IssueDate     string
	DueDate       string

	BillToName  string
	BillToEmail string
	BillToPhone string

	Items []LineItem

	Subtotal   string
	Tax        string
	Total      string
	BalanceDue string
}

type QuoteDocument struct {
	CompanyName  string
	CompanyEmail string

	Title      string
	Status     string
	IssueDate  string
	ExpiryDate string

	ClientName  string
	ClientEmail string

	Items []LineItem

	Subtotal string
	Tax      string
	Total    string
}

type LineItem struct {
	Description string
	Quantity    int64
	Rate        string
	Amount      string
}

type Provider interface {
	GenerateInvoice(ctx context.Context, doc InvoiceDocument) (io.Reader, error)
	GenerateQuote(ctx context.Context, doc QuoteDocument) (io.Reader, error)
}
