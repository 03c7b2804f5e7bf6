// Package domain contains persistence models and contracts for quoting.
package domain

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// QuoteStatus represents quote lifecycle states.
type QuoteStatus string

const (
	QuoteStatusDraft    QuoteStatus = "draft"
	QuoteStatusSent     QuoteStatus = "sent"
	QuoteStatusAccepted QuoteStatus = "accepted"
	QuoteStatusDeclined QuoteStatus = "declined"
)

// Quote is a priced proposal for a client. Accepting or sending it makes it
// eligible for invoicing.
type Quote struct {
	ID         snowflake.ID    `gorm:"primaryKey" json:"id"`
	ClientID   snowflake.ID    `gorm:"not null;index" json:"client_id"`
	Title      string          `gorm:"type:text;not null" json:"title"`
	Status     QuoteStatus     `gorm:"type:text;not null;default:'draft'" json:"status"`
	Subtotal   decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"subtotal"`
	Tax        decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0" json:"tax"`
	Total      decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"total"`
	ExpiryDate *time.Time      `gorm:"type:date" json:"expiry_date,omitempty"`
	LineItems  []LineItem      `gorm:"foreignKey:QuoteID;constraint:OnDelete:CASCADE" json:"line_items,omitempty"`
	CreatedAt  time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Quote) TableName() string { return "quotes" }

// LineItem is a priced line on a quote.
type LineItem struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	QuoteID     snowflake.ID    `gorm:"not null;index" json:"quote_id"`
	Description string          `gorm:"type:text;not null" json:"description"`
	Quantity    int64           `gorm:"not null;default:1" json:"quantity"`
	Rate        decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"rate"`
	Total       decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"total"`
	CreatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (LineItem) TableName() string { return "line_items" }

// Invoiceable reports whether an invoice may be issued from this quote.
func (q Quote) Invoiceable() bool {
	return q.Status == QuoteStatusSent || q.Status == QuoteStatusAccepted
}

type LineItemInput struct {
	Description string          `json:"description"`
	Quantity    int64           `json:"quantity"`
	Rate        decimal.Decimal `json:"rate"`
}

type CreateQuoteRequest struct {
	ClientID   string
	Title      string
	Tax        decimal.Decimal
	ExpiryDate *time.Time
	Items      []LineItemInput
}

type UpdateQuoteRequest struct {
	ID         string
	Title      *string
	Tax        *decimal.Decimal
	ExpiryDate *time.Time
	Items      []LineItemInput // nil = keep existing items
}

type ListQuoteRequest struct {
	Status    *QuoteStatus
	ClientID  *string
	PageToken string
	PageSize  int
}

type ListQuoteResponse struct {
	Quotes        []Quote `json:"quotes"`
	NextPageToken string  `json:"next_page_token,omitempty"`
	HasMore       bool    `json:"has_more"`
}

type Service interface {
	Create(ctx context.Context, req CreateQuoteRequest) (Quote, error)
	GetByID(ctx context.Context, id string) (Quote, error)
	List(ctx context.Context, req ListQuoteRequest) (ListQuoteResponse, error)
	Update(ctx context.Context, req UpdateQuoteRequest) (Quote, error)
	Transition(ctx context.Context, id string, status QuoteStatus) (Quote, error)
	Delete(ctx context.Context, id string) error
	RenderPDF(ctx context.Context, id string) (io.Reader, string, error)
}

var (
	ErrNotFound          = errors.New("not_found")
	ErrInvalidID         = errors.New("invalid_id")
	ErrInvalidTitle      = errors.New("invalid_title")
	ErrInvalidStatus     = errors.New("invalid_status")
	ErrInvalidLineItem   = errors.New("invalid_line_item")
	ErrClientNotFound    = errors.New("client_not_found")
	ErrInvalidTransition = errors.New("invalid_transition")
)
