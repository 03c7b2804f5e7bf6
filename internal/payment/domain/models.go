package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Payment records money received against a single invoice.
type Payment struct {
	ID        snowflake.ID    `gorm:"primaryKey" json:"id"`
	InvoiceID snowflake.ID    `gorm:"not null;index" json:"invoice_id"`
	Amount    decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"amount"`
	Method    string          `gorm:"type:text;not null" json:"method"`
	Reference string          `gorm:"type:text" json:"reference,omitempty"`
	PaidAt    time.Time       `gorm:"not null" json:"paid_at"`
	CreatedAt time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Payment) TableName() string { return "payments" }

type CreatePaymentRequest struct {
	InvoiceID string
	Amount    decimal.Decimal
	Method    string
	Reference string
	PaidAt    *time.Time
}

type UpdatePaymentRequest struct {
	ID        string
	Amount    *decimal.Decimal
	Method    *string
	Reference *string
	PaidAt    *time.Time
}

type Service interface {
	Create(ctx context.Context, req CreatePaymentRequest) (Payment, error)
	Update(ctx context.Context, req UpdatePaymentRequest) (Payment, error)
	Delete(ctx context.Context, id string) error
}

var (
	ErrNotFound        = errors.New("not_found")
	ErrInvalidID       = errors.New("invalid_id")
	ErrInvalidAmount   = errors.New("invalid_amount")
	ErrInvalidMethod   = errors.New("invalid_method")
	ErrOverpayment     = errors.New("overpayment")
	ErrInvoiceNotFound = errors.New("invoice_not_found")
)
