// Package domain contains persistence models and contracts for invoicing.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	paymentdomain "github.com/owlbill/owlbill/internal/payment/domain"
	"github.com/shopspring/decimal"
)

// InvoiceStatus represents invoice lifecycle states.
type InvoiceStatus string

const (
	InvoiceStatusSent    InvoiceStatus = "sent"
	InvoiceStatusPaid    InvoiceStatus = "paid"
	InvoiceStatusOverdue InvoiceStatus = "overdue"
)

// Invoice is issued from exactly one quote and settled by payments.
type Invoice struct {
	ID            snowflake.ID            `gorm:"primaryKey" json:"id"`
	QuoteID       snowflake.ID            `gorm:"not null;uniqueIndex:ux_invoices_quote" json:"quote_id"`
	InvoiceNumber string                  `gorm:"type:text;not null;uniqueIndex:ux_invoices_number" json:"invoice_number"`
	Status        InvoiceStatus           `gorm:"type:text;not null;default:'sent'" json:"status"`
	Subtotal      decimal.Decimal         `gorm:"type:numeric(10,2);not null" json:"subtotal"`
	Tax           decimal.Decimal         `gorm:"type:numeric(10,2);not null" json:"tax"`
	Total         decimal.Decimal         `gorm:"type:numeric(10,2);not null" json:"total"`
	BalanceDue    decimal.Decimal         `gorm:"type:numeric(10,2);not null" json:"balance_due"`
	DueDate       *time.Time              `gorm:"type:date" json:"due_date,omitempty"`
	Payments      []paymentdomain.Payment `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"payments,omitempty"`
	CreatedAt     time.Time               `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time               `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }
