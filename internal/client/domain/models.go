// Package domain contains persistence models and contracts for clients.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Client is a billable counterparty.
type Client struct {
	ID    snowflake.ID `gorm:"primaryKey" json:"id"`
	Name  string       `gorm:"type:text;not null" json:"name"`
	Email string       `gorm:"type:text;not null;uniqueIndex:ux_clients_email" json:"email"`
	Phone string       `gorm:"type:text" json:"phone,omitempty"`
	// TotalBilled is a cached aggregate, bumped in the same transaction
	// that issues an invoice for one of the client's quotes.
	TotalBilled decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0" json:"total_billed"`
	CreatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Client) TableName() string { return "clients" }

type CreateClientRequest struct {
	Name  string
	Email string
	Phone string
}

type UpdateClientRequest struct {
	ID    string
	Name  *string
	Email *string
	Phone *string
}

type ListClientRequest struct {
	PageToken string
	PageSize  int
}

type ListClientResponse struct {
	Clients       []Client `json:"clients"`
	NextPageToken string   `json:"next_page_token,omitempty"`
	HasMore       bool     `json:"has_more"`
}

type Service interface {
	Create(ctx context.Context, req CreateClientRequest) (Client, error)
	GetByID(ctx context.Context, id string) (Client, error)
	List(ctx context.Context, req ListClientRequest) (ListClientResponse, error)
	Update(ctx context.Context, req UpdateClientRequest) (Client, error)
	Delete(ctx context.Context, id string) error
}

var (
	ErrNotFound     = errors.New("not_found")
	ErrInvalidID    = errors.New("invalid_id")
	ErrInvalidName  = errors.New("invalid_name")
	ErrInvalidEmail = errors.New("invalid_email")
	ErrEmailExists  = errors.New("email_exists")
)
