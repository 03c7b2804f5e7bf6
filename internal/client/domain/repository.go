package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/owlbill/owlbill/pkg/db/pagination"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, client *Client) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Client, error)
	FindByEmail(ctx context.Context, db *gorm.DB, email string) (*Client, error)
	List(ctx context.Context, db *gorm.DB, page pagination.Pagination) ([]*Client, error)
	Update(ctx context.Context, db *gorm.DB, client *Client) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	AddToTotalBilled(ctx context.Context, db *gorm.DB, id snowflake.ID, amount decimal.Decimal) error
}
