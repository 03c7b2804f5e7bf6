package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/owlbill/owlbill/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListQuoteFilter struct {
	Status   *QuoteStatus
	ClientID *snowflake.ID
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, quote *Quote) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Quote, error)
	List(ctx context.Context, db *gorm.DB, filter ListQuoteFilter, page pagination.Pagination) ([]*Quote, error)
	Update(ctx context.Context, db *gorm.DB, quote *Quote) error
	ReplaceLineItems(ctx context.Context, db *gorm.DB, quoteID snowflake.ID, items []LineItem) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
}
