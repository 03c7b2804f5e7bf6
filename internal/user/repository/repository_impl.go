package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/owlbill/owlbill/internal/user/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, user *domain.User) error {
	return db.WithContext(ctx).Create(user).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.User, error) {
	return r.findOne(db.WithContext(ctx), "id = ?", id)
}

func (r *repo) FindByUsername(ctx context.Context, db *gorm.DB, username string) (*domain.User, error) {
	return r.findOne(db.WithContext(ctx), "username = ?", username)
}

func (r *repo) FindByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.User, error) {
	return r.findOne(db.WithContext(ctx), "lower(email) = lower(?)", email)
}

func (r *repo) findOne(stmt *gorm.DB, query string, arg interface{}) (*domain.User, error) {
	var user domain.User
	err := stmt.First(&user, query, arg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}
