package repository

import (
	"context"
	"errors"

	"loyalty-connector/pkg/errutil"

	"gorm.io/gorm"
)

type Repository[T any] interface {
	FindOne(ctx context.Context, query *T) (*T, error)
	Create(ctx context.Context, resource *T) error
	Save(ctx context.Context, resource *T) error
}

type store[T any] struct {
	db *gorm.DB
}

func ProvideStore[T any](db *gorm.DB) Repository[T] {
	return &store[T]{db: db}
}

// FindOne returns errutil NotFound when no row matches.
func (s *store[T]) FindOne(ctx context.Context, query *T) (*T, error) {
	var out T
	if err := s.db.WithContext(ctx).Where(query).First(&out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errutil.NotFound("record not found", err)
		}
		return nil, err
	}
	return &out, nil
}

func (s *store[T]) Create(ctx context.Context, resource *T) error {
	return s.db.WithContext(ctx).Create(resource).Error
}

// Save updates by primary key and inserts when no row was updated.
func (s *store[T]) Save(ctx context.Context, resource *T) error {
	return s.db.WithContext(ctx).Save(resource).Error
}
