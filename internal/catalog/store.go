package catalog

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/beemart/server/internal/db"
)

const (
	DefaultLimit = 50
	MaxLimit     = 100
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrConstraint wraps unique, foreign key and check violations.
	ErrConstraint = errors.New("record violates a constraint")
)

// Record is a pointer to a catalog model
type Record[T any] interface {
	*T
	ResetSystemFields()
}

// Store is a flat CRUD repository over one table
type Store[T any, PT Record[T]] struct {
	db *gorm.DB
}

func NewStore[T any, PT Record[T]](orm *gorm.DB) *Store[T, PT] {
	return &Store[T, PT]{db: orm}
}

// List returns records ordered by id. limit is clamped to [1, MaxLimit].
func (s *Store[T, PT]) List(ctx context.Context, limit, offset int) ([]T, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	items := make([]T, 0, limit)
	if err := s.db.WithContext(ctx).Order("id").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	return items, nil
}

func (s *Store[T, PT]) Get(ctx context.Context, id int64) (T, error) {
	var item T
	if err := s.db.WithContext(ctx).First(&item, id).Error; err != nil {
		return item, translate(err)
	}
	return item, nil
}

// Create inserts item and fills in its id and timestamps.
func (s *Store[T, PT]) Create(ctx context.Context, item PT) error {
	item.ResetSystemFields()
	if err := s.db.WithContext(ctx).Create(item).Error; err != nil {
		return translate(err)
	}
	return nil
}

// Update replaces every column of record id with item and returns the stored row.
func (s *Store[T, PT]) Update(ctx context.Context, id int64, item PT) (T, error) {
	item.ResetSystemFields()
	res := s.db.WithContext(ctx).
		Model(PT(new(T))).
		Where("id = ?", id).
		Select("*").
		Omit("id", "created_at").
		Updates(item)
	if res.Error != nil {
		var zero T
		return zero, translate(res.Error)
	}
	if res.RowsAffected == 0 {
		var zero T
		return zero, ErrNotFound
	}
	return s.Get(ctx, id)
}

func (s *Store[T, PT]) Delete(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Delete(PT(new(T)), id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func translate(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey),
		errors.Is(err, gorm.ErrForeignKeyViolated),
		errors.Is(err, gorm.ErrCheckConstraintViolated),
		db.IsConstraintViolation(err):
		return fmt.Errorf("%w: %v", ErrConstraint, err)
	default:
		return err
	}
}
