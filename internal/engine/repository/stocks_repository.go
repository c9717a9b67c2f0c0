package repository

import (
	"context"

	"stock-signal-engine/internal/entity"

	"gorm.io/gorm"
)

// StocksRepository reads the tracked stock universe.
type StocksRepository interface {
	GetActive(ctx context.Context) ([]entity.Stock, error)
}

type stocksRepository struct {
	db *gorm.DB
}

// NewStocksRepository creates a new GORM-based stocks repository.
func NewStocksRepository(db *gorm.DB) StocksRepository {
	return &stocksRepository{db: db}
}

// GetActive returns the stocks currently enabled for signal generation.
func (s *stocksRepository) GetActive(ctx context.Context) ([]entity.Stock, error) {
	var stocks []entity.Stock
	if err := s.db.WithContext(ctx).Where("is_active = ?", true).Find(&stocks).Error; err != nil {
		return nil, err
	}
	return stocks, nil
}
