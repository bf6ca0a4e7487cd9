// Package shop implements the storefront use cases on top of the store,
// session and notify packages. HTTP handlers call into it and translate its
// results and errors.
package shop

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"github.com/optiplus/storefront/internal/models"
	"go.uber.org/zap"
)

type Notifier interface {
	SendOrderConfirmation(ctx context.Context, order *models.Order) error
}

type Service struct {
	db       *sql.DB
	notifier Notifier
	validate *validator.Validate
	logger   *zap.Logger
}

func NewService(db *sql.DB, notifier Notifier, logger *zap.Logger) *Service {
	return &Service{
		db:       db,
		notifier: notifier,
		validate: newValidator(),
		logger:   logger,
	}
}

// Health reports whether the database is reachable.
func (s *Service) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
