// Package services orchestrates store calls and normalizes storage-layer
// failures into the closed set of domain error kinds.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"spendlog/internal/core"
)

// Store is the persistence contract the service depends on. Satisfied by
// storage.SQLiteRepository.
type Store interface {
	Create(ctx context.Context, d core.Draft) (core.Expense, error)
	List(ctx context.Context, q core.ListQuery) ([]core.Expense, error)
	GetByID(ctx context.Context, id string) (core.Expense, error)
	UpdateByID(ctx context.Context, id string, p core.Patch) (core.Expense, error)
	DeleteByID(ctx context.Context, id string) (core.Expense, error)
	SumByCategory(ctx context.Context, category string) (core.Money, error)
	Close() error
}

// ExpenseService is thin orchestration over the store. Already-tagged domain
// errors pass through untouched; anything unexpected is logged and replaced
// with an internal error so storage detail never leaks to the transport.
type ExpenseService struct {
	store Store
}

func NewExpenseService(store Store) *ExpenseService {
	return &ExpenseService{store: store}
}

func (s *ExpenseService) Create(ctx context.Context, d core.Draft) (core.Expense, error) {
	e, err := s.store.Create(ctx, d)
	return e, s.normalize(ctx, err, "failed to create expense")
}

func (s *ExpenseService) List(ctx context.Context, q core.ListQuery) ([]core.Expense, error) {
	expenses, err := s.store.List(ctx, q)
	return expenses, s.normalize(ctx, err, "failed to retrieve expenses")
}

func (s *ExpenseService) GetByID(ctx context.Context, id string) (core.Expense, error) {
	e, err := s.store.GetByID(ctx, id)
	return e, s.normalize(ctx, err, "failed to retrieve expense")
}

func (s *ExpenseService) UpdateByID(ctx context.Context, id string, p core.Patch) (core.Expense, error) {
	e, err := s.store.UpdateByID(ctx, id, p)
	return e, s.normalize(ctx, err, "failed to update expense")
}

func (s *ExpenseService) DeleteByID(ctx context.Context, id string) (core.Expense, error) {
	e, err := s.store.DeleteByID(ctx, id)
	return e, s.normalize(ctx, err, "failed to delete expense")
}

func (s *ExpenseService) SumByCategory(ctx context.Context, category string) (core.Money, error) {
	total, err := s.store.SumByCategory(ctx, category)
	return total, s.normalize(ctx, err, "failed to calculate total")
}

func (s *ExpenseService) Close() error {
	if s.store == nil {
		return nil
	}
	if err := s.store.Close(); err != nil {
		return fmt.Errorf("close expense store: %w", err)
	}
	return nil
}

// normalize maps a storage failure onto the domain taxonomy: tagged variants
// and validation errors pass through; everything else becomes internal.
func (s *ExpenseService) normalize(ctx context.Context, err error, msg string) error {
	if err == nil {
		return nil
	}

	var ve *core.ValidationError
	switch {
	case errors.As(err, &ve),
		errors.Is(err, core.ErrNotFound),
		errors.Is(err, core.ErrInvalidID),
		errors.Is(err, core.ErrDuplicateID):
		return err
	}

	slog.ErrorContext(ctx, "Unexpected store failure", "error", err)
	return fmt.Errorf("%s: %w", msg, core.ErrInternal)
}
