package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bangunanpro/backend/internal/domain"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrAlreadySettled     = errors.New("transaction already settled")
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrForbidden          = errors.New("forbidden role")
)

// Catalog owns products and their stock levels.
type Catalog interface {
	ListProducts(ctx context.Context, query string) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	AdjustStock(ctx context.Context, id string, delta int) (int, error)
	Restock(ctx context.Context, id string, qty int) (int, error)
}

// Ledger records completed sales. Transactions are never deleted; only the
// settlement path mutates them after creation.
type Ledger interface {
	// CommitTransaction checks every line against current stock before
	// decrementing any of them, then records tx. On ErrInsufficientStock
	// nothing has been applied.
	CommitTransaction(ctx context.Context, tx domain.Transaction) (*domain.Transaction, error)
	ListTransactions(ctx context.Context) ([]domain.Transaction, error)
	FindTransaction(ctx context.Context, id string) (*domain.Transaction, error)
	SettleTransaction(ctx context.Context, id string, at time.Time) (*domain.Transaction, error)
}

type Repository interface {
	Catalog
	Ledger
	ListStaff(ctx context.Context) ([]domain.StaffUser, error)
}

// ValidateProduct checks the fields every backend refuses to store.
func ValidateProduct(p domain.Product) error {
	switch {
	case strings.TrimSpace(p.ID) == "":
		return fmt.Errorf("%w: product id is required", ErrInvalidTransaction)
	case strings.TrimSpace(p.Name) == "":
		return fmt.Errorf("%w: product name is required", ErrInvalidTransaction)
	case p.Price < 0 || p.Cost < 0:
		return fmt.Errorf("%w: price and cost must not be negative", ErrInvalidTransaction)
	case p.Stock < 0 || p.MinStock < 0:
		return fmt.Errorf("%w: stock levels must not be negative", ErrInvalidTransaction)
	}
	return nil
}
