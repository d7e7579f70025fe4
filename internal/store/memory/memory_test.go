package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bangunanpro/backend/internal/domain"
	"bangunanpro/backend/internal/store"
)

func line(p domain.Product, qty int) domain.TransactionLine {
	return domain.TransactionLine{ProductID: p.ID, Name: p.Name, Unit: p.Unit, Price: p.Price, Cost: p.Cost, Quantity: qty}
}

func mustProduct(t *testing.T, s *Store, id string) domain.Product {
	t.Helper()
	p, err := s.GetProduct(context.Background(), id)
	require.NoError(t, err)
	return *p
}

func TestSeededCatalogKeepsInsertionOrder(t *testing.T) {
	s := NewSeeded()
	products, err := s.ListProducts(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, products, 6)
	for i, want := range []string{"1", "2", "3", "4", "5", "6"} {
		assert.Equal(t, want, products[i].ID)
	}

	staff, err := s.ListStaff(context.Background())
	require.NoError(t, err)
	require.Len(t, staff, 3)
	assert.Equal(t, domain.RoleGudang, staff[2].Role)
}

func TestListProductsSearchIsCaseInsensitive(t *testing.T) {
	s := NewSeeded()
	products, err := s.ListProducts(context.Background(), "  BETON ")
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "Paku Beton 5cm", products[0].Name)
	assert.Equal(t, "Pasir Beton", products[1].Name)
}

func TestSeededLedgerIsNewestFirst(t *testing.T) {
	txs, err := NewSeeded().ListTransactions(context.Background())
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "TRX-001", txs[0].ID)
	assert.Equal(t, "TRX-002", txs[1].ID)
	assert.True(t, txs[0].CreatedAt.After(txs[1].CreatedAt))
}

func TestAdjustStock(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	stock, err := s.AdjustStock(ctx, "3", -8)
	require.NoError(t, err)
	assert.Equal(t, 0, stock)

	_, err = s.AdjustStock(ctx, "3", -1)
	assert.ErrorIs(t, err, store.ErrInsufficientStock)
	assert.Equal(t, 0, mustProduct(t, s, "3").Stock)

	_, err = s.AdjustStock(ctx, "missing", 1)
	assert.ErrorIs(t, err, store.ErrNotFound)

	stock, err = s.Restock(ctx, "3", 20)
	require.NoError(t, err)
	assert.Equal(t, 20, stock)

	_, err = s.Restock(ctx, "3", 0)
	assert.ErrorIs(t, err, store.ErrInvalidTransaction)
}

func TestCommitDecrementsStock(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()
	semen := mustProduct(t, s, "1")

	created, err := s.CommitTransaction(ctx, domain.Transaction{
		ID:            "TRX-A",
		Items:         []domain.TransactionLine{line(semen, 2)},
		Total:         130000,
		PaymentMethod: domain.PaymentCash,
		Status:        domain.TxStatusPaid,
		AmountPaid:    130000,
	})
	require.NoError(t, err)
	assert.Equal(t, "TRX-A", created.ID)
	assert.False(t, created.CreatedAt.IsZero())
	assert.Equal(t, 148, mustProduct(t, s, "1").Stock)

	txs, err := s.ListTransactions(ctx)
	require.NoError(t, err)
	assert.Equal(t, "TRX-A", txs[0].ID)
}

func TestCommitIsAllOrNothing(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()
	semen := mustProduct(t, s, "1")
	paku := mustProduct(t, s, "3")

	_, err := s.CommitTransaction(ctx, domain.Transaction{
		ID:            "TRX-B",
		Items:         []domain.TransactionLine{line(semen, 10), line(paku, 9)},
		Total:         10*65000 + 9*25000,
		PaymentMethod: domain.PaymentCash,
		Status:        domain.TxStatusPaid,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrInsufficientStock))

	assert.Equal(t, 150, mustProduct(t, s, "1").Stock, "earlier lines must not be decremented")
	assert.Equal(t, 8, mustProduct(t, s, "3").Stock)
	_, err = s.FindTransaction(ctx, "TRX-B")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCommitSumsRepeatedLinesAgainstStock(t *testing.T) {
	s := NewSeeded()
	paku := mustProduct(t, s, "3")

	_, err := s.CommitTransaction(context.Background(), domain.Transaction{
		Items:         []domain.TransactionLine{line(paku, 5), line(paku, 4)},
		PaymentMethod: domain.PaymentCash,
	})
	assert.ErrorIs(t, err, store.ErrInsufficientStock)
	assert.Equal(t, 8, mustProduct(t, s, "3").Stock)
}

func TestCommitRejectsEmptyAndUnknown(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	_, err := s.CommitTransaction(ctx, domain.Transaction{ID: "TRX-C"})
	assert.ErrorIs(t, err, store.ErrEmptyCart)

	_, err = s.CommitTransaction(ctx, domain.Transaction{
		Items: []domain.TransactionLine{{ProductID: "nope", Quantity: 1}},
	})
	assert.ErrorIs(t, err, store.ErrNotFound)

	txs, err := s.ListTransactions(ctx)
	require.NoError(t, err)
	assert.Len(t, txs, 2)
}

func TestStoredLinesSurvivePriceEdits(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()
	semen := mustProduct(t, s, "1")

	_, err := s.CommitTransaction(ctx, domain.Transaction{
		ID: "TRX-D", Items: []domain.TransactionLine{line(semen, 1)}, Total: 65000,
		PaymentMethod: domain.PaymentCash, Status: domain.TxStatusPaid, AmountPaid: 65000,
	})
	require.NoError(t, err)

	semen.Price = 70000
	_, err = s.UpdateProduct(ctx, semen)
	require.NoError(t, err)

	tx, err := s.FindTransaction(ctx, "TRX-D")
	require.NoError(t, err)
	assert.Equal(t, int64(65000), tx.Items[0].Price)
	assert.Equal(t, int64(65000), tx.Total)
}

func TestSettleTransaction(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()
	at := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	settled, err := s.SettleTransaction(ctx, "TRX-002", at)
	require.NoError(t, err)
	assert.Equal(t, int64(400000), settled.AmountPaid)
	assert.Equal(t, domain.TxStatusPaid, settled.Status)

	_, err = s.SettleTransaction(ctx, "TRX-002", at.Add(time.Hour))
	assert.ErrorIs(t, err, store.ErrAlreadySettled)

	stored, err := s.FindTransaction(ctx, "TRX-002")
	require.NoError(t, err)
	require.NotNil(t, stored.SettledAt)
	assert.Equal(t, at, *stored.SettledAt, "failed settlement must not touch the record")

	_, err = s.SettleTransaction(ctx, "TRX-404", at)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCreateAndUpdateProduct(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	created, err := s.CreateProduct(ctx, domain.Product{Name: "Pipa PVC 3in", Category: "Pipa", Unit: "Batang", Price: 45000, Cost: 38000, Stock: 12, MinStock: 4})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	products, err := s.ListProducts(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, created.ID, products[len(products)-1].ID)

	_, err = s.CreateProduct(ctx, domain.Product{ID: "1", Name: "Duplikat"})
	assert.ErrorIs(t, err, store.ErrInvalidTransaction)

	created.Stock = 999
	created.Price = 47000
	updated, err := s.UpdateProduct(ctx, *created)
	require.NoError(t, err)
	assert.Equal(t, 12, updated.Stock, "stock is not editable through UpdateProduct")
	assert.Equal(t, int64(47000), updated.Price)

	_, err = s.UpdateProduct(ctx, domain.Product{ID: "missing", Name: "x"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestReturnedValuesAreCopies(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	tx, err := s.FindTransaction(ctx, "TRX-001")
	require.NoError(t, err)
	tx.Items[0].Quantity = 99

	again, err := s.FindTransaction(ctx, "TRX-001")
	require.NoError(t, err)
	assert.Equal(t, 2, again.Items[0].Quantity)
}

func TestStockNeverNegativeUnderRandomOperations(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()
	products, err := s.ListProducts(ctx, "")
	require.NoError(t, err)

	for i := 0; i < 500; i++ {
		target := products[gofakeit.IntRange(0, len(products)-1)]
		switch gofakeit.IntRange(0, 2) {
		case 0:
			_, _ = s.AdjustStock(ctx, target.ID, -gofakeit.IntRange(0, 200))
		case 1:
			_, _ = s.Restock(ctx, target.ID, gofakeit.IntRange(0, 20))
		default:
			other := products[gofakeit.IntRange(0, len(products)-1)]
			_, _ = s.CommitTransaction(ctx, domain.Transaction{
				Items: []domain.TransactionLine{
					line(target, gofakeit.IntRange(1, 60)),
					line(other, gofakeit.IntRange(1, 60)),
				},
				PaymentMethod: domain.PaymentCash,
				Status:        domain.TxStatusPaid,
			})
		}

		current, err := s.ListProducts(ctx, "")
		require.NoError(t, err)
		for _, p := range current {
			require.GreaterOrEqual(t, p.Stock, 0, "stock of %s went negative", p.Name)
		}
	}
}
