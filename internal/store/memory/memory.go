package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"bangunanpro/backend/internal/domain"
	"bangunanpro/backend/internal/ledger"
	"bangunanpro/backend/internal/store"
	"bangunanpro/backend/internal/xid"
)

type Store struct {
	mu               sync.RWMutex
	productOrder     []string
	products         map[string]domain.Product
	transactions     []*domain.Transaction // newest first
	transactionsByID map[string]*domain.Transaction
	staff            []domain.StaffUser
}

func New() *Store {
	return &Store{
		products:         make(map[string]domain.Product),
		transactionsByID: make(map[string]*domain.Transaction),
	}
}

// NewSeeded returns the demo store: six building materials, three staff
// accounts and two sales from the last day, one of them still on credit.
func NewSeeded() *Store {
	s := New()
	for _, p := range seedProducts() {
		s.productOrder = append(s.productOrder, p.ID)
		s.products[p.ID] = p
	}
	s.staff = seedStaff()

	now := time.Now().UTC()
	for _, tx := range seedTransactions(now) {
		tx := tx
		s.transactions = append(s.transactions, &tx)
		s.transactionsByID[tx.ID] = &tx
	}
	return s
}

func seedProducts() []domain.Product {
	return []domain.Product{
		{ID: "1", Name: "Semen Tiga Roda 50kg", Category: "Material Dasar", Unit: "Sak", Price: 65000, Cost: 58000, Stock: 150, MinStock: 20},
		{ID: "2", Name: "Cat Tembok Dulux Putih 5kg", Category: "Cat & Pelapis", Unit: "Kaleng", Price: 145000, Cost: 120000, Stock: 15, MinStock: 5},
		{ID: "3", Name: "Paku Beton 5cm", Category: "Perkakas", Unit: "Box", Price: 25000, Cost: 15000, Stock: 8, MinStock: 10},
		{ID: "4", Name: "Pasir Beton", Category: "Material Dasar", Unit: "Pick Up", Price: 250000, Cost: 200000, Stock: 40, MinStock: 5},
		{ID: "5", Name: "Bata Merah", Category: "Material Dasar", Unit: "Pcs", Price: 800, Cost: 600, Stock: 5000, MinStock: 1000},
		{ID: "6", Name: "Thinner A Special", Category: "Cat & Pelapis", Unit: "Kaleng", Price: 35000, Cost: 28000, Stock: 24, MinStock: 10},
	}
}

func seedStaff() []domain.StaffUser {
	return []domain.StaffUser{
		{ID: "1", Name: "Budi (Admin)", Role: domain.RoleAdmin},
		{ID: "2", Name: "Siti (Kasir)", Role: domain.RoleKasir},
		{ID: "3", Name: "Joko (Gudang)", Role: domain.RoleGudang},
	}
}

func seedTransactions(now time.Time) []domain.Transaction {
	return []domain.Transaction{
		{
			ID:        "TRX-001",
			CreatedAt: now,
			Items: []domain.TransactionLine{
				{ProductID: "1", Name: "Semen Tiga Roda 50kg", Unit: "Sak", Price: 65000, Cost: 58000, Quantity: 2},
			},
			Total:         130000,
			PaymentMethod: domain.PaymentCash,
			CustomerName:  domain.WalkInCustomer,
			CashierName:   "Siti",
			Status:        domain.TxStatusPaid,
			AmountPaid:    130000,
		},
		{
			ID:        "TRX-002",
			CreatedAt: now.Add(-24 * time.Hour),
			Items: []domain.TransactionLine{
				{ProductID: "5", Name: "Bata Merah", Unit: "Pcs", Price: 800, Cost: 600, Quantity: 500},
			},
			Total:         400000,
			PaymentMethod: domain.PaymentTempo,
			CustomerName:  "Pak Ahmad (Proyek)",
			CashierName:   "Siti",
			Status:        domain.TxStatusPending,
			AmountPaid:    100000,
		},
	}
}

func (s *Store) ListStaff(_ context.Context) ([]domain.StaffUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	staff := make([]domain.StaffUser, len(s.staff))
	copy(staff, s.staff)
	return staff, nil
}

func (s *Store) ListProducts(_ context.Context, query string) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(strings.TrimSpace(query))
	products := make([]domain.Product, 0, len(s.productOrder))
	for _, id := range s.productOrder {
		p := s.products[id]
		if needle != "" && !strings.Contains(strings.ToLower(p.Name), needle) {
			continue
		}
		products = append(products, p)
	}
	return products, nil
}

func (s *Store) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.products[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyProduct := product
	return &copyProduct, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.ID == "" {
		product.ID = xid.New("prd")
	}
	if err := store.ValidateProduct(product); err != nil {
		return nil, err
	}
	if _, exists := s.products[product.ID]; exists {
		return nil, fmt.Errorf("%w: product %s already exists", store.ErrInvalidTransaction, product.ID)
	}

	s.products[product.ID] = product
	s.productOrder = append(s.productOrder, product.ID)
	created := product
	return &created, nil
}

// UpdateProduct replaces the descriptive and price fields. Stock only moves
// through AdjustStock and Restock.
func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.products[product.ID]
	if !exists {
		return nil, store.ErrNotFound
	}
	product.Stock = existing.Stock
	if err := store.ValidateProduct(product); err != nil {
		return nil, err
	}

	s.products[product.ID] = product
	updated := product
	return &updated, nil
}

func (s *Store) AdjustStock(_ context.Context, id string, delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, exists := s.products[id]
	if !exists {
		return 0, store.ErrNotFound
	}
	next := product.Stock + delta
	if next < 0 {
		return product.Stock, store.ErrInsufficientStock
	}
	product.Stock = next
	s.products[id] = product
	return next, nil
}

func (s *Store) Restock(ctx context.Context, id string, qty int) (int, error) {
	if qty < 1 {
		return 0, fmt.Errorf("%w: restock quantity must be at least 1", store.ErrInvalidTransaction)
	}
	return s.AdjustStock(ctx, id, qty)
}

func (s *Store) CommitTransaction(_ context.Context, tx domain.Transaction) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(tx.Items) == 0 {
		return nil, store.ErrEmptyCart
	}
	if tx.ID == "" {
		tx.ID = xid.New("trx")
	}
	if _, exists := s.transactionsByID[tx.ID]; exists {
		return nil, fmt.Errorf("%w: transaction %s already recorded", store.ErrInvalidTransaction, tx.ID)
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}

	demand := ledger.StockDemand(tx.Items)
	for productID, qty := range demand {
		product, exists := s.products[productID]
		if !exists {
			return nil, fmt.Errorf("product %s: %w", productID, store.ErrNotFound)
		}
		if product.Stock < qty {
			return nil, fmt.Errorf("product %s has %d left, %d requested: %w", productID, product.Stock, qty, store.ErrInsufficientStock)
		}
	}

	for productID, qty := range demand {
		product := s.products[productID]
		product.Stock -= qty
		s.products[productID] = product
	}

	txCopy := cloneTransaction(&tx)
	s.transactions = append([]*domain.Transaction{txCopy}, s.transactions...)
	s.transactionsByID[tx.ID] = txCopy

	return cloneTransaction(txCopy), nil
}

func (s *Store) ListTransactions(_ context.Context) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Transaction, 0, len(s.transactions))
	for _, tx := range s.transactions {
		result = append(result, *cloneTransaction(tx))
	}
	return result, nil
}

func (s *Store) FindTransaction(_ context.Context, id string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.transactionsByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneTransaction(tx), nil
}

func (s *Store) SettleTransaction(_ context.Context, id string, at time.Time) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactionsByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	settled, err := ledger.Settle(*tx, at)
	if err != nil {
		return nil, err
	}
	*tx = settled

	return cloneTransaction(tx), nil
}

func cloneTransaction(src *domain.Transaction) *domain.Transaction {
	if src == nil {
		return nil
	}
	dup := *src
	dupItems := make([]domain.TransactionLine, len(src.Items))
	copy(dupItems, src.Items)
	dup.Items = dupItems
	if src.SettledAt != nil {
		settledAt := *src.SettledAt
		dup.SettledAt = &settledAt
	}
	return &dup
}
