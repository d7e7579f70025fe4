package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"bangunanpro/backend/internal/domain"
	"bangunanpro/backend/internal/ledger"
	"bangunanpro/backend/internal/store"
	"bangunanpro/backend/internal/xid"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Store struct {
	db *sql.DB
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate applies the embedded schema files in name order. Every statement
// is idempotent so it runs on each start.
func (s *Store) Migrate(ctx context.Context) error {
	names, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return err
	}
	sort.Strings(names)
	for _, name := range names {
		body, err := migrations.ReadFile(name)
		if err != nil {
			return err
		}
		for _, stmt := range strings.Split(string(body), ";\n") {
			stmt = strings.TrimSpace(stmt)
			if stmt == "" {
				continue
			}
			if _, err := s.db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("migration %s: %w", name, err)
			}
		}
	}
	return nil
}

func (s *Store) ListStaff(ctx context.Context) ([]domain.StaffUser, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, role
		FROM staff_users
		ORDER BY position
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	staff := make([]domain.StaffUser, 0, 8)
	for rows.Next() {
		var u domain.StaffUser
		if err := rows.Scan(&u.ID, &u.Name, &u.Role); err != nil {
			return nil, err
		}
		staff = append(staff, u)
	}
	return staff, rows.Err()
}

func (s *Store) ListProducts(ctx context.Context, query string) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, category, unit, price, cost, stock, min_stock
		FROM products
		WHERE $1 = '' OR name ILIKE '%' || $1 || '%'
		ORDER BY position
	`, escapeLike(strings.TrimSpace(query)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 64)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.Unit, &p.Price, &p.Cost, &p.Stock, &p.MinStock); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, category, unit, price, cost, stock, min_stock
		FROM products
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Category, &p.Unit, &p.Price, &p.Cost, &p.Stock, &p.MinStock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" {
		product.ID = xid.New("prd")
	}
	if err := store.ValidateProduct(product); err != nil {
		return nil, err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, category, unit, price, cost, stock, min_stock, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,now(),now())
	`, product.ID, product.Name, product.Category, product.Unit, product.Price, product.Cost, product.Stock, product.MinStock)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: product %s already exists", store.ErrInvalidTransaction, product.ID)
		}
		return nil, err
	}

	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	// stock is validated as whatever is stored; it is never written here
	check := product
	check.Stock = 0
	if err := store.ValidateProduct(check); err != nil {
		return nil, err
	}

	var updated domain.Product
	err := s.db.QueryRowContext(ctx, `
		UPDATE products
		SET name = $2, category = $3, unit = $4, price = $5, cost = $6, min_stock = $7, updated_at = now()
		WHERE id = $1
		RETURNING id, name, category, unit, price, cost, stock, min_stock
	`, product.ID, product.Name, product.Category, product.Unit, product.Price, product.Cost, product.MinStock).
		Scan(&updated.ID, &updated.Name, &updated.Category, &updated.Unit, &updated.Price, &updated.Cost, &updated.Stock, &updated.MinStock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &updated, nil
}

func (s *Store) AdjustStock(ctx context.Context, id string, delta int) (int, error) {
	var stock int
	err := s.db.QueryRowContext(ctx, `
		UPDATE products
		SET stock = stock + $2, updated_at = now()
		WHERE id = $1 AND stock + $2 >= 0
		RETURNING stock
	`, id, delta).Scan(&stock)
	if err == nil {
		return stock, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}

	current, err := s.GetProduct(ctx, id)
	if err != nil {
		return 0, err
	}
	return current.Stock, store.ErrInsufficientStock
}

func (s *Store) Restock(ctx context.Context, id string, qty int) (int, error) {
	if qty < 1 {
		return 0, fmt.Errorf("%w: restock quantity must be at least 1", store.ErrInvalidTransaction)
	}
	return s.AdjustStock(ctx, id, qty)
}

func (s *Store) CommitTransaction(ctx context.Context, tx domain.Transaction) (*domain.Transaction, error) {
	if len(tx.Items) == 0 {
		return nil, store.ErrEmptyCart
	}
	if tx.ID == "" {
		tx.ID = xid.New("trx")
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	demand := ledger.StockDemand(tx.Items)
	ids := make([]string, 0, len(demand))
	for id := range demand {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	stockRows, err := pgTx.QueryContext(ctx, `
		SELECT id, stock
		FROM products
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE
	`, ids)
	if err != nil {
		return nil, err
	}
	stockMap := make(map[string]int, len(ids))
	for stockRows.Next() {
		var id string
		var stock int
		if err := stockRows.Scan(&id, &stock); err != nil {
			_ = stockRows.Close()
			return nil, err
		}
		stockMap[id] = stock
	}
	if err := stockRows.Err(); err != nil {
		_ = stockRows.Close()
		return nil, err
	}
	_ = stockRows.Close()

	for _, id := range ids {
		stock, exists := stockMap[id]
		if !exists {
			return nil, fmt.Errorf("product %s: %w", id, store.ErrNotFound)
		}
		if stock < demand[id] {
			return nil, fmt.Errorf("product %s has %d left, %d requested: %w", id, stock, demand[id], store.ErrInsufficientStock)
		}
	}

	for _, id := range ids {
		if _, err := pgTx.ExecContext(ctx, `
			UPDATE products
			SET stock = stock - $2, updated_at = now()
			WHERE id = $1
		`, id, demand[id]); err != nil {
			return nil, err
		}
	}

	_, err = pgTx.ExecContext(ctx, `
		INSERT INTO transactions (
			id, created_at, total, payment_method, customer_name, cashier_name,
			status, amount_paid, cash_received, change_amount, settled_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, tx.ID, tx.CreatedAt, tx.Total, string(tx.PaymentMethod), tx.CustomerName, tx.CashierName,
		string(tx.Status), tx.AmountPaid, tx.CashReceived, tx.Change, nullTime(tx.SettledAt))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: transaction %s already recorded", store.ErrInvalidTransaction, tx.ID)
		}
		return nil, err
	}

	for _, item := range tx.Items {
		if _, err := pgTx.ExecContext(ctx, `
			INSERT INTO transaction_items (transaction_id, product_id, name, unit, price, cost, quantity)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
		`, tx.ID, item.ProductID, item.Name, item.Unit, item.Price, item.Cost, item.Quantity); err != nil {
			return nil, err
		}
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}

	created := tx
	created.CreatedAt = tx.CreatedAt.UTC()
	return &created, nil
}

func (s *Store) ListTransactions(ctx context.Context) ([]domain.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, transactionColumns+`
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, err
	}
	txs := make([]domain.Transaction, 0, 64)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	if err := loadItems(ctx, s.db, txs); err != nil {
		return nil, err
	}
	return txs, nil
}

func (s *Store) FindTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	return findTransaction(ctx, s.db, id, false)
}

func (s *Store) SettleTransaction(ctx context.Context, id string, at time.Time) (*domain.Transaction, error) {
	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	current, err := findTransaction(ctx, pgTx, id, true)
	if err != nil {
		return nil, err
	}
	settled, err := ledger.Settle(*current, at)
	if err != nil {
		return nil, err
	}

	if _, err := pgTx.ExecContext(ctx, `
		UPDATE transactions
		SET amount_paid = $2, status = $3, settled_at = $4
		WHERE id = $1
	`, id, settled.AmountPaid, string(settled.Status), nullTime(settled.SettledAt)); err != nil {
		return nil, err
	}
	if err := pgTx.Commit(); err != nil {
		return nil, err
	}
	return &settled, nil
}

const transactionColumns = `
		SELECT id, created_at, total, payment_method, customer_name, cashier_name,
			status, amount_paid, cash_received, change_amount, settled_at
		FROM transactions`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (domain.Transaction, error) {
	var tx domain.Transaction
	var settledAt sql.NullTime
	err := row.Scan(
		&tx.ID,
		&tx.CreatedAt,
		&tx.Total,
		&tx.PaymentMethod,
		&tx.CustomerName,
		&tx.CashierName,
		&tx.Status,
		&tx.AmountPaid,
		&tx.CashReceived,
		&tx.Change,
		&settledAt,
	)
	if err != nil {
		return tx, err
	}
	tx.CreatedAt = tx.CreatedAt.UTC()
	if settledAt.Valid {
		at := settledAt.Time.UTC()
		tx.SettledAt = &at
	}
	return tx, nil
}

func findTransaction(ctx context.Context, q querier, id string, forUpdate bool) (*domain.Transaction, error) {
	query := transactionColumns + `
		WHERE id = $1`
	if forUpdate {
		query += `
		FOR UPDATE`
	}
	tx, err := scanTransaction(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	txs := []domain.Transaction{tx}
	if err := loadItems(ctx, q, txs); err != nil {
		return nil, err
	}
	return &txs[0], nil
}

// loadItems fills the frozen lines of txs in one query.
func loadItems(ctx context.Context, q querier, txs []domain.Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	index := make(map[string]int, len(txs))
	ids := make([]string, 0, len(txs))
	for i := range txs {
		index[txs[i].ID] = i
		ids = append(ids, txs[i].ID)
		txs[i].Items = make([]domain.TransactionLine, 0, 4)
	}

	rows, err := q.QueryContext(ctx, `
		SELECT transaction_id, product_id, name, unit, price, cost, quantity
		FROM transaction_items
		WHERE transaction_id = ANY($1)
		ORDER BY id ASC
	`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var txID string
		var line domain.TransactionLine
		if err := rows.Scan(&txID, &line.ProductID, &line.Name, &line.Unit, &line.Price, &line.Cost, &line.Quantity); err != nil {
			return err
		}
		i := index[txID]
		txs[i].Items = append(txs[i].Items, line)
	}
	return rows.Err()
}

func escapeLike(val string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(val)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nullTime(val *time.Time) any {
	if val == nil {
		return nil
	}
	return *val
}
