package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"strings"
	"sync"
	"time"

	"bangunanpro/backend/internal/advisor"
	"bangunanpro/backend/internal/cart"
	"bangunanpro/backend/internal/debt"
	"bangunanpro/backend/internal/domain"
	"bangunanpro/backend/internal/events"
	"bangunanpro/backend/internal/ledger"
	"bangunanpro/backend/internal/metrics"
	"bangunanpro/backend/internal/store"
	"bangunanpro/backend/internal/telemetry"
	"bangunanpro/backend/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

var (
	everyone     = []domain.Role{domain.RoleAdmin, domain.RoleKasir, domain.RoleGudang}
	cashierRoles = []domain.Role{domain.RoleAdmin, domain.RoleKasir}
	stockRoles   = []domain.Role{domain.RoleAdmin, domain.RoleGudang}
	adminOnly    = []domain.Role{domain.RoleAdmin}
)

type Options struct {
	Assistant *advisor.Assistant
	Events    events.Publisher
	Telemetry *telemetry.Recorder
	Now       func() time.Time
	NewID     func() string
}

// Service is the application context: it owns the repository handle, one
// cart per signed-in user and the side channels fed by ledger changes.
type Service struct {
	repo      store.Repository
	assistant *advisor.Assistant
	events    events.Publisher
	telemetry *telemetry.Recorder
	now       func() time.Time
	newID     func() string

	// mu serializes every mutation, catalog edits included. Reads and the
	// advisor call do not take it.
	mu    sync.Mutex
	carts map[string]*cart.Cart
}

func New(repo store.Repository, opts Options) *Service {
	if opts.Assistant == nil {
		opts.Assistant = advisor.NewAssistant(advisor.NewGeminiClient(advisor.GeminiConfig{}), advisor.AssistantOptions{})
	}
	if opts.Events == nil {
		opts.Events = events.NoopPublisher{}
	}
	if opts.Telemetry == nil {
		opts.Telemetry = telemetry.New()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = func() string { return xid.New("trx") }
	}

	return &Service{
		repo:      repo,
		assistant: opts.Assistant,
		events:    opts.Events,
		telemetry: opts.Telemetry,
		now:       opts.Now,
		newID:     opts.NewID,
		carts:     make(map[string]*cart.Cart),
	}
}

func requireRole(ctx context.Context, allowed ...domain.Role) (domain.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.Actor{}, fmt.Errorf("%w: no signed-in user", store.ErrForbidden)
	}
	if !slices.Contains(allowed, actor.Role) {
		return domain.Actor{}, fmt.Errorf("%w: %s", store.ErrForbidden, actor.Role)
	}
	return actor, nil
}

func (s *Service) ListStaff(ctx context.Context) ([]domain.StaffUser, error) {
	return s.repo.ListStaff(ctx)
}

func (s *Service) FindStaff(ctx context.Context, id string) (domain.StaffUser, error) {
	staff, err := s.repo.ListStaff(ctx)
	if err != nil {
		return domain.StaffUser{}, err
	}
	for _, u := range staff {
		if u.ID == id {
			return u, nil
		}
	}
	return domain.StaffUser{}, store.ErrNotFound
}

func (s *Service) ListProducts(ctx context.Context, query string) ([]domain.Product, error) {
	if _, err := requireRole(ctx, everyone...); err != nil {
		return nil, err
	}
	return s.repo.ListProducts(ctx, query)
}

func (s *Service) LowStock(ctx context.Context) ([]domain.Product, error) {
	if _, err := requireRole(ctx, everyone...); err != nil {
		return nil, err
	}
	products, err := s.repo.ListProducts(ctx, "")
	if err != nil {
		return nil, err
	}
	return metrics.LowStock(products), nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	if _, err := requireRole(ctx, adminOnly...); err != nil {
		return domain.Product{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	product := domain.Product{
		ID:       strings.TrimSpace(req.ID),
		Name:     strings.TrimSpace(req.Name),
		Category: strings.TrimSpace(req.Category),
		Unit:     strings.TrimSpace(req.Unit),
		Price:    req.Price,
		Cost:     req.Cost,
		Stock:    req.Stock,
		MinStock: req.MinStock,
	}
	if product.Name == "" {
		return domain.Product{}, fmt.Errorf("%w: product name is required", store.ErrInvalidTransaction)
	}

	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}
	s.publish(ctx, events.EventProductSaved, created.ID, created)
	s.refreshGauges(ctx)
	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (domain.Product, error) {
	if _, err := requireRole(ctx, adminOnly...); err != nil {
		return domain.Product{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.repo.GetProduct(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Product{}, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Product{}, fmt.Errorf("%w: product name is required", store.ErrInvalidTransaction)
		}
		updated.Name = name
	}
	if req.Category != nil {
		updated.Category = strings.TrimSpace(*req.Category)
	}
	if req.Unit != nil {
		updated.Unit = strings.TrimSpace(*req.Unit)
	}
	if req.Price != nil {
		updated.Price = *req.Price
	}
	if req.Cost != nil {
		updated.Cost = *req.Cost
	}
	if req.MinStock != nil {
		updated.MinStock = *req.MinStock
	}

	saved, err := s.repo.UpdateProduct(ctx, updated)
	if err != nil {
		return domain.Product{}, err
	}
	if saved.Price < saved.Cost {
		log.Printf("[service] WARN: product %s priced below cost (price=%d cost=%d)", saved.ID, saved.Price, saved.Cost)
	}
	s.publish(ctx, events.EventProductSaved, saved.ID, saved)
	s.refreshGauges(ctx)
	return *saved, nil
}

func (s *Service) Restock(ctx context.Context, id string, qty int) (domain.StockResponse, error) {
	if _, err := requireRole(ctx, stockRoles...); err != nil {
		return domain.StockResponse{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stock, err := s.repo.Restock(ctx, id, qty)
	if err != nil {
		return domain.StockResponse{}, err
	}
	s.telemetry.StockMoved(qty)
	s.publish(ctx, events.EventStockChanged, id, events.StockChangedPayload{ProductID: id, Delta: qty, Stock: stock, Reason: "restock"})
	s.refreshGauges(ctx)
	return domain.StockResponse{ProductID: id, Stock: stock}, nil
}

// cartFor returns the actor's cart, creating it on first use. Callers hold mu.
func (s *Service) cartFor(actor domain.Actor) *cart.Cart {
	c, ok := s.carts[actor.UserID]
	if !ok {
		c = cart.New()
		s.carts[actor.UserID] = c
	}
	return c
}

func (s *Service) Cart(ctx context.Context) (domain.CartView, error) {
	actor, err := requireRole(ctx, cashierRoles...)
	if err != nil {
		return domain.CartView{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cartFor(actor).View(), nil
}

func (s *Service) AddToCart(ctx context.Context, productID string) (domain.CartMutationResponse, error) {
	actor, err := requireRole(ctx, cashierRoles...)
	if err != nil {
		return domain.CartMutationResponse{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	product, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return domain.CartMutationResponse{}, err
	}
	c := s.cartFor(actor)
	outcome := c.Add(*product)
	if !outcome.Applied() {
		s.telemetry.CartNoOp("add")
	}
	return domain.CartMutationResponse{Applied: outcome.Applied(), Cart: c.View()}, nil
}

// UpdateCartQuantity checks the new quantity against the stock as it is now,
// not as it was when the product entered the cart.
func (s *Service) UpdateCartQuantity(ctx context.Context, productID string, delta int) (domain.CartMutationResponse, error) {
	actor, err := requireRole(ctx, cashierRoles...)
	if err != nil {
		return domain.CartMutationResponse{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.cartFor(actor)
	if c.Quantity(productID) == 0 {
		s.telemetry.CartNoOp("update")
		return domain.CartMutationResponse{Applied: false, Cart: c.View()}, nil
	}
	product, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return domain.CartMutationResponse{}, err
	}
	outcome := c.UpdateQuantity(productID, delta, product.Stock)
	if !outcome.Applied() {
		s.telemetry.CartNoOp("update")
	}
	return domain.CartMutationResponse{Applied: outcome.Applied(), Cart: c.View()}, nil
}

func (s *Service) RemoveFromCart(ctx context.Context, productID string) (domain.CartMutationResponse, error) {
	actor, err := requireRole(ctx, cashierRoles...)
	if err != nil {
		return domain.CartMutationResponse{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.cartFor(actor)
	outcome := c.Remove(productID)
	return domain.CartMutationResponse{Applied: outcome.Applied(), Cart: c.View()}, nil
}

func (s *Service) ClearCart(ctx context.Context) (domain.CartView, error) {
	actor, err := requireRole(ctx, cashierRoles...)
	if err != nil {
		return domain.CartView{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.cartFor(actor)
	c.Clear()
	return c.View(), nil
}

// Checkout commits the actor's cart. On any failure the cart is put back
// exactly as it was and no stock has moved.
func (s *Service) Checkout(ctx context.Context, req domain.CheckoutRequest) (domain.CheckoutResponse, error) {
	actor, err := requireRole(ctx, cashierRoles...)
	if err != nil {
		return domain.CheckoutResponse{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.cartFor(actor)
	if c.Len() == 0 {
		s.telemetry.CheckoutFailed("empty_cart")
		return domain.CheckoutResponse{}, store.ErrEmptyCart
	}

	snapshot := c.Items()
	c.Clear()

	tx, err := ledger.Build(ledger.CommitRequest{
		Items:         snapshot,
		PaymentMethod: domain.PaymentMethod(strings.ToUpper(strings.TrimSpace(string(req.PaymentMethod)))),
		CustomerName:  req.CustomerName,
		CashierName:   actor.Name,
		AmountPaid:    req.AmountPaid,
	}, s.now(), s.newID())
	if err != nil {
		c.Restore(snapshot)
		s.telemetry.CheckoutFailed(failureReason(err))
		return domain.CheckoutResponse{}, err
	}
	if ledger.MissingCustomer(tx) {
		log.Printf("[service] WARN: TEMPO transaction %s recorded without customer name by %s", tx.ID, actor.Name)
	}

	committed, err := s.repo.CommitTransaction(ctx, tx)
	if err != nil {
		c.Restore(snapshot)
		s.telemetry.CheckoutFailed(failureReason(err))
		return domain.CheckoutResponse{}, err
	}

	s.telemetry.CheckoutCommitted(string(committed.PaymentMethod), string(committed.Status), committed.Total)
	for _, line := range committed.Items {
		s.telemetry.StockMoved(-line.Quantity)
	}
	s.publish(ctx, events.EventTransactionCommitted, committed.ID, events.TransactionCommitted(*committed))
	s.refreshGauges(ctx)

	resp := domain.CheckoutResponse{Transaction: *committed}
	if committed.Status == domain.TxStatusPending {
		resp.Outstanding = debt.Outstanding(*committed)
	}
	return resp, nil
}

func (s *Service) ListTransactions(ctx context.Context) ([]domain.Transaction, error) {
	if _, err := requireRole(ctx, cashierRoles...); err != nil {
		return nil, err
	}
	return s.repo.ListTransactions(ctx)
}

func (s *Service) GetTransaction(ctx context.Context, id string) (domain.Transaction, error) {
	if _, err := requireRole(ctx, cashierRoles...); err != nil {
		return domain.Transaction{}, err
	}
	tx, err := s.repo.FindTransaction(ctx, id)
	if err != nil {
		return domain.Transaction{}, err
	}
	return *tx, nil
}

func (s *Service) Debts(ctx context.Context) (domain.DebtListResponse, error) {
	if _, err := requireRole(ctx, everyone...); err != nil {
		return domain.DebtListResponse{}, err
	}
	txs, err := s.repo.ListTransactions(ctx)
	if err != nil {
		return domain.DebtListResponse{}, err
	}
	return debt.Report(txs), nil
}

// SettleDebt marks a pending TEMPO transaction fully paid.
func (s *Service) SettleDebt(ctx context.Context, id string) (domain.SettleResponse, error) {
	actor, err := requireRole(ctx, cashierRoles...)
	if err != nil {
		return domain.SettleResponse{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	before, err := s.repo.FindTransaction(ctx, id)
	if err != nil {
		return domain.SettleResponse{}, err
	}
	prior, priorErr := s.repo.ListTransactions(ctx)
	settled, err := s.repo.SettleTransaction(ctx, id, s.now())
	if err != nil {
		return domain.SettleResponse{}, err
	}
	amount := debt.Outstanding(*before)
	log.Printf("[service] debt %s settled by %s amount=%d", id, actor.Name, amount)

	s.telemetry.DebtSettled(amount)
	s.publish(ctx, events.EventDebtSettled, id, events.DebtSettledPayload{TransactionID: id, CustomerName: settled.CustomerName, Settled: amount})

	// The settlement is committed; a failed re-read only degrades the total.
	var total int64
	txs, err := s.repo.ListTransactions(ctx)
	switch {
	case err == nil:
		total = debt.TotalOutstanding(txs)
		s.telemetry.SetOutstanding(total)
	case priorErr == nil:
		total = max(debt.TotalOutstanding(prior)-amount, 0)
		log.Printf("[service] WARN: reload transactions after settling %s: %v; outstanding estimated", id, err)
	default:
		log.Printf("[service] WARN: reload transactions after settling %s: %v", id, err)
	}

	return domain.SettleResponse{Transaction: *settled, Settled: amount, TotalOutstanding: total}, nil
}

func (s *Service) Dashboard(ctx context.Context) (domain.Dashboard, error) {
	if _, err := requireRole(ctx, adminOnly...); err != nil {
		return domain.Dashboard{}, err
	}
	products, txs, err := s.snapshot(ctx)
	if err != nil {
		return domain.Dashboard{}, err
	}
	return metrics.Summarize(products, txs), nil
}

// AskAssistant does not take the mutation lock.
func (s *Service) AskAssistant(ctx context.Context, question string) (domain.AssistantResponse, error) {
	if _, err := requireRole(ctx, adminOnly...); err != nil {
		return domain.AssistantResponse{}, err
	}
	products, txs, err := s.snapshot(ctx)
	if err != nil {
		return domain.AssistantResponse{}, err
	}

	resp := s.assistant.Ask(ctx, metrics.SummaryContext(products, txs), question)
	switch {
	case resp.Sequence == 0:
		// empty question, nothing asked
	case resp.Fallback:
		s.telemetry.AdvisorAnswered("fallback")
	case resp.Cached:
		s.telemetry.AdvisorAnswered("cached")
	default:
		s.telemetry.AdvisorAnswered("answered")
	}
	return resp, nil
}

func (s *Service) LatestAnswer(ctx context.Context) (domain.AssistantResponse, error) {
	if _, err := requireRole(ctx, adminOnly...); err != nil {
		return domain.AssistantResponse{}, err
	}
	return s.assistant.Latest(), nil
}

func (s *Service) snapshot(ctx context.Context) ([]domain.Product, []domain.Transaction, error) {
	products, err := s.repo.ListProducts(ctx, "")
	if err != nil {
		return nil, nil, err
	}
	txs, err := s.repo.ListTransactions(ctx)
	if err != nil {
		return nil, nil, err
	}
	return products, txs, nil
}

func (s *Service) publish(ctx context.Context, eventType, key string, payload any) {
	if err := s.events.Publish(ctx, eventType, key, payload); err != nil {
		log.Printf("[events] WARN: publish %s key=%s failed: %v", eventType, key, err)
	}
}

func (s *Service) refreshGauges(ctx context.Context) {
	products, txs, err := s.snapshot(ctx)
	if err != nil {
		log.Printf("[service] WARN: refresh gauges failed: %v", err)
		return
	}
	s.telemetry.SetLowStock(len(metrics.LowStock(products)))
	s.telemetry.SetOutstanding(debt.TotalOutstanding(txs))
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, store.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, store.ErrNotFound):
		return "unknown_product"
	case errors.Is(err, store.ErrInvalidTransaction):
		return "invalid"
	default:
		return "error"
	}
}
