package domain

import "time"

// Amounts are whole rupiah. The store never deals in fractional currency.

type Product struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Unit     string `json:"unit"`
	Price    int64  `json:"price"`
	Cost     int64  `json:"cost"`
	Stock    int    `json:"stock"`
	MinStock int    `json:"min_stock"`
}

type ProductCreateRequest struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Unit     string `json:"unit"`
	Price    int64  `json:"price"`
	Cost     int64  `json:"cost"`
	Stock    int    `json:"stock"`
	MinStock int    `json:"min_stock"`
}

type ProductUpdateRequest struct {
	Name     *string `json:"name,omitempty"`
	Category *string `json:"category,omitempty"`
	Unit     *string `json:"unit,omitempty"`
	Price    *int64  `json:"price,omitempty"`
	Cost     *int64  `json:"cost,omitempty"`
	MinStock *int    `json:"min_stock,omitempty"`
}

type RestockRequest struct {
	Qty int `json:"qty"`
}

type StockResponse struct {
	ProductID string `json:"product_id"`
	Stock     int    `json:"stock"`
}

// CartItem is a product snapshot taken when the item entered the cart.
type CartItem struct {
	Product
	Quantity int `json:"quantity"`
}

type CartView struct {
	Items []CartItem `json:"items"`
	Total int64      `json:"total"`
}

type CartAddRequest struct {
	ProductID string `json:"product_id"`
}

type CartQuantityRequest struct {
	Delta int `json:"delta"`
}

type CartMutationResponse struct {
	Applied bool     `json:"applied"`
	Cart    CartView `json:"cart"`
}

type PaymentMethod string

const (
	PaymentCash  PaymentMethod = "CASH"
	PaymentTempo PaymentMethod = "TEMPO"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentCash || m == PaymentTempo
}

type TxStatus string

const (
	TxStatusPaid    TxStatus = "PAID"
	TxStatusPending TxStatus = "PENDING"
)

// WalkInCustomer is recorded as the customer of every CASH sale.
const WalkInCustomer = "Umum"

// TransactionLine is a frozen copy of the product at commit time. Later
// catalog edits never reach it.
type TransactionLine struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Unit      string `json:"unit"`
	Price     int64  `json:"price"`
	Cost      int64  `json:"cost"`
	Quantity  int    `json:"quantity"`
}

func (l TransactionLine) Subtotal() int64 {
	return l.Price * int64(l.Quantity)
}

func (l TransactionLine) CostTotal() int64 {
	return l.Cost * int64(l.Quantity)
}

type Transaction struct {
	ID            string            `json:"id"`
	CreatedAt     time.Time         `json:"created_at"`
	Items         []TransactionLine `json:"items"`
	Total         int64             `json:"total"`
	PaymentMethod PaymentMethod     `json:"payment_method"`
	CustomerName  string            `json:"customer_name"`
	CashierName   string            `json:"cashier_name"`
	Status        TxStatus          `json:"status"`
	AmountPaid    int64             `json:"amount_paid"`
	CashReceived  int64             `json:"cash_received,omitempty"`
	Change        int64             `json:"change,omitempty"`
	SettledAt     *time.Time        `json:"settled_at,omitempty"`
}

type CheckoutRequest struct {
	PaymentMethod PaymentMethod `json:"payment_method"`
	CustomerName  string        `json:"customer_name,omitempty"`
	AmountPaid    int64         `json:"amount_paid"`
}

type CheckoutResponse struct {
	Transaction Transaction `json:"transaction"`
	Outstanding int64       `json:"outstanding"`
}

// Debt is a read view over a pending TEMPO transaction.
type Debt struct {
	Transaction Transaction `json:"transaction"`
	Outstanding int64       `json:"outstanding"`
}

type CustomerDebt struct {
	CustomerName string `json:"customer_name"`
	Transactions int    `json:"transactions"`
	Outstanding  int64  `json:"outstanding"`
}

type DebtListResponse struct {
	Debts            []Debt         `json:"debts"`
	ByCustomer       []CustomerDebt `json:"by_customer"`
	TotalOutstanding int64          `json:"total_outstanding"`
}

type SettleResponse struct {
	Transaction      Transaction `json:"transaction"`
	Settled          int64       `json:"settled"`
	TotalOutstanding int64       `json:"total_outstanding"`
}

type TopSeller struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

type SalesPoint struct {
	TransactionID string `json:"transaction_id"`
	Total         int64  `json:"total"`
}

type StockStatus string

const (
	StockOut  StockStatus = "HABIS"
	StockLow  StockStatus = "MENIPIS"
	StockSafe StockStatus = "AMAN"
)

type Dashboard struct {
	TotalRevenue     int64        `json:"total_revenue"`
	TotalProfit      int64        `json:"total_profit"`
	MarginPercent    string       `json:"margin_percent"`
	TotalOutstanding int64        `json:"total_outstanding"`
	LowStock         []Product    `json:"low_stock"`
	TopSellers       []TopSeller  `json:"top_sellers"`
	RecentSales      []SalesPoint `json:"recent_sales"`
	Transactions     int          `json:"transactions"`
	Formatted        Formatted    `json:"formatted"`
}

// Formatted carries display strings for the dashboard cards.
type Formatted struct {
	TotalRevenue     string `json:"total_revenue"`
	TotalProfit      string `json:"total_profit"`
	TotalOutstanding string `json:"total_outstanding"`
}

type AssistantAskRequest struct {
	Question string `json:"question"`
}

// AssistantResponse is one advisor answer. Superseded marks an answer that
// arrived after a newer question had already been answered; it is returned
// to its caller but never displayed.
type AssistantResponse struct {
	Answer     string `json:"answer"`
	Sequence   uint64 `json:"sequence"`
	Fallback   bool   `json:"fallback"`
	Cached     bool   `json:"cached"`
	Superseded bool   `json:"superseded"`
}

type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleKasir  Role = "KASIR"
	RoleGudang Role = "GUDANG"
)

type StaffUser struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}

type Actor struct {
	UserID string
	Name   string
	Role   Role
}

type LoginRequest struct {
	UserID string `json:"user_id"`
	PIN    string `json:"pin,omitempty"`
}

type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	User        StaffUser `json:"user"`
	ExpiresAt   string    `json:"expires_at"`
}
