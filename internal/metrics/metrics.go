// Package metrics computes the dashboard figures from a full scan of the
// catalog and the ledger. Nothing is cached between calls.
package metrics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"bangunanpro/backend/internal/debt"
	"bangunanpro/backend/internal/domain"
	"bangunanpro/backend/internal/money"
)

// ContextTopSellers is how many best sellers the advisory digest names.
const ContextTopSellers = 3

// RecentSalesWindow is how many transactions the sales chart plots.
const RecentSalesWindow = 5

func LowStock(products []domain.Product) []domain.Product {
	result := make([]domain.Product, 0)
	for _, p := range products {
		if p.Stock <= p.MinStock {
			result = append(result, p)
		}
	}
	return result
}

func StockStatusOf(p domain.Product) domain.StockStatus {
	switch {
	case p.Stock <= 0:
		return domain.StockOut
	case p.Stock <= p.MinStock:
		return domain.StockLow
	default:
		return domain.StockSafe
	}
}

// TotalRevenue counts every sale at the time it was made, PENDING included.
func TotalRevenue(txs []domain.Transaction) int64 {
	total := int64(0)
	for _, tx := range txs {
		total += tx.Total
	}
	return total
}

func TotalProfit(txs []domain.Transaction) int64 {
	profit := int64(0)
	for _, tx := range txs {
		cost := int64(0)
		for _, line := range tx.Items {
			cost += line.CostTotal()
		}
		profit += tx.Total - cost
	}
	return profit
}

// TopSellers sums quantities by product name and returns the n largest.
// Equal quantities keep the order in which the names were first seen.
func TopSellers(txs []domain.Transaction, n int) []domain.TopSeller {
	index := make(map[string]int)
	sellers := make([]domain.TopSeller, 0)
	for _, tx := range txs {
		for _, line := range tx.Items {
			i, ok := index[line.Name]
			if !ok {
				i = len(sellers)
				index[line.Name] = i
				sellers = append(sellers, domain.TopSeller{Name: line.Name})
			}
			sellers[i].Quantity += line.Quantity
		}
	}
	sort.SliceStable(sellers, func(a, b int) bool {
		return sellers[a].Quantity > sellers[b].Quantity
	})
	if n >= 0 && len(sellers) > n {
		sellers = sellers[:n]
	}
	return sellers
}

// RecentSales takes the n newest transactions (txs is newest first) and
// returns them oldest to newest for plotting.
func RecentSales(txs []domain.Transaction, n int) []domain.SalesPoint {
	if n > len(txs) {
		n = len(txs)
	}
	if n < 0 {
		n = 0
	}
	points := make([]domain.SalesPoint, 0, n)
	for i := n - 1; i >= 0; i-- {
		points = append(points, domain.SalesPoint{TransactionID: txs[i].ID, Total: txs[i].Total})
	}
	return points
}

// MarginPercent is profit/revenue as a percentage with one decimal place.
func MarginPercent(revenue, profit int64) string {
	if revenue == 0 {
		return "0.0"
	}
	return decimal.NewFromInt(profit).
		Div(decimal.NewFromInt(revenue)).
		Mul(decimal.NewFromInt(100)).
		StringFixed(1)
}

func Summarize(products []domain.Product, txs []domain.Transaction) domain.Dashboard {
	revenue := TotalRevenue(txs)
	profit := TotalProfit(txs)
	outstanding := debt.TotalOutstanding(txs)
	return domain.Dashboard{
		TotalRevenue:     revenue,
		TotalProfit:      profit,
		MarginPercent:    MarginPercent(revenue, profit),
		TotalOutstanding: outstanding,
		LowStock:         LowStock(products),
		TopSellers:       TopSellers(txs, 5),
		RecentSales:      RecentSales(txs, RecentSalesWindow),
		Transactions:     len(txs),
		Formatted: domain.Formatted{
			TotalRevenue:     money.Format(revenue),
			TotalProfit:      money.Format(profit),
			TotalOutstanding: money.Format(outstanding),
		},
	}
}

// SummaryContext renders the digest handed to the advisory service.
func SummaryContext(products []domain.Product, txs []domain.Transaction) string {
	low := LowStock(products)
	alerts := make([]string, 0, len(low))
	for _, p := range low {
		alerts = append(alerts, fmt.Sprintf("%s (%d %s)", p.Name, p.Stock, p.Unit))
	}
	top := TopSellers(txs, ContextTopSellers)
	names := make([]string, 0, len(top))
	for _, s := range top {
		names = append(names, s.Name)
	}

	var b strings.Builder
	b.WriteString("Current Data Snapshot:\n")
	fmt.Fprintf(&b, "- Total Revenue: %s\n", money.Format(TotalRevenue(txs)))
	fmt.Fprintf(&b, "- Outstanding Customer Debt (Piutang): %s\n", money.Format(debt.TotalOutstanding(txs)))
	fmt.Fprintf(&b, "- Low Stock Alerts: %s\n", joinOrNone(alerts))
	fmt.Fprintf(&b, "- Top Selling Products: %s\n", joinOrNone(names))
	fmt.Fprintf(&b, "- Total Transactions recorded: %d", len(txs))
	return b.String()
}

func joinOrNone(values []string) string {
	if len(values) == 0 {
		return "None"
	}
	return strings.Join(values, ", ")
}
