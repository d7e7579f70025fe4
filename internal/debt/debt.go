// Package debt derives the piutang view from the ledger. Nothing here is
// stored; every call filters the transactions it is given.
package debt

import "bangunanpro/backend/internal/domain"

// Pending keeps TEMPO transactions that are still unpaid, in input order.
func Pending(txs []domain.Transaction) []domain.Transaction {
	result := make([]domain.Transaction, 0)
	for _, tx := range txs {
		if tx.PaymentMethod == domain.PaymentTempo && tx.Status == domain.TxStatusPending {
			result = append(result, tx)
		}
	}
	return result
}

func Outstanding(tx domain.Transaction) int64 {
	return tx.Total - tx.AmountPaid
}

func TotalOutstanding(txs []domain.Transaction) int64 {
	total := int64(0)
	for _, tx := range Pending(txs) {
		total += Outstanding(tx)
	}
	return total
}

func List(txs []domain.Transaction) []domain.Debt {
	pending := Pending(txs)
	result := make([]domain.Debt, 0, len(pending))
	for _, tx := range pending {
		result = append(result, domain.Debt{Transaction: tx, Outstanding: Outstanding(tx)})
	}
	return result
}

// ByCustomer groups outstanding balances by customer name in the order each
// customer first appears.
func ByCustomer(txs []domain.Transaction) []domain.CustomerDebt {
	index := make(map[string]int)
	result := make([]domain.CustomerDebt, 0)
	for _, tx := range Pending(txs) {
		i, ok := index[tx.CustomerName]
		if !ok {
			i = len(result)
			index[tx.CustomerName] = i
			result = append(result, domain.CustomerDebt{CustomerName: tx.CustomerName})
		}
		result[i].Transactions++
		result[i].Outstanding += Outstanding(tx)
	}
	return result
}

// Report bundles the read views served to the debts screen.
func Report(txs []domain.Transaction) domain.DebtListResponse {
	return domain.DebtListResponse{
		Debts:            List(txs),
		ByCustomer:       ByCustomer(txs),
		TotalOutstanding: TotalOutstanding(txs),
	}
}
