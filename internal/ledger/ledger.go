// Package ledger holds the rules that turn a cart into a frozen transaction
// and the settlement rule. Stock movement and storage live in the store
// implementations; everything here is pure.
package ledger

import (
	"fmt"
	"strings"
	"time"

	"bangunanpro/backend/internal/domain"
	"bangunanpro/backend/internal/store"
)

type CommitRequest struct {
	Items         []domain.CartItem
	PaymentMethod domain.PaymentMethod
	CustomerName  string
	CashierName   string
	// AmountPaid is the down payment for TEMPO and the tendered cash for
	// CASH. Zero on a CASH sale means the cashier did not enter one and the
	// total is assumed.
	AmountPaid int64
}

// DeriveStatus is PAID for any CASH sale or when the payment covers the total.
func DeriveStatus(method domain.PaymentMethod, amountPaid, total int64) domain.TxStatus {
	if method == domain.PaymentCash || amountPaid >= total {
		return domain.TxStatusPaid
	}
	return domain.TxStatusPending
}

// Build freezes the cart lines into a transaction stamped with id and now.
func Build(req CommitRequest, now time.Time, id string) (domain.Transaction, error) {
	if len(req.Items) == 0 {
		return domain.Transaction{}, store.ErrEmptyCart
	}
	if !req.PaymentMethod.Valid() {
		return domain.Transaction{}, fmt.Errorf("%w: unknown payment method %q", store.ErrInvalidTransaction, req.PaymentMethod)
	}
	if req.AmountPaid < 0 {
		return domain.Transaction{}, fmt.Errorf("%w: amount paid must not be negative", store.ErrInvalidTransaction)
	}

	lines := make([]domain.TransactionLine, 0, len(req.Items))
	total := int64(0)
	for _, item := range req.Items {
		if item.Quantity < 1 {
			return domain.Transaction{}, fmt.Errorf("%w: quantity for %s must be at least 1", store.ErrInvalidTransaction, item.ID)
		}
		if item.Price < 0 || item.Cost < 0 {
			return domain.Transaction{}, fmt.Errorf("%w: negative price for %s", store.ErrInvalidTransaction, item.ID)
		}
		line := domain.TransactionLine{
			ProductID: item.ID,
			Name:      item.Name,
			Unit:      item.Unit,
			Price:     item.Price,
			Cost:      item.Cost,
			Quantity:  item.Quantity,
		}
		total += line.Subtotal()
		lines = append(lines, line)
	}

	tx := domain.Transaction{
		ID:            id,
		CreatedAt:     now.UTC(),
		Items:         lines,
		Total:         total,
		PaymentMethod: req.PaymentMethod,
		CashierName:   strings.TrimSpace(req.CashierName),
	}

	switch req.PaymentMethod {
	case domain.PaymentCash:
		// A CASH sale is PAID whatever was tendered. AmountPaid keeps what the
		// drawer retained: the tender when short, the total otherwise.
		tx.CustomerName = domain.WalkInCustomer
		tx.AmountPaid = total
		if req.AmountPaid > 0 {
			tx.CashReceived = req.AmountPaid
			if req.AmountPaid >= total {
				tx.Change = req.AmountPaid - total
			} else {
				tx.AmountPaid = req.AmountPaid
			}
		}
	case domain.PaymentTempo:
		tx.CustomerName = strings.TrimSpace(req.CustomerName)
		tx.AmountPaid = req.AmountPaid
	}
	tx.Status = DeriveStatus(tx.PaymentMethod, tx.AmountPaid, tx.Total)
	return tx, nil
}

// MissingCustomer reports a TEMPO sale recorded without a customer name.
// Such sales are accepted but cannot be chased for payment by name.
func MissingCustomer(tx domain.Transaction) bool {
	return tx.PaymentMethod == domain.PaymentTempo && tx.CustomerName == ""
}

// Settle returns tx marked fully paid at the given time.
func Settle(tx domain.Transaction, at time.Time) (domain.Transaction, error) {
	if tx.Status == domain.TxStatusPaid {
		return tx, store.ErrAlreadySettled
	}
	settledAt := at.UTC()
	tx.AmountPaid = tx.Total
	tx.Status = domain.TxStatusPaid
	tx.SettledAt = &settledAt
	return tx, nil
}

// StockDemand sums the requested quantity per product across the lines.
func StockDemand(lines []domain.TransactionLine) map[string]int {
	demand := make(map[string]int, len(lines))
	for _, line := range lines {
		demand[line.ProductID] += line.Quantity
	}
	return demand
}
