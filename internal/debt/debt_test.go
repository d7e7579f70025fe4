package debt

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bangunanpro/backend/internal/domain"
)

func ledgerFixture() []domain.Transaction {
	return []domain.Transaction{
		{ID: "TRX-004", Total: 50000, AmountPaid: 0, PaymentMethod: domain.PaymentTempo, Status: domain.TxStatusPending, CustomerName: "Bu Rina"},
		{ID: "TRX-003", Total: 90000, AmountPaid: 90000, PaymentMethod: domain.PaymentTempo, Status: domain.TxStatusPaid, CustomerName: "Pak Ahmad (Proyek)"},
		{ID: "TRX-001", Total: 130000, AmountPaid: 130000, PaymentMethod: domain.PaymentCash, Status: domain.TxStatusPaid, CustomerName: domain.WalkInCustomer},
		{ID: "TRX-002", Total: 400000, AmountPaid: 100000, PaymentMethod: domain.PaymentTempo, Status: domain.TxStatusPending, CustomerName: "Pak Ahmad (Proyek)"},
	}
}

func TestPendingOnlyKeepsUnpaidTempo(t *testing.T) {
	pending := Pending(ledgerFixture())
	require.Len(t, pending, 2)
	assert.Equal(t, "TRX-004", pending[0].ID)
	assert.Equal(t, "TRX-002", pending[1].ID)
}

func TestOutstandingBalance(t *testing.T) {
	txs := ledgerFixture()
	assert.Equal(t, int64(300000), Outstanding(txs[3]))
	assert.Equal(t, int64(350000), TotalOutstanding(txs))
}

func TestPaidTransactionDoesNotChangeOutstanding(t *testing.T) {
	txs := ledgerFixture()
	before := TotalOutstanding(txs)

	txs = append([]domain.Transaction{{
		ID: "TRX-005", Total: 65000, AmountPaid: 65000,
		PaymentMethod: domain.PaymentCash, Status: domain.TxStatusPaid,
	}}, txs...)

	assert.Equal(t, before, TotalOutstanding(txs))
}

func TestSettlementReducesTotal(t *testing.T) {
	txs := ledgerFixture()
	before := TotalOutstanding(txs)

	txs[3].AmountPaid = txs[3].Total
	txs[3].Status = domain.TxStatusPaid

	assert.Equal(t, before-300000, TotalOutstanding(txs))
}

func TestByCustomerGroupsInFirstSeenOrder(t *testing.T) {
	txs := append(ledgerFixture(), domain.Transaction{
		ID: "TRX-000", Total: 20000, AmountPaid: 5000,
		PaymentMethod: domain.PaymentTempo, Status: domain.TxStatusPending, CustomerName: "Bu Rina",
	})

	want := []domain.CustomerDebt{
		{CustomerName: "Bu Rina", Transactions: 2, Outstanding: 65000},
		{CustomerName: "Pak Ahmad (Proyek)", Transactions: 1, Outstanding: 300000},
	}
	if diff := cmp.Diff(want, ByCustomer(txs)); diff != "" {
		t.Fatalf("by customer mismatch (-want +got):\n%s", diff)
	}
}

func TestReportOnEmptyLedger(t *testing.T) {
	report := Report(nil)
	assert.Empty(t, report.Debts)
	assert.Empty(t, report.ByCustomer)
	assert.Zero(t, report.TotalOutstanding)
	assert.NotNil(t, report.Debts, "empty list must encode as [] not null")
}
