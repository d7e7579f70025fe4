package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bangunanpro/backend/internal/domain"
)

func semen() domain.Product {
	return domain.Product{ID: "1", Name: "Semen Tiga Roda 50kg", Unit: "Sak", Price: 65000, Cost: 58000, Stock: 150, MinStock: 20}
}

func paku() domain.Product {
	return domain.Product{ID: "3", Name: "Paku Beton 5cm", Unit: "Box", Price: 25000, Cost: 15000, Stock: 8, MinStock: 10}
}

func TestAddIncrementsExistingEntry(t *testing.T) {
	c := New()
	require.Equal(t, Applied, c.Add(semen()))
	require.Equal(t, Applied, c.Add(semen()))

	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 2, c.Quantity("1"))
	assert.Equal(t, int64(130000), c.Total())
}

func TestAddOutOfStockIsNoOp(t *testing.T) {
	c := New()
	empty := paku()
	empty.Stock = 0

	assert.Equal(t, NoOp, c.Add(empty))
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, int64(0), c.Total())
}

func TestUpdateQuantityClampsToStockAndFloor(t *testing.T) {
	c := New()
	c.Add(paku())

	assert.Equal(t, Applied, c.UpdateQuantity("3", 7, 8))
	assert.Equal(t, 8, c.Quantity("3"))

	assert.Equal(t, NoOp, c.UpdateQuantity("3", 1, 8), "raising above stock must be ignored")
	assert.Equal(t, 8, c.Quantity("3"))

	assert.Equal(t, Applied, c.UpdateQuantity("3", -20, 8))
	assert.Equal(t, 1, c.Quantity("3"), "quantity never drops below one")

	assert.Equal(t, NoOp, c.UpdateQuantity("3", -1, 8))
	assert.Equal(t, NoOp, c.UpdateQuantity("missing", 1, 100))
}

func TestUpdateQuantityUsesCurrentStock(t *testing.T) {
	c := New()
	c.Add(semen())

	// stock dropped elsewhere since the entry was added
	assert.Equal(t, NoOp, c.UpdateQuantity("1", 1, 1))
	assert.Equal(t, 1, c.Quantity("1"))
}

func TestRemoveAndClear(t *testing.T) {
	c := New()
	c.Add(semen())
	c.Add(paku())

	assert.Equal(t, Applied, c.Remove("1"))
	assert.Equal(t, NoOp, c.Remove("1"))
	require.Equal(t, 1, c.Len())
	assert.Equal(t, "3", c.Items()[0].ID)

	c.Clear()
	assert.Equal(t, 0, c.Len())
	assert.Empty(t, c.Items())
}

func TestItemsKeepInsertionOrderAndAreCopies(t *testing.T) {
	c := New()
	c.Add(paku())
	c.Add(semen())

	items := c.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "3", items[0].ID)
	assert.Equal(t, "1", items[1].ID)

	items[0].Quantity = 99
	assert.Equal(t, 1, c.Quantity("3"))
}

func TestRestoreRebuildsSnapshot(t *testing.T) {
	c := New()
	c.Add(semen())
	c.Add(semen())
	c.Add(paku())
	snapshot := c.Items()

	c.Clear()
	c.Restore(snapshot)

	assert.Equal(t, snapshot, c.Items())
	assert.Equal(t, int64(2*65000+25000), c.View().Total)
}
