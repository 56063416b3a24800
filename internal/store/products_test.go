package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xelth-com/eckmarket/internal/testutil"
)

func TestApplyPriceInventoryPartialFields(t *testing.T) {
	s := NewProductStore(testutil.NewDB(t))
	ctx := context.Background()

	price, list := 120.0, 150.0
	qty := int64(7)
	require.NoError(t, s.ApplyPriceInventory(ctx, 1, PriceInventoryChange{
		Barcode: "869", SalePrice: &price, ListPrice: &list, Quantity: &qty, BatchID: "b-1",
	}))

	newQty := int64(3)
	require.NoError(t, s.ApplyPriceInventory(ctx, 1, PriceInventoryChange{
		Barcode: "869", Quantity: &newQty, BatchID: "b-2",
	}))

	p, err := s.Get(ctx, 1, "869")
	require.NoError(t, err)
	assert.Equal(t, 120.0, p.SalePrice)
	assert.Equal(t, 150.0, p.ListPrice)
	assert.EqualValues(t, 3, p.Quantity)
	assert.Equal(t, "b-2", p.LastBatchID)
	assert.NotNil(t, p.ConfirmedAt)
}

func TestApplyPriceInventoryRejectsEmptyBarcode(t *testing.T) {
	s := NewProductStore(testutil.NewDB(t))
	assert.Error(t, s.ApplyPriceInventory(context.Background(), 1, PriceInventoryChange{}))
}
