package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/adapters/sqlstore"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/domain"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/ports"
)

func openStore(t *testing.T) *sqlstore.Store {
	t.Helper()
	s, err := sqlstore.Open(context.Background(), "file:"+filepath.Join(t.TempDir(), "orders.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedProduct(t *testing.T, s ports.Store, name, sku, price string, stock int) *domain.Product {
	t.Helper()
	p, err := s.Repositories().Products.Insert(context.Background(), domain.NewProduct{
		Name:     name,
		SKU:      sku,
		Category: "Electronics",
		Price:    decimal.RequireFromString(price),
		Stock:    stock,
	})
	require.NoError(t, err)
	return p
}

func stockOf(t *testing.T, s ports.Store, id int64) int {
	t.Helper()
	p, err := s.Repositories().Products.Get(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p.Stock
}

func placeInTx(t *testing.T, s ports.Store, topic string, items []domain.LineItem) (*domain.OrderDetails, error) {
	t.Helper()
	var d *domain.OrderDetails
	err := s.WithinTx(context.Background(), func(r ports.Repositories) error {
		var err error
		d, err = NewEngine(r, topic).PlaceOrder(context.Background(), items)
		return err
	})
	return d, err
}
