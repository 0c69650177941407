package analysis

import (
	"context"

	"github.com/sartorproj/salescast/sales"
)

// Source provides the raw sales records and the shop reference table. Both
// are read again on every run.
type Source interface {
	Records(ctx context.Context) (sales.Table, error)
	Shops(ctx context.Context) (sales.Shops, error)
}

// FileSource reads the two CSV files from disk.
type FileSource struct {
	SalesPath string
	ShopsPath string
}

func (f FileSource) Records(ctx context.Context) (sales.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return sales.LoadRecords(f.SalesPath)
}

func (f FileSource) Shops(ctx context.Context) (sales.Shops, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return sales.LoadShops(f.ShopsPath)
}

// StaticSource serves tables held in memory.
type StaticSource struct {
	Table     sales.Table
	ShopTable sales.Shops
}

func (s StaticSource) Records(ctx context.Context) (sales.Table, error) {
	return s.Table.Clone(), ctx.Err()
}

func (s StaticSource) Shops(ctx context.Context) (sales.Shops, error) {
	return append(sales.Shops(nil), s.ShopTable...), ctx.Err()
}
