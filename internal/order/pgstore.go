package order

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-printhub/internal/store"
)

// PGStore implements Store against Postgres, wrapping the order insert and
// its child rows in one transaction.
type PGStore struct {
	*store.Store
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{Store: store.New(pool), pool: pool}
}

// CreateOrderTx writes the order, its synthesized line item, and attachment
// metadata atomically.
func (p *PGStore) CreateOrderTx(ctx context.Context, params store.CreateOrderParams, itemDescription string, itemUnitPrice int64, files []store.OrderFile) (store.Order, []store.OrderItem, []store.OrderFile, error) {
	var (
		ord         store.Order
		items       []store.OrderItem
		storedFiles []store.OrderFile
	)
	err := store.WithTx(ctx, p.pool, func(tx *store.Store) error {
		var err error
		ord, err = tx.CreateOrder(ctx, params)
		if err != nil {
			return err
		}
		item, err := tx.InsertOrderItem(ctx, ord.ID, itemDescription, itemUnitPrice, ord.Quantity)
		if err != nil {
			return err
		}
		items = []store.OrderItem{item}
		storedFiles = make([]store.OrderFile, 0, len(files))
		for _, f := range files {
			f.OrderID = ord.ID
			inserted, err := tx.InsertOrderFile(ctx, f)
			if err != nil {
				return err
			}
			storedFiles = append(storedFiles, inserted)
		}
		return nil
	})
	if err != nil {
		return store.Order{}, nil, nil, err
	}
	return ord, items, storedFiles, nil
}
