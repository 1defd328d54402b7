// Package inventory holds the per-product stock ledger. Both operations run
// inside a caller-supplied transaction so a multi-item order either reserves
// everything or nothing.
package inventory

import (
	"context"
	"database/sql"
	"errors"

	"github.com/HarshSharma20050924/Lumina-Store-sub000/models"
)

// Reserve conditionally decrements stock for one product and returns the unit
// price to snapshot (discount price when present). The decrement and the stock
// check are a single UPDATE, so two concurrent orders can never jointly
// oversell: the row lock taken by the first UPDATE serializes the second.
func Reserve(ctx context.Context, tx *sql.Tx, productID, quantity int) (float64, error) {
	var price float64
	var discountPrice sql.NullFloat64

	err := tx.QueryRowContext(ctx,
		`UPDATE products
		 SET stock = stock - $2, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $1 AND stock >= $2
		 RETURNING price, discount_price`,
		productID, quantity,
	).Scan(&price, &discountPrice)

	if errors.Is(err, sql.ErrNoRows) {
		// Either the product doesn't exist or stock ran short.
		var available int
		err := tx.QueryRowContext(ctx,
			"SELECT stock FROM products WHERE id = $1", productID,
		).Scan(&available)
		if errors.Is(err, sql.ErrNoRows) {
			return 0, &models.ProductNotFoundError{ProductID: productID}
		}
		if err != nil {
			return 0, err
		}
		return 0, &models.InsufficientStockError{
			ProductID: productID,
			Requested: quantity,
			Available: available,
		}
	}
	if err != nil {
		return 0, err
	}

	if discountPrice.Valid {
		return discountPrice.Float64, nil
	}
	return price, nil
}

// Restore puts previously reserved quantity back, used when an order is
// cancelled.
func Restore(ctx context.Context, tx *sql.Tx, productID, quantity int) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE products
		 SET stock = stock + $2, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $1`,
		productID, quantity,
	)
	if err != nil {
		return err
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return &models.ProductNotFoundError{ProductID: productID}
	}
	return nil
}
