// Package store persists the order aggregate: an order, its line items and its
// linked delivery record are written and read as one consistency unit.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/HarshSharma20050924/Lumina-Store-sub000/inventory"
	"github.com/HarshSharma20050924/Lumina-Store-sub000/models"
)

type OrderStore struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewOrderStore(db *sql.DB, logger *zap.Logger) *OrderStore {
	return &OrderStore{db: db, logger: logger}
}

// PlaceOrder converts a validated cart into a persisted order inside a single
// transaction: stock reservation, price snapshots, the order row, its items
// and the delivery record all commit together or not at all.
func (s *OrderStore) PlaceOrder(ctx context.Context, userID int, req *models.CreateOrderRequest) (*models.Order, error) {
	if len(req.Items) == 0 {
		return nil, models.ErrEmptyCart
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var itemsTotal float64
	items := make([]models.OrderItem, 0, len(req.Items))
	for _, it := range req.Items {
		unitPrice, err := inventory.Reserve(ctx, tx, it.ProductID, it.Quantity)
		if err != nil {
			return nil, err
		}
		itemsTotal += unitPrice * float64(it.Quantity)
		items = append(items, models.OrderItem{
			ProductID:     it.ProductID,
			Quantity:      it.Quantity,
			SelectedColor: it.Color,
			SelectedSize:  it.Size,
			UnitPrice:     unitPrice,
		})
	}

	_, _, total := ComputeTotals(itemsTotal)

	order := &models.Order{
		UserID:          &userID,
		Total:           total,
		Status:          models.OrderStatusProcessing,
		PaymentMethod:   req.PaymentMethod,
		IsPaid:          req.PaymentMethod == models.PaymentMethodOnline,
		ShippingAddress: req.ShippingAddress,
	}

	err = tx.QueryRowContext(ctx,
		`INSERT INTO orders (user_id, total, status, payment_method, is_paid, shipping_address)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at`,
		userID, order.Total, order.Status, order.PaymentMethod, order.IsPaid, order.ShippingAddress,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert order: %w", err)
	}

	// Batch insert of line items
	itemQuery := "INSERT INTO order_items (order_id, product_id, quantity, selected_color, selected_size, unit_price) VALUES "
	args := make([]interface{}, 0, len(items)*6)
	for i := range items {
		if i > 0 {
			itemQuery += ", "
		}
		base := i * 6
		itemQuery += fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6)
		args = append(args, order.ID, items[i].ProductID, items[i].Quantity,
			items[i].SelectedColor, items[i].SelectedSize, items[i].UnitPrice)
	}
	itemQuery += " RETURNING id"

	rows, err := tx.QueryContext(ctx, itemQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to insert order items: %w", err)
	}
	for i := 0; rows.Next(); i++ {
		if err := rows.Scan(&items[i].ID); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan order item id: %w", err)
		}
		items[i].OrderID = order.ID
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to insert order items: %w", err)
	}
	rows.Close()
	order.Items = items

	delivery := &models.Delivery{
		OrderID: order.ID,
		Status:  models.DeliveryStatusAssigned,
	}
	if req.PaymentMethod == models.PaymentMethodCOD {
		delivery.CODAmount = order.Total
	}
	err = tx.QueryRowContext(ctx,
		"INSERT INTO deliveries (order_id, status, cod_amount) VALUES ($1, $2, $3) RETURNING id",
		delivery.OrderID, delivery.Status, delivery.CODAmount,
	).Scan(&delivery.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert delivery: %w", err)
	}
	order.Delivery = delivery

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit order: %w", err)
	}

	return order, nil
}

const orderColumns = "id, user_id, total, status, payment_method, is_paid, shipping_address, tracking_number, delivery_code, created_at, updated_at"

func (s *OrderStore) GetOrder(ctx context.Context, orderID int) (*models.Order, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE id = $1", orderID)
	order, err := scanOrder(row)
	if err != nil {
		return nil, err
	}
	if err := s.loadItems(ctx, order); err != nil {
		return nil, err
	}
	if err := s.loadDelivery(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// ListByUser returns the caller's orders, newest first, with product name and
// image joined into the items.
func (s *OrderStore) ListByUser(ctx context.Context, userID int) ([]*models.Order, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE user_id = $1 ORDER BY created_at DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return s.collectOrders(ctx, rows)
}

// ListAll returns every order, newest first. Callers serving AGENT principals
// must strip delivery codes before responding.
func (s *OrderStore) ListAll(ctx context.Context) ([]*models.Order, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+orderColumns+" FROM orders ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return s.collectOrders(ctx, rows)
}

func (s *OrderStore) collectOrders(ctx context.Context, rows *sql.Rows) ([]*models.Order, error) {
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan orders: %w", err)
	}

	for _, order := range orders {
		if err := s.loadItems(ctx, order); err != nil {
			return nil, err
		}
		if err := s.loadDelivery(ctx, order); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

// SetShipped advances the order to shipped with its freshly issued tracking
// number.
func (s *OrderStore) SetShipped(ctx context.Context, orderID int, trackingNumber string) error {
	return s.exec(ctx,
		`UPDATE orders
		 SET status = $2, tracking_number = $3, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $1`,
		orderID, models.OrderStatusShipped, trackingNumber)
}

// SetDelivered moves the order to its terminal delivered state. The delivery
// code is cleared: the secret has served its purpose. COD orders are marked
// paid, cash changes hands at the door.
func (s *OrderStore) SetDelivered(ctx context.Context, orderID int, markPaid bool) error {
	return s.exec(ctx,
		`UPDATE orders
		 SET status = $2, delivery_code = NULL, is_paid = is_paid OR $3, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $1`,
		orderID, models.OrderStatusDelivered, markPaid)
}

// CancelOrder flips the order to cancelled and restores the reserved stock in
// the same transaction.
func (s *OrderStore) CancelOrder(ctx context.Context, orderID int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		"SELECT product_id, quantity FROM order_items WHERE order_id = $1", orderID)
	if err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}
	type reserved struct{ productID, quantity int }
	var reservations []reserved
	for rows.Next() {
		var r reserved
		if err := rows.Scan(&r.productID, &r.quantity); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		reservations = append(reservations, r)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}
	rows.Close()

	for _, r := range reservations {
		if err := inventory.Restore(ctx, tx, r.productID, r.quantity); err != nil {
			return fmt.Errorf("failed to restore stock: %w", err)
		}
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE orders
		 SET status = $2, delivery_code = NULL, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $1`,
		orderID, models.OrderStatusCancelled)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return models.ErrOrderNotFound
	}

	return tx.Commit()
}

func (s *OrderStore) SetDeliveryCode(ctx context.Context, orderID int, code string) error {
	return s.exec(ctx,
		"UPDATE orders SET delivery_code = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $1",
		orderID, code)
}

// SyncDeliveryStatus keeps the delivery record in lockstep with the order
// status. Returns ErrDeliveryNotFound when the row is missing; callers treat
// that as best-effort.
func (s *OrderStore) SyncDeliveryStatus(ctx context.Context, orderID int, status models.DeliveryStatus) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE deliveries SET status = $2 WHERE order_id = $1", orderID, status)
	if err != nil {
		return err
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return models.ErrDeliveryNotFound
	}
	return nil
}

// MarkPaid records an externally confirmed payment.
func (s *OrderStore) MarkPaid(ctx context.Context, orderID int) error {
	return s.exec(ctx,
		"UPDATE orders SET is_paid = TRUE, updated_at = CURRENT_TIMESTAMP WHERE id = $1",
		orderID)
}

func (s *OrderStore) exec(ctx context.Context, query string, args ...interface{}) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return models.ErrOrderNotFound
	}
	return nil
}

func (s *OrderStore) loadItems(ctx context.Context, order *models.Order) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT oi.id, oi.order_id, oi.product_id, p.name, p.image, oi.quantity, oi.selected_color, oi.selected_size, oi.unit_price
		 FROM order_items oi JOIN products p ON p.id = oi.product_id
		 WHERE oi.order_id = $1 ORDER BY oi.id`,
		order.ID)
	if err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item models.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductName,
			&item.ProductImage, &item.Quantity, &item.SelectedColor, &item.SelectedSize, &item.UnitPrice); err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		order.Items = append(order.Items, item)
	}
	return rows.Err()
}

func (s *OrderStore) loadDelivery(ctx context.Context, order *models.Order) error {
	var d models.Delivery
	err := s.db.QueryRowContext(ctx,
		"SELECT id, order_id, status, cod_amount FROM deliveries WHERE order_id = $1",
		order.ID,
	).Scan(&d.ID, &d.OrderID, &d.Status, &d.CODAmount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load delivery: %w", err)
	}
	order.Delivery = &d
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (*models.Order, error) {
	var order models.Order
	var userID sql.NullInt64
	var trackingNumber, deliveryCode sql.NullString

	err := row.Scan(&order.ID, &userID, &order.Total, &order.Status, &order.PaymentMethod,
		&order.IsPaid, &order.ShippingAddress, &trackingNumber, &deliveryCode,
		&order.CreatedAt, &order.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan order: %w", err)
	}

	if userID.Valid {
		uid := int(userID.Int64)
		order.UserID = &uid
	}
	if trackingNumber.Valid {
		order.TrackingNumber = &trackingNumber.String
	}
	if deliveryCode.Valid {
		order.DeliveryCode = &deliveryCode.String
	}
	return &order, nil
}
