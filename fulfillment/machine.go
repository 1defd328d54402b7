// Package fulfillment drives orders through their status lifecycle and proves
// physical handoff with a one-time delivery code.
package fulfillment

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/HarshSharma20050924/Lumina-Store-sub000/middleware"
	"github.com/HarshSharma20050924/Lumina-Store-sub000/models"
	"github.com/HarshSharma20050924/Lumina-Store-sub000/store"
)

// Notifier is the slice of the notification dispatcher the state machine
// needs. Sends are best-effort: a notifier failure never fails a transition.
type Notifier interface {
	SendToUser(ctx context.Context, title, message string, userID int) error
}

// Locker serializes fulfillment operations per order id, see cache.OrderLocks.
type Locker interface {
	Acquire(ctx context.Context, orderID int) (bool, error)
	Release(ctx context.Context, orderID int) error
}

type StateMachine struct {
	orders   *store.OrderStore
	notifier Notifier
	locks    Locker
	logger   *zap.Logger
}

func NewStateMachine(orders *store.OrderStore, notifier Notifier, locks Locker, logger *zap.Logger) *StateMachine {
	return &StateMachine{
		orders:   orders,
		notifier: notifier,
		locks:    locks,
		logger:   logger,
	}
}

// canTransition is the legality table. Delivered and cancelled are terminal;
// delivered is reachable straight from processing (pre-verified delivery
// paths skip the shipped leg).
func canTransition(from, to models.OrderStatus) bool {
	switch from {
	case models.OrderStatusProcessing:
		return to == models.OrderStatusShipped ||
			to == models.OrderStatusDelivered ||
			to == models.OrderStatusCancelled
	case models.OrderStatusShipped:
		return to == models.OrderStatusDelivered ||
			to == models.OrderStatusCancelled
	default:
		return false
	}
}

// Advance moves an order to target, enforcing the legality table and, for
// delivered, the delivery code check. Transitions on the same order are
// serialized through a redis lock; a concurrent attempt is rejected with
// ErrOrderBusy.
func (m *StateMachine) Advance(ctx context.Context, orderID int, target models.OrderStatus, otp string) (*models.Order, error) {
	unlock, err := m.lock(ctx, orderID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	order, err := m.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !canTransition(order.Status, target) {
		return nil, models.ErrIllegalTransition
	}

	switch target {
	case models.OrderStatusShipped:
		trackingNumber := NewTrackingNumber()
		if err := m.orders.SetShipped(ctx, orderID, trackingNumber); err != nil {
			return nil, err
		}
		order.Status = models.OrderStatusShipped
		order.TrackingNumber = &trackingNumber
		m.syncDelivery(ctx, order, models.DeliveryStatusOutForDelivery)
		m.sendToOwner(ctx, order, "Order shipped",
			fmt.Sprintf("Your order #%d is on its way. Tracking number: %s", order.ID, trackingNumber))

	case models.OrderStatusDelivered:
		// A non-null delivery code means arrival was signaled and the agent
		// must present the customer's code. A null code means no arrival was
		// ever signaled and verification is skipped, intentionally.
		if order.DeliveryCode != nil && *order.DeliveryCode != otp {
			return nil, models.ErrInvalidDeliveryCode
		}
		markPaid := order.PaymentMethod == models.PaymentMethodCOD
		if err := m.orders.SetDelivered(ctx, orderID, markPaid); err != nil {
			return nil, err
		}
		order.Status = models.OrderStatusDelivered
		order.DeliveryCode = nil
		order.IsPaid = order.IsPaid || markPaid
		m.syncDelivery(ctx, order, models.DeliveryStatusCompleted)
		m.sendToOwner(ctx, order, "Order delivered",
			fmt.Sprintf("Your order #%d has been delivered. Thank you for shopping with us!", order.ID))

	case models.OrderStatusCancelled:
		if err := m.orders.CancelOrder(ctx, orderID); err != nil {
			return nil, err
		}
		order.Status = models.OrderStatusCancelled
		order.DeliveryCode = nil
		m.syncDelivery(ctx, order, models.DeliveryStatusAttempted)
		m.sendToOwner(ctx, order, "Order cancelled",
			fmt.Sprintf("Your order #%d has been cancelled.", order.ID))

	default:
		return nil, models.ErrIllegalTransition
	}

	return order, nil
}

// NotifyArrival issues a fresh handoff code and sends it to the customer
// out-of-band. Repeat calls reissue the code, invalidating the previous one,
// which is also how "resend code" works. It takes the same per-order lock as
// Advance so a reissue cannot interleave with an in-flight transition.
func (m *StateMachine) NotifyArrival(ctx context.Context, orderID int) error {
	unlock, err := m.lock(ctx, orderID)
	if err != nil {
		return err
	}
	defer unlock()

	order, err := m.orders.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}

	code, err := NewDeliveryCode()
	if err != nil {
		return fmt.Errorf("failed to generate delivery code: %w", err)
	}

	if err := m.orders.SetDeliveryCode(ctx, orderID, code); err != nil {
		return err
	}

	order.DeliveryCode = &code
	m.sendToOwner(ctx, order, "Your delivery has arrived",
		fmt.Sprintf("Your delivery code for order #%d is %s. Share it only with the delivery agent at handoff.", order.ID, code))
	return nil
}

// lock takes the per-order lock. A redis outage degrades to unlocked
// operation with a warning rather than blocking all transitions.
func (m *StateMachine) lock(ctx context.Context, orderID int) (func(), error) {
	if m.locks == nil {
		return func() {}, nil
	}
	acquired, err := m.locks.Acquire(ctx, orderID)
	if err != nil {
		m.logger.Warn("Failed to acquire order lock, proceeding unlocked",
			zap.Int("order_id", orderID), zap.Error(err))
		return func() {}, nil
	}
	if !acquired {
		return nil, models.ErrOrderBusy
	}
	return func() {
		if err := m.locks.Release(ctx, orderID); err != nil {
			m.logger.Warn("Failed to release order lock",
				zap.Int("order_id", orderID), zap.Error(err))
		}
	}, nil
}

func (m *StateMachine) syncDelivery(ctx context.Context, order *models.Order, status models.DeliveryStatus) {
	if err := m.orders.SyncDeliveryStatus(ctx, order.ID, status); err != nil {
		middleware.RecordDeliverySyncFailure()
		m.logger.Warn("Failed to sync delivery status",
			zap.Int("order_id", order.ID),
			zap.String("target_status", string(status)),
			zap.Error(err),
		)
	}
}

func (m *StateMachine) sendToOwner(ctx context.Context, order *models.Order, title, message string) {
	if order.UserID == nil || m.notifier == nil {
		return
	}
	if err := m.notifier.SendToUser(ctx, title, message, *order.UserID); err != nil {
		m.logger.Warn("Failed to send order notification",
			zap.Int("order_id", order.ID), zap.Error(err))
	}
}
