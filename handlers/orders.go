package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/IBM/sarama"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/HarshSharma20050924/Lumina-Store-sub000/fulfillment"
	"github.com/HarshSharma20050924/Lumina-Store-sub000/kafka"
	"github.com/HarshSharma20050924/Lumina-Store-sub000/middleware"
	"github.com/HarshSharma20050924/Lumina-Store-sub000/models"
	"github.com/HarshSharma20050924/Lumina-Store-sub000/store"
)

// Idempotency is the slice of the cache layer order placement needs, see
// cache.Idempotency.
type Idempotency interface {
	Reserve(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

type OrderHandler struct {
	orders   *store.OrderStore
	machine  *fulfillment.StateMachine
	notifier fulfillment.Notifier
	producer sarama.SyncProducer
	idem     Idempotency
	logger   *zap.Logger
}

func NewOrderHandler(
	orders *store.OrderStore,
	machine *fulfillment.StateMachine,
	notifier fulfillment.Notifier,
	producer sarama.SyncProducer,
	idem Idempotency,
	logger *zap.Logger,
) *OrderHandler {
	return &OrderHandler{
		orders:   orders,
		machine:  machine,
		notifier: notifier,
		producer: producer,
		idem:     idem,
		logger:   logger,
	}
}

func (h *OrderHandler) CreateOrder(c *gin.Context) {
	ctx, span := otel.Tracer("fulfillment-service").Start(c.Request.Context(), "CreateOrder")
	defer span.End()

	p, _ := middleware.GetPrincipal(c)

	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	span.SetAttributes(
		attribute.Int("user_id", p.UserID),
		attribute.Int("items.count", len(req.Items)),
	)

	var reservedKey string
	if key := c.GetHeader("Idempotency-Key"); key != "" && h.idem != nil {
		fresh, err := h.idem.Reserve(ctx, key)
		if err != nil {
			h.logger.Warn("Failed to check idempotency key", zap.Error(err))
		} else if !fresh {
			c.JSON(http.StatusConflict, gin.H{"message": "Duplicate request"})
			return
		} else {
			reservedKey = key
		}
	}

	order, err := h.orders.PlaceOrder(ctx, p.UserID, &req)
	if err != nil {
		// A failed placement must not burn the key: the client retries the
		// same checkout with corrected input under the same key.
		if reservedKey != "" {
			if err := h.idem.Release(ctx, reservedKey); err != nil {
				h.logger.Warn("Failed to release idempotency key", zap.Error(err))
			}
		}
		var notFound *models.ProductNotFoundError
		var noStock *models.InsufficientStockError
		switch {
		case errors.Is(err, models.ErrEmptyCart):
			middleware.RecordOrderPlaced("rejected")
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		case errors.As(err, &notFound):
			middleware.RecordOrderPlaced("rejected")
			c.JSON(http.StatusBadRequest, gin.H{"message": notFound.Error(), "product_id": notFound.ProductID})
		case errors.As(err, &noStock):
			middleware.RecordOrderPlaced("rejected")
			c.JSON(http.StatusBadRequest, gin.H{
				"message":    noStock.Error(),
				"product_id": noStock.ProductID,
				"requested":  noStock.Requested,
				"available":  noStock.Available,
			})
		default:
			middleware.RecordOrderPlaced("failed")
			span.RecordError(err)
			h.logger.Error("Failed to place order", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		}
		return
	}

	middleware.RecordOrderPlaced("created")
	span.SetAttributes(attribute.Int("order.id", order.ID))

	// Receipt and event publish are best-effort after commit
	if h.notifier != nil {
		if err := h.notifier.SendToUser(ctx, "Order received",
			"Your order #"+strconv.Itoa(order.ID)+" has been placed. Total: "+strconv.FormatFloat(order.Total, 'f', 2, 64),
			p.UserID); err != nil {
			h.logger.Warn("Failed to send receipt notification", zap.Error(err))
		}
	}
	h.publishOrderEvent(c, order, "order_created")

	h.logger.Info("Order created", zap.Int("order_id", order.ID), zap.Int("user_id", p.UserID))
	c.JSON(http.StatusCreated, order)
}

func (h *OrderHandler) MyOrders(c *gin.Context) {
	ctx, span := otel.Tracer("fulfillment-service").Start(c.Request.Context(), "MyOrders")
	defer span.End()

	p, _ := middleware.GetPrincipal(c)

	orders, err := h.orders.ListByUser(ctx, p.UserID)
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to list orders", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}

	span.SetAttributes(attribute.Int("orders.count", len(orders)))
	c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) ListOrders(c *gin.Context) {
	ctx, span := otel.Tracer("fulfillment-service").Start(c.Request.Context(), "ListOrders")
	defer span.End()

	p, _ := middleware.GetPrincipal(c)

	orders, err := h.orders.ListAll(ctx)
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to list orders", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}

	span.SetAttributes(attribute.Int("orders.count", len(orders)))
	c.JSON(http.StatusOK, redactForRole(p.Role, orders...))
}

func (h *OrderHandler) NotifyArrival(c *gin.Context) {
	ctx, span := otel.Tracer("fulfillment-service").Start(c.Request.Context(), "NotifyArrival")
	defer span.End()

	orderID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid order ID"})
		return
	}
	span.SetAttributes(attribute.Int("order.id", orderID))

	if err := h.machine.NotifyArrival(ctx, orderID); err != nil {
		if errors.Is(err, models.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Order not found"})
			return
		}
		if errors.Is(err, models.ErrOrderBusy) {
			c.JSON(http.StatusConflict, gin.H{"message": "Order update already in progress"})
			return
		}
		span.RecordError(err)
		h.logger.Error("Failed to signal arrival", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Delivery code sent to customer"})
}

func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	ctx, span := otel.Tracer("fulfillment-service").Start(c.Request.Context(), "UpdateStatus")
	defer span.End()

	p, _ := middleware.GetPrincipal(c)

	orderID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid order ID"})
		return
	}

	var req models.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	span.SetAttributes(
		attribute.Int("order.id", orderID),
		attribute.String("target_status", string(req.Status)),
	)

	order, err := h.machine.Advance(ctx, orderID, req.Status, req.OTP)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidDeliveryCode):
			c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid Verification Code"})
		case errors.Is(err, models.ErrIllegalTransition):
			c.JSON(http.StatusBadRequest, gin.H{"message": "Illegal status transition"})
		case errors.Is(err, models.ErrOrderBusy):
			c.JSON(http.StatusConflict, gin.H{"message": "Order update already in progress"})
		case errors.Is(err, models.ErrOrderNotFound):
			c.JSON(http.StatusNotFound, gin.H{"message": "Order not found"})
		default:
			span.RecordError(err)
			h.logger.Error("Failed to update order status", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		}
		return
	}

	h.publishOrderEvent(c, order, "order_"+string(order.Status))

	h.logger.Info("Order status updated",
		zap.Int("order_id", orderID),
		zap.String("status", string(order.Status)),
	)
	c.JSON(http.StatusOK, redactForRole(p.Role, order)[0])
}

func (h *OrderHandler) publishOrderEvent(c *gin.Context, order *models.Order, eventType string) {
	if h.producer == nil {
		return
	}
	event := models.OrderEvent{
		OrderID:   order.ID,
		UserID:    order.UserID,
		Status:    order.Status,
		Total:     order.Total,
		EventType: eventType,
	}
	if err := kafka.PublishEvent(c.Request.Context(), h.producer, kafka.OrderEventsTopic, event, h.logger); err != nil {
		h.logger.Warn("Failed to publish order event", zap.Error(err))
	}
}

// redactForRole is the single serialization gate for privileged order reads.
// An AGENT principal must never see the delivery code, whatever the order
// status; new read paths go through here, not around it.
func redactForRole(role string, orders ...*models.Order) []*models.Order {
	if role != middleware.RoleAgent {
		return orders
	}
	for _, order := range orders {
		order.DeliveryCode = nil
	}
	return orders
}
