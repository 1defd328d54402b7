package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/HarshSharma20050924/Lumina-Store-sub000/middleware"
	"github.com/HarshSharma20050924/Lumina-Store-sub000/models"
	"github.com/HarshSharma20050924/Lumina-Store-sub000/notify"
)

type NotificationHandler struct {
	notifier *notify.Dispatcher
	logger   *zap.Logger
}

func NewNotificationHandler(notifier *notify.Dispatcher, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{notifier: notifier, logger: logger}
}

// Send targets one user, an explicit list, or everyone when neither is given.
func (h *NotificationHandler) Send(c *gin.Context) {
	ctx, span := otel.Tracer("fulfillment-service").Start(c.Request.Context(), "SendNotification")
	defer span.End()

	var req models.SendNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	var err error
	switch {
	case req.UserID != nil:
		span.SetAttributes(attribute.Int("target.user_id", *req.UserID))
		err = h.notifier.SendToUser(ctx, req.Title, req.Message, *req.UserID)
	case len(req.UserIDs) > 0:
		span.SetAttributes(attribute.Int("target.count", len(req.UserIDs)))
		err = h.notifier.SendToMany(ctx, req.Title, req.Message, req.UserIDs)
	default:
		span.SetAttributes(attribute.Bool("target.broadcast", true))
		err = h.notifier.Broadcast(ctx, req.Title, req.Message)
	}

	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to send notification", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Notification sent"})
}

func (h *NotificationHandler) Poll(c *gin.Context) {
	ctx, span := otel.Tracer("fulfillment-service").Start(c.Request.Context(), "PollNotifications")
	defer span.End()

	p, _ := middleware.GetPrincipal(c)

	notifications, err := h.notifier.Poll(ctx, p.UserID)
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to poll notifications", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}

	span.SetAttributes(attribute.Int("notifications.count", len(notifications)))
	c.JSON(http.StatusOK, notifications)
}

func (h *NotificationHandler) History(c *gin.Context) {
	ctx, span := otel.Tracer("fulfillment-service").Start(c.Request.Context(), "NotificationHistory")
	defer span.End()

	p, _ := middleware.GetPrincipal(c)

	notifications, err := h.notifier.History(ctx, p.UserID)
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to load notification history", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, notifications)
}
