// Package notify persists notifications and fans them out to one user, an
// explicit list, or everyone. From the fulfillment core's point of view every
// send is best-effort: a dispatcher failure never rolls back an order.
package notify

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/HarshSharma20050924/Lumina-Store-sub000/circuitbreaker"
	"github.com/HarshSharma20050924/Lumina-Store-sub000/kafka"
	"github.com/HarshSharma20050924/Lumina-Store-sub000/middleware"
	"github.com/HarshSharma20050924/Lumina-Store-sub000/models"
)

// BroadcastWindow is how long a broadcast stays visible to poll. Broadcasts
// are never marked read; recency is the only filter.
const BroadcastWindow = 60 * time.Second

// HistoryLimit caps the history endpoint at the most recent notifications.
const HistoryLimit = 10

const notificationColumns = "id, user_id, title, message, is_read, created_at"

type Dispatcher struct {
	db       *sql.DB
	producer sarama.SyncProducer
	breaker  *circuitbreaker.CircuitBreaker
	logger   *zap.Logger
}

func NewDispatcher(db *sql.DB, producer sarama.SyncProducer, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		db:       db,
		producer: producer,
		breaker:  circuitbreaker.New(5, 30*time.Second),
		logger:   logger,
	}
}

func (d *Dispatcher) SendToUser(ctx context.Context, title, message string, userID int) error {
	var n models.Notification
	err := d.db.QueryRowContext(ctx,
		`INSERT INTO notifications (user_id, title, message)
		 VALUES ($1, $2, $3) RETURNING `+notificationColumns,
		userID, title, message,
	).Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.IsRead, &n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	middleware.RecordNotificationSent("user")
	d.publish(ctx, &n)
	return nil
}

// SendToMany materializes one notification row per target user id.
func (d *Dispatcher) SendToMany(ctx context.Context, title, message string, userIDs []int) error {
	if len(userIDs) == 0 {
		return nil
	}

	query := "INSERT INTO notifications (user_id, title, message) VALUES "
	args := make([]interface{}, 0, len(userIDs)*3)
	for i, userID := range userIDs {
		if i > 0 {
			query += ", "
		}
		base := i * 3
		query += fmt.Sprintf("($%d, $%d, $%d)", base+1, base+2, base+3)
		args = append(args, userID, title, message)
	}

	if _, err := d.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert notifications: %w", err)
	}
	middleware.RecordNotificationSent("bulk")
	d.publish(ctx, &models.Notification{Title: title})
	return nil
}

// Broadcast inserts a single row with no owner, visible to every user for
// BroadcastWindow.
func (d *Dispatcher) Broadcast(ctx context.Context, title, message string) error {
	var n models.Notification
	err := d.db.QueryRowContext(ctx,
		`INSERT INTO notifications (user_id, title, message)
		 VALUES (NULL, $1, $2) RETURNING `+notificationColumns,
		title, message,
	).Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.IsRead, &n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	middleware.RecordNotificationSent("broadcast")
	d.publish(ctx, &n)
	return nil
}

// Poll returns the caller's unread notifications plus recent broadcasts, and
// marks the owned ones read in the same transaction.
func (d *Dispatcher) Poll(ctx context.Context, userID int) ([]models.Notification, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`UPDATE notifications SET is_read = TRUE
		 WHERE user_id = $1 AND is_read = FALSE
		 RETURNING `+notificationColumns,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to poll notifications: %w", err)
	}
	notifications, err := collectNotifications(rows)
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().Add(-BroadcastWindow)
	rows, err = tx.QueryContext(ctx,
		`SELECT `+notificationColumns+` FROM notifications
		 WHERE user_id IS NULL AND created_at > $1`,
		cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to poll broadcasts: %w", err)
	}
	broadcasts, err := collectNotifications(rows)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit poll: %w", err)
	}

	notifications = append(notifications, broadcasts...)
	sort.Slice(notifications, func(i, j int) bool {
		return notifications[i].CreatedAt.After(notifications[j].CreatedAt)
	})
	return notifications, nil
}

// History returns the most recent notifications visible to the user, newest
// first, without touching read state.
func (d *Dispatcher) History(ctx context.Context, userID int) ([]models.Notification, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT `+notificationColumns+` FROM notifications
		 WHERE user_id = $1 OR user_id IS NULL
		 ORDER BY created_at DESC LIMIT $2`,
		userID, HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load notification history: %w", err)
	}
	return collectNotifications(rows)
}

// publish mirrors the stored notification onto the event bus. The breaker
// keeps a broker outage from stalling callers; failures are logged only.
func (d *Dispatcher) publish(ctx context.Context, n *models.Notification) {
	if d.producer == nil {
		return
	}
	event := models.NotificationEvent{
		NotificationID: n.ID,
		UserID:         n.UserID,
		Title:          n.Title,
		EventType:      "notification_sent",
	}
	err := d.breaker.Execute(ctx, func() error {
		return kafka.PublishEvent(ctx, d.producer, kafka.NotificationEventsTopic, event, d.logger)
	})
	if err != nil {
		d.logger.Warn("Failed to publish notification event", zap.Error(err))
	}
}

func collectNotifications(rows *sql.Rows) ([]models.Notification, error) {
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		var userID sql.NullInt64
		if err := rows.Scan(&n.ID, &userID, &n.Title, &n.Message, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		if userID.Valid {
			uid := int(userID.Int64)
			n.UserID = &uid
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return notifications, nil
}
