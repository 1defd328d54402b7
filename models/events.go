package models

// OrderEvent is published to Kafka on order lifecycle changes.
// Event types: order_created, order_shipped, order_delivered, order_cancelled.
type OrderEvent struct {
	OrderID   int         `json:"order_id"`
	UserID    *int        `json:"user_id"`
	Status    OrderStatus `json:"status"`
	Total     float64     `json:"total"`
	EventType string      `json:"event_type"`
}

// PaymentEvent is consumed from the external payment processor's topic.
// "paid" is asserted by this signal, never verified against a gateway here.
type PaymentEvent struct {
	OrderID       int    `json:"order_id"`
	TransactionID string `json:"transaction_id"`
	EventType     string `json:"event_type"` // payment_confirmed, payment_failed
}

// NotificationEvent mirrors a persisted notification onto the event bus so
// downstream channels (email, push) can fan out without polling the database.
type NotificationEvent struct {
	NotificationID int    `json:"notification_id"`
	UserID         *int   `json:"user_id"`
	Title          string `json:"title"`
	EventType      string `json:"event_type"` // notification_sent
}
