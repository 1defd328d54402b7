package models

import "time"

type OrderStatus string

const (
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

type PaymentMethod string

const (
	PaymentMethodOnline PaymentMethod = "ONLINE"
	PaymentMethodCOD    PaymentMethod = "COD"
)

type DeliveryStatus string

const (
	DeliveryStatusAssigned       DeliveryStatus = "ASSIGNED"
	DeliveryStatusOutForDelivery DeliveryStatus = "OUT_FOR_DELIVERY"
	DeliveryStatusCompleted      DeliveryStatus = "COMPLETED"
	DeliveryStatusAttempted      DeliveryStatus = "ATTEMPTED"
)

type Order struct {
	ID              int           `json:"id"`
	UserID          *int          `json:"user_id"`
	Items           []OrderItem   `json:"items"`
	Total           float64       `json:"total"`
	Status          OrderStatus   `json:"status"`
	PaymentMethod   PaymentMethod `json:"payment_method"`
	IsPaid          bool          `json:"is_paid"`
	ShippingAddress string        `json:"shipping_address"`
	TrackingNumber  *string       `json:"tracking_number,omitempty"`
	// DeliveryCode is the handoff secret. It is stripped from every response
	// served to an AGENT principal before serialization.
	DeliveryCode *string   `json:"delivery_code,omitempty"`
	Delivery     *Delivery `json:"delivery,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// OrderItem carries the unit price snapshot captured at order time; later
// product price changes never affect an existing order.
type OrderItem struct {
	ID            int     `json:"id"`
	OrderID       int     `json:"order_id"`
	ProductID     int     `json:"product_id"`
	ProductName   string  `json:"product_name,omitempty"`
	ProductImage  string  `json:"product_image,omitempty"`
	Quantity      int     `json:"quantity"`
	SelectedColor string  `json:"selected_color,omitempty"`
	SelectedSize  string  `json:"selected_size,omitempty"`
	UnitPrice     float64 `json:"unit_price"`
}

type Delivery struct {
	ID        int            `json:"id"`
	OrderID   int            `json:"order_id"`
	Status    DeliveryStatus `json:"status"`
	CODAmount float64        `json:"cod_amount"`
}

type OrderItemRequest struct {
	ProductID int    `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
	Color     string `json:"color"`
	Size      string `json:"size"`
}

type CreateOrderRequest struct {
	Items           []OrderItemRequest `json:"items"`
	ShippingAddress string             `json:"shipping_address" binding:"required"`
	PaymentMethod   PaymentMethod      `json:"payment_method" binding:"required,oneof=ONLINE COD"`
}

type UpdateStatusRequest struct {
	Status OrderStatus `json:"status" binding:"required"`
	OTP    string      `json:"otp"`
}
