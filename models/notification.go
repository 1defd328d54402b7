package models

import "time"

// Notification rows with a nil UserID are broadcasts: visible to every user
// for a short recency window and never individually marked read.
type Notification struct {
	ID        int       `json:"id"`
	UserID    *int      `json:"user_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

type SendNotificationRequest struct {
	Title   string `json:"title" binding:"required"`
	Message string `json:"message" binding:"required"`
	UserID  *int   `json:"user_id"`
	UserIDs []int  `json:"user_ids"`
}
