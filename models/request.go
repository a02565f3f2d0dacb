package models

import "time"

// ProductRequest is a customer's ask for a product not in the catalog.
// Duplicate requests from the same user for the same name are rejected.
type ProductRequest struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"uniqueIndex:idx_user_request;not null" json:"user_id"`
	Name      string    `gorm:"uniqueIndex:idx_user_request;not null" json:"name"`
	Details   string    `json:"details"`
	CreatedAt time.Time `json:"created_at"`
}

type Feedback struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"not null" json:"email"`
	Message   string    `gorm:"not null" json:"message"`
	Rating    int       `json:"rating"`
	CreatedAt time.Time `json:"created_at"`
}
