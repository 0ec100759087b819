package models

import (
	"time"
)

// NotificationType mirrors the kinds the client knows how to render.
type NotificationType string

const (
	NotificationLike    NotificationType = "LIKE"
	NotificationComment NotificationType = "COMMENT"
	NotificationMention NotificationType = "MENTION"
	NotificationBadge   NotificationType = "BADGE"
	NotificationPoint   NotificationType = "POINT"
	NotificationNews    NotificationType = "NEWS"
)

// Notification is a sink record. Creating one never blocks or fails the
// state transition that caused it; actual push delivery happens later in
// the push relay worker and is best-effort.
type Notification struct {
	ID          string           `gorm:"primaryKey;type:uuid" json:"id"`
	RecipientID string           `gorm:"index;not null" json:"recipient_id"` // User.UserID
	SenderID    string           `gorm:"index" json:"sender_id,omitempty"`
	Type        NotificationType `gorm:"type:varchar(20);not null" json:"type"`

	// Optional references, depending on Type.
	PostID    string `json:"post_id,omitempty"`
	CommentID string `json:"comment_id,omitempty"`
	BadgeName string `json:"badge_name,omitempty"`
	Message   string `gorm:"type:text" json:"message,omitempty"`

	IsRead bool `gorm:"default:false;index" json:"is_read"`
	Pushed bool `gorm:"default:false;index" json:"-"` // set by the push relay worker

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}
