package models

import (
	"time"
)

// NoticeStatus indicates the publishing status of a notice
type NoticeStatus string

const (
	NoticeStatusDraft     NoticeStatus = "draft"
	NoticeStatusScheduled NoticeStatus = "scheduled"
	NoticeStatusPublished NoticeStatus = "published"
)

// Notice is an announcement from the office. Scheduled notices are
// flipped to published by the notice scheduler; opening one dispatches
// the "notice_view" mission trigger.
type Notice struct {
	ID    string `gorm:"primaryKey;type:uuid" json:"id"`
	Title string `gorm:"not null" json:"title"`
	Slug  string `gorm:"uniqueIndex;not null" json:"slug"`
	Body  string `gorm:"type:text" json:"body"`
	Team  Team   `gorm:"type:varchar(16);index" json:"team,omitempty"` // empty = all teams

	Status    NoticeStatus `gorm:"type:varchar(16);not null;default:'draft'" json:"status"`
	PublishAt *time.Time   `json:"publish_at,omitempty"`

	Timestamps
}
