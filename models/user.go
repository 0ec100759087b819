package models

import (
	"time"

	"gorm.io/gorm"
)

// Team identifies which staff population a user (and a mission) belongs to.
type Team string

const (
	TeamShop  Team = "shop"
	TeamEvent Team = "event"
)

// User is the local projection of an authenticated staff member.
// Identity comes from the gateway (X-User-ID). The engine owns the
// exp/level pair — level must only be written through the progression
// service so the badge cascade always runs.
type User struct {
	ID     string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID string `gorm:"uniqueIndex;not null" json:"user_id"` // auth provider uid, forwarded by gateway

	DisplayName  string `json:"display_name"`
	Email        string `json:"email,omitempty"`
	ProfileImage string `gorm:"type:text" json:"profile_image,omitempty"`
	Introduction string `gorm:"type:text" json:"introduction,omitempty"`
	ShopName     string `gorm:"index" json:"shop_name,omitempty"`
	Team         Team   `gorm:"type:varchar(16);index" json:"team,omitempty"`

	Points int `json:"points" gorm:"default:0"`
	Exp    int `json:"exp" gorm:"default:0"`
	Level  int `json:"level" gorm:"default:0"` // always exp / 100

	IsActive   bool `json:"is_active" gorm:"default:true"`
	LoginCount int  `json:"login_count" gorm:"default:0"`

	Timestamps
}

// Badge is reference data managed by admins; icons live in object storage.
type Badge struct {
	ID          string    `gorm:"primaryKey;type:uuid" json:"id"`
	Name        string    `gorm:"not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	ImageURL    string    `gorm:"type:text" json:"image_url"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// UserBadge is an awarded badge instance. Once granted it is never revoked
// here; the composite index is what makes repeated grants idempotent.
type UserBadge struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    string    `gorm:"uniqueIndex:idx_user_badge;not null" json:"user_id"` // User.UserID
	BadgeID   string    `gorm:"uniqueIndex:idx_user_badge;not null" json:"badge_id"`
	Badge     Badge     `gorm:"foreignKey:BadgeID" json:"badge,omitempty"`
	AwardedAt time.Time `json:"awarded_at" gorm:"autoCreateTime"`
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
