package models

import (
	"time"
)

// MissionPeriod is how often a mission's progress resets.
type MissionPeriod string

const (
	MissionDaily  MissionPeriod = "daily"
	MissionWeekly MissionPeriod = "weekly"
)

// Action tags reported by the surrounding handlers (and the generic
// trigger endpoint). The catalog is sparse — most actions match nothing.
const (
	ActionLogin        = "login"
	ActionPost         = "post"
	ActionLike         = "like"
	ActionComment      = "comment"
	ActionVideoWatch   = "video_watch"
	ActionTestPass     = "test_pass"
	ActionTreasurePost = "treasure_post"
	ActionNoticeView   = "notice_view"
	ActionTaskButton   = "task_button"
)

// Mission is a declarative rule: perform ActionType TargetCount times
// within the current period, earn ExpReward. Read-only reference data
// from the engine's point of view; admins manage the catalog.
type Mission struct {
	ID          string        `gorm:"primaryKey;type:uuid" json:"id"`
	Title       string        `gorm:"not null" json:"title"`
	Description string        `gorm:"type:text" json:"description"`
	ExpReward   int           `gorm:"default:1" json:"exp_reward"`
	MissionType MissionPeriod `gorm:"type:varchar(10);not null" json:"mission_type"`
	Team        Team          `gorm:"type:varchar(16);not null;index:idx_mission_trigger" json:"team"`

	// Trigger action tag plus an optional qualifier for actions with
	// sub-identity (e.g. a specific task button title). An empty
	// ActionDetail matches any event detail.
	ActionType   string `gorm:"size:50;not null;index:idx_mission_trigger" json:"action_type"`
	ActionDetail string `gorm:"size:255" json:"action_detail,omitempty"`

	TargetCount  int  `gorm:"default:1" json:"target_count"`
	DisplayOrder int  `gorm:"default:0" json:"order"`
	IsShopWide   bool `gorm:"default:false" json:"is_shop_wide"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// MissionProgress is the one mutable record per (user, mission) pair.
// The composite unique index is the correctness anchor for concurrent
// updates. LastUpdated is compared against the mission period start to
// detect stale records; stale records are reset in place, never recreated.
type MissionProgress struct {
	ID        string  `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    string  `gorm:"uniqueIndex:idx_user_mission;not null" json:"user_id"` // User.UserID
	MissionID string  `gorm:"uniqueIndex:idx_user_mission;not null" json:"mission_id"`
	Mission   Mission `gorm:"foreignKey:MissionID" json:"-"`

	CurrentCount int  `gorm:"default:0" json:"current_count"`
	IsCompleted  bool `gorm:"default:false" json:"is_completed"`
	IsClaimed    bool `gorm:"default:false" json:"is_claimed"`

	LastUpdated time.Time `json:"last_updated" gorm:"autoUpdateTime"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// LevelReward maps a level threshold to a badge grant. Level is unique;
// crossing several thresholds in one experience grant awards each of them.
type LevelReward struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	Level     int       `gorm:"uniqueIndex;not null" json:"level"`
	BadgeID   string    `gorm:"not null" json:"badge_id"`
	Badge     Badge     `gorm:"foreignKey:BadgeID" json:"badge_data,omitempty"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}
