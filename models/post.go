package models

import (
	"time"
)

// Post is a community feed entry. Treasure posts are a separate mission
// trigger ("treasure_post") but share the table.
type Post struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID   string `gorm:"index;not null" json:"user_id"` // author User.UserID
	Content  string `gorm:"type:text;not null" json:"content"`
	ImageURL string `gorm:"type:text" json:"image_url,omitempty"`

	IsTreasure bool `gorm:"default:false;index" json:"is_treasure"`

	LikeCount    int64 `gorm:"-" json:"like_count"`
	CommentCount int64 `gorm:"-" json:"comment_count"`

	Timestamps
}

type Comment struct {
	ID      string `gorm:"primaryKey;type:uuid" json:"id"`
	PostID  string `gorm:"index;not null" json:"post_id"`
	UserID  string `gorm:"index;not null" json:"user_id"`
	Content string `gorm:"type:text;not null" json:"content"`

	Timestamps
}

// PostLike is one user's like on one post; the composite index makes the
// like endpoint a toggle rather than a counter.
type PostLike struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	PostID    string    `gorm:"uniqueIndex:idx_post_like;not null" json:"post_id"`
	UserID    string    `gorm:"uniqueIndex:idx_post_like;not null" json:"user_id"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}
