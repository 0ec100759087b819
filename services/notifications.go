package services

import (
	"log"

	"shop-community-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationService struct {
	DB *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{DB: db}
}

// Create stores a notification record. Best-effort from the caller's
// point of view: the error is returned for logging, never to abort the
// action that caused the notification.
func (s *NotificationService) Create(n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return s.DB.Create(n).Error
}

// NotifyQuiet is Create for fire-and-forget call sites.
func (s *NotificationService) NotifyQuiet(n *models.Notification) {
	if err := s.Create(n); err != nil {
		log.Printf("⚠️  Failed to store %s notification for %s: %v", n.Type, n.RecipientID, err)
	}
}

// ListForUser returns a user's notifications, newest first.
func (s *NotificationService) ListForUser(userID string, unreadOnly bool, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	q := s.DB.Where("recipient_id = ?", userID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}
	var notifications []models.Notification
	err := q.Order("created_at DESC").Limit(limit).Find(&notifications).Error
	return notifications, err
}

// MarkRead flips one notification; scoped to the recipient so users
// cannot touch each other's.
func (s *NotificationService) MarkRead(userID, notificationID string) error {
	res := s.DB.Model(&models.Notification{}).
		Where("id = ? AND recipient_id = ?", notificationID, userID).
		Update("is_read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *NotificationService) MarkAllRead(userID string) error {
	return s.DB.Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", userID, false).
		Update("is_read", true).Error
}
