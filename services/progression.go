package services

import (
	"errors"
	"fmt"
	"log"

	"shop-community-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Experience-to-level rule: 0–99 exp is level 0, 100–199 level 1, etc.
const expPerLevel = 100

type ProgressionService struct {
	DB *gorm.DB
}

func NewProgressionService(db *gorm.DB) *ProgressionService {
	return &ProgressionService{DB: db}
}

// GrantExperience adds delta to a user's experience, recomputes the
// level, and awards every level reward crossed on the way up. This is
// the only path allowed to write exp/level.
func (s *ProgressionService) GrantExperience(userID string, delta int) (*models.User, error) {
	var user *models.User
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		user, err = s.grantExperienceTx(tx, userID, delta)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// SetExperience is the administrative override. It runs the identical
// cascade, so a manual exp bump still awards crossed level rewards.
func (s *ProgressionService) SetExperience(userID string, exp int) (*models.User, error) {
	if exp < 0 {
		return nil, fmt.Errorf("experience must not be negative: %d", exp)
	}
	var user *models.User
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		u, err := lockedUser(tx, userID)
		if err != nil {
			return err
		}
		oldLevel := u.Level
		u.Exp = exp
		u.Level = u.Exp / expPerLevel
		if err := tx.Save(u).Error; err != nil {
			return err
		}
		if u.Level > oldLevel {
			if err := s.awardLevelRewards(tx, u, oldLevel); err != nil {
				return err
			}
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// grantExperienceTx is the cascade proper, shared with the claim path so
// claim + grant commit as one atomic unit. The old level is read under
// the same row lock that guards the write — two concurrent grants can
// never both compute from the same stale level.
func (s *ProgressionService) grantExperienceTx(tx *gorm.DB, userID string, delta int) (*models.User, error) {
	user, err := lockedUser(tx, userID)
	if err != nil {
		return nil, err
	}

	oldLevel := user.Level
	user.Exp += delta
	user.Level = user.Exp / expPerLevel
	if err := tx.Save(user).Error; err != nil {
		return nil, err
	}

	if user.Level > oldLevel {
		if err := s.awardLevelRewards(tx, user, oldLevel); err != nil {
			return nil, err
		}
	}
	return user, nil
}

// awardLevelRewards grants the badge for every threshold in
// (oldLevel, user.Level], ascending. Each grant is independent and
// skipped if the badge is already held.
func (s *ProgressionService) awardLevelRewards(tx *gorm.DB, user *models.User, oldLevel int) error {
	var rewards []models.LevelReward
	if err := tx.Preload("Badge").
		Where("level > ? AND level <= ?", oldLevel, user.Level).
		Order("level ASC").
		Find(&rewards).Error; err != nil {
		return err
	}

	for _, reward := range rewards {
		var held int64
		if err := tx.Model(&models.UserBadge{}).
			Where("user_id = ? AND badge_id = ?", user.UserID, reward.BadgeID).
			Count(&held).Error; err != nil {
			return err
		}
		if held > 0 {
			continue
		}

		grant := models.UserBadge{
			ID:      uuid.NewString(),
			UserID:  user.UserID,
			BadgeID: reward.BadgeID,
		}
		if err := tx.Create(&grant).Error; err != nil {
			return err
		}

		notification := models.Notification{
			ID:          uuid.NewString(),
			RecipientID: user.UserID,
			Type:        models.NotificationBadge,
			BadgeName:   reward.Badge.Name,
			Message:     fmt.Sprintf("Level %d reached! You earned the badge %q!", reward.Level, reward.Badge.Name),
		}
		if err := tx.Create(&notification).Error; err != nil {
			return err
		}
		log.Printf("🎖️ Badge awarded: %s → %s (level %d)", reward.Badge.Name, user.UserID, reward.Level)
	}
	return nil
}

func lockedUser(tx *gorm.DB, userID string) (*models.User, error) {
	var user models.User
	if err := lockForUpdate(tx).Where("user_id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user not found: %s", userID)
		}
		return nil, err
	}
	return &user, nil
}
