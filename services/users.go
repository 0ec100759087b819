package services

import (
	"errors"
	"fmt"

	"shop-community-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserService struct {
	DB *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{DB: db}
}

// ProfileUpdate carries the optional fields the client may send on login
// or profile edit.
type ProfileUpdate struct {
	DisplayName  *string      `json:"display_name"`
	Email        *string      `json:"email"`
	ProfileImage *string      `json:"profile_image"`
	Introduction *string      `json:"introduction"`
	Team         *models.Team `json:"team"`
	ShopName     *string      `json:"shop_name"`
}

// Login ensures the user row exists, bumps the login counter and applies
// any profile fields sent along. Mission dispatch for the login trigger
// happens in the handler, after this succeeds.
func (s *UserService) Login(userID string, update *ProfileUpdate) (*models.User, error) {
	var user *models.User
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		u, err := s.ensureTx(tx, userID)
		if err != nil {
			return err
		}
		applyProfileUpdate(u, update)
		u.LoginCount++
		if err := tx.Save(u).Error; err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) ByUserID(userID string) (*models.User, error) {
	var user models.User
	if err := s.DB.Where("user_id = ?", userID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Badges returns all badge grants for a user, newest first.
func (s *UserService) Badges(userID string) ([]models.UserBadge, error) {
	var grants []models.UserBadge
	err := s.DB.Preload("Badge").
		Where("user_id = ?", userID).
		Order("awarded_at DESC").
		Find(&grants).Error
	return grants, err
}

// UpdateProfile applies a partial profile edit.
func (s *UserService) UpdateProfile(userID string, update *ProfileUpdate) (*models.User, error) {
	var user *models.User
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		u, err := lockedUser(tx, userID)
		if err != nil {
			return err
		}
		applyProfileUpdate(u, update)
		if err := tx.Save(u).Error; err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// SetPoints is the admin override for shop points. The diff is surfaced
// to the user as a POINT notification. Points are separate from exp and
// never feed the level cascade.
func (s *UserService) SetPoints(userID string, points int) (*models.User, error) {
	var user *models.User
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		u, err := lockedUser(tx, userID)
		if err != nil {
			return err
		}
		oldPoints := u.Points
		u.Points = points
		if err := tx.Save(u).Error; err != nil {
			return err
		}

		if diff := u.Points - oldPoints; diff != 0 {
			sign := "+"
			if diff < 0 {
				sign = ""
			}
			n := models.Notification{
				ID:          uuid.NewString(),
				RecipientID: u.UserID,
				Type:        models.NotificationPoint,
				Message:     fmt.Sprintf("Your points changed (%s%d). Current points: %d", sign, diff, u.Points),
			}
			if err := tx.Create(&n).Error; err != nil {
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

func (s *UserService) ensureTx(tx *gorm.DB, userID string) (*models.User, error) {
	var user models.User
	err := lockForUpdate(tx).Where("user_id = ?", userID).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	user = models.User{
		ID:       uuid.NewString(),
		UserID:   userID,
		IsActive: true,
	}
	if err := tx.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func applyProfileUpdate(user *models.User, update *ProfileUpdate) {
	if update == nil {
		return
	}
	if update.DisplayName != nil {
		user.DisplayName = *update.DisplayName
	}
	if update.Email != nil {
		user.Email = *update.Email
	}
	if update.ProfileImage != nil {
		user.ProfileImage = *update.ProfileImage
	}
	if update.Introduction != nil {
		user.Introduction = *update.Introduction
	}
	if update.Team != nil {
		user.Team = *update.Team
	}
	if update.ShopName != nil {
		user.ShopName = *update.ShopName
	}
}
