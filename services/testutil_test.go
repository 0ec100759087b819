package services

import (
	"testing"
	"time"

	"shop-community-system/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// newTestDB opens an in-memory sqlite database with the full schema.
// Capped to one connection so every session sees the same memory store.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Badge{},
		&models.UserBadge{},
		&models.Mission{},
		&models.MissionProgress{},
		&models.LevelReward{},
		&models.Notification{},
		&models.Post{},
		&models.Comment{},
		&models.PostLike{},
		&models.Notice{},
	))
	return db
}

func newTestServices(t *testing.T) (*gorm.DB, *MissionService, *ProgressionService) {
	t.Helper()
	db := newTestDB(t)
	progression := NewProgressionService(db)
	missions := NewMissionService(db, progression)
	return db, missions, progression
}

func createTestUser(t *testing.T, db *gorm.DB, userID string, team models.Team, shopName string) *models.User {
	t.Helper()
	user := &models.User{
		ID:       uuid.NewString(),
		UserID:   userID,
		Team:     team,
		ShopName: shopName,
		IsActive: true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createTestMission(t *testing.T, db *gorm.DB, m models.Mission) *models.Mission {
	t.Helper()
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.MissionType == "" {
		m.MissionType = models.MissionDaily
	}
	if m.Team == "" {
		m.Team = models.TeamShop
	}
	if m.TargetCount == 0 {
		m.TargetCount = 1
	}
	require.NoError(t, db.Create(&m).Error)
	return &m
}

func createTestBadge(t *testing.T, db *gorm.DB, name string) *models.Badge {
	t.Helper()
	badge := &models.Badge{ID: uuid.NewString(), Name: name}
	require.NoError(t, db.Create(badge).Error)
	return badge
}

func createLevelReward(t *testing.T, db *gorm.DB, level int, badgeID string) {
	t.Helper()
	require.NoError(t, db.Create(&models.LevelReward{
		ID:      uuid.NewString(),
		Level:   level,
		BadgeID: badgeID,
	}).Error)
}

// backdateProgress rewrites LastUpdated directly so a record looks like
// it was written in a previous period. UpdateColumn skips autoUpdateTime.
func backdateProgress(t *testing.T, db *gorm.DB, userID, missionID string, to time.Time) {
	t.Helper()
	res := db.Model(&models.MissionProgress{}).
		Where("user_id = ? AND mission_id = ?", userID, missionID).
		UpdateColumn("last_updated", to)
	require.NoError(t, res.Error)
	require.EqualValues(t, 1, res.RowsAffected)
}

func loadProgress(t *testing.T, db *gorm.DB, userID, missionID string) *models.MissionProgress {
	t.Helper()
	var progress models.MissionProgress
	require.NoError(t, db.Where("user_id = ? AND mission_id = ?", userID, missionID).First(&progress).Error)
	return &progress
}
