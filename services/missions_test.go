package services

import (
	"testing"
	"time"

	"shop-community-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatchIncrementsUntilComplete(t *testing.T) {
	db, missions, _ := newTestServices(t)
	user := createTestUser(t, db, "u1", models.TeamShop, "")
	mission := createTestMission(t, db, models.Mission{
		Title:       "Comment three times",
		ActionType:  models.ActionComment,
		TargetCount: 3,
	})

	for i := 1; i <= 3; i++ {
		require.NoError(t, missions.Dispatch(user.UserID, models.ActionComment, "", 1))
		progress := loadProgress(t, db, user.UserID, mission.ID)
		assert.Equal(t, i, progress.CurrentCount)
		assert.Equal(t, i == 3, progress.IsCompleted)
	}

	// Re-delivery after completion never overflows or re-flips anything.
	require.NoError(t, missions.Dispatch(user.UserID, models.ActionComment, "", 1))
	progress := loadProgress(t, db, user.UserID, mission.ID)
	assert.Equal(t, 3, progress.CurrentCount)
	assert.True(t, progress.IsCompleted)
	assert.False(t, progress.IsClaimed)
}

func TestDispatchClampsOvershoot(t *testing.T) {
	db, missions, _ := newTestServices(t)
	user := createTestUser(t, db, "u1", models.TeamShop, "")
	mission := createTestMission(t, db, models.Mission{
		Title:       "Watch five videos",
		ActionType:  models.ActionVideoWatch,
		TargetCount: 5,
	})

	require.NoError(t, missions.Dispatch(user.UserID, models.ActionVideoWatch, "", 10))

	progress := loadProgress(t, db, user.UserID, mission.ID)
	assert.Equal(t, 5, progress.CurrentCount)
	assert.True(t, progress.IsCompleted)
}

func TestDispatchWithoutTeamIsNoOp(t *testing.T) {
	db, missions, _ := newTestServices(t)
	user := createTestUser(t, db, "u1", "", "")
	createTestMission(t, db, models.Mission{Title: "Log in", ActionType: models.ActionLogin})

	require.NoError(t, missions.Dispatch(user.UserID, models.ActionLogin, "", 1))

	var count int64
	db.Model(&models.MissionProgress{}).Count(&count)
	assert.Zero(t, count)
}

func TestDispatchUnmatchedActionIsNoOp(t *testing.T) {
	db, missions, _ := newTestServices(t)
	user := createTestUser(t, db, "u1", models.TeamShop, "")
	createTestMission(t, db, models.Mission{Title: "Post", ActionType: models.ActionPost})

	require.NoError(t, missions.Dispatch(user.UserID, "some_unknown_action", "", 1))

	var count int64
	db.Model(&models.MissionProgress{}).Count(&count)
	assert.Zero(t, count)
}

func TestDispatchTeamScoping(t *testing.T) {
	db, missions, _ := newTestServices(t)
	shopUser := createTestUser(t, db, "shop-user", models.TeamShop, "")
	createTestMission(t, db, models.Mission{
		Title:      "Event-only login",
		Team:       models.TeamEvent,
		ActionType: models.ActionLogin,
	})

	require.NoError(t, missions.Dispatch(shopUser.UserID, models.ActionLogin, "", 1))

	var count int64
	db.Model(&models.MissionProgress{}).Count(&count)
	assert.Zero(t, count)
}

func TestDispatchQualifierMatching(t *testing.T) {
	db, missions, _ := newTestServices(t)
	user := createTestUser(t, db, "u1", models.TeamShop, "")

	anyButton := createTestMission(t, db, models.Mission{
		Title:      "Tap any task button",
		ActionType: models.ActionTaskButton,
	})
	morning := createTestMission(t, db, models.Mission{
		Title:        "Tap the morning check",
		ActionType:   models.ActionTaskButton,
		ActionDetail: "Morning Check",
	})
	closing := createTestMission(t, db, models.Mission{
		Title:        "Tap the closing check",
		ActionType:   models.ActionTaskButton,
		ActionDetail: "Closing Check",
	})

	require.NoError(t, missions.Dispatch(user.UserID, models.ActionTaskButton, "Morning Check", 1))

	// Qualifier-free mission matches any detail; the qualified mission
	// matches only its own detail.
	assert.Equal(t, 1, loadProgress(t, db, user.UserID, anyButton.ID).CurrentCount)
	assert.Equal(t, 1, loadProgress(t, db, user.UserID, morning.ID).CurrentCount)

	var closingRows int64
	db.Model(&models.MissionProgress{}).Where("mission_id = ?", closing.ID).Count(&closingRows)
	assert.Zero(t, closingRows)

	// An event with no detail matches only the qualifier-free mission.
	require.NoError(t, missions.Dispatch(user.UserID, models.ActionTaskButton, "", 1))
	assert.Equal(t, 2, loadProgress(t, db, user.UserID, anyButton.ID).CurrentCount)
	assert.Equal(t, 1, loadProgress(t, db, user.UserID, morning.ID).CurrentCount)
}

func TestDispatchShopWideFanOut(t *testing.T) {
	db, missions, _ := newTestServices(t)
	trigger := createTestUser(t, db, "u1", models.TeamShop, "Shibuya")
	mate1 := createTestUser(t, db, "u2", models.TeamShop, "Shibuya")
	mate2 := createTestUser(t, db, "u3", models.TeamShop, "Shibuya")

	inactive := createTestUser(t, db, "u4", models.TeamShop, "Shibuya")
	require.NoError(t, db.Model(inactive).Update("is_active", false).Error)
	createTestUser(t, db, "u5", models.TeamShop, "Ikebukuro")
	createTestUser(t, db, "u6", models.TeamEvent, "Shibuya")

	mission := createTestMission(t, db, models.Mission{
		Title:       "Shop treasure hunt",
		ActionType:  models.ActionTreasurePost,
		TargetCount: 2,
		IsShopWide:  true,
	})

	require.NoError(t, missions.Dispatch(trigger.UserID, models.ActionTreasurePost, "", 1))

	var rows int64
	db.Model(&models.MissionProgress{}).Where("mission_id = ?", mission.ID).Count(&rows)
	assert.EqualValues(t, 3, rows, "active same-team same-shop members only, including the trigger")

	for _, u := range []*models.User{trigger, mate1, mate2} {
		progress := loadProgress(t, db, u.UserID, mission.ID)
		assert.Equal(t, 1, progress.CurrentCount)
		assert.False(t, progress.IsCompleted)
	}
}

func TestDispatchResetsStaleProgress(t *testing.T) {
	db, missions, _ := newTestServices(t)
	user := createTestUser(t, db, "u1", models.TeamShop, "")
	mission := createTestMission(t, db, models.Mission{
		Title:       "Two likes a day",
		ActionType:  models.ActionLike,
		TargetCount: 2,
	})

	require.NoError(t, missions.Dispatch(user.UserID, models.ActionLike, "", 2))
	require.True(t, loadProgress(t, db, user.UserID, mission.ID).IsCompleted)

	backdateProgress(t, db, user.UserID, mission.ID, time.Now().Add(-48*time.Hour))

	// The next write observes a stale record: reset first, then count.
	require.NoError(t, missions.Dispatch(user.UserID, models.ActionLike, "", 1))
	progress := loadProgress(t, db, user.UserID, mission.ID)
	assert.Equal(t, 1, progress.CurrentCount)
	assert.False(t, progress.IsCompleted)
	assert.False(t, progress.IsClaimed)
}

func TestListForUserResetsStaleOnRead(t *testing.T) {
	db, missions, _ := newTestServices(t)
	user := createTestUser(t, db, "u1", models.TeamShop, "")
	mission := createTestMission(t, db, models.Mission{
		Title:      "Daily login",
		ActionType: models.ActionLogin,
	})

	require.NoError(t, missions.Dispatch(user.UserID, models.ActionLogin, "", 1))
	backdateProgress(t, db, user.UserID, mission.ID, time.Now().Add(-48*time.Hour))

	statuses, err := missions.ListForUser(user.UserID)
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.Equal(t, 0, statuses[0].CurrentCount)
	assert.False(t, statuses[0].IsCompleted)
	assert.False(t, statuses[0].IsClaimed)

	// The reset is persisted, not just rendered.
	progress := loadProgress(t, db, user.UserID, mission.ID)
	assert.Equal(t, 0, progress.CurrentCount)
	assert.False(t, progress.IsCompleted)
}

func TestListForUserCreatesZeroedProgress(t *testing.T) {
	db, missions, _ := newTestServices(t)
	user := createTestUser(t, db, "u1", models.TeamShop, "")
	createTestMission(t, db, models.Mission{Title: "Weekly post", ActionType: models.ActionPost, MissionType: models.MissionWeekly})

	statuses, err := missions.ListForUser(user.UserID)
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.Equal(t, 0, statuses[0].CurrentCount)

	var rows int64
	db.Model(&models.MissionProgress{}).Count(&rows)
	assert.EqualValues(t, 1, rows)
}

func TestClaimLifecycle(t *testing.T) {
	db, missions, _ := newTestServices(t)
	user := createTestUser(t, db, "u1", models.TeamShop, "")
	mission := createTestMission(t, db, models.Mission{
		Title:      "Daily login",
		ActionType: models.ActionLogin,
		ExpReward:  10,
	})

	require.NoError(t, missions.Dispatch(user.UserID, models.ActionLogin, "", 1))

	result, err := missions.Claim(user.UserID, mission.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, result.ExpReward)
	assert.Equal(t, 10, result.NewExp)
	assert.Equal(t, 0, result.NewLevel)

	// The claimed flag is the exclusivity gate.
	_, err = missions.Claim(user.UserID, mission.ID)
	assert.ErrorIs(t, err, ErrAlreadyClaimed)

	progress := loadProgress(t, db, user.UserID, mission.ID)
	assert.True(t, progress.IsCompleted)
	assert.True(t, progress.IsClaimed)
}

func TestClaimErrors(t *testing.T) {
	db, missions, _ := newTestServices(t)
	user := createTestUser(t, db, "u1", models.TeamShop, "")
	mission := createTestMission(t, db, models.Mission{
		Title:       "Two comments",
		ActionType:  models.ActionComment,
		TargetCount: 2,
		ExpReward:   5,
	})

	_, err := missions.Claim(user.UserID, mission.ID)
	assert.ErrorIs(t, err, ErrProgressNotFound)

	require.NoError(t, missions.Dispatch(user.UserID, models.ActionComment, "", 1))
	_, err = missions.Claim(user.UserID, mission.ID)
	assert.ErrorIs(t, err, ErrNotCompleted)
}

func TestClaimStaleRecordFailsAndHeals(t *testing.T) {
	db, missions, _ := newTestServices(t)
	user := createTestUser(t, db, "u1", models.TeamShop, "")
	mission := createTestMission(t, db, models.Mission{
		Title:      "Daily login",
		ActionType: models.ActionLogin,
		ExpReward:  10,
	})

	require.NoError(t, missions.Dispatch(user.UserID, models.ActionLogin, "", 1))
	backdateProgress(t, db, user.UserID, mission.ID, time.Now().Add(-48*time.Hour))

	_, err := missions.Claim(user.UserID, mission.ID)
	assert.ErrorIs(t, err, ErrPeriodReset)

	// The failed claim healed the record for the new period.
	progress := loadProgress(t, db, user.UserID, mission.ID)
	assert.Equal(t, 0, progress.CurrentCount)
	assert.False(t, progress.IsCompleted)
	assert.False(t, progress.IsClaimed)

	// No experience was granted.
	var fresh models.User
	require.NoError(t, db.Where("user_id = ?", user.UserID).First(&fresh).Error)
	assert.Equal(t, 0, fresh.Exp)
}

func TestClaimCrossingLevelGrantsBadge(t *testing.T) {
	db, missions, _ := newTestServices(t)
	user := createTestUser(t, db, "u1", models.TeamShop, "")
	require.NoError(t, db.Model(user).UpdateColumns(map[string]any{"exp": 95, "level": 0}).Error)

	badge := createTestBadge(t, db, "Bronze Star")
	createLevelReward(t, db, 1, badge.ID)

	mission := createTestMission(t, db, models.Mission{
		Title:      "Daily login",
		ActionType: models.ActionLogin,
		ExpReward:  10,
	})
	require.NoError(t, missions.Dispatch(user.UserID, models.ActionLogin, "", 1))

	result, err := missions.Claim(user.UserID, mission.ID)
	require.NoError(t, err)
	assert.Equal(t, 105, result.NewExp)
	assert.Equal(t, 1, result.NewLevel)

	var grants int64
	db.Model(&models.UserBadge{}).Where("user_id = ? AND badge_id = ?", user.UserID, badge.ID).Count(&grants)
	assert.EqualValues(t, 1, grants)

	var notifications []models.Notification
	require.NoError(t, db.Where("recipient_id = ? AND type = ?", user.UserID, models.NotificationBadge).Find(&notifications).Error)
	require.Len(t, notifications, 1)
	assert.Equal(t, "Bronze Star", notifications[0].BadgeName)
}

func TestListForUserOrdersByPeriodicityAndOrder(t *testing.T) {
	db, missions, _ := newTestServices(t)
	user := createTestUser(t, db, "u1", models.TeamShop, "")

	createTestMission(t, db, models.Mission{Title: "weekly-2", ActionType: models.ActionPost, MissionType: models.MissionWeekly, DisplayOrder: 2})
	createTestMission(t, db, models.Mission{Title: "daily-2", ActionType: models.ActionLike, MissionType: models.MissionDaily, DisplayOrder: 2})
	createTestMission(t, db, models.Mission{Title: "daily-1", ActionType: models.ActionLogin, MissionType: models.MissionDaily, DisplayOrder: 1})
	createTestMission(t, db, models.Mission{Title: "weekly-1", ActionType: models.ActionComment, MissionType: models.MissionWeekly, DisplayOrder: 1})

	statuses, err := missions.ListForUser(user.UserID)
	require.NoError(t, err)
	require.Len(t, statuses, 4)

	titles := make([]string, len(statuses))
	for i, s := range statuses {
		titles[i] = s.Title
	}
	assert.Equal(t, []string{"daily-1", "daily-2", "weekly-1", "weekly-2"}, titles)
}
