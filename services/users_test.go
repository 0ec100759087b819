package services

import (
	"testing"

	"shop-community-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestLoginCreatesUserAndCountsLogins(t *testing.T) {
	db := newTestDB(t)
	users := NewUserService(db)

	team := models.TeamShop
	user, err := users.Login("uid-1", &ProfileUpdate{
		DisplayName: strPtr("Hana"),
		Team:        &team,
		ShopName:    strPtr("Shibuya"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, user.LoginCount)
	assert.Equal(t, "Hana", user.DisplayName)
	assert.Equal(t, models.TeamShop, user.Team)

	// Second login reuses the row.
	user, err = users.Login("uid-1", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, user.LoginCount)

	var rows int64
	db.Model(&models.User{}).Count(&rows)
	assert.EqualValues(t, 1, rows)
}

func TestSetPointsEmitsPointNotification(t *testing.T) {
	db := newTestDB(t)
	users := NewUserService(db)
	createTestUser(t, db, "uid-1", models.TeamShop, "")

	user, err := users.SetPoints("uid-1", 500)
	require.NoError(t, err)
	assert.Equal(t, 500, user.Points)

	var notifications []models.Notification
	require.NoError(t, db.Where("recipient_id = ? AND type = ?", "uid-1", models.NotificationPoint).Find(&notifications).Error)
	require.Len(t, notifications, 1)
	assert.Contains(t, notifications[0].Message, "+500")

	// Setting the same value again is not a change and stays silent.
	_, err = users.SetPoints("uid-1", 500)
	require.NoError(t, err)
	db.Where("recipient_id = ? AND type = ?", "uid-1", models.NotificationPoint).Find(&notifications)
	assert.Len(t, notifications, 1)
}

func TestNotificationReadFlow(t *testing.T) {
	db := newTestDB(t)
	notifications := NewNotificationService(db)

	for i := 0; i < 3; i++ {
		require.NoError(t, notifications.Create(&models.Notification{
			RecipientID: "uid-1",
			Type:        models.NotificationNews,
			Message:     "hello",
		}))
	}
	require.NoError(t, notifications.Create(&models.Notification{
		RecipientID: "uid-2",
		Type:        models.NotificationNews,
	}))

	unread, err := notifications.ListForUser("uid-1", true, 0)
	require.NoError(t, err)
	require.Len(t, unread, 3)

	// Users cannot touch each other's notifications.
	err = notifications.MarkRead("uid-2", unread[0].ID)
	assert.Error(t, err)

	require.NoError(t, notifications.MarkRead("uid-1", unread[0].ID))
	require.NoError(t, notifications.MarkAllRead("uid-1"))

	unread, err = notifications.ListForUser("uid-1", true, 0)
	require.NoError(t, err)
	assert.Empty(t, unread)
}
