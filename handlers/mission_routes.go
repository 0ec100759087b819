// handlers/mission_routes.go
package handlers

import (
	"errors"
	"log"

	"shop-community-system/middleware"
	"shop-community-system/models"
	"shop-community-system/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func SetupMissionRoutes(app *fiber.App, missions *services.MissionService) {
	secured := app.Group("/s", middleware.UserContextMiddleware())

	// Mission list with the caller's progress. Stale progress is reset
	// and persisted here on purpose (self-healing read) — clients always
	// see the current period's counters.
	secured.Get("/missions", func(c *fiber.Ctx) error {
		statuses, err := missions.ListForUser(middleware.UserID(c))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.JSON([]services.MissionStatus{})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load missions",
				"cause": err.Error(),
			})
		}
		return c.JSON(statuses)
	})

	secured.Post("/missions/:id/claim", func(c *fiber.Ctx) error {
		missionID := c.Params("id")
		if _, err := uuid.Parse(missionID); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid mission ID"})
		}

		result, err := missions.Claim(middleware.UserID(c), missionID)
		switch {
		case err == nil:
			return c.JSON(fiber.Map{
				"status":    "success",
				"new_exp":   result.NewExp,
				"new_level": result.NewLevel,
			})
		case errors.Is(err, services.ErrProgressNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Progress not found"})
		case errors.Is(err, services.ErrPeriodReset):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Mission period has reset"})
		case errors.Is(err, services.ErrNotCompleted):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Mission not completed"})
		case errors.Is(err, services.ErrAlreadyClaimed):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Reward already claimed"})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "claim failed",
				"cause": err.Error(),
			})
		}
	})

	// Generic trigger for UI interactions with no CRUD write of their
	// own (notice views, task buttons, video watches). The pair is
	// forwarded verbatim to dispatch; unmatched actions are no-ops.
	secured.Post("/missions/trigger", func(c *fiber.Ctx) error {
		var req struct {
			ActionType   string `json:"action_type"`
			ActionDetail string `json:"action_detail"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
		}
		if req.ActionType == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "action_type is required"})
		}

		if err := missions.Dispatch(middleware.UserID(c), req.ActionType, req.ActionDetail, 1); err != nil {
			log.Printf("⚠️  [MISSION] trigger dispatch failed: %v", err)
		}
		return c.JSON(fiber.Map{"status": "success"})
	})

	admin := app.Group("/s/admin", middleware.UserContextMiddleware(), middleware.RequireRole(middleware.RoleAdmin))

	setupMissionAdminRoutes(admin, missions)
	setupLevelRewardAdminRoutes(admin, missions)
}

func setupMissionAdminRoutes(admin fiber.Router, missions *services.MissionService) {
	admin.Get("/missions", func(c *fiber.Ctx) error {
		var all []models.Mission
		if err := missions.DB.Order("team, mission_type, display_order").Find(&all).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
		}
		return c.JSON(all)
	})

	admin.Post("/missions", func(c *fiber.Ctx) error {
		var req models.Mission
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
		}
		if req.Title == "" || req.ActionType == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "title and action_type are required"})
		}
		if req.MissionType != models.MissionDaily && req.MissionType != models.MissionWeekly {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "mission_type must be daily or weekly"})
		}
		if req.TargetCount < 1 {
			req.TargetCount = 1
		}
		if req.ExpReward < 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "exp_reward must not be negative"})
		}
		req.ID = uuid.NewString()
		if err := missions.DB.Create(&req).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create mission"})
		}
		return c.Status(fiber.StatusCreated).JSON(req)
	})

	admin.Patch("/missions/:id", func(c *fiber.Ctx) error {
		var mission models.Mission
		if err := missions.DB.First(&mission, "id = ?", c.Params("id")).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Mission not found"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
		}

		var req struct {
			Title        *string               `json:"title"`
			Description  *string               `json:"description"`
			ExpReward    *int                  `json:"exp_reward"`
			MissionType  *models.MissionPeriod `json:"mission_type"`
			Team         *models.Team          `json:"team"`
			ActionType   *string               `json:"action_type"`
			ActionDetail *string               `json:"action_detail"`
			TargetCount  *int                  `json:"target_count"`
			DisplayOrder *int                  `json:"order"`
			IsShopWide   *bool                 `json:"is_shop_wide"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
		}

		if req.Title != nil {
			mission.Title = *req.Title
		}
		if req.Description != nil {
			mission.Description = *req.Description
		}
		if req.ExpReward != nil && *req.ExpReward >= 0 {
			mission.ExpReward = *req.ExpReward
		}
		if req.MissionType != nil {
			mission.MissionType = *req.MissionType
		}
		if req.Team != nil {
			mission.Team = *req.Team
		}
		if req.ActionType != nil {
			mission.ActionType = *req.ActionType
		}
		if req.ActionDetail != nil {
			mission.ActionDetail = *req.ActionDetail
		}
		if req.TargetCount != nil && *req.TargetCount >= 1 {
			mission.TargetCount = *req.TargetCount
		}
		if req.DisplayOrder != nil {
			mission.DisplayOrder = *req.DisplayOrder
		}
		if req.IsShopWide != nil {
			mission.IsShopWide = *req.IsShopWide
		}

		if err := missions.DB.Save(&mission).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to update mission"})
		}
		return c.JSON(mission)
	})

	admin.Delete("/missions/:id", func(c *fiber.Ctx) error {
		res := missions.DB.Delete(&models.Mission{}, "id = ?", c.Params("id"))
		if res.Error != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to delete mission"})
		}
		if res.RowsAffected == 0 {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Mission not found"})
		}
		return c.JSON(fiber.Map{"message": "Deleted"})
	})
}

// Level rewards take effect on the next experience grant; there is no
// cache to invalidate.
func setupLevelRewardAdminRoutes(admin fiber.Router, missions *services.MissionService) {
	admin.Get("/level-rewards", func(c *fiber.Ctx) error {
		var rewards []models.LevelReward
		if err := missions.DB.Preload("Badge").Order("level ASC").Find(&rewards).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
		}
		return c.JSON(rewards)
	})

	admin.Post("/level-rewards", func(c *fiber.Ctx) error {
		var req struct {
			Level   int    `json:"level"`
			BadgeID string `json:"badge_id"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
		}
		if req.Level < 1 || req.BadgeID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "level (>= 1) and badge_id are required"})
		}

		var exists int64
		missions.DB.Model(&models.LevelReward{}).Where("level = ?", req.Level).Count(&exists)
		if exists > 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "a reward for this level already exists"})
		}

		reward := models.LevelReward{
			ID:      uuid.NewString(),
			Level:   req.Level,
			BadgeID: req.BadgeID,
		}
		if err := missions.DB.Create(&reward).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create level reward"})
		}
		missions.DB.Preload("Badge").First(&reward, "id = ?", reward.ID)
		return c.Status(fiber.StatusCreated).JSON(reward)
	})

	admin.Patch("/level-rewards/:id", func(c *fiber.Ctx) error {
		var reward models.LevelReward
		if err := missions.DB.First(&reward, "id = ?", c.Params("id")).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
		}

		var req struct {
			Level   *int    `json:"level"`
			BadgeID *string `json:"badge_id"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
		}
		if req.Level != nil && *req.Level >= 1 {
			reward.Level = *req.Level
		}
		if req.BadgeID != nil && *req.BadgeID != "" {
			reward.BadgeID = *req.BadgeID
		}
		if err := missions.DB.Save(&reward).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to update level reward"})
		}
		missions.DB.Preload("Badge").First(&reward, "id = ?", reward.ID)
		return c.JSON(reward)
	})

	admin.Delete("/level-rewards/:id", func(c *fiber.Ctx) error {
		res := missions.DB.Delete(&models.LevelReward{}, "id = ?", c.Params("id"))
		if res.Error != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to delete level reward"})
		}
		if res.RowsAffected == 0 {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
		}
		return c.JSON(fiber.Map{"message": "Deleted"})
	})
}
