// handlers/user_routes.go
package handlers

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"

	"shop-community-system/middleware"
	"shop-community-system/models"
	"shop-community-system/services"
	"shop-community-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func SetupUserRoutes(app *fiber.App, users *services.UserService, missions *services.MissionService, progression *services.ProgressionService) {
	secured := app.Group("/s", middleware.UserContextMiddleware())

	// Login ensures the local user row from the gateway identity and is
	// itself a mission trigger.
	secured.Post("/user/login", func(c *fiber.Ctx) error {
		userID := middleware.UserID(c)

		var update services.ProfileUpdate
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&update); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
			}
		}

		user, err := users.Login(userID, &update)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "login failed",
				"cause": err.Error(),
			})
		}

		if err := missions.Dispatch(userID, models.ActionLogin, "", 1); err != nil {
			log.Printf("⚠️  [MISSION] login dispatch failed: %v", err)
		}

		return c.JSON(user)
	})

	secured.Get("/user/profile", func(c *fiber.Ctx) error {
		user, err := users.ByUserID(middleware.UserID(c))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
		}
		return c.JSON(user)
	})

	secured.Patch("/user/profile", func(c *fiber.Ctx) error {
		var update services.ProfileUpdate
		if err := c.BodyParser(&update); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
		}
		user, err := users.UpdateProfile(middleware.UserID(c), &update)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to update profile"})
		}
		return c.JSON(user)
	})

	secured.Get("/user/badges", func(c *fiber.Ctx) error {
		grants, err := users.Badges(middleware.UserID(c))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load badges"})
		}

		response := make([]fiber.Map, 0, len(grants))
		for _, g := range grants {
			response = append(response, fiber.Map{
				"id":          g.ID,
				"badge_id":    g.BadgeID,
				"name":        g.Badge.Name,
				"description": g.Badge.Description,
				"image_url":   g.Badge.ImageURL,
				"awarded_at":  g.AwardedAt,
			})
		}
		return c.JSON(response)
	})

	admin := app.Group("/s/admin", middleware.UserContextMiddleware(), middleware.RequireRole(middleware.RoleAdmin))

	admin.Get("/users", func(c *fiber.Ctx) error {
		var all []models.User
		if err := users.DB.Order("created_at DESC").Find(&all).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
		}
		return c.JSON(all)
	})

	// Experience override runs the same level/badge cascade as a claim;
	// a manual bump that crosses thresholds still awards the badges.
	admin.Post("/users/exp", func(c *fiber.Ctx) error {
		var req struct {
			UserID string `json:"user_id"`
			Exp    *int   `json:"exp"`
		}
		if err := c.BodyParser(&req); err != nil || req.UserID == "" || req.Exp == nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "user_id and exp are required"})
		}

		user, err := progression.SetExperience(req.UserID, *req.Exp)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to update exp",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"detail":    "EXP updated",
			"new_exp":   user.Exp,
			"new_level": user.Level,
		})
	})

	admin.Post("/users/points", func(c *fiber.Ctx) error {
		var req struct {
			UserID string `json:"user_id"`
			Points *int   `json:"points"`
		}
		if err := c.BodyParser(&req); err != nil || req.UserID == "" || req.Points == nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "user_id and points are required"})
		}

		user, err := users.SetPoints(req.UserID, *req.Points)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to update points",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"detail":     "Points updated",
			"new_points": user.Points,
		})
	})

	setupBadgeAdminRoutes(admin, users)
}

func setupBadgeAdminRoutes(admin fiber.Router, users *services.UserService) {
	admin.Get("/badges", func(c *fiber.Ctx) error {
		var badges []models.Badge
		if err := users.DB.Order("created_at DESC").Find(&badges).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
		}
		return c.JSON(badges)
	})

	// Badge creation takes a multipart form so the icon can be uploaded
	// to object storage in the same request.
	admin.Post("/badges", func(c *fiber.Ctx) error {
		name := c.FormValue("name")
		if name == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name is required"})
		}

		badge := models.Badge{
			ID:          uuid.NewString(),
			Name:        name,
			Description: c.FormValue("description"),
		}

		if file, err := c.FormFile("icon"); err == nil {
			key := fmt.Sprintf("badges/%s%s", badge.ID, filepath.Ext(file.Filename))
			url, err := utils.UploadToStorage(file, key)
			if err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "failed to upload badge icon",
					"cause": err.Error(),
				})
			}
			badge.ImageURL = url
		}

		if err := users.DB.Create(&badge).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create badge"})
		}
		return c.Status(fiber.StatusCreated).JSON(badge)
	})

	admin.Delete("/badges/:id", func(c *fiber.Ctx) error {
		res := users.DB.Delete(&models.Badge{}, "id = ?", c.Params("id"))
		if res.Error != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to delete badge"})
		}
		if res.RowsAffected == 0 {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Badge not found"})
		}
		return c.JSON(fiber.Map{"message": "Badge deleted successfully"})
	})
}
