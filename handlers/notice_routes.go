// handlers/notice_routes.go
package handlers

import (
	"errors"
	"log"
	"time"

	"shop-community-system/middleware"
	"shop-community-system/models"
	"shop-community-system/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupNoticeRoutes(app *fiber.App, notices *services.NoticeService, missions *services.MissionService, users *services.UserService) {
	secured := app.Group("/s", middleware.UserContextMiddleware())

	secured.Get("/notices", func(c *fiber.Ctx) error {
		user, err := users.ByUserID(middleware.UserID(c))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.JSON([]models.Notice{})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
		}
		list, err := notices.Published(user.Team)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load notices"})
		}
		return c.JSON(list)
	})

	// Opening a notice is a mission trigger ("notice_view").
	secured.Get("/notices/:slug", func(c *fiber.Ctx) error {
		notice, err := notices.BySlug(c.Params("slug"))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Notice not found"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
		}

		if err := missions.Dispatch(middleware.UserID(c), models.ActionNoticeView, "", 1); err != nil {
			log.Printf("⚠️  [MISSION] notice_view dispatch failed: %v", err)
		}
		return c.JSON(notice)
	})

	admin := app.Group("/s/admin", middleware.UserContextMiddleware(), middleware.RequireRole(middleware.RoleAdmin))

	admin.Get("/notices", func(c *fiber.Ctx) error {
		var all []models.Notice
		if err := notices.DB.Order("created_at DESC").Find(&all).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
		}
		return c.JSON(all)
	})

	admin.Post("/notices", func(c *fiber.Ctx) error {
		var req struct {
			Title     string      `json:"title"`
			Body      string      `json:"body"`
			Team      models.Team `json:"team"`
			Publish   bool        `json:"publish"`
			PublishAt *time.Time  `json:"publish_at"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
		}
		if req.Title == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "title is required"})
		}

		notice := models.Notice{
			Title:     req.Title,
			Body:      req.Body,
			Team:      req.Team,
			Status:    models.NoticeStatusDraft,
			PublishAt: req.PublishAt,
		}
		if req.Publish && req.PublishAt == nil {
			notice.Status = models.NoticeStatusPublished
		}
		if err := notices.Create(&notice); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create notice"})
		}
		return c.Status(fiber.StatusCreated).JSON(notice)
	})

	admin.Delete("/notices/:id", func(c *fiber.Ctx) error {
		res := notices.DB.Delete(&models.Notice{}, "id = ?", c.Params("id"))
		if res.Error != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to delete notice"})
		}
		if res.RowsAffected == 0 {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Notice not found"})
		}
		return c.JSON(fiber.Map{"message": "Deleted"})
	})
}
