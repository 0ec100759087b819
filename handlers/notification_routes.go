package handlers

import (
	"errors"

	"shop-community-system/middleware"
	"shop-community-system/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupNotificationRoutes(app *fiber.App, notifications *services.NotificationService) {
	secured := app.Group("/s", middleware.UserContextMiddleware())

	secured.Get("/notifications", func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", 50)
		unreadOnly := c.Query("unread") == "true"

		list, err := notifications.ListForUser(middleware.UserID(c), unreadOnly, limit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load notifications"})
		}
		return c.JSON(list)
	})

	secured.Post("/notifications/:id/read", func(c *fiber.Ctx) error {
		err := notifications.MarkRead(middleware.UserID(c), c.Params("id"))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Notification not found"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to mark read"})
		}
		return c.JSON(fiber.Map{"status": "success"})
	})

	secured.Post("/notifications/read-all", func(c *fiber.Ctx) error {
		if err := notifications.MarkAllRead(middleware.UserID(c)); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to mark all read"})
		}
		return c.JSON(fiber.Map{"status": "success"})
	})
}
