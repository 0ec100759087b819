// handlers/community_routes.go
package handlers

import (
	"errors"
	"log"
	"strconv"

	"shop-community-system/middleware"
	"shop-community-system/models"
	"shop-community-system/services"
	"shop-community-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SetupCommunityRoutes wires the thin post/comment/like surface. These
// handlers are mission action producers: after their own write succeeds
// they call Dispatch fire-and-forget — a dispatch failure is logged and
// never fails the originating request.
func SetupCommunityRoutes(app *fiber.App, db *gorm.DB, missions *services.MissionService, notifications *services.NotificationService) {
	secured := app.Group("/s", middleware.UserContextMiddleware())

	secured.Get("/posts", func(c *fiber.Ctx) error {
		page, _ := strconv.Atoi(c.Query("page", "1"))
		size, _ := strconv.Atoi(c.Query("size", "20"))
		if page < 1 {
			page = 1
		}
		if size < 1 || size > 100 {
			size = 20
		}

		var posts []models.Post
		q := db.Order("created_at DESC").Limit(size).Offset((page - 1) * size)
		if c.Query("treasure") == "true" {
			q = q.Where("is_treasure = ?", true)
		}
		if err := q.Find(&posts).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load posts"})
		}

		for i := range posts {
			db.Model(&models.PostLike{}).Where("post_id = ?", posts[i].ID).Count(&posts[i].LikeCount)
			db.Model(&models.Comment{}).Where("post_id = ?", posts[i].ID).Count(&posts[i].CommentCount)
		}
		return c.JSON(posts)
	})

	secured.Post("/posts", func(c *fiber.Ctx) error {
		userID := middleware.UserID(c)

		content := c.FormValue("content")
		if content == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "content is required"})
		}

		post := models.Post{
			ID:         uuid.NewString(),
			UserID:     userID,
			Content:    content,
			IsTreasure: c.FormValue("is_treasure") == "true",
		}

		if file, err := c.FormFile("image"); err == nil {
			url, err := utils.SavePostImage(file)
			if err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to save image"})
			}
			post.ImageURL = url
		}

		if err := db.Create(&post).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create post"})
		}

		action := models.ActionPost
		if post.IsTreasure {
			action = models.ActionTreasurePost
		}
		if err := missions.Dispatch(userID, action, "", 1); err != nil {
			log.Printf("⚠️  [MISSION] post dispatch failed: %v", err)
		}

		return c.Status(fiber.StatusCreated).JSON(post)
	})

	secured.Post("/posts/:id/comments", func(c *fiber.Ctx) error {
		userID := middleware.UserID(c)
		postID := c.Params("id")

		var post models.Post
		if err := db.First(&post, "id = ?", postID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Post not found"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
		}

		var req struct {
			Content string `json:"content"`
		}
		if err := c.BodyParser(&req); err != nil || req.Content == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "content is required"})
		}

		comment := models.Comment{
			ID:      uuid.NewString(),
			PostID:  post.ID,
			UserID:  userID,
			Content: req.Content,
		}
		if err := db.Create(&comment).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create comment"})
		}

		if post.UserID != userID {
			notifications.NotifyQuiet(&models.Notification{
				RecipientID: post.UserID,
				SenderID:    userID,
				Type:        models.NotificationComment,
				PostID:      post.ID,
				CommentID:   comment.ID,
			})
		}
		if err := missions.Dispatch(userID, models.ActionComment, "", 1); err != nil {
			log.Printf("⚠️  [MISSION] comment dispatch failed: %v", err)
		}

		return c.Status(fiber.StatusCreated).JSON(comment)
	})

	secured.Get("/posts/:id/comments", func(c *fiber.Ctx) error {
		var comments []models.Comment
		if err := db.Where("post_id = ?", c.Params("id")).
			Order("created_at ASC").
			Find(&comments).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load comments"})
		}
		return c.JSON(comments)
	})

	// Like toggle. Only a newly created like dispatches the mission
	// trigger — unliking and re-liking the same post still counts each
	// like creation, matching how the feed behaves.
	secured.Post("/posts/:id/like", func(c *fiber.Ctx) error {
		userID := middleware.UserID(c)
		postID := c.Params("id")

		var post models.Post
		if err := db.First(&post, "id = ?", postID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Post not found"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
		}

		var existing models.PostLike
		err := db.Where("post_id = ? AND user_id = ?", postID, userID).First(&existing).Error
		if err == nil {
			if err := db.Delete(&existing).Error; err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to unlike"})
			}
			return c.JSON(fiber.Map{"liked": false})
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
		}

		like := models.PostLike{
			ID:     uuid.NewString(),
			PostID: postID,
			UserID: userID,
		}
		if err := db.Create(&like).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to like"})
		}

		if post.UserID != userID {
			notifications.NotifyQuiet(&models.Notification{
				RecipientID: post.UserID,
				SenderID:    userID,
				Type:        models.NotificationLike,
				PostID:      post.ID,
			})
		}
		if err := missions.Dispatch(userID, models.ActionLike, "", 1); err != nil {
			log.Printf("⚠️  [MISSION] like dispatch failed: %v", err)
		}

		return c.JSON(fiber.Map{"liked": true})
	})
}
