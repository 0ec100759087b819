package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"shop-community-system/models"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

type NoticeService struct {
	DB *gorm.DB
}

func NewNoticeService(db *gorm.DB) *NoticeService {
	return &NoticeService{DB: db}
}

// Create stores a notice; a publish_at in the future schedules it for
// the publish job, no publish_at with status published goes live now.
func (s *NoticeService) Create(notice *models.Notice) error {
	if notice.ID == "" {
		notice.ID = uuid.NewString()
	}
	notice.Slug = s.uniqueSlug(notice.Title)
	if notice.PublishAt != nil && notice.PublishAt.After(time.Now()) {
		notice.Status = models.NoticeStatusScheduled
	}
	return s.DB.Create(notice).Error
}

// uniqueSlug derives a URL slug from the title, suffixed when taken.
func (s *NoticeService) uniqueSlug(title string) string {
	base := slug.Make(title)
	if base == "" {
		base = uuid.NewString()[:8]
	}
	candidate := base
	for i := 0; ; i++ {
		var count int64
		s.DB.Model(&models.Notice{}).Where("slug = ?", candidate).Count(&count)
		if count == 0 {
			return candidate
		}
		candidate = fmt.Sprintf("%s-%s", base, uuid.NewString()[:8])
		if i > 3 {
			return candidate
		}
	}
}

// Published lists live notices visible to a team, newest first.
func (s *NoticeService) Published(team models.Team) ([]models.Notice, error) {
	var notices []models.Notice
	err := s.DB.Where("status = ?", models.NoticeStatusPublished).
		Where("(team = '' OR team = ?)", team).
		Order("created_at DESC").
		Find(&notices).Error
	return notices, err
}

// BySlug returns one published notice.
func (s *NoticeService) BySlug(slugValue string) (*models.Notice, error) {
	var notice models.Notice
	err := s.DB.Where("slug = ? AND status = ?", slugValue, models.NoticeStatusPublished).
		First(&notice).Error
	if err != nil {
		return nil, err
	}
	return &notice, nil
}

// StartPublishScheduler flips scheduled notices to published once their
// publish_at has passed, and fans a NEWS notification out to the target
// team. Runs every minute, adapted from the game publish scheduler.
func (s *NoticeService) StartPublishScheduler() {
	sched, err := gocron.NewScheduler()
	if err != nil {
		log.Printf("[Scheduler] init failed: %v", err)
		return
	}
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			var notices []models.Notice
			now := time.Now()
			err := s.DB.Where("status = ? AND publish_at <= ?", models.NoticeStatusScheduled, now).
				Find(&notices).Error
			if err != nil {
				log.Printf("[Scheduler] DB error: %v", err)
				return
			}

			for i := range notices {
				notice := &notices[i]
				notice.Status = models.NoticeStatusPublished
				if err := s.DB.Save(notice).Error; err != nil {
					log.Printf("[Scheduler] Failed to publish notice %s: %v", notice.ID, err)
					continue
				}
				log.Printf("✅ Auto-published notice: %s", notice.Title)
				s.notifyTeam(notice)
			}
		}),
	)
}

// notifyTeam writes a NEWS notification per active team member.
// Best-effort; a failed insert never unpublishes the notice.
func (s *NoticeService) notifyTeam(notice *models.Notice) {
	q := s.DB.Model(&models.User{}).Where("is_active = ?", true)
	if notice.Team != "" {
		q = q.Where("team = ?", notice.Team)
	}
	var userIDs []string
	if err := q.Pluck("user_id", &userIDs).Error; err != nil {
		log.Printf("[Scheduler] notice recipient lookup failed: %v", err)
		return
	}
	for _, userID := range userIDs {
		n := models.Notification{
			ID:          uuid.NewString(),
			RecipientID: userID,
			Type:        models.NotificationNews,
			Message:     notice.Title,
		}
		if err := s.DB.Create(&n).Error; err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
			log.Printf("[Scheduler] NEWS notification for %s failed: %v", userID, err)
		}
	}
}
