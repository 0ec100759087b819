package services

import (
	"errors"
	"log"
	"time"

	"shop-community-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Claim outcomes surfaced to the client. Dispatch never surfaces errors
// to the action that triggered it; these belong to the claim path only.
var (
	ErrProgressNotFound = errors.New("mission progress not found")
	ErrPeriodReset      = errors.New("mission period has reset")
	ErrNotCompleted     = errors.New("mission not completed")
	ErrAlreadyClaimed   = errors.New("reward already claimed")
)

// txAttempts bounds retries on write conflicts. A lost increment is a
// correctness bug, so contention is retried rather than swallowed.
const txAttempts = 3

type MissionService struct {
	DB          *gorm.DB
	Progression *ProgressionService
}

func NewMissionService(db *gorm.DB, progression *ProgressionService) *MissionService {
	return &MissionService{DB: db, Progression: progression}
}

// MissionStatus is one catalog entry paired with the caller's progress,
// as rendered by the mission list endpoint.
type MissionStatus struct {
	ID           string               `json:"id"`
	Title        string               `json:"title"`
	Description  string               `json:"description"`
	ExpReward    int                  `json:"exp_reward"`
	MissionType  models.MissionPeriod `json:"mission_type"`
	CurrentCount int                  `json:"current_count"`
	TargetCount  int                  `json:"target_count"`
	IsCompleted  bool                 `json:"is_completed"`
	IsClaimed    bool                 `json:"is_claimed"`
}

// ClaimResult is returned on a successful claim.
type ClaimResult struct {
	ExpReward int `json:"exp_reward"`
	NewExp    int `json:"new_exp"`
	NewLevel  int `json:"new_level"`
}

// Dispatch advances mission progress for a reported action. Callers fire
// and forget: a returned error is for logging only and must never fail
// the action that produced the event.
//
// Users without a team assignment are skipped silently — the catalog is
// scoped per team, so the event cannot be attributed.
func (s *MissionService) Dispatch(userID, actionType, actionDetail string, amount int) error {
	if amount <= 0 {
		amount = 1
	}

	var user models.User
	if err := s.DB.Where("user_id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if user.Team == "" {
		return nil
	}

	missions, err := s.matchingMissions(user.Team, actionType, actionDetail)
	if err != nil {
		return err
	}

	for i := range missions {
		mission := &missions[i]

		// Fan-out resolved at trigger time only; members joining the
		// shop later do not retroactively receive this trigger.
		targets := []string{user.UserID}
		if mission.IsShopWide && user.ShopName != "" {
			targets = nil
			err := s.DB.Model(&models.User{}).
				Where("shop_name = ? AND team = ? AND is_active = ?", user.ShopName, user.Team, true).
				Pluck("user_id", &targets).Error
			if err != nil {
				log.Printf("❌ [MISSION] shop fan-out lookup failed for %s: %v", mission.ID, err)
				continue
			}
		}

		// Targets are independent — one failing must not stop the rest.
		for _, target := range targets {
			if err := s.advanceProgress(target, mission, amount); err != nil {
				log.Printf("❌ [MISSION] progress update failed (user=%s mission=%s): %v", target, mission.ID, err)
			}
		}
	}
	return nil
}

// matchingMissions implements the two-field trigger lookup: team and
// action type must match; a mission with a declared detail matches only
// events carrying exactly that detail, a mission without one matches any.
func (s *MissionService) matchingMissions(team models.Team, actionType, actionDetail string) ([]models.Mission, error) {
	q := s.DB.Where("team = ? AND action_type = ?", team, actionType)
	if actionDetail == "" {
		q = q.Where("action_detail = ''")
	} else {
		q = q.Where("(action_detail = '' OR action_detail = ?)", actionDetail)
	}

	var missions []models.Mission
	if err := q.Find(&missions).Error; err != nil {
		return nil, err
	}
	return missions, nil
}

// advanceProgress applies one increment to one (user, mission) pair:
// get-or-create, reset if stale, then count up unless already completed.
// The whole read-modify-write runs in a locked transaction.
func (s *MissionService) advanceProgress(userID string, mission *models.Mission, amount int) error {
	return s.withRetry(func() error {
		return s.DB.Transaction(func(tx *gorm.DB) error {
			progress, err := getOrCreateProgress(tx, userID, mission.ID)
			if err != nil {
				return err
			}

			reset := s.resetIfStale(progress, mission.MissionType)

			if progress.IsCompleted {
				// Re-delivery after completion is a no-op; only persist
				// if a stale record was just healed.
				if reset {
					return tx.Save(progress).Error
				}
				return nil
			}

			progress.CurrentCount += amount
			if progress.CurrentCount >= mission.TargetCount {
				progress.CurrentCount = mission.TargetCount
				progress.IsCompleted = true
			}
			return tx.Save(progress).Error
		})
	})
}

// ListForUser returns the caller's team missions ordered by (periodicity,
// order), each paired with fresh progress. Stale progress is reset and
// persisted here even though this is a GET — intentional self-healing so
// every later path observes a fresh record.
func (s *MissionService) ListForUser(userID string) ([]MissionStatus, error) {
	var user models.User
	if err := s.DB.Where("user_id = ?", userID).First(&user).Error; err != nil {
		return nil, err
	}
	if user.Team == "" {
		return []MissionStatus{}, nil
	}

	var missions []models.Mission
	if err := s.DB.Where("team = ?", user.Team).
		Order("mission_type, display_order").
		Find(&missions).Error; err != nil {
		return nil, err
	}

	statuses := make([]MissionStatus, 0, len(missions))
	for i := range missions {
		mission := &missions[i]

		var progress *models.MissionProgress
		err := s.DB.Transaction(func(tx *gorm.DB) error {
			p, err := getOrCreateProgress(tx, userID, mission.ID)
			if err != nil {
				return err
			}
			if s.resetIfStale(p, mission.MissionType) {
				if err := tx.Save(p).Error; err != nil {
					return err
				}
			}
			progress = p
			return nil
		})
		if err != nil {
			return nil, err
		}

		statuses = append(statuses, MissionStatus{
			ID:           mission.ID,
			Title:        mission.Title,
			Description:  mission.Description,
			ExpReward:    mission.ExpReward,
			MissionType:  mission.MissionType,
			CurrentCount: progress.CurrentCount,
			TargetCount:  mission.TargetCount,
			IsCompleted:  progress.IsCompleted,
			IsClaimed:    progress.IsClaimed,
		})
	}
	return statuses, nil
}

// Claim finalizes a completed, unclaimed, non-stale mission and grants
// the experience reward. At most once per (user, mission, period): the
// claimed flag is checked and set inside the same locked transaction.
//
// A stale record fails the claim with ErrPeriodReset, but the reset
// itself is committed — the record heals for next time, it just never
// satisfies the claim call that found it stale.
func (s *MissionService) Claim(userID, missionID string) (*ClaimResult, error) {
	var result *ClaimResult
	var periodReset bool

	err := s.withRetry(func() error {
		periodReset = false
		return s.DB.Transaction(func(tx *gorm.DB) error {
			var progress models.MissionProgress
			err := lockForUpdate(tx).
				Where("user_id = ? AND mission_id = ?", userID, missionID).
				First(&progress).Error
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrProgressNotFound
				}
				return err
			}

			var mission models.Mission
			if err := tx.First(&mission, "id = ?", missionID).Error; err != nil {
				return err
			}

			if s.resetIfStale(&progress, mission.MissionType) {
				periodReset = true
				return tx.Save(&progress).Error // commit the reset, fail the claim after
			}
			if !progress.IsCompleted {
				return ErrNotCompleted
			}
			if progress.IsClaimed {
				return ErrAlreadyClaimed
			}

			progress.IsClaimed = true
			if err := tx.Save(&progress).Error; err != nil {
				return err
			}

			user, err := s.Progression.grantExperienceTx(tx, userID, mission.ExpReward)
			if err != nil {
				return err
			}

			result = &ClaimResult{
				ExpReward: mission.ExpReward,
				NewExp:    user.Exp,
				NewLevel:  user.Level,
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if periodReset {
		return nil, ErrPeriodReset
	}
	return result, nil
}

// resetIfStale zeroes a record whose last write predates the current
// period start. The caller persists the mutation.
func (s *MissionService) resetIfStale(progress *models.MissionProgress, periodicity models.MissionPeriod) bool {
	if !isStale(progress.LastUpdated, periodicity, time.Now()) {
		return false
	}
	progress.CurrentCount = 0
	progress.IsCompleted = false
	progress.IsClaimed = false
	return true
}

// getOrCreateProgress returns the locked (user, mission) row, creating a
// zeroed one on first touch. Create races on the composite unique index
// are resolved with ON CONFLICT DO NOTHING plus a re-select.
func getOrCreateProgress(tx *gorm.DB, userID, missionID string) (*models.MissionProgress, error) {
	var progress models.MissionProgress
	err := lockForUpdate(tx).
		Where("user_id = ? AND mission_id = ?", userID, missionID).
		First(&progress).Error
	if err == nil {
		return &progress, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	progress = models.MissionProgress{
		ID:        uuid.NewString(),
		UserID:    userID,
		MissionID: missionID,
	}
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&progress)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// Lost the create race; the row exists now.
		if err := lockForUpdate(tx).
			Where("user_id = ? AND mission_id = ?", userID, missionID).
			First(&progress).Error; err != nil {
			return nil, err
		}
	}
	return &progress, nil
}

// withRetry re-runs fn on storage contention. Domain outcomes are
// definitive and never retried.
func (s *MissionService) withRetry(fn func() error) error {
	var err error
	for attempt := 0; attempt < txAttempts; attempt++ {
		err = fn()
		if err == nil || isDomainErr(err) {
			return err
		}
		log.Printf("⚠️  [MISSION] transaction attempt %d failed, retrying: %v", attempt+1, err)
	}
	return err
}

func isDomainErr(err error) bool {
	return errors.Is(err, ErrProgressNotFound) ||
		errors.Is(err, ErrNotCompleted) ||
		errors.Is(err, ErrAlreadyClaimed) ||
		errors.Is(err, gorm.ErrRecordNotFound)
}
