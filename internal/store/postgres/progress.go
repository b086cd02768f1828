package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fluentpal/tutor/backend/internal/model/progress"
	progressservice "github.com/fluentpal/tutor/backend/internal/service/progress"
)

var _ progressservice.Store = (*Store)(nil)

func (s *Store) GetProfile(ctx context.Context, userID string) (progress.Profile, error) {
	var rec profileRecord
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return progress.Profile{}, progressservice.ErrProfileNotFound
		}
		return progress.Profile{}, fmt.Errorf("load profile: %w", err)
	}
	return rec.toModel(), nil
}

func (s *Store) EnsureUserMissions(ctx context.Context, userID string, catalog []progress.Mission) error {
	if len(catalog) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.upsertMissions(tx, catalog); err != nil {
			return err
		}
		rows := make([]userMissionRecord, 0, len(catalog))
		for _, m := range catalog {
			rows = append(rows, userMissionRecord{UserID: userID, MissionID: m.ID})
		}
		if err := tx.Omit("Mission").Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
			return fmt.Errorf("assign missions: %w", err)
		}
		return nil
	})
}

func (s *Store) upsertMissions(tx *gorm.DB, catalog []progress.Mission) error {
	if len(catalog) == 0 {
		return nil
	}
	rows := make([]missionRecord, 0, len(catalog))
	for _, m := range catalog {
		rows = append(rows, missionFromModel(m))
	}
	return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&rows).Error
}

func (s *Store) ListUserMissions(ctx context.Context, userID string) ([]progress.UserMission, error) {
	var recs []userMissionRecord
	err := s.db.WithContext(ctx).Preload("Mission").
		Where("user_id = ?", userID).Order("mission_id ASC").Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("list missions: %w", err)
	}
	out := make([]progress.UserMission, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.toModel())
	}
	return out, nil
}

func (s *Store) UpdateMissionProgress(ctx context.Context, userID, missionID string, value int) error {
	err := s.db.WithContext(ctx).Model(&userMissionRecord{}).
		Where("user_id = ? AND mission_id = ? AND completed = ?", userID, missionID, false).
		Update("progress", value).Error
	if err != nil {
		return fmt.Errorf("update mission progress: %w", err)
	}
	return nil
}

// SaveProgress guards each completion on completed = false so concurrent
// completions award once. The profile row is written in the same transaction.
func (s *Store) SaveProgress(ctx context.Context, profile progress.Profile, completions []progressservice.Completion, at time.Time) (progress.Profile, []string, error) {
	completedAt := at.UTC()
	var (
		saved   progress.Profile
		awarded []string
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		saved = profile
		awarded = nil
		for _, c := range completions {
			res := tx.Model(&userMissionRecord{}).
				Where("user_id = ? AND mission_id = ? AND completed = ?", profile.UserID, c.MissionID, false).
				Updates(map[string]interface{}{
					"progress":     c.Value,
					"completed":    true,
					"completed_at": &completedAt,
				})
			if res.Error != nil {
				return fmt.Errorf("complete mission %s: %w", c.MissionID, res.Error)
			}
			if res.RowsAffected == 1 {
				saved.XP += c.XPReward
				awarded = append(awarded, c.MissionID)
			}
		}

		saved.Recompute()
		rec := profileFromModel(saved)
		rec.UpdatedAt = s.now().UTC()
		if err := tx.Save(&rec).Error; err != nil {
			return fmt.Errorf("save profile: %w", err)
		}
		return nil
	})
	if err != nil {
		return progress.Profile{}, nil, err
	}
	return saved, awarded, nil
}
