package progress

import (
	"context"
	"errors"
	"time"

	"github.com/fluentpal/tutor/backend/internal/model/progress"
)

var ErrProfileNotFound = errors.New("profile not found")

// Store persists profiles and per-user mission progress.
type Store interface {
	GetProfile(ctx context.Context, userID string) (progress.Profile, error)
	// EnsureUserMissions assigns every catalog mission the user does not have yet.
	EnsureUserMissions(ctx context.Context, userID string, catalog []progress.Mission) error
	ListUserMissions(ctx context.Context, userID string) ([]progress.UserMission, error)
	// UpdateMissionProgress records progress on an open mission. Completed missions are left alone.
	UpdateMissionProgress(ctx context.Context, userID, missionID string, value int) error
	// SaveProgress completes every still-open mission in completions, credits its
	// reward to profile, recomputes derived scores and saves the profile, all or
	// nothing. Missions already completed award nothing. It returns the stored
	// profile and the IDs of the missions it completed.
	SaveProgress(ctx context.Context, profile progress.Profile, completions []Completion, at time.Time) (progress.Profile, []string, error)
}

// Completion is a mission whose condition was met during an update.
type Completion struct {
	MissionID string
	Value     int
	XPReward  int
}

// MessageCounter reports how many messages a user has authored.
type MessageCounter interface {
	CountUserMessages(ctx context.Context, owner string) (int, error)
}
