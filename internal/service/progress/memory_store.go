package progress

import (
	"context"
	"sync"
	"time"

	"github.com/fluentpal/tutor/backend/internal/model/progress"
)

// MemoryStore keeps progress in process memory.
type MemoryStore struct {
	mu       sync.Mutex
	profiles map[string]progress.Profile
	missions map[string][]progress.UserMission
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles: make(map[string]progress.Profile),
		missions: make(map[string][]progress.UserMission),
	}
}

func (s *MemoryStore) GetProfile(_ context.Context, userID string) (progress.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[userID]
	if !ok {
		return progress.Profile{}, ErrProfileNotFound
	}
	return p, nil
}

func (s *MemoryStore) EnsureUserMissions(_ context.Context, userID string, catalog []progress.Mission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	have := make(map[string]struct{}, len(s.missions[userID]))
	for _, um := range s.missions[userID] {
		have[um.Mission.ID] = struct{}{}
	}
	for _, m := range catalog {
		if _, ok := have[m.ID]; ok {
			continue
		}
		s.missions[userID] = append(s.missions[userID], progress.UserMission{UserID: userID, Mission: m})
	}
	return nil
}

func (s *MemoryStore) ListUserMissions(_ context.Context, userID string) ([]progress.UserMission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]progress.UserMission(nil), s.missions[userID]...), nil
}

func (s *MemoryStore) UpdateMissionProgress(_ context.Context, userID, missionID string, value int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, um := range s.missions[userID] {
		if um.Mission.ID == missionID && !um.Completed {
			s.missions[userID][i].Progress = value
		}
	}
	return nil
}

func (s *MemoryStore) SaveProgress(_ context.Context, profile progress.Profile, completions []Completion, at time.Time) (progress.Profile, []string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var awarded []string
	missions := s.missions[profile.UserID]
	for _, c := range completions {
		for i, um := range missions {
			if um.Mission.ID != c.MissionID || um.Completed {
				continue
			}
			completedAt := at
			missions[i].Progress = c.Value
			missions[i].Completed = true
			missions[i].CompletedAt = &completedAt
			profile.XP += c.XPReward
			awarded = append(awarded, c.MissionID)
			break
		}
	}

	profile.Recompute()
	s.profiles[profile.UserID] = profile
	return profile, awarded, nil
}
