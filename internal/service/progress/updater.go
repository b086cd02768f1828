// Package progress applies gamification rules to a learner's profile after each
// chat turn.
package progress

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/fluentpal/tutor/backend/internal/model/progress"
	speechmodel "github.com/fluentpal/tutor/backend/internal/model/speech"
)

// Summary is the read model served to clients.
type Summary struct {
	Profile  progress.Profile       `json:"profile"`
	Missions []progress.UserMission `json:"missions"`
}

// Updater mutates profiles and mission progress. Writes for one user are
// serialized within the process.
type Updater struct {
	store    Store
	messages MessageCounter
	award    progress.Award
	catalog  []progress.Mission
	now      func() time.Time
	locks    keyedMutex
}

// Option customises an Updater.
type Option func(*Updater)

// WithAward overrides the per-turn award.
func WithAward(award progress.Award) Option {
	return func(u *Updater) { u.award = award }
}

// WithCatalog overrides the mission catalog.
func WithCatalog(catalog []progress.Mission) Option {
	return func(u *Updater) { u.catalog = catalog }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(u *Updater) { u.now = now }
}

// NewUpdater builds an Updater over store. messages supplies the message_count
// mission condition.
func NewUpdater(store Store, messages MessageCounter, opts ...Option) *Updater {
	u := &Updater{
		store:    store,
		messages: messages,
		award:    progress.DefaultAward(),
		catalog:  progress.SeedMissions(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// RecordTurn credits one chat turn for userID.
func (u *Updater) RecordTurn(ctx context.Context, userID string, assessment *speechmodel.PronunciationAssessment) error {
	unlock := u.locks.Lock(userID)
	defer unlock()

	profile, err := u.loadProfile(ctx, userID)
	if err != nil {
		return err
	}

	var fluency *float64
	if assessment != nil {
		sample := assessment.Fluency
		fluency = &sample
	}

	now := u.now()
	profile.ApplyTurn(now, u.award, fluency)

	profile, err = u.save(ctx, profile, now)
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"user":   userID,
		"xp":     profile.XP,
		"level":  profile.Level,
		"streak": profile.Streak,
	}).Debug("progress updated")
	return nil
}

// AddProgress applies a manual XP/time award, e.g. from a finished exercise.
func (u *Updater) AddProgress(ctx context.Context, userID string, xp int, minutes float64) (progress.Profile, error) {
	unlock := u.locks.Lock(userID)
	defer unlock()

	profile, err := u.loadProfile(ctx, userID)
	if err != nil {
		return progress.Profile{}, err
	}

	now := u.now()
	profile.XP += xp
	profile.TotalMinutes += minutes
	profile.Streak = progress.NextStreak(profile.Streak, profile.LastActivity, now)
	profile.LastActivity = &now

	return u.save(ctx, profile, now)
}

// Summary returns the profile and missions, recomputing derived scores.
func (u *Updater) Summary(ctx context.Context, userID string) (Summary, error) {
	profile, err := u.loadProfile(ctx, userID)
	if err != nil {
		return Summary{}, err
	}
	profile.Recompute()

	if err := u.store.EnsureUserMissions(ctx, userID, u.catalog); err != nil {
		return Summary{}, fmt.Errorf("assign missions: %w", err)
	}
	missions, err := u.store.ListUserMissions(ctx, userID)
	if err != nil {
		return Summary{}, fmt.Errorf("list missions: %w", err)
	}
	return Summary{Profile: profile, Missions: missions}, nil
}

func (u *Updater) loadProfile(ctx context.Context, userID string) (progress.Profile, error) {
	profile, err := u.store.GetProfile(ctx, userID)
	if errors.Is(err, ErrProfileNotFound) {
		return progress.NewProfile(userID), nil
	}
	if err != nil {
		return progress.Profile{}, fmt.Errorf("load profile: %w", err)
	}
	return profile, nil
}

// save evaluates open missions and commits the profile together with every
// mission that completes now, so a reward is credited exactly when its mission
// flips to completed.
func (u *Updater) save(ctx context.Context, profile progress.Profile, now time.Time) (progress.Profile, error) {
	completions, err := u.checkMissions(ctx, profile)
	if err != nil {
		return progress.Profile{}, err
	}

	saved, awarded, err := u.store.SaveProgress(ctx, profile, completions, now)
	if err != nil {
		return progress.Profile{}, fmt.Errorf("save progress: %w", err)
	}
	for _, id := range awarded {
		log.WithFields(log.Fields{"user": profile.UserID, "mission": id}).Info("mission completed")
	}
	return saved, nil
}

// checkMissions refreshes progress on open missions and returns the ones whose
// condition is now met. Already completed missions are never revisited.
func (u *Updater) checkMissions(ctx context.Context, profile progress.Profile) ([]Completion, error) {
	if err := u.store.EnsureUserMissions(ctx, profile.UserID, u.catalog); err != nil {
		return nil, fmt.Errorf("assign missions: %w", err)
	}

	missions, err := u.store.ListUserMissions(ctx, profile.UserID)
	if err != nil {
		return nil, fmt.Errorf("list missions: %w", err)
	}

	var completions []Completion
	messageCount := -1
	for _, um := range missions {
		if um.Completed {
			continue
		}

		if um.Mission.ConditionType == progress.ConditionMessageCount && messageCount < 0 {
			if u.messages == nil {
				continue
			}
			if messageCount, err = u.messages.CountUserMessages(ctx, profile.UserID); err != nil {
				return nil, fmt.Errorf("count messages: %w", err)
			}
		}

		value, ok := progress.MeasureProgress(um.Mission.ConditionType, profile, messageCount)
		if !ok {
			log.WithField("condition", um.Mission.ConditionType).Warn("unknown mission condition")
			continue
		}

		if value < um.Mission.ConditionValue {
			if value != um.Progress {
				if err := u.store.UpdateMissionProgress(ctx, profile.UserID, um.Mission.ID, value); err != nil {
					return nil, fmt.Errorf("update mission: %w", err)
				}
			}
			continue
		}

		completions = append(completions, Completion{
			MissionID: um.Mission.ID,
			Value:     value,
			XPReward:  um.Mission.XPReward,
		})
	}
	return completions, nil
}

// keyedMutex hands out one mutex per key and drops it once nobody holds it.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*refMutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
