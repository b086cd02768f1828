// Package progress models a learner's gamified progress and the pure rules that
// move it forward after each chat turn.
package progress

import (
	"math"
	"time"
)

const (
	// XPPerTurn is awarded for every user message.
	XPPerTurn = 10
	// MinutesPerTurn is the practice time credited for every user message.
	MinutesPerTurn = 0.5
	// XPPerLevel is the experience needed to climb one level.
	XPPerLevel = 100
)

// Profile is the per-user progress record.
type Profile struct {
	UserID          string     `json:"user_id"`
	Level           int        `json:"level"`
	XP              int        `json:"xp"`
	Streak          int        `json:"streak"`
	TotalMinutes    float64    `json:"total_time_minutes"`
	GlobalScore     int        `json:"global_score"`
	FluencyScore    int        `json:"fluency_score"`
	VocabularyScore int        `json:"vocabulary_score"`
	LastActivity    *time.Time `json:"last_activity,omitempty"`
}

// NewProfile returns the starting profile for a user.
func NewProfile(userID string) Profile {
	return Profile{UserID: userID, Level: 1}
}

// LevelForXP maps experience to a level: 1 + floor(xp / 100).
func LevelForXP(xp int) int {
	if xp < 0 {
		xp = 0
	}
	return 1 + xp/XPPerLevel
}

// NextStreak computes the streak after an activity at now, given the previous
// streak and the last activity time. Days are compared on UTC dates.
func NextStreak(prev int, last *time.Time, now time.Time) int {
	if last == nil {
		return 1
	}
	today := dateOf(now)
	lastDay := dateOf(*last)

	switch {
	case lastDay.Equal(today), lastDay.After(today):
		if prev < 1 {
			return 1
		}
		return prev
	case lastDay.Equal(today.AddDate(0, 0, -1)):
		return prev + 1
	default:
		return 1
	}
}

// BlendFluency folds a new pronunciation fluency sample into the running score,
// weighting history 70% and the sample 30%. The first sample is taken as is.
func BlendFluency(prev int, sample float64) int {
	if prev == 0 {
		return clampScore(int(sample))
	}
	return clampScore(int(math.Floor((float64(prev)*7 + sample*3) / 10)))
}

// GlobalScore derives the 0..100 summary score.
func GlobalScore(xp, streak, level int) int {
	score := int(float64(xp)/1000*50 + float64(streak)*2 + float64(level)*5)
	if score > 100 {
		return 100
	}
	if score < 0 {
		return 0
	}
	return score
}

// Recompute refreshes the derived fields. Level never moves down.
func (p *Profile) Recompute() {
	if lvl := LevelForXP(p.XP); lvl > p.Level {
		p.Level = lvl
	}
	if p.Level < 1 {
		p.Level = 1
	}
	p.GlobalScore = GlobalScore(p.XP, p.Streak, p.Level)
}

// Award is what a single chat turn is worth.
type Award struct {
	XP      int
	Minutes float64
}

// DefaultAward returns the standard per-turn award.
func DefaultAward() Award {
	return Award{XP: XPPerTurn, Minutes: MinutesPerTurn}
}

// ApplyTurn credits one chat turn at now. fluency is nil when the turn carried
// no pronunciation assessment.
func (p *Profile) ApplyTurn(now time.Time, award Award, fluency *float64) {
	p.XP += award.XP
	p.TotalMinutes += award.Minutes
	p.Streak = NextStreak(p.Streak, p.LastActivity, now)
	if fluency != nil {
		p.FluencyScore = BlendFluency(p.FluencyScore, *fluency)
	}
	p.Recompute()
	at := now
	p.LastActivity = &at
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
