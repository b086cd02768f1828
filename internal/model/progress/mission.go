package progress

import "time"

// Condition types understood by the mission evaluator.
const (
	ConditionTimeSpent    = "time_spent"
	ConditionLoginStreak  = "login_streak"
	ConditionMessageCount = "message_count"
)

// Mission is a catalog entry.
type Mission struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	XPReward       int    `json:"xp_reward"`
	ConditionType  string `json:"condition_type"`
	ConditionValue int    `json:"condition_value"`
}

// UserMission tracks one user's progress toward a mission.
type UserMission struct {
	UserID      string     `json:"-"`
	Mission     Mission    `json:"mission"`
	Progress    int        `json:"progress"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// SeedMissions is the catalog assigned to a user on first activity.
func SeedMissions() []Mission {
	return []Mission{
		{ID: "first-words", Title: "First Words", Description: "Send your first 5 messages.", XPReward: 50, ConditionType: ConditionMessageCount, ConditionValue: 5},
		{ID: "chatterbox", Title: "Chatterbox", Description: "Send 50 messages to your tutor.", XPReward: 150, ConditionType: ConditionMessageCount, ConditionValue: 50},
		{ID: "ten-minutes", Title: "Ten Minutes In", Description: "Practice for 10 minutes.", XPReward: 50, ConditionType: ConditionTimeSpent, ConditionValue: 10},
		{ID: "hour-of-practice", Title: "Hour of Practice", Description: "Practice for 60 minutes.", XPReward: 200, ConditionType: ConditionTimeSpent, ConditionValue: 60},
		{ID: "three-day-streak", Title: "On a Roll", Description: "Practice three days in a row.", XPReward: 75, ConditionType: ConditionLoginStreak, ConditionValue: 3},
		{ID: "week-streak", Title: "Full Week", Description: "Practice seven days in a row.", XPReward: 250, ConditionType: ConditionLoginStreak, ConditionValue: 7},
	}
}

// MeasureProgress reads the current value of the mission condition.
// Unknown condition types report ok=false.
func MeasureProgress(conditionType string, p Profile, messageCount int) (int, bool) {
	switch conditionType {
	case ConditionTimeSpent:
		return int(p.TotalMinutes), true
	case ConditionLoginStreak:
		return p.Streak, true
	case ConditionMessageCount:
		return messageCount, true
	default:
		return 0, false
	}
}
