package postgres

import (
	"encoding/json"
	"strconv"
	"time"

	"gorm.io/datatypes"

	"github.com/fluentpal/tutor/backend/internal/model/chat"
	"github.com/fluentpal/tutor/backend/internal/model/progress"
)

type sessionRecord struct {
	ID        string         `gorm:"primaryKey;type:varchar(36)"`
	UserID    string         `gorm:"type:varchar(255);not null;index"`
	Title     string         `gorm:"type:varchar(255)"`
	Metadata  datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt time.Time
	UpdatedAt time.Time `gorm:"index"`
}

func (sessionRecord) TableName() string { return "chat_sessions" }

// messageRecord ids are sequential so ordering by id is append order.
type messageRecord struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	SessionID string    `gorm:"type:varchar(36);not null;index"`
	Role      string    `gorm:"type:varchar(16);not null"`
	Content   string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (messageRecord) TableName() string { return "chat_messages" }

type profileRecord struct {
	UserID          string `gorm:"primaryKey;type:varchar(255)"`
	Level           int    `gorm:"not null;default:1"`
	XP              int    `gorm:"not null;default:0"`
	Streak          int    `gorm:"not null;default:0"`
	TotalMinutes    float64
	GlobalScore     int
	FluencyScore    int
	VocabularyScore int
	LastActivity    *time.Time
	UpdatedAt       time.Time
}

func (profileRecord) TableName() string { return "user_profiles" }

type missionRecord struct {
	ID             string `gorm:"primaryKey;type:varchar(64)"`
	Title          string `gorm:"type:varchar(255);not null"`
	Description    string `gorm:"type:text"`
	XPReward       int    `gorm:"not null"`
	ConditionType  string `gorm:"type:varchar(32);not null"`
	ConditionValue int    `gorm:"not null"`
}

func (missionRecord) TableName() string { return "missions" }

type userMissionRecord struct {
	UserID      string `gorm:"primaryKey;type:varchar(255)"`
	MissionID   string `gorm:"primaryKey;type:varchar(64)"`
	Progress    int    `gorm:"not null;default:0"`
	Completed   bool   `gorm:"not null;default:false"`
	CompletedAt *time.Time

	Mission missionRecord `gorm:"foreignKey:MissionID"`
}

func (userMissionRecord) TableName() string { return "user_missions" }

func encodeMetadata(meta map[string]string) datatypes.JSON {
	if len(meta) == 0 {
		return datatypes.JSON("{}")
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(raw)
}

// decodeMetadata tolerates empty or malformed columns and keeps string values only.
func decodeMetadata(raw datatypes.JSON) map[string]string {
	out := map[string]string{}
	if len(raw) == 0 {
		return out
	}
	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return out
	}
	for k, v := range generic {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

func mergeMetadata(existing datatypes.JSON, updates map[string]string) datatypes.JSON {
	merged := decodeMetadata(existing)
	for k, v := range updates {
		merged[k] = v
	}
	return encodeMetadata(merged)
}

func (r sessionRecord) toModel() chat.Session {
	return chat.Session{
		ID:        r.ID,
		UserID:    r.UserID,
		Title:     r.Title,
		Metadata:  decodeMetadata(r.Metadata),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func (r messageRecord) toModel() chat.Message {
	return chat.Message{
		ID:        strconv.FormatUint(r.ID, 10),
		SessionID: r.SessionID,
		Role:      chat.Role(r.Role),
		Content:   r.Content,
		CreatedAt: r.CreatedAt,
	}
}

func profileFromModel(p progress.Profile) profileRecord {
	return profileRecord{
		UserID:          p.UserID,
		Level:           p.Level,
		XP:              p.XP,
		Streak:          p.Streak,
		TotalMinutes:    p.TotalMinutes,
		GlobalScore:     p.GlobalScore,
		FluencyScore:    p.FluencyScore,
		VocabularyScore: p.VocabularyScore,
		LastActivity:    p.LastActivity,
	}
}

func (r profileRecord) toModel() progress.Profile {
	return progress.Profile{
		UserID:          r.UserID,
		Level:           r.Level,
		XP:              r.XP,
		Streak:          r.Streak,
		TotalMinutes:    r.TotalMinutes,
		GlobalScore:     r.GlobalScore,
		FluencyScore:    r.FluencyScore,
		VocabularyScore: r.VocabularyScore,
		LastActivity:    r.LastActivity,
	}
}

func missionFromModel(m progress.Mission) missionRecord {
	return missionRecord{
		ID:             m.ID,
		Title:          m.Title,
		Description:    m.Description,
		XPReward:       m.XPReward,
		ConditionType:  m.ConditionType,
		ConditionValue: m.ConditionValue,
	}
}

func (r missionRecord) toModel() progress.Mission {
	return progress.Mission{
		ID:             r.ID,
		Title:          r.Title,
		Description:    r.Description,
		XPReward:       r.XPReward,
		ConditionType:  r.ConditionType,
		ConditionValue: r.ConditionValue,
	}
}

func (r userMissionRecord) toModel() progress.UserMission {
	return progress.UserMission{
		UserID:      r.UserID,
		Mission:     r.Mission.toModel(),
		Progress:    r.Progress,
		Completed:   r.Completed,
		CompletedAt: r.CompletedAt,
	}
}
