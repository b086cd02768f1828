package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fluentpal/tutor/backend/internal/model/chat"
	chatservice "github.com/fluentpal/tutor/backend/internal/service/chat"
)

var _ chatservice.Store = (*Store)(nil)

func (s *Store) CreateSession(ctx context.Context, owner, title string) (chat.Session, error) {
	if strings.TrimSpace(owner) == "" {
		return chat.Session{}, chatservice.ErrOwnerRequired
	}
	id, err := uuid.NewV7()
	if err != nil {
		return chat.Session{}, fmt.Errorf("generate session id: %w", err)
	}

	now := s.now().UTC()
	rec := sessionRecord{
		ID:        id.String(),
		UserID:    owner,
		Title:     title,
		Metadata:  encodeMetadata(nil),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return chat.Session{}, fmt.Errorf("create session: %w", err)
	}
	return rec.toModel(), nil
}

func (s *Store) GetSession(ctx context.Context, id, owner string) (chat.Session, error) {
	var rec sessionRecord
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, owner).First(&rec).Error
	if err != nil {
		return chat.Session{}, sessionError(err)
	}
	return rec.toModel(), nil
}

func (s *Store) ListSessions(ctx context.Context, owner string) ([]chat.Session, error) {
	var recs []sessionRecord
	if err := s.db.WithContext(ctx).Where("user_id = ?", owner).Order("updated_at DESC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	out := make([]chat.Session, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.toModel())
	}
	return out, nil
}

func (s *Store) DeleteSession(ctx context.Context, id, owner string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ?", id, owner).Delete(&sessionRecord{})
		if res.Error != nil {
			return fmt.Errorf("delete session: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return chatservice.ErrSessionNotFound
		}
		if err := tx.Where("session_id = ?", id).Delete(&messageRecord{}).Error; err != nil {
			return fmt.Errorf("delete messages: %w", err)
		}
		return nil
	})
}

func (s *Store) ListMessages(ctx context.Context, sessionID string) ([]chat.Message, error) {
	db := s.db.WithContext(ctx)
	if err := db.Select("id").Where("id = ?", sessionID).First(&sessionRecord{}).Error; err != nil {
		return nil, sessionError(err)
	}

	var recs []messageRecord
	if err := db.Where("session_id = ?", sessionID).Order("id ASC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	out := make([]chat.Message, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.toModel())
	}
	return out, nil
}

func (s *Store) AppendMessage(ctx context.Context, sessionID string, role chat.Role, content string) (chat.Message, error) {
	rec := messageRecord{
		SessionID: sessionID,
		Role:      string(role),
		Content:   content,
		CreatedAt: s.now().UTC(),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&sessionRecord{}).Where("id = ?", sessionID).Update("updated_at", rec.CreatedAt)
		if res.Error != nil {
			return fmt.Errorf("touch session: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return chatservice.ErrSessionNotFound
		}
		if err := tx.Create(&rec).Error; err != nil {
			return fmt.Errorf("append message: %w", err)
		}
		return nil
	})
	if err != nil {
		return chat.Message{}, err
	}
	return rec.toModel(), nil
}

func (s *Store) UpdateSessionMetadata(ctx context.Context, sessionID string, meta map[string]string) (chat.Session, error) {
	var rec sessionRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", sessionID).First(&rec).Error
		if err != nil {
			return sessionError(err)
		}
		rec.Metadata = mergeMetadata(rec.Metadata, meta)
		rec.UpdatedAt = s.now().UTC()
		return tx.Model(&rec).Updates(map[string]interface{}{
			"metadata":   rec.Metadata,
			"updated_at": rec.UpdatedAt,
		}).Error
	})
	if err != nil {
		return chat.Session{}, err
	}
	return rec.toModel(), nil
}

func (s *Store) CountUserMessages(ctx context.Context, owner string) (int, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&messageRecord{}).
		Joins("JOIN chat_sessions ON chat_sessions.id = chat_messages.session_id").
		Where("chat_sessions.user_id = ? AND chat_messages.role = ?", owner, string(chat.RoleUser)).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return int(n), nil
}

func sessionError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return chatservice.ErrSessionNotFound
	}
	return fmt.Errorf("load session: %w", err)
}
