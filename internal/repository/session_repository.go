// internal/repository/session_repository.go
package repository

import (
	"context"
	"errors"
	"sort"

	"voice_kani/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SessionRepository は復習セッションの永続化を抽象化します。
// バックエンド（インメモリ / Postgres / Redis）は設定で差し替え可能
type SessionRepository interface {
	// Create はセッションを保存します。SessionID が未設定なら採番します
	Create(ctx context.Context, session *model.ReviewSession) error
	// Get は ID でセッションを取得します。存在しなければ model.ErrNotFound
	Get(ctx context.Context, sessionID uuid.UUID) (*model.ReviewSession, error)
	// Update はセッション全体（アイテム含む）を保存します。存在しなければ model.ErrNotFound
	Update(ctx context.Context, session *model.ReviewSession) error
	// Delete はセッションを削除します。存在しなければ model.ErrNotFound
	Delete(ctx context.Context, sessionID uuid.UUID) error
	// ListByUser はユーザーの全セッションを開始時刻の昇順で返します
	ListByUser(ctx context.Context, userID string) ([]*model.ReviewSession, error)
	// DeleteByUser はユーザーの全セッションを削除します（データ主体の権利対応）
	DeleteByUser(ctx context.Context, userID string) error
}

type gormSessionRepository struct {
	db *gorm.DB
}

func NewGormSessionRepository(db *gorm.DB) SessionRepository {
	return &gormSessionRepository{db: db}
}

func (r *gormSessionRepository) Create(ctx context.Context, session *model.ReviewSession) error {
	if session.SessionID == uuid.Nil {
		session.SessionID = uuid.New()
	}
	for i := range session.Items {
		if session.Items[i].ItemID == uuid.Nil {
			session.Items[i].ItemID = uuid.New()
		}
		session.Items[i].SessionID = session.SessionID
		session.Items[i].Position = i
	}
	// アイテムは関連として同一トランザクションで作成される
	result := r.db.WithContext(ctx).Create(session)
	return result.Error
}

func (r *gormSessionRepository) Get(ctx context.Context, sessionID uuid.UUID) (*model.ReviewSession, error) {
	var session model.ReviewSession
	result := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("review_items.position ASC")
		}).
		First(&session, "session_id = ?", sessionID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		return nil, result.Error
	}
	return &session, nil
}

func (r *gormSessionRepository) Update(ctx context.Context, session *model.ReviewSession) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.ReviewSession{}).
			Where("session_id = ?", session.SessionID).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return model.ErrNotFound
		}
		if err := tx.Omit("Items").Save(session).Error; err != nil {
			return err
		}
		// アイテムの並びは作成時に固定なので、更新は既存行の上書きのみ
		for i := range session.Items {
			if err := tx.Save(&session.Items[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *gormSessionRepository) Delete(ctx context.Context, sessionID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", sessionID).Delete(&model.ReviewItem{}).Error; err != nil {
			return err
		}
		result := tx.Where("session_id = ?", sessionID).Delete(&model.ReviewSession{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return model.ErrNotFound
		}
		return nil
	})
}

func (r *gormSessionRepository) ListByUser(ctx context.Context, userID string) ([]*model.ReviewSession, error) {
	var sessions []*model.ReviewSession
	result := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("review_items.position ASC")
		}).
		Where("user_id = ?", userID).
		Order("started_at ASC").
		Find(&sessions)
	if result.Error != nil {
		return nil, result.Error
	}
	return sessions, nil
}

func (r *gormSessionRepository) DeleteByUser(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []uuid.UUID
		if err := tx.Model(&model.ReviewSession{}).
			Where("user_id = ?", userID).
			Pluck("session_id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		if err := tx.Where("session_id IN ?", ids).Delete(&model.ReviewItem{}).Error; err != nil {
			return err
		}
		return tx.Where("session_id IN ?", ids).Delete(&model.ReviewSession{}).Error
	})
}

// sortSessionsByStart はバックエンド間で ListByUser の順序を揃えるためのヘルパー
func sortSessionsByStart(sessions []*model.ReviewSession) {
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].StartedAt.Before(sessions[j].StartedAt)
	})
}
