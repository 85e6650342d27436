// internal/repository/memory_session_repository.go
package repository

import (
	"context"
	"sync"

	"voice_kani/internal/model"

	"github.com/google/uuid"
)

// memorySessionRepository はプロトタイピングとテスト向けのインメモリ実装です。
// 格納時・取得時にディープコピーするため、呼び出し側が保持する参照を通じて
// ストア内部の状態が書き換わることはありません
type memorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*model.ReviewSession
}

func NewMemorySessionRepository() SessionRepository {
	return &memorySessionRepository{
		sessions: make(map[uuid.UUID]*model.ReviewSession),
	}
}

func (r *memorySessionRepository) Create(_ context.Context, session *model.ReviewSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

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
	if _, ok := r.sessions[session.SessionID]; ok {
		return model.ErrConflict
	}
	r.sessions[session.SessionID] = session.Clone()
	return nil
}

func (r *memorySessionRepository) Get(_ context.Context, sessionID uuid.UUID) (*model.ReviewSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[sessionID]
	if !ok {
		return nil, model.ErrNotFound
	}
	return session.Clone(), nil
}

func (r *memorySessionRepository) Update(_ context.Context, session *model.ReviewSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[session.SessionID]; !ok {
		return model.ErrNotFound
	}
	r.sessions[session.SessionID] = session.Clone()
	return nil
}

func (r *memorySessionRepository) Delete(_ context.Context, sessionID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[sessionID]; !ok {
		return model.ErrNotFound
	}
	delete(r.sessions, sessionID)
	return nil
}

func (r *memorySessionRepository) ListByUser(_ context.Context, userID string) ([]*model.ReviewSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := make([]*model.ReviewSession, 0)
	for _, s := range r.sessions {
		if s.UserID == userID {
			sessions = append(sessions, s.Clone())
		}
	}
	sortSessionsByStart(sessions)
	return sessions, nil
}

func (r *memorySessionRepository) DeleteByUser(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, s := range r.sessions {
		if s.UserID == userID {
			delete(r.sessions, id)
		}
	}
	return nil
}
