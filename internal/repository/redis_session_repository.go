// internal/repository/redis_session_repository.go
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"voice_kani/internal/model"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// redisSessionRepository はセッションをJSONドキュメントとしてRedisに保存します。
// キー構成:
//   review_session:<session_id>      … セッション本体 (JSON)
//   review_sessions:user:<user_id>   … ユーザーごとのセッションIDの集合
type redisSessionRepository struct {
	client *redis.Client
}

func NewRedisSessionRepository(client *redis.Client) SessionRepository {
	return &redisSessionRepository{client: client}
}

func sessionKey(sessionID uuid.UUID) string {
	return "review_session:" + sessionID.String()
}

func userIndexKey(userID string) string {
	return "review_sessions:user:" + userID
}

func (r *redisSessionRepository) Create(ctx context.Context, session *model.ReviewSession) error {
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

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, sessionKey(session.SessionID), data, 0)
	pipe.SAdd(ctx, userIndexKey(session.UserID), session.SessionID.String())
	_, err = pipe.Exec(ctx)
	return err
}

func (r *redisSessionRepository) Get(ctx context.Context, sessionID uuid.UUID) (*model.ReviewSession, error) {
	data, err := r.client.Get(ctx, sessionKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	var session model.ReviewSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &session, nil
}

func (r *redisSessionRepository) Update(ctx context.Context, session *model.ReviewSession) error {
	key := sessionKey(session.SessionID)
	exists, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return model.ErrNotFound
	}
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return r.client.Set(ctx, key, data, 0).Err()
}

func (r *redisSessionRepository) Delete(ctx context.Context, sessionID uuid.UUID) error {
	session, err := r.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, sessionKey(sessionID))
	pipe.SRem(ctx, userIndexKey(session.UserID), sessionID.String())
	_, err = pipe.Exec(ctx)
	return err
}

func (r *redisSessionRepository) ListByUser(ctx context.Context, userID string) ([]*model.ReviewSession, error) {
	ids, err := r.client.SMembers(ctx, userIndexKey(userID)).Result()
	if err != nil {
		return nil, err
	}
	sessions := make([]*model.ReviewSession, 0, len(ids))
	for _, idStr := range ids {
		id, err := uuid.Parse(idStr)
		if err != nil {
			continue // 壊れたインデックスエントリは読み飛ばす
		}
		session, err := r.Get(ctx, id)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				continue
			}
			return nil, err
		}
		sessions = append(sessions, session)
	}
	sortSessionsByStart(sessions)
	return sessions, nil
}

func (r *redisSessionRepository) DeleteByUser(ctx context.Context, userID string) error {
	ids, err := r.client.SMembers(ctx, userIndexKey(userID)).Result()
	if err != nil {
		return err
	}
	pipe := r.client.TxPipeline()
	for _, idStr := range ids {
		pipe.Del(ctx, "review_session:"+idStr)
	}
	pipe.Del(ctx, userIndexKey(userID))
	_, err = pipe.Exec(ctx)
	return err
}
