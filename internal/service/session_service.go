// internal/service/session_service.go
package service

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"voice_kani/internal/config"
	"voice_kani/internal/middleware"
	"voice_kani/internal/model"
	"voice_kani/internal/repository"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// SessionService は復習セッションのライフサイクルを管理します。
// セッションの作成・回答の記録・集計・完了判定を担い、
// 回答の正誤判定そのものは呼び出し側の責務
type SessionService interface {
	StartSession(ctx context.Context, userID string, source model.SessionSource, items []model.ReviewItem, settings *model.SessionSettings) (*model.ReviewSession, error)
	SubmitAnswer(ctx context.Context, sessionID uuid.UUID, req *model.SubmitAnswerRequest) (*model.ReviewSession, error)
	EndSession(ctx context.Context, sessionID uuid.UUID) (*model.ReviewSession, error)
	GetSession(ctx context.Context, sessionID uuid.UUID) (*model.ReviewSession, error)
	GetProgress(ctx context.Context, sessionID uuid.UUID) (*model.SessionProgress, error)
	MarkItemPresented(ctx context.Context, sessionID, itemID uuid.UUID) error
	RecordVoiceFailure(ctx context.Context, sessionID uuid.UUID) (*model.ReviewSession, error)
	ClearSession()
	CurrentSessionID() (uuid.UUID, bool)

	// データ主体の権利対応
	ListUserSessions(ctx context.Context, userID string) ([]*model.ReviewSession, error)
	ExportUserData(ctx context.Context, userID string) (*model.UserDataExport, error)
	DeleteUserData(ctx context.Context, userID string) error
}

type sessionService struct {
	repo repository.SessionRepository
	cfg  *config.Config

	// currentMu は「現在のセッション」参照のみを守る
	currentMu sync.Mutex
	current   uuid.UUID

	// セッション単位の read-modify-write を直列化するためのロック。
	// カウンタ更新（読んで・計算して・保存）はアトミックではないため
	locks sync.Map // uuid.UUID -> *sync.Mutex
}

func NewSessionService(repo repository.SessionRepository, cfg *config.Config) SessionService {
	return &sessionService{
		repo: repo,
		cfg:  cfg,
	}
}

func (s *sessionService) lockSession(sessionID uuid.UUID) func() {
	v, _ := s.locks.LoadOrStore(sessionID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (s *sessionService) defaultSettings() model.SessionSettings {
	return model.SessionSettings{
		VoiceEnabled: true,
		VoiceConfig: model.VoiceInputConfig{
			Language:        s.cfg.Voice.Language,
			MaxDurationMs:   s.cfg.Voice.MaxDurationMs,
			MinDurationMs:   s.cfg.Voice.MinDurationMs,
			Continuous:      s.cfg.Voice.Continuous,
			InterimResults:  s.cfg.Voice.InterimResults,
			MaxAlternatives: s.cfg.Voice.MaxAlternatives,
		},
	}
}

func (s *sessionService) StartSession(ctx context.Context, userID string, source model.SessionSource, items []model.ReviewItem, settings *model.SessionSettings) (*model.ReviewSession, error) {
	logger := middleware.GetLogger(ctx)

	if len(items) == 0 {
		return nil, model.NewAppError("EMPTY_ITEM_SET", "復習対象のアイテムがありません。", "items", model.ErrEmptyItemSet)
	}
	if userID == "" {
		userID = s.cfg.App.DefaultUserID
	}
	if source == "" {
		source = model.SourceCustom
	}

	now := time.Now()
	session := &model.ReviewSession{
		SessionID:      uuid.New(),
		UserID:         userID,
		Source:         source,
		Items:          items,
		StartedAt:      now,
		Completed:      false,
		CorrectCount:   0,
		IncorrectCount: 0,
		VoiceStats:     model.VoiceStats{},
	}
	if settings != nil {
		session.Settings = *settings
	} else {
		session.Settings = s.defaultSettings()
	}
	// 最初のアイテムはセッション開始と同時に出題される
	session.Items[0].StartedAt = &now

	if err := s.repo.Create(ctx, session); err != nil {
		logger.Error("Failed to persist new session", "error", err, "user_id", userID)
		return nil, model.NewAppError("PERSISTENCE_FAILURE", "セッションの保存に失敗しました。", "", model.ErrPersistence)
	}

	s.currentMu.Lock()
	s.current = session.SessionID
	s.currentMu.Unlock()

	logger.Info("Review session started",
		"session_id", session.SessionID, "user_id", userID, "item_count", len(items))
	return session, nil
}

func (s *sessionService) SubmitAnswer(ctx context.Context, sessionID uuid.UUID, req *model.SubmitAnswerRequest) (*model.ReviewSession, error) {
	logger := middleware.GetLogger(ctx).With("session_id", sessionID, "item_id", req.ItemID)

	if _, ok := s.CurrentSessionID(); !ok {
		return nil, model.NewAppError("NO_ACTIVE_SESSION", "アクティブなセッションがありません。", "", model.ErrNoActiveSession)
	}

	unlock := s.lockSession(sessionID)
	defer unlock()

	session, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.NewAppError("SESSION_NOT_FOUND", "セッションが見つかりません。", "", model.ErrNotFound)
		}
		logger.Error("Failed to load session", "error", err)
		return nil, model.NewAppError("PERSISTENCE_FAILURE", "セッションの取得に失敗しました。", "", model.ErrPersistence)
	}

	// 変更は作業コピーに適用し、永続化が成功した場合のみ結果を返す。
	// 永続化失敗時にインメモリのカウンタだけが進む不整合を避けるため
	updated := session.Clone()

	item := updated.FindItem(req.ItemID)
	if item == nil {
		return nil, model.NewAppError("ITEM_NOT_FOUND", "セッション内に対象のアイテムが見つかりません。", "item_id", model.ErrItemNotFound)
	}
	if item.Answered() {
		return nil, model.NewAppError("ITEM_ALREADY_ANSWERED", "このアイテムは回答済みです。", "item_id", model.ErrConflict)
	}

	now := time.Now()
	isCorrect := req.IsCorrect != nil && *req.IsCorrect

	// Result と AnsweredAt は常に同時に、一度だけ設定される
	if isCorrect {
		item.Result = model.ResultCorrect
		updated.CorrectCount++
	} else {
		item.Result = model.ResultIncorrect
		updated.IncorrectCount++
	}
	item.AnsweredAt = &now
	item.InputMethod = req.InputMethod
	if req.UserAnswer != nil {
		item.UserAnswer = req.UserAnswer
	}

	// 音声統計の更新
	if req.InputMethod == model.InputMethodVoice {
		updated.VoiceStats.VoiceAnswerCount++
		if req.VoiceConfidence != nil {
			item.VoiceConfidence = req.VoiceConfidence
			// 信頼度が付かない回答は平均の母数に含めない
			updated.VoiceStats.ConfidenceSamples++
			// カウント加重の逐次平均: newMean = (oldMean*(n-1) + sample) / n
			n := float64(updated.VoiceStats.ConfidenceSamples)
			updated.VoiceStats.AverageConfidence =
				(updated.VoiceStats.AverageConfidence*(n-1) + *req.VoiceConfidence) / n
		}
	} else {
		updated.VoiceStats.TextAnswerCount++
	}

	// 完了判定
	if updated.AnsweredCount() >= len(updated.Items) {
		updated.Completed = true
		updated.EndedAt = &now
		score := roundedScore(updated.CorrectCount, len(updated.Items))
		updated.Score = &score
	} else {
		// 次の未回答アイテムが続けて出題される
		for i := range updated.Items {
			if !updated.Items[i].Answered() && updated.Items[i].StartedAt == nil {
				updated.Items[i].StartedAt = &now
				break
			}
		}
	}

	if err := s.repo.Update(ctx, updated); err != nil {
		logger.Error("Failed to persist answer", "error", err)
		return nil, model.NewAppError("PERSISTENCE_FAILURE", "回答の保存に失敗しました。", "", model.ErrPersistence)
	}

	logger.Info("Answer recorded",
		"is_correct", isCorrect,
		"input_method", req.InputMethod,
		"answered", updated.AnsweredCount(),
		"total", len(updated.Items),
		"completed", updated.Completed,
	)
	return updated, nil
}

func (s *sessionService) EndSession(ctx context.Context, sessionID uuid.UUID) (*model.ReviewSession, error) {
	logger := middleware.GetLogger(ctx).With("session_id", sessionID)

	// アクティブなセッションが無い場合は冪等に何もしない
	if _, ok := s.CurrentSessionID(); !ok {
		return nil, nil
	}

	unlock := s.lockSession(sessionID)
	defer unlock()

	session, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.NewAppError("SESSION_NOT_FOUND", "セッションが見つかりません。", "", model.ErrNotFound)
		}
		return nil, model.NewAppError("PERSISTENCE_FAILURE", "セッションの取得に失敗しました。", "", model.ErrPersistence)
	}

	if session.Completed && session.EndedAt != nil {
		return session, nil
	}

	updated := session.Clone()
	now := time.Now()
	updated.Completed = true
	updated.EndedAt = &now
	// Score は全問回答された場合のみ意味を持つ。
	// 途中終了時は未定義のまま残す（部分スコアは計算しない）
	if updated.Score == nil && updated.AnsweredCount() == len(updated.Items) && len(updated.Items) > 0 {
		score := roundedScore(updated.CorrectCount, len(updated.Items))
		updated.Score = &score
	}

	if err := s.repo.Update(ctx, updated); err != nil {
		logger.Error("Failed to persist session end", "error", err)
		return nil, model.NewAppError("PERSISTENCE_FAILURE", "セッションの終了の保存に失敗しました。", "", model.ErrPersistence)
	}

	logger.Info("Session ended", "answered", updated.AnsweredCount(), "total", len(updated.Items))
	return updated, nil
}

func (s *sessionService) GetSession(ctx context.Context, sessionID uuid.UUID) (*model.ReviewSession, error) {
	session, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.NewAppError("SESSION_NOT_FOUND", "セッションが見つかりません。", "", model.ErrNotFound)
		}
		return nil, model.NewAppError("PERSISTENCE_FAILURE", "セッションの取得に失敗しました。", "", model.ErrPersistence)
	}
	return session, nil
}

func (s *sessionService) GetProgress(ctx context.Context, sessionID uuid.UUID) (*model.SessionProgress, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	progress := &model.SessionProgress{
		TotalItems: len(session.Items),
	}
	var totalTime time.Duration
	timedCount := 0
	for i := range session.Items {
		item := &session.Items[i]
		switch item.Result {
		case model.ResultCorrect:
			progress.CorrectAnswers++
		case model.ResultIncorrect:
			progress.IncorrectAnswers++
		}
		if item.Answered() {
			progress.CompletedItems++
		}
		if item.StartedAt != nil && item.AnsweredAt != nil {
			totalTime += item.AnsweredAt.Sub(*item.StartedAt)
			timedCount++
		}
	}
	if timedCount > 0 {
		progress.AverageTimeMs = float64(totalTime.Milliseconds()) / float64(timedCount)
	}
	return progress, nil
}

func (s *sessionService) MarkItemPresented(ctx context.Context, sessionID, itemID uuid.UUID) error {
	unlock := s.lockSession(sessionID)
	defer unlock()

	session, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.NewAppError("SESSION_NOT_FOUND", "セッションが見つかりません。", "", model.ErrNotFound)
		}
		return model.NewAppError("PERSISTENCE_FAILURE", "セッションの取得に失敗しました。", "", model.ErrPersistence)
	}

	updated := session.Clone()
	item := updated.FindItem(itemID)
	if item == nil {
		return model.NewAppError("ITEM_NOT_FOUND", "セッション内に対象のアイテムが見つかりません。", "item_id", model.ErrItemNotFound)
	}
	if item.StartedAt != nil {
		return nil // 既に出題済みなら何もしない
	}
	now := time.Now()
	item.StartedAt = &now

	if err := s.repo.Update(ctx, updated); err != nil {
		return model.NewAppError("PERSISTENCE_FAILURE", "出題時刻の保存に失敗しました。", "", model.ErrPersistence)
	}
	return nil
}

func (s *sessionService) RecordVoiceFailure(ctx context.Context, sessionID uuid.UUID) (*model.ReviewSession, error) {
	unlock := s.lockSession(sessionID)
	defer unlock()

	session, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.NewAppError("SESSION_NOT_FOUND", "セッションが見つかりません。", "", model.ErrNotFound)
		}
		return nil, model.NewAppError("PERSISTENCE_FAILURE", "セッションの取得に失敗しました。", "", model.ErrPersistence)
	}

	updated := session.Clone()
	updated.VoiceStats.FailureCount++

	if err := s.repo.Update(ctx, updated); err != nil {
		return nil, model.NewAppError("PERSISTENCE_FAILURE", "音声統計の保存に失敗しました。", "", model.ErrPersistence)
	}
	return updated, nil
}

func (s *sessionService) ClearSession() {
	s.currentMu.Lock()
	s.current = uuid.Nil
	s.currentMu.Unlock()
}

func (s *sessionService) CurrentSessionID() (uuid.UUID, bool) {
	s.currentMu.Lock()
	defer s.currentMu.Unlock()
	return s.current, s.current != uuid.Nil
}

func (s *sessionService) ListUserSessions(ctx context.Context, userID string) ([]*model.ReviewSession, error) {
	sessions, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, model.NewAppError("PERSISTENCE_FAILURE", "セッション一覧の取得に失敗しました。", "", model.ErrPersistence)
	}
	return sessions, nil
}

func (s *sessionService) ExportUserData(ctx context.Context, userID string) (*model.UserDataExport, error) {
	sessions, err := s.ListUserSessions(ctx, userID)
	if err != nil {
		return nil, err
	}

	export := &model.UserDataExport{
		Sessions:      sessions,
		TotalSessions: len(sessions),
		TotalCorrect: lo.SumBy(sessions, func(sess *model.ReviewSession) int {
			return lo.CountBy(sess.Items, func(item model.ReviewItem) bool {
				return item.Result == model.ResultCorrect
			})
		}),
		TotalIncorrect: lo.SumBy(sessions, func(sess *model.ReviewSession) int {
			return lo.CountBy(sess.Items, func(item model.ReviewItem) bool {
				return item.Result == model.ResultIncorrect
			})
		}),
	}
	return export, nil
}

func (s *sessionService) DeleteUserData(ctx context.Context, userID string) error {
	logger := middleware.GetLogger(ctx).With("user_id", userID)

	if err := s.repo.DeleteByUser(ctx, userID); err != nil {
		logger.Error("Failed to delete user data", "error", err)
		return model.NewAppError("PERSISTENCE_FAILURE", "ユーザーデータの削除に失敗しました。", "", model.ErrPersistence)
	}
	logger.Info("User data deleted")
	return nil
}

// roundedScore は正答率を0-100の整数に丸めます
func roundedScore(correct, total int) int {
	return int(math.Round(float64(correct) / float64(total) * 100))
}
