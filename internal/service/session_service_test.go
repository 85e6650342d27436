// internal/service/session_service_test.go
package service_test

import (
	"context"
	"errors"
	"testing"

	"voice_kani/internal/config"
	"voice_kani/internal/model"
	"voice_kani/internal/repository"
	"voice_kani/internal/repository/mocks"
	"voice_kani/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.App.DefaultUserID = "test-user"
	cfg.App.ReviewLimit = 20
	cfg.Voice.Language = "ja-JP"
	cfg.Voice.MaxDurationMs = 10000
	cfg.Voice.MinDurationMs = 500
	cfg.Voice.MaxAlternatives = 1
	return cfg
}

func testItems(n int) []model.ReviewItem {
	items := make([]model.ReviewItem, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, model.ReviewItem{
			Type:           model.ItemTypeVocabulary,
			QuestionType:   model.QuestionTypeMeaning,
			Question:       "犬",
			ExpectedAnswer: "dog",
		})
	}
	return items
}

func newTestService(t *testing.T) service.SessionService {
	t.Helper()
	return service.NewSessionService(repository.NewMemorySessionRepository(), testConfig())
}

func boolPtr(b bool) *bool      { return &b }
func f64Ptr(f float64) *float64 { return &f }
func strPtr(s string) *string   { return &s }

func answerReq(itemID uuid.UUID, correct bool, method model.InputMethod) *model.SubmitAnswerRequest {
	return &model.SubmitAnswerRequest{
		ItemID:      itemID,
		IsCorrect:   boolPtr(correct),
		InputMethod: method,
	}
}

func TestSessionService_StartSession(t *testing.T) {
	ctx := context.Background()

	t.Run("正常系: セッションが開始され最初のアイテムに出題時刻が付く", func(t *testing.T) {
		svc := newTestService(t)

		session, err := svc.StartSession(ctx, "user-1", model.SourceCustom, testItems(3), nil)

		require.NoError(t, err)
		require.NotNil(t, session)
		assert.NotEqual(t, uuid.Nil, session.SessionID)
		assert.Equal(t, "user-1", session.UserID)
		assert.Len(t, session.Items, 3)
		assert.False(t, session.Completed)
		assert.Equal(t, 0, session.CorrectCount)
		assert.Equal(t, 0, session.IncorrectCount)
		assert.NotNil(t, session.Items[0].StartedAt)
		assert.Nil(t, session.Items[1].StartedAt)

		current, ok := svc.CurrentSessionID()
		assert.True(t, ok)
		assert.Equal(t, session.SessionID, current)
	})

	t.Run("異常系: 空のアイテムセットはエラー", func(t *testing.T) {
		svc := newTestService(t)

		session, err := svc.StartSession(ctx, "user-1", model.SourceCustom, nil, nil)

		require.Error(t, err)
		assert.Nil(t, session)
		assert.True(t, errors.Is(err, model.ErrEmptyItemSet))

		_, ok := svc.CurrentSessionID()
		assert.False(t, ok)
	})

	t.Run("正常系: 設定未指定時はデフォルトの音声設定が入る", func(t *testing.T) {
		svc := newTestService(t)

		session, err := svc.StartSession(ctx, "", model.SourceCustom, testItems(1), nil)

		require.NoError(t, err)
		assert.Equal(t, "test-user", session.UserID)
		assert.True(t, session.Settings.VoiceEnabled)
		assert.Equal(t, "ja-JP", session.Settings.VoiceConfig.Language)
		assert.Equal(t, 10000, session.Settings.VoiceConfig.MaxDurationMs)
		assert.Equal(t, 500, session.Settings.VoiceConfig.MinDurationMs)
	})

	t.Run("異常系: 永続化に失敗した場合はセッションが開始されない", func(t *testing.T) {
		mockRepo := mocks.NewSessionRepository(t)
		mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*model.ReviewSession")).
			Return(errors.New("db down")).Once()
		svc := service.NewSessionService(mockRepo, testConfig())

		session, err := svc.StartSession(ctx, "user-1", model.SourceCustom, testItems(1), nil)

		require.Error(t, err)
		assert.Nil(t, session)
		assert.True(t, errors.Is(err, model.ErrPersistence))

		_, ok := svc.CurrentSessionID()
		assert.False(t, ok)
	})
}

func TestSessionService_SubmitAnswer(t *testing.T) {
	ctx := context.Background()

	t.Run("正常系: 正答でカウンタとアイテムが更新される", func(t *testing.T) {
		svc := newTestService(t)
		session, err := svc.StartSession(ctx, "user-1", model.SourceCustom, testItems(2), nil)
		require.NoError(t, err)

		updated, err := svc.SubmitAnswer(ctx, session.SessionID, answerReq(session.Items[0].ItemID, true, model.InputMethodText))

		require.NoError(t, err)
		assert.Equal(t, 1, updated.CorrectCount)
		assert.Equal(t, 0, updated.IncorrectCount)
		item := updated.FindItem(session.Items[0].ItemID)
		require.NotNil(t, item)
		assert.Equal(t, model.ResultCorrect, item.Result)
		assert.NotNil(t, item.AnsweredAt)
		assert.Equal(t, model.InputMethodText, item.InputMethod)
		// 次のアイテムに出題時刻が付く
		assert.NotNil(t, updated.Items[1].StartedAt)
		assert.False(t, updated.Completed)
	})

	t.Run("異常系: アクティブなセッションが無い場合はエラー", func(t *testing.T) {
		svc := newTestService(t)

		_, err := svc.SubmitAnswer(ctx, uuid.New(), answerReq(uuid.New(), true, model.InputMethodText))

		require.Error(t, err)
		assert.True(t, errors.Is(err, model.ErrNoActiveSession))
	})

	t.Run("異常系: 回答済みアイテムへの再回答は競合エラーになり記録は変わらない", func(t *testing.T) {
		svc := newTestService(t)
		session, err := svc.StartSession(ctx, "user-1", model.SourceCustom, testItems(2), nil)
		require.NoError(t, err)
		itemID := session.Items[0].ItemID

		_, err = svc.SubmitAnswer(ctx, session.SessionID, answerReq(itemID, true, model.InputMethodText))
		require.NoError(t, err)

		_, err = svc.SubmitAnswer(ctx, session.SessionID, answerReq(itemID, false, model.InputMethodText))
		require.Error(t, err)
		assert.True(t, errors.Is(err, model.ErrConflict))

		// 最初の回答が保持されている
		got, err := svc.GetSession(ctx, session.SessionID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.CorrectCount)
		assert.Equal(t, 0, got.IncorrectCount)
		assert.Equal(t, model.ResultCorrect, got.FindItem(itemID).Result)
	})

	t.Run("異常系: セッションに存在しないアイテムはエラー", func(t *testing.T) {
		svc := newTestService(t)
		session, err := svc.StartSession(ctx, "user-1", model.SourceCustom, testItems(1), nil)
		require.NoError(t, err)

		_, err = svc.SubmitAnswer(ctx, session.SessionID, answerReq(uuid.New(), true, model.InputMethodText))

		require.Error(t, err)
		assert.True(t, errors.Is(err, model.ErrItemNotFound))
	})

	t.Run("異常系: 永続化失敗時はカウンタが進まない", func(t *testing.T) {
		mockRepo := mocks.NewSessionRepository(t)
		mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*model.ReviewSession")).Return(nil).Once()
		svc := service.NewSessionService(mockRepo, testConfig())

		session, err := svc.StartSession(ctx, "user-1", model.SourceCustom, testItems(2), nil)
		require.NoError(t, err)
		itemID := session.Items[0].ItemID

		mockRepo.On("Get", mock.Anything, session.SessionID).Return(session, nil).Once()
		mockRepo.On("Update", mock.Anything, mock.AnythingOfType("*model.ReviewSession")).
			Return(errors.New("db down")).Once()

		_, err = svc.SubmitAnswer(ctx, session.SessionID, answerReq(itemID, true, model.InputMethodText))
		require.Error(t, err)
		assert.True(t, errors.Is(err, model.ErrPersistence))

		// リポジトリに保持されているオブジェクトは汚染されていない
		assert.Equal(t, 0, session.CorrectCount)
		assert.Equal(t, 0, session.IncorrectCount)
		assert.False(t, session.FindItem(itemID).Answered())
	})

	t.Run("正常系: 全問回答で完了しスコアが計算される", func(t *testing.T) {
		// 3問中2問正解 → round(100 * 2/3) = 67
		svc := newTestService(t)
		session, err := svc.StartSession(ctx, "user-1", model.SourceCustom, testItems(3), nil)
		require.NoError(t, err)

		_, err = svc.SubmitAnswer(ctx, session.SessionID, answerReq(session.Items[0].ItemID, true, model.InputMethodText))
		require.NoError(t, err)
		_, err = svc.SubmitAnswer(ctx, session.SessionID, answerReq(session.Items[1].ItemID, false, model.InputMethodText))
		require.NoError(t, err)
		updated, err := svc.SubmitAnswer(ctx, session.SessionID, answerReq(session.Items[2].ItemID, true, model.InputMethodText))
		require.NoError(t, err)

		assert.True(t, updated.Completed)
		require.NotNil(t, updated.EndedAt)
		assert.Equal(t, 2, updated.CorrectCount)
		assert.Equal(t, 1, updated.IncorrectCount)
		require.NotNil(t, updated.Score)
		assert.Equal(t, 67, *updated.Score)
	})
}

func TestSessionService_VoiceStats(t *testing.T) {
	ctx := context.Background()

	t.Run("正常系: 信頼度の逐次平均が正しく計算される", func(t *testing.T) {
		svc := newTestService(t)
		session, err := svc.StartSession(ctx, "user-1", model.SourceCustom, testItems(3), nil)
		require.NoError(t, err)

		confidences := []float64{0.8, 0.6, 1.0}
		wantAverages := []float64{0.8, 0.7, 0.8}

		for i, conf := range confidences {
			req := answerReq(session.Items[i].ItemID, true, model.InputMethodVoice)
			req.VoiceConfidence = f64Ptr(conf)
			updated, err := svc.SubmitAnswer(ctx, session.SessionID, req)
			require.NoError(t, err)
			assert.InDelta(t, wantAverages[i], updated.VoiceStats.AverageConfidence, 1e-9)
			assert.Equal(t, i+1, updated.VoiceStats.VoiceAnswerCount)
		}
	})

	t.Run("正常系: 信頼度なしの音声回答は平均の母数に含まれない", func(t *testing.T) {
		svc := newTestService(t)
		session, err := svc.StartSession(ctx, "user-1", model.SourceCustom, testItems(2), nil)
		require.NoError(t, err)

		// 信頼度なしの音声回答
		_, err = svc.SubmitAnswer(ctx, session.SessionID, answerReq(session.Items[0].ItemID, true, model.InputMethodVoice))
		require.NoError(t, err)

		req := answerReq(session.Items[1].ItemID, true, model.InputMethodVoice)
		req.VoiceConfidence = f64Ptr(0.9)
		updated, err := svc.SubmitAnswer(ctx, session.SessionID, req)
		require.NoError(t, err)

		assert.Equal(t, 2, updated.VoiceStats.VoiceAnswerCount)
		assert.Equal(t, 1, updated.VoiceStats.ConfidenceSamples)
		assert.InDelta(t, 0.9, updated.VoiceStats.AverageConfidence, 1e-9)
	})

	t.Run("正常系: テキスト回答は音声統計の平均に影響しない", func(t *testing.T) {
		svc := newTestService(t)
		session, err := svc.StartSession(ctx, "user-1", model.SourceCustom, testItems(3), nil)
		require.NoError(t, err)

		req := answerReq(session.Items[0].ItemID, true, model.InputMethodVoice)
		req.VoiceConfidence = f64Ptr(0.9)
		req.UserAnswer = strPtr("dog")
		_, err = svc.SubmitAnswer(ctx, session.SessionID, req)
		require.NoError(t, err)

		updated, err := svc.SubmitAnswer(ctx, session.SessionID, answerReq(session.Items[1].ItemID, true, model.InputMethodText))
		require.NoError(t, err)

		assert.Equal(t, 1, updated.VoiceStats.VoiceAnswerCount)
		assert.Equal(t, 1, updated.VoiceStats.TextAnswerCount)
		assert.InDelta(t, 0.9, updated.VoiceStats.AverageConfidence, 1e-9)
	})

	t.Run("正常系: 音声入力の失敗回数が記録される", func(t *testing.T) {
		svc := newTestService(t)
		session, err := svc.StartSession(ctx, "user-1", model.SourceCustom, testItems(1), nil)
		require.NoError(t, err)

		updated, err := svc.RecordVoiceFailure(ctx, session.SessionID)
		require.NoError(t, err)
		assert.Equal(t, 1, updated.VoiceStats.FailureCount)

		updated, err = svc.RecordVoiceFailure(ctx, session.SessionID)
		require.NoError(t, err)
		assert.Equal(t, 2, updated.VoiceStats.FailureCount)
	})
}

func TestSessionService_EndSession(t *testing.T) {
	ctx := context.Background()

	t.Run("正常系: 途中終了では完了になるがスコアは付かない", func(t *testing.T) {
		svc := newTestService(t)
		session, err := svc.StartSession(ctx, "user-1", model.SourceCustom, testItems(3), nil)
		require.NoError(t, err)

		_, err = svc.SubmitAnswer(ctx, session.SessionID, answerReq(session.Items[0].ItemID, true, model.InputMethodText))
		require.NoError(t, err)

		ended, err := svc.EndSession(ctx, session.SessionID)
		require.NoError(t, err)
		require.NotNil(t, ended)
		assert.True(t, ended.Completed)
		assert.NotNil(t, ended.EndedAt)
		assert.Nil(t, ended.Score)
	})

	t.Run("正常系: アクティブなセッションが無ければ何もしない", func(t *testing.T) {
		svc := newTestService(t)

		ended, err := svc.EndSession(ctx, uuid.New())

		assert.NoError(t, err)
		assert.Nil(t, ended)
	})

	t.Run("正常系: 完了済みセッションの再終了は冪等", func(t *testing.T) {
		svc := newTestService(t)
		session, err := svc.StartSession(ctx, "user-1", model.SourceCustom, testItems(1), nil)
		require.NoError(t, err)

		first, err := svc.SubmitAnswer(ctx, session.SessionID, answerReq(session.Items[0].ItemID, true, model.InputMethodText))
		require.NoError(t, err)
		require.True(t, first.Completed)

		ended, err := svc.EndSession(ctx, session.SessionID)
		require.NoError(t, err)
		require.NotNil(t, ended)
		assert.Equal(t, first.EndedAt.Unix(), ended.EndedAt.Unix())
		require.NotNil(t, ended.Score)
		assert.Equal(t, 100, *ended.Score)
	})
}

func TestSessionService_Progress(t *testing.T) {
	ctx := context.Background()

	t.Run("正常系: 進捗はアイテムの状態から算出される", func(t *testing.T) {
		svc := newTestService(t)
		session, err := svc.StartSession(ctx, "user-1", model.SourceCustom, testItems(3), nil)
		require.NoError(t, err)

		_, err = svc.SubmitAnswer(ctx, session.SessionID, answerReq(session.Items[0].ItemID, true, model.InputMethodText))
		require.NoError(t, err)
		_, err = svc.SubmitAnswer(ctx, session.SessionID, answerReq(session.Items[1].ItemID, false, model.InputMethodText))
		require.NoError(t, err)

		progress, err := svc.GetProgress(ctx, session.SessionID)
		require.NoError(t, err)
		assert.Equal(t, 3, progress.TotalItems)
		assert.Equal(t, 2, progress.CompletedItems)
		assert.Equal(t, 1, progress.CorrectAnswers)
		assert.Equal(t, 1, progress.IncorrectAnswers)
		assert.GreaterOrEqual(t, progress.AverageTimeMs, 0.0)
	})

	t.Run("異常系: 存在しないセッションはエラー", func(t *testing.T) {
		svc := newTestService(t)

		_, err := svc.GetProgress(ctx, uuid.New())

		require.Error(t, err)
		assert.True(t, errors.Is(err, model.ErrNotFound))
	})
}

func TestSessionService_ClearSession(t *testing.T) {
	ctx := context.Background()

	t.Run("正常系: クリア後は回答できないがデータは残る", func(t *testing.T) {
		svc := newTestService(t)
		session, err := svc.StartSession(ctx, "user-1", model.SourceCustom, testItems(1), nil)
		require.NoError(t, err)

		svc.ClearSession()

		_, ok := svc.CurrentSessionID()
		assert.False(t, ok)

		_, err = svc.SubmitAnswer(ctx, session.SessionID, answerReq(session.Items[0].ItemID, true, model.InputMethodText))
		require.Error(t, err)
		assert.True(t, errors.Is(err, model.ErrNoActiveSession))

		// データ自体は取得できる
		got, err := svc.GetSession(ctx, session.SessionID)
		require.NoError(t, err)
		assert.Equal(t, session.SessionID, got.SessionID)
	})
}

func TestSessionService_UserData(t *testing.T) {
	ctx := context.Background()

	t.Run("正常系: エクスポートに全セッションと集計が含まれる", func(t *testing.T) {
		svc := newTestService(t)

		s1, err := svc.StartSession(ctx, "user-1", model.SourceCustom, testItems(2), nil)
		require.NoError(t, err)
		_, err = svc.SubmitAnswer(ctx, s1.SessionID, answerReq(s1.Items[0].ItemID, true, model.InputMethodText))
		require.NoError(t, err)
		_, err = svc.SubmitAnswer(ctx, s1.SessionID, answerReq(s1.Items[1].ItemID, false, model.InputMethodText))
		require.NoError(t, err)

		s2, err := svc.StartSession(ctx, "user-1", model.SourceCustom, testItems(1), nil)
		require.NoError(t, err)
		_, err = svc.SubmitAnswer(ctx, s2.SessionID, answerReq(s2.Items[0].ItemID, true, model.InputMethodText))
		require.NoError(t, err)

		export, err := svc.ExportUserData(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, 2, export.TotalSessions)
		assert.Equal(t, 2, export.TotalCorrect)
		assert.Equal(t, 1, export.TotalIncorrect)
		assert.Len(t, export.Sessions, 2)
	})

	t.Run("正常系: 削除後は一覧が空になる", func(t *testing.T) {
		svc := newTestService(t)

		s1, err := svc.StartSession(ctx, "user-1", model.SourceCustom, testItems(1), nil)
		require.NoError(t, err)

		err = svc.DeleteUserData(ctx, "user-1")
		require.NoError(t, err)

		sessions, err := svc.ListUserSessions(ctx, "user-1")
		require.NoError(t, err)
		assert.Empty(t, sessions)

		_, err = svc.GetSession(ctx, s1.SessionID)
		require.Error(t, err)
		assert.True(t, errors.Is(err, model.ErrNotFound))
	})
}

func TestSessionService_MarkItemPresented(t *testing.T) {
	ctx := context.Background()

	t.Run("正常系: 出題時刻は一度だけ記録される", func(t *testing.T) {
		svc := newTestService(t)
		session, err := svc.StartSession(ctx, "user-1", model.SourceCustom, testItems(2), nil)
		require.NoError(t, err)
		itemID := session.Items[1].ItemID

		err = svc.MarkItemPresented(ctx, session.SessionID, itemID)
		require.NoError(t, err)

		got, err := svc.GetSession(ctx, session.SessionID)
		require.NoError(t, err)
		first := got.FindItem(itemID).StartedAt
		require.NotNil(t, first)

		// 2回目の呼び出しでは時刻が変わらない
		err = svc.MarkItemPresented(ctx, session.SessionID, itemID)
		require.NoError(t, err)
		got, err = svc.GetSession(ctx, session.SessionID)
		require.NoError(t, err)
		assert.Equal(t, *first, *got.FindItem(itemID).StartedAt)
	})
}
