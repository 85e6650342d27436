// internal/handlers/session_handler.go
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"voice_kani/internal/middleware"
	"voice_kani/internal/model"
	"voice_kani/internal/service"
	"voice_kani/internal/webutil"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type SessionHandler struct {
	service service.SessionService
	logger  *slog.Logger
}

func NewSessionHandler(s service.SessionService, logger *slog.Logger) *SessionHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionHandler{
		service: s,
		logger:  logger,
	}
}

// sessionIDFromURL はURLパラメータからセッションIDを取り出します
func sessionIDFromURL(r *http.Request) (uuid.UUID, error) {
	idStr := chi.URLParam(r, "session_id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, model.NewAppError("INVALID_SESSION_ID", "セッションIDの形式が正しくありません。", "session_id", model.ErrInvalidInput)
	}
	return id, nil
}

// validateStruct は共通のバリデーション処理です。エラー時はレスポンスを書き込み true を返します。
func validateStruct(w http.ResponseWriter, logger *slog.Logger, req interface{}) bool {
	if err := webutil.Validator.Struct(req); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			logger.Warn("Validation failed", slog.String("errors", validationErrors.Error()))
			webutil.HandleError(w, logger, webutil.NewValidationErrorResponse(validationErrors))
		} else {
			logger.Error("Unexpected error during validation", slog.Any("error", err))
			webutil.HandleError(w, logger, err)
		}
		return true
	}
	return false
}

// StartSession は新しい復習セッションを開始するためのハンドラ
func (h *SessionHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "StartSession"))

	var req model.StartSessionRequest
	if err := webutil.DecodeJSONBody(r, &req); err != nil {
		logger.Warn("Failed to decode request body", slog.String("error", err.Error()))
		webutil.HandleError(w, logger, err)
		return
	}
	if validateStruct(w, logger, req) {
		return
	}

	userID := req.UserID
	if userID == "" {
		userID = middleware.GetUserID(r.Context())
	}

	items := make([]model.ReviewItem, 0, len(req.Items))
	for _, in := range req.Items {
		items = append(items, in.ToReviewItem())
	}

	session, err := h.service.StartSession(r.Context(), userID, req.Source, items, req.Settings)
	if err != nil {
		logger.Error("Error starting session in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Session started successfully", slog.String("session_id", session.SessionID.String()))
	webutil.RespondWithJSON(w, http.StatusCreated, session, logger)
}

// GetSession はセッションの現在の状態を取得するためのハンドラ
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "GetSession"))

	sessionID, err := sessionIDFromURL(r)
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	session, err := h.service.GetSession(r.Context(), sessionID)
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}
	webutil.RespondWithJSON(w, http.StatusOK, session, logger)
}

// SubmitAnswer は回答を記録するためのハンドラ
func (h *SessionHandler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "SubmitAnswer"))

	sessionID, err := sessionIDFromURL(r)
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}
	logger = logger.With(slog.String("session_id", sessionID.String()))

	var req model.SubmitAnswerRequest
	if err := webutil.DecodeJSONBody(r, &req); err != nil {
		logger.Warn("Failed to decode request body", slog.String("error", err.Error()))
		webutil.HandleError(w, logger, err)
		return
	}
	if validateStruct(w, logger, req) {
		return
	}

	session, err := h.service.SubmitAnswer(r.Context(), sessionID, &req)
	if err != nil {
		logger.Warn("Error submitting answer in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	webutil.RespondWithJSON(w, http.StatusOK, session, logger)
}

// EndSession はセッションを終了するためのハンドラ。冪等に動作します。
func (h *SessionHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "EndSession"))

	sessionID, err := sessionIDFromURL(r)
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	session, err := h.service.EndSession(r.Context(), sessionID)
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}
	if session == nil {
		// アクティブなセッションが無かった場合
		w.WriteHeader(http.StatusNoContent)
		return
	}

	logger.Info("Session ended successfully", slog.String("session_id", session.SessionID.String()))
	webutil.RespondWithJSON(w, http.StatusOK, session, logger)
}

// GetProgress はセッションの進捗サマリを取得するためのハンドラ
func (h *SessionHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "GetProgress"))

	sessionID, err := sessionIDFromURL(r)
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	progress, err := h.service.GetProgress(r.Context(), sessionID)
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}
	webutil.RespondWithJSON(w, http.StatusOK, progress, logger)
}

// MarkItemPresented はアイテムの出題時刻を記録するためのハンドラ
func (h *SessionHandler) MarkItemPresented(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "MarkItemPresented"))

	sessionID, err := sessionIDFromURL(r)
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}
	itemID, err := uuid.Parse(chi.URLParam(r, "item_id"))
	if err != nil {
		webutil.HandleError(w, logger, model.NewAppError("INVALID_ITEM_ID", "アイテムIDの形式が正しくありません。", "item_id", model.ErrInvalidInput))
		return
	}

	if err := h.service.MarkItemPresented(r.Context(), sessionID, itemID); err != nil {
		webutil.HandleError(w, logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RecordVoiceFailure は音声入力の失敗を記録するためのハンドラ
func (h *SessionHandler) RecordVoiceFailure(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "RecordVoiceFailure"))

	sessionID, err := sessionIDFromURL(r)
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	session, err := h.service.RecordVoiceFailure(r.Context(), sessionID)
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}
	webutil.RespondWithJSON(w, http.StatusOK, session.VoiceStats, logger)
}

// ClearCurrentSession は「現在のセッション」参照を破棄するためのハンドラ。
// 永続化済みのセッションデータ自体は削除しません。
func (h *SessionHandler) ClearCurrentSession(w http.ResponseWriter, r *http.Request) {
	h.service.ClearSession()
	w.WriteHeader(http.StatusNoContent)
}

// GetCurrentSession は「現在のセッション」を返すためのハンドラ
func (h *SessionHandler) GetCurrentSession(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "GetCurrentSession"))

	sessionID, ok := h.service.CurrentSessionID()
	if !ok {
		webutil.HandleError(w, logger, model.NewAppError("SESSION_NOT_FOUND", "アクティブなセッションがありません。", "", model.ErrNotFound))
		return
	}

	session, err := h.service.GetSession(r.Context(), sessionID)
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}
	webutil.RespondWithJSON(w, http.StatusOK, session, logger)
}
