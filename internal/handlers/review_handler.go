// internal/handlers/review_handler.go
package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"voice_kani/internal/config"
	"voice_kani/internal/middleware"
	"voice_kani/internal/model"
	"voice_kani/internal/service"
	"voice_kani/internal/wanikani"
	"voice_kani/internal/webutil"

	"github.com/go-chi/chi/v5"
)

// ReviewHandler はWaniKani連携（復習アイテムの取得と結果送信）のハンドラです。
type ReviewHandler struct {
	client  *wanikani.Client
	service service.SessionService
	logger  *slog.Logger
}

func NewReviewHandler(client *wanikani.Client, s service.SessionService, logger *slog.Logger) *ReviewHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReviewHandler{
		client:  client,
		service: s,
		logger:  logger,
	}
}

// GetDueItems は復習可能なアイテムをWaniKani APIから取得するためのハンドラ
func (h *ReviewHandler) GetDueItems(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "GetDueItems"))

	limit := config.Cfg.App.ReviewLimit
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n <= 0 {
			webutil.HandleError(w, logger, model.NewAppError("INVALID_LIMIT", "limitは正の整数で指定してください。", "limit", model.ErrInvalidInput))
			return
		}
		limit = n
	}

	items, err := h.client.FetchDueItems(r.Context(), limit)
	if err != nil {
		logger.Error("Failed to fetch due items from WaniKani", slog.Any("error", err))
		webutil.HandleError(w, logger, model.NewAppError("UPSTREAM_ERROR", "WaniKani APIからの取得に失敗しました。", "", model.ErrInternalServer))
		return
	}

	logger.Info("Due items fetched", slog.Int("count", len(items)))
	webutil.RespondWithJSON(w, http.StatusOK, items, logger)
}

// StartWaniKaniSession は復習可能なアイテムを取得し、そのままセッションを開始します
func (h *ReviewHandler) StartWaniKaniSession(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "StartWaniKaniSession"))

	items, err := h.client.FetchDueItems(r.Context(), config.Cfg.App.ReviewLimit)
	if err != nil {
		logger.Error("Failed to fetch due items from WaniKani", slog.Any("error", err))
		webutil.HandleError(w, logger, model.NewAppError("UPSTREAM_ERROR", "WaniKani APIからの取得に失敗しました。", "", model.ErrInternalServer))
		return
	}

	userID := middleware.GetUserID(r.Context())
	session, err := h.service.StartSession(r.Context(), userID, model.SourceWaniKani, items, nil)
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("WaniKani session started", slog.String("session_id", session.SessionID.String()), slog.Int("item_count", len(items)))
	webutil.RespondWithJSON(w, http.StatusCreated, session, logger)
}

type submitResultRequest struct {
	IncorrectMeaningAnswers int `json:"incorrect_meaning_answers" validate:"gte=0"`
	IncorrectReadingAnswers int `json:"incorrect_reading_answers" validate:"gte=0"`
}

// SubmitResult は復習結果をWaniKani APIに送信するためのハンドラ
func (h *ReviewHandler) SubmitResult(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "SubmitResult"))

	reviewID := chi.URLParam(r, "review_id")
	if reviewID == "" {
		webutil.HandleError(w, logger, model.NewAppError("INVALID_REVIEW_ID", "review_idは必須です。", "review_id", model.ErrInvalidInput))
		return
	}

	var req submitResultRequest
	if err := webutil.DecodeJSONBody(r, &req); err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	if err := h.client.SubmitResult(r.Context(), reviewID, req.IncorrectMeaningAnswers, req.IncorrectReadingAnswers); err != nil {
		logger.Error("Failed to submit result to WaniKani", slog.Any("error", err), slog.String("review_id", reviewID))
		webutil.HandleError(w, logger, model.NewAppError("UPSTREAM_ERROR", "WaniKani APIへの送信に失敗しました。", "", model.ErrInternalServer))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
