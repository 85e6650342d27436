// internal/handlers/user_handler.go
package handlers

import (
	"log/slog"
	"net/http"

	"voice_kani/internal/middleware"
	"voice_kani/internal/model"
	"voice_kani/internal/service"
	"voice_kani/internal/webutil"
)

// UserHandler はユーザーデータ（一覧・出力・削除）のハンドラです。
// 認証は持たないため、対象ユーザーは X-User-ID ヘッダーで指定します。
type UserHandler struct {
	service service.SessionService
	logger  *slog.Logger
}

func NewUserHandler(s service.SessionService, logger *slog.Logger) *UserHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserHandler{
		service: s,
		logger:  logger,
	}
}

// ListSessions はユーザーのセッション履歴を取得するためのハンドラ
func (h *UserHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "ListSessions"))

	userID := middleware.GetUserID(r.Context())
	sessions, err := h.service.ListUserSessions(r.Context(), userID)
	if err != nil {
		logger.Error("Error listing sessions in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	if sessions == nil {
		sessions = []*model.ReviewSession{}
	}
	webutil.RespondWithJSON(w, http.StatusOK, sessions, logger)
}

// ExportData はユーザーの全データをJSONで出力するためのハンドラ
func (h *UserHandler) ExportData(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "ExportData"))

	userID := middleware.GetUserID(r.Context())
	export, err := h.service.ExportUserData(r.Context(), userID)
	if err != nil {
		logger.Error("Error exporting user data in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	w.Header().Set("Content-Disposition", `attachment; filename="review_data.json"`)
	webutil.RespondWithJSON(w, http.StatusOK, export, logger)
}

// DeleteData はユーザーの全データを削除するためのハンドラ
func (h *UserHandler) DeleteData(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "DeleteData"))

	userID := middleware.GetUserID(r.Context())
	if err := h.service.DeleteUserData(r.Context(), userID); err != nil {
		logger.Error("Error deleting user data in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("User data deleted successfully", slog.String("user_id", userID))
	w.WriteHeader(http.StatusNoContent)
}
