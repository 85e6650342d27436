package webutil

import (
	"encoding/json"
	"net/http"

	"voice_kani/internal/model"
)

// DecodeJSONBody はリクエストボディをデコードします
func DecodeJSONBody(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return model.NewAppError("INVALID_INPUT", "リクエストボディがありません。", "", model.ErrInvalidInput)
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return model.NewAppError("INVALID_INPUT", "リクエストボディの形式が不正です。", "", model.ErrInvalidInput)
	}
	return nil
}
