// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"encoding/json"
	"net/http"
)

// AuthHandler は認証関連のHTTPハンドラー。
// トークン検証そのものは認証ミドルウェアが行うため、
// ここではコンテキストに解決済みのユーザーを返すだけでよい。
type AuthHandler struct{}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler() *AuthHandler {
	return &AuthHandler{}
}

// meResponse はログインユーザー情報のレスポンス。
type meResponse struct {
	ID        int64   `json:"id"`
	GoogleSub string  `json:"googleSub"`
	Email     *string `json:"email"`
	Name      *string `json:"name"`
	Picture   *string `json:"picture"`
}

// Me は現在のログインユーザー情報を返す。
// 初回アクセス時はミドルウェア側のUPSERTでローカルユーザーが作成済みになっている。
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(meResponse{
		ID:        user.ID,
		GoogleSub: user.GoogleSub,
		Email:     user.Email,
		Name:      user.Name,
		Picture:   user.Picture,
	})
}
