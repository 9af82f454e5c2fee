package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/eventman/internal/auth"
	"github.com/hitoshi/eventman/internal/middleware"
	"github.com/hitoshi/eventman/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	SignIn(ctx context.Context, email, password string) (*auth.Identity, error)
	CreateUser(ctx context.Context, email, password, name string) (*auth.Identity, error)
	ResetPassword(ctx context.Context, email string) error
	SignOut(ctx context.Context) error
	CurrentUser(ctx context.Context) (*auth.Identity, error)
}

// AuthHandler は認証関連のHTTPハンドラー。
// 認証処理自体は外部のアイデンティティプロバイダへ委譲する。
type AuthHandler struct {
	service AuthServiceInterface
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface) *AuthHandler {
	return &AuthHandler{service: service}
}

// authRequest は認証リクエストのボディ。
type authRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// identityResponse はサインイン済みユーザーのレスポンス。
type identityResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func decodeAuthRequest(w http.ResponseWriter, r *http.Request) (*authRequest, bool) {
	var req authRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return nil, false
	}
	if req.Email == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "emailを指定してください。",
			Category: "validation",
			Action:   "メールアドレスを指定してください。",
		})
		return nil, false
	}
	return &req, true
}

// SignIn はサインインする。
// POST /api/auth/login
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeAuthRequest(w, r)
	if !ok {
		return
	}

	identity, err := h.service.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(identityResponse(*identity))
}

// Register は新規ユーザーを登録する。
// POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeAuthRequest(w, r)
	if !ok {
		return
	}

	identity, err := h.service.CreateUser(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadGateway, &model.APIError{
			Code:     "UPSTREAM_FAILURE",
			Message:  "ユーザー登録に失敗しました。",
			Category: "auth",
			Action:   "しばらく待ってから再度お試しください。",
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(identityResponse(*identity))
}

// ResetPassword はパスワードリセットを要求する。
// POST /api/auth/reset-password
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeAuthRequest(w, r)
	if !ok {
		return
	}

	if err := h.service.ResetPassword(r.Context(), req.Email); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadGateway, &model.APIError{
			Code:     "UPSTREAM_FAILURE",
			Message:  "パスワードリセットの要求に失敗しました。",
			Category: "auth",
			Action:   "しばらく待ってから再度お試しください。",
		})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SignOut はサインアウトする。
// POST /api/auth/logout
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.service.SignOut(r.Context()); err != nil {
		middleware.WriteInternalServerError(w)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me は現在のユーザーを返す。
// GET /api/auth/me
//
// サインインしていない場合は401を返す。
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, err := h.service.CurrentUser(r.Context())
	if err != nil {
		middleware.WriteInternalServerError(w)
		return
	}
	if identity == nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(identityResponse(*identity))
}
