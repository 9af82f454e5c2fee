package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/eventman/internal/middleware"
	"github.com/hitoshi/eventman/internal/model"
)

// FavoriteServiceInterface はお気に入りハンドラーが必要とするサービスインターフェース。
type FavoriteServiceInterface interface {
	Toggle(ctx context.Context, event model.Event) (bool, error)
	List(ctx context.Context) []model.Event
}

// FavoriteHandler はお気に入り管理のHTTPハンドラー。
type FavoriteHandler struct {
	service FavoriteServiceInterface
	events  EventServiceInterface
}

// NewFavoriteHandler はFavoriteHandlerを生成する。
func NewFavoriteHandler(service FavoriteServiceInterface, eventService EventServiceInterface) *FavoriteHandler {
	return &FavoriteHandler{
		service: service,
		events:  eventService,
	}
}

// toggleResponse はお気に入りトグルのレスポンス。
type toggleResponse struct {
	EventID    int64 `json:"event_id"`
	IsFavorite bool  `json:"is_favorite"`
}

// ListFavorites はお気に入り一覧を取得する。
// GET /api/favorites
//
// ローカルストアの読み取りに失敗した場合もエラーにはならず、空の一覧を返す。
func (h *FavoriteHandler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	favorites := h.service.List(r.Context())

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toEventListResponse(favorites))
}

// ToggleFavorite はイベントのお気に入り状態を反転する。
// POST /api/favorites/:id/toggle
//
// 登録時はリモートから取得した現時点のイベントをスナップショットとして保存する。
func (h *FavoriteHandler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")
	eventID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidEventIDError(raw))
		return
	}

	event, err := h.events.FetchEvent(r.Context(), eventID)
	if err != nil {
		handleFetchError(w, err, eventID)
		return
	}

	favorite, err := h.service.Toggle(r.Context(), *event)
	if err != nil {
		handleFetchError(w, err, eventID)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toggleResponse{
		EventID:    eventID,
		IsFavorite: favorite,
	})
}
