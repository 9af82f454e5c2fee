// Package handler はローカルゲートウェイのHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/eventman/internal/events"
	"github.com/hitoshi/eventman/internal/middleware"
	"github.com/hitoshi/eventman/internal/model"
)

// EventServiceInterface はイベントハンドラーが必要とするサービスインターフェース。
type EventServiceInterface interface {
	// FetchEvents は検索条件に合致するイベント一覧を返す。
	FetchEvents(ctx context.Context, query events.Query) ([]model.Event, error)
	// FetchEvent は単一イベントを返す。
	FetchEvent(ctx context.Context, eventID int64) (*model.Event, error)
}

// FavoriteMarkerInterface はイベント一覧へのお気に入りフラグ付与インターフェース。
type FavoriteMarkerInterface interface {
	MarkFavorites(ctx context.Context, evs []model.Event) []model.Event
}

// EventHandler はイベント検索・取得のHTTPハンドラー。
type EventHandler struct {
	service EventServiceInterface
	marker  FavoriteMarkerInterface
}

// NewEventHandler はEventHandlerを生成する。
func NewEventHandler(service EventServiceInterface, marker FavoriteMarkerInterface) *EventHandler {
	return &EventHandler{
		service: service,
		marker:  marker,
	}
}

// --- レスポンス型 ---

// eventResponse はイベントのレスポンス。
// ワイヤ形式のネスト構造をフラットに展開した形で返す。
type eventResponse struct {
	ID           int64    `json:"id"`
	Title        string   `json:"title"`
	Summary      string   `json:"summary"`
	SummaryHTML  string   `json:"summary_html,omitempty"`
	StartDate    string   `json:"start_date"`
	EndDate      string   `json:"end_date"`
	VenueAddress *string  `json:"venue_address,omitempty"`
	Location     *string  `json:"location,omitempty"`
	Duration     int      `json:"duration_minutes"`
	ImageURL     *string  `json:"image_url,omitempty"`
	Price        *float64 `json:"price,omitempty"`
	Stock        int      `json:"stock"`
	Category     *string  `json:"category,omitempty"`
	IsFavorite   bool     `json:"is_favorite"`
}

// eventListResponse はイベント一覧のレスポンス。
type eventListResponse struct {
	Events []eventResponse `json:"events"`
	Count  int             `json:"count"`
}

func toEventResponse(e model.Event) eventResponse {
	return eventResponse{
		ID:           e.ID,
		Title:        e.Title,
		Summary:      e.Summary,
		SummaryHTML:  e.SummaryHTML,
		StartDate:    e.StartDate,
		EndDate:      e.EndDate,
		VenueAddress: e.VenueAddress,
		Location:     e.Location,
		Duration:     e.Duration,
		ImageURL:     e.ImageURL,
		Price:        e.Price,
		Stock:        e.Stock,
		Category:     e.Category,
		IsFavorite:   e.IsFavorite,
	}
}

func toEventListResponse(evs []model.Event) eventListResponse {
	responses := make([]eventResponse, 0, len(evs))
	for _, e := range evs {
		responses = append(responses, toEventResponse(e))
	}
	return eventListResponse{Events: responses, Count: len(responses)}
}

// ListEvents はファセット条件でイベント一覧を検索する。
// GET /api/events?venueCity=xxx&date=xxx&sort=xxx&category=a,b
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	query, apiErr := queryFromRequest(r)
	if apiErr != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	result, err := h.service.FetchEvents(r.Context(), query)
	if err != nil {
		handleListFetchError(w, err)
		return
	}

	result = h.marker.MarkFavorites(r.Context(), result)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toEventListResponse(result))
}

// GetEvent は単一イベントを取得する。
// GET /api/events/:id
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")
	eventID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidEventIDError(raw))
		return
	}

	event, err := h.service.FetchEvent(r.Context(), eventID)
	if err != nil {
		handleFetchError(w, err, eventID)
		return
	}

	marked := h.marker.MarkFavorites(r.Context(), []model.Event{*event})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toEventResponse(marked[0]))
}

// queryFromRequest はリクエストのクエリパラメータから検索条件を構築する。
func queryFromRequest(r *http.Request) (events.Query, *model.APIError) {
	params := r.URL.Query()

	query := events.Query{
		Location: events.LocationAnywhere,
		Date:     events.DateAnytime,
	}

	if v := params.Get("venueCity"); v != "" {
		query.Location = v
	}
	if v := params.Get("date"); v != "" {
		query.Date = v
	}
	if v := params.Get("sort"); v != "" {
		sort, ok := events.SortOptionFromToken(v)
		if !ok {
			return events.Query{}, &model.APIError{
				Code:     "INVALID_SORT_OPTION",
				Message:  "不正なソート指定です: " + v,
				Category: "validation",
				Action:   "price_asc, price_desc, date_asc, date_desc のいずれかを指定してください。",
			}
		}
		query.Sort = sort
	}
	if v := params.Get("category"); v != "" {
		query.Categories = splitCategories(v)
	}

	return query, nil
}

// splitCategories はカンマ区切りのカテゴリ指定を分割する。指定順を保持する。
func splitCategories(raw string) []string {
	var categories []string
	for _, c := range strings.Split(raw, ",") {
		if c != "" {
			categories = append(categories, c)
		}
	}
	return categories
}

// --- 共通ヘルパー ---

// handleFetchError は単一イベント取得のエラーをHTTPステータスコードに変換する。
// リモートの404は対象イベントの未検出として404を返す。
func handleFetchError(w http.ResponseWriter, err error, eventID int64) {
	var fetchErr *model.FetchError
	if errors.As(err, &fetchErr) {
		if fetchErr.Kind == model.FetchErrorInvalidResponse && fetchErr.StatusCode == http.StatusNotFound {
			middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewEventNotFoundError(eventID))
			return
		}
		writeUpstreamFailure(w, fetchErr)
		return
	}

	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// handleListFetchError は一覧取得のエラーをHTTPステータスコードに変換する。
// 一覧パスには「見つからない単一リソース」が存在しないため、
// リモートの404も他の非2xxと同様に上流障害として扱う。
func handleListFetchError(w http.ResponseWriter, err error) {
	var fetchErr *model.FetchError
	if errors.As(err, &fetchErr) {
		writeUpstreamFailure(w, fetchErr)
		return
	}

	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// writeUpstreamFailure はエラー種別に応じた上流障害レスポンスを書き込む。
// 非2xxステータスとトランスポート障害は502、スキーマ不一致や空ボディは500を返す。
func writeUpstreamFailure(w http.ResponseWriter, fetchErr *model.FetchError) {
	switch fetchErr.Kind {
	case model.FetchErrorInvalidResponse, model.FetchErrorUnknown:
		middleware.WriteErrorResponse(w, http.StatusBadGateway, model.NewUpstreamFailureError(fetchErr))
	default:
		middleware.WriteErrorResponse(w, http.StatusInternalServerError, model.NewUpstreamFailureError(fetchErr))
	}
}
