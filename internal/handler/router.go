package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/eventman/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// イベント
	EventService    EventServiceInterface
	FavoriteMarker  FavoriteMarkerInterface
	FavoriteService FavoriteServiceInterface

	// 認証
	AuthService AuthServiceInterface

	// メトリクス公開用ハンドラー（nilの場合は/metricsを公開しない）
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → CORS → RateLimit
//
// /healthz と /metrics はレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware(deps.Logger))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	eventHandler := NewEventHandler(deps.EventService, deps.FavoriteMarker)
	favoriteHandler := NewFavoriteHandler(deps.FavoriteService, deps.EventService)
	authHandler := NewAuthHandler(deps.AuthService)

	// ヘルスチェック
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheusスクレイプ
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	r.Group(func(r chi.Router) {
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.Middleware())
		}

		// イベント検索・取得
		r.Route("/api/events", func(r chi.Router) {
			r.Get("/", eventHandler.ListEvents)
			r.Get("/{id}", eventHandler.GetEvent)
		})

		// お気に入り管理
		r.Route("/api/favorites", func(r chi.Router) {
			r.Get("/", favoriteHandler.ListFavorites)
			r.Post("/{id}/toggle", favoriteHandler.ToggleFavorite)
		})

		// 認証
		r.Route("/api/auth", func(r chi.Router) {
			r.Post("/login", authHandler.SignIn)
			r.Post("/register", authHandler.Register)
			r.Post("/reset-password", authHandler.ResetPassword)
			r.Post("/logout", authHandler.SignOut)
			r.Get("/me", authHandler.Me)
		})
	})

	return r
}
