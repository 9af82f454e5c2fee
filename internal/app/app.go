// Package app はアプリケーションの起動と依存関係のワイヤリングを提供する。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/eventman/internal/auth"
	"github.com/hitoshi/eventman/internal/config"
	"github.com/hitoshi/eventman/internal/database"
	"github.com/hitoshi/eventman/internal/events"
	"github.com/hitoshi/eventman/internal/favorites"
	"github.com/hitoshi/eventman/internal/handler"
	"github.com/hitoshi/eventman/internal/logger"
	"github.com/hitoshi/eventman/internal/metrics"
	"github.com/hitoshi/eventman/internal/middleware"
	"github.com/hitoshi/eventman/internal/repository"
	"github.com/hitoshi/eventman/internal/security"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 設定読み込み前にログを使えるようにする
	logger.SetupDefault(w)

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("events_api", cfg.EventsAPIBaseURL),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はローカルゲートウェイモードで起動する。
// お気に入りストアを開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. 外部URLの事前検証
	guard := security.NewOutboundGuard()
	if err := guard.ValidateBaseURL(cfg.EventsAPIBaseURL); err != nil {
		return fmt.Errorf("invalid events API base URL: %w", err)
	}
	if cfg.IdentityAPIBaseURL != "" {
		if err := guard.ValidateBaseURL(cfg.IdentityAPIBaseURL); err != nil {
			return fmt.Errorf("invalid identity API base URL: %w", err)
		}
	}

	// 2. お気に入りストアの準備
	if err := database.RunMigrations(cfg.FavoritesDBPath); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	db, err := database.Open(cfg.FavoritesDBPath)
	if err != nil {
		return fmt.Errorf("failed to open favorites store: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to favorites store: %w", err)
	}

	slog.Info("favorites store opened", slog.String("path", cfg.FavoritesDBPath))

	// 3. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 4. イベント取得クライアントの構築
	sanitizer := security.NewDescriptionSanitizer()
	codec := events.NewCodec(sanitizer)
	safeClient := guard.NewSafeClient(cfg.FetchTimeout)
	limiter := rate.NewLimiter(rate.Limit(cfg.OutboundRate), cfg.OutboundBurst)

	eventClient := events.NewClient(
		safeClient, codec, slog.Default(), collector, limiter,
		cfg.EventsAPIBaseURL, cfg.FetchMaxSize,
	)

	// 5. お気に入りサービスの構築
	favoriteRepo := repository.NewSQLiteFavoriteRepo(db)
	favoriteService := favorites.NewService(favoriteRepo, slog.Default(), collector)

	// 6. 認証サービスの構築
	// IdentityAPIBaseURL未設定の場合もプロバイダは構築する（呼び出し時に失敗する）
	identityProvider := auth.NewRemoteProvider(
		guard.NewSafeClient(cfg.FetchTimeout), slog.Default(), cfg.IdentityAPIBaseURL,
	)
	authService := auth.NewService(identityProvider, slog.Default())

	// 7. ルーターの構築
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	rateLimiterCfg.Rate = rate.Limit(float64(cfg.RateLimitPerMinute) / 60.0)
	rateLimiterCfg.Burst = cfg.RateLimitPerMinute
	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		Logger:            slog.Default(),
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,

		EventService:    eventClient,
		FavoriteMarker:  favoriteService,
		FavoriteService: favoriteService,

		AuthService: authService,

		MetricsHandler: metrics.Handler(registry),
	}

	router := handler.NewRouter(deps)

	// 8. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("gateway starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down gateway...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("gateway stopped gracefully")
	return nil
}

// runMigrate はお気に入りストアのマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running favorites store migrations",
		slog.String("path", cfg.FavoritesDBPath),
	)

	if err := database.RunMigrations(cfg.FavoritesDBPath); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("favorites store migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /healthz エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/healthz", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}
