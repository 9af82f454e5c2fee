// Package favorites はお気に入りの登録・解除とその読み取りを提供する。
package favorites

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/eventman/internal/model"
	"github.com/hitoshi/eventman/internal/repository"
)

// ToggleMetrics はお気に入り操作のメトリクス記録インターフェース。
type ToggleMetrics interface {
	RecordFavoriteToggle(added bool)
}

// Service はお気に入りのトグルと参照を提供するインターフェース。
type Service interface {
	// Toggle はイベントのお気に入り状態を反転する。
	// 未登録なら現時点のスナップショットを保存してtrueを、
	// 登録済みなら記録を削除してfalseを返す。
	Toggle(ctx context.Context, event model.Event) (bool, error)

	// IsFavorite は指定イベントIDがお気に入り登録済みかを返す。
	IsFavorite(ctx context.Context, eventID int64) (bool, error)

	// List は全お気に入りをイベントとして登録日時の降順で返す。
	// 読み取りに失敗した場合はエラーを伝播せず空のリストを返す。
	List(ctx context.Context) []model.Event

	// MarkFavorites はイベント列のIsFavoriteフラグをローカルの
	// 登録状態に合わせて更新した新しいスライスを返す。
	// 読み取りに失敗した場合は全件未登録として扱う。
	MarkFavorites(ctx context.Context, events []model.Event) []model.Event
}

type service struct {
	repo    repository.FavoriteRepository
	logger  *slog.Logger
	metrics ToggleMetrics

	// mu はトグルの存在確認と書き込みの間の競合を防ぐ。
	// ストアは単一書き込み者を前提としている。
	mu sync.Mutex

	now func() time.Time
}

// NewService はServiceを生成する。metricsはnilでもよい。
func NewService(repo repository.FavoriteRepository, logger *slog.Logger, metrics ToggleMetrics) Service {
	return &service{
		repo:    repo,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

func (s *service) Toggle(ctx context.Context, event model.Event) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.repo.FindByEventID(ctx, event.ID)
	if err != nil {
		return false, fmt.Errorf("お気に入り状態の確認に失敗しました: %w", err)
	}

	if existing != nil {
		if err := s.repo.DeleteByEventID(ctx, event.ID); err != nil {
			return false, fmt.Errorf("お気に入りの解除に失敗しました: %w", err)
		}
		s.logger.Info("お気に入りを解除しました", slog.Int64("event_id", event.ID))
		s.recordToggle(false)
		return false, nil
	}

	record := model.NewFavoriteRecord(event, s.now())
	if err := s.repo.Put(ctx, record); err != nil {
		return false, fmt.Errorf("お気に入りの登録に失敗しました: %w", err)
	}
	s.logger.Info("お気に入りに登録しました", slog.Int64("event_id", event.ID))
	s.recordToggle(true)
	return true, nil
}

func (s *service) IsFavorite(ctx context.Context, eventID int64) (bool, error) {
	record, err := s.repo.FindByEventID(ctx, eventID)
	if err != nil {
		return false, fmt.Errorf("お気に入り状態の確認に失敗しました: %w", err)
	}
	return record != nil, nil
}

func (s *service) List(ctx context.Context) []model.Event {
	records, err := s.repo.ListAll(ctx)
	if err != nil {
		// ローカルストアの読み取り失敗は致命的ではない。
		// 空のお気に入り一覧として続行する。
		s.logger.Error("お気に入り一覧の読み取りに失敗しました", slog.String("error", err.Error()))
		return []model.Event{}
	}

	events := make([]model.Event, 0, len(records))
	for _, record := range records {
		events = append(events, record.Event())
	}
	return events
}

func (s *service) MarkFavorites(ctx context.Context, events []model.Event) []model.Event {
	records, err := s.repo.ListAll(ctx)
	if err != nil {
		s.logger.Error("お気に入り状態の照合に失敗しました", slog.String("error", err.Error()))
		records = nil
	}

	favoriteIDs := make(map[int64]struct{}, len(records))
	for _, record := range records {
		favoriteIDs[record.EventID] = struct{}{}
	}

	marked := make([]model.Event, len(events))
	for i, event := range events {
		_, ok := favoriteIDs[event.ID]
		event.IsFavorite = ok
		marked[i] = event
	}
	return marked
}

func (s *service) recordToggle(added bool) {
	if s.metrics != nil {
		s.metrics.RecordFavoriteToggle(added)
	}
}
