// Package browse はイベント一覧・詳細画面のビューモデルを提供する。
//
// ビューモデルが公開する状態はUIスレッド上でのみ変更される。
// バックグラウンドでのフェッチ完了はDispatcher経由でUIスレッドへ
// 引き渡されてから状態に反映される。
package browse

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/hitoshi/eventman/internal/events"
	"github.com/hitoshi/eventman/internal/favorites"
	"github.com/hitoshi/eventman/internal/model"
)

// EventFetcher はイベント取得のインターフェース。
type EventFetcher interface {
	FetchEvents(ctx context.Context, query events.Query) ([]model.Event, error)
	FetchEvent(ctx context.Context, eventID int64) (*model.Event, error)
}

// Dispatcher は関数をUIスレッド上で実行する。
// テストでは同期実行する実装を注入できる。
type Dispatcher func(fn func())

// SyncDispatcher は呼び出し元のゴルーチンで即座に実行するDispatcher。
func SyncDispatcher(fn func()) { fn() }

// ListState はイベント一覧画面の公開状態を表す。
type ListState struct {
	Events       []model.Event
	IsLoading    bool
	ErrorMessage string
}

// ListViewModel はファセット状態と取得結果を管理する。
//
// 状態遷移は Idle → Loading → {Loaded, Failed} で、ファセット変更により
// LoadedやFailedからもLoadingへ再遷移する。複数のフェッチが同時に
// 進行した場合、最後に発行したフェッチの結果のみが状態に反映される
// （発行順で勝敗を決める。完了順ではない）。
type ListViewModel struct {
	fetcher   EventFetcher
	favorites favorites.Service
	logger    *slog.Logger
	dispatch  Dispatcher

	mu         sync.Mutex
	state      ListState
	query      events.Query
	generation uint64
	observer   func(ListState)
}

// NewListViewModel はListViewModelを生成する。
// ファセットは全て未指定のセンチネル値で初期化される。
func NewListViewModel(fetcher EventFetcher, favoritesService favorites.Service, logger *slog.Logger, dispatch Dispatcher) *ListViewModel {
	return &ListViewModel{
		fetcher:   fetcher,
		favorites: favoritesService,
		logger:    logger,
		dispatch:  dispatch,
		query: events.Query{
			Location: events.LocationAnywhere,
			Date:     events.DateAnytime,
			Sort:     events.SortNone,
		},
	}
}

// SetObserver は状態変化の通知先を設定する。
// 通知はDispatcher上で行われる。
func (vm *ListViewModel) SetObserver(observer func(ListState)) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.observer = observer
}

// State は現在の公開状態のコピーを返す。
func (vm *ListViewModel) State() ListState {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.snapshotLocked()
}

// Query は現在のファセット状態のコピーを返す。
func (vm *ListViewModel) Query() events.Query {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	q := vm.query
	q.Categories = append([]string(nil), vm.query.Categories...)
	return q
}

// SetLocation は場所ファセットを変更し、再フェッチを発行する。
func (vm *ListViewModel) SetLocation(ctx context.Context, location string) {
	vm.mu.Lock()
	vm.query.Location = location
	vm.mu.Unlock()
	vm.Refresh(ctx)
}

// SetDate は日付ファセットを変更し、再フェッチを発行する。
func (vm *ListViewModel) SetDate(ctx context.Context, date string) {
	vm.mu.Lock()
	vm.query.Date = date
	vm.mu.Unlock()
	vm.Refresh(ctx)
}

// SetCategories はカテゴリファセットを変更し、再フェッチを発行する。
// カテゴリの順序は呼び出し元の指定順を保持する。
func (vm *ListViewModel) SetCategories(ctx context.Context, categories []string) {
	vm.mu.Lock()
	vm.query.Categories = append([]string(nil), categories...)
	vm.mu.Unlock()
	vm.Refresh(ctx)
}

// SetSort はソートファセットを変更し、再フェッチを発行する。
func (vm *ListViewModel) SetSort(ctx context.Context, sort events.SortOption) {
	vm.mu.Lock()
	vm.query.Sort = sort
	vm.mu.Unlock()
	vm.Refresh(ctx)
}

// Refresh は現在のファセット状態でフェッチを発行する。
// 先行する未完了フェッチの結果は破棄される。
func (vm *ListViewModel) Refresh(ctx context.Context) {
	vm.mu.Lock()
	vm.generation++
	issued := vm.generation
	query := vm.query
	query.Categories = append([]string(nil), vm.query.Categories...)
	vm.state.IsLoading = true
	vm.state.ErrorMessage = ""
	vm.mu.Unlock()

	vm.publish()

	go vm.fetch(ctx, issued, query)
}

func (vm *ListViewModel) fetch(ctx context.Context, issued uint64, query events.Query) {
	fetched, err := vm.fetcher.FetchEvents(ctx, query)
	if err == nil {
		fetched = vm.favorites.MarkFavorites(ctx, fetched)
	}

	vm.dispatch(func() {
		vm.mu.Lock()
		if issued != vm.generation {
			// 後続のフェッチに追い越された結果は破棄する
			vm.mu.Unlock()
			return
		}

		if err != nil {
			vm.state.Events = nil
			vm.state.ErrorMessage = userMessage(err)
			vm.state.IsLoading = false
			vm.mu.Unlock()
			vm.logger.Error("イベント一覧の取得に失敗しました", slog.String("error", err.Error()))
			vm.publish()
			return
		}

		vm.state.Events = fetched
		vm.state.IsLoading = false
		vm.mu.Unlock()
		vm.publish()
	})
}

// ToggleFavorite はイベントのお気に入り状態を反転し、
// 一覧内の該当イベントのフラグを更新する。
func (vm *ListViewModel) ToggleFavorite(ctx context.Context, event model.Event) error {
	favorite, err := vm.favorites.Toggle(ctx, event)
	if err != nil {
		return err
	}

	vm.mu.Lock()
	for i := range vm.state.Events {
		if vm.state.Events[i].Equal(event) {
			vm.state.Events[i].IsFavorite = favorite
		}
	}
	vm.mu.Unlock()
	vm.publish()
	return nil
}

func (vm *ListViewModel) publish() {
	vm.mu.Lock()
	observer := vm.observer
	state := vm.snapshotLocked()
	vm.mu.Unlock()

	if observer != nil {
		observer(state)
	}
}

func (vm *ListViewModel) snapshotLocked() ListState {
	state := vm.state
	state.Events = append([]model.Event(nil), vm.state.Events...)
	return state
}

// userMessage はエラーからUI表示用のメッセージを導出する。
func userMessage(err error) string {
	var fetchErr *model.FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.UserMessage()
	}
	return "予期しないエラーが発生しました。"
}
